package handlers

import (
	"errors"
	"fitsync/internal/core"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DevicesHandler handles device-related requests
type DevicesHandler struct {
	service  core.SyncService
	location *time.Location
	logger   *slog.Logger
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(service core.SyncService, loc *time.Location, logger *slog.Logger) *DevicesHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DevicesHandler{
		service:  service,
		location: loc,
		logger:   logger,
	}
}

type connectRequest struct {
	Provider string `json:"provider" binding:"required"`
}

type syncRequest struct {
	Date string `json:"date"`
}

// ListDevices returns the user's connected devices
// GET /devices
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListConnectedDevices(c.Request.Context()))
}

// ConnectDevice authorizes a provider and registers the device.
// It blocks until the user completes or abandons the authorization.
// POST /devices/connect
func (h *DevicesHandler) ConnectDevice(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	provider, err := core.ParseProviderType(req.Provider)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PROVIDER", err.Error())
		return
	}

	result := h.service.ConnectDevice(c.Request.Context(), provider)
	if !result.Success {
		h.logger.Info("Device connection failed",
			"component", "api.devices",
			"provider", provider,
			"kind", result.Kind,
			"error", result.Error,
		)
		respondError(c, outcomeStatus(result.Kind), outcomeCode(result.Kind), result.Error)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// SyncAllDevices runs a batch sync
// POST /devices/sync
func (h *DevicesHandler) SyncAllDevices(c *gin.Context) {
	date, ok := h.bindSyncDate(c)
	if !ok {
		return
	}

	result := h.service.SyncAllDevices(c.Request.Context(), date)
	c.JSON(http.StatusOK, gin.H{
		"success_count": result.SuccessCount,
		"failed_count":  result.FailedCount,
		"total":         result.Total(),
	})
}

// SyncDevice syncs a single device
// POST /devices/:id/sync
func (h *DevicesHandler) SyncDevice(c *gin.Context) {
	date, ok := h.bindSyncDate(c)
	if !ok {
		return
	}

	deviceID := c.Param("id")
	if !h.service.SyncDevice(c.Request.Context(), deviceID, date) {
		respondError(c, http.StatusBadGateway, "SYNC_FAILED", "Device sync failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"success":   true,
	})
}

// DisconnectDevice clears the device's credentials and removes it
// DELETE /devices/:id
func (h *DevicesHandler) DisconnectDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if !h.service.DisconnectDevice(c.Request.Context(), deviceID) {
		respondError(c, http.StatusNotFound, "DISCONNECT_FAILED", "Device not found or credentials could not be cleared")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id":    deviceID,
		"disconnected": true,
	})
}

// bindSyncDate reads the optional {"date": "YYYY-MM-DD"} body
func (h *DevicesHandler) bindSyncDate(c *gin.Context) (time.Time, bool) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return time.Time{}, false
	}

	date, err := parseDay(req.Date, h.location)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return time.Time{}, false
	}
	return date, true
}

func outcomeStatus(kind core.OutcomeKind) int {
	switch kind {
	case core.OutcomeCancelled:
		return http.StatusConflict
	case core.OutcomeMisconfigured:
		return http.StatusServiceUnavailable
	case core.OutcomeUnsupported:
		return http.StatusUnprocessableEntity
	case core.OutcomeRejected:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func outcomeCode(kind core.OutcomeKind) string {
	switch kind {
	case core.OutcomeCancelled:
		return "AUTHORIZATION_CANCELLED"
	case core.OutcomeMisconfigured:
		return "PROVIDER_MISCONFIGURED"
	case core.OutcomeUnsupported:
		return "UNSUPPORTED_PROVIDER"
	case core.OutcomeRejected:
		return "AUTHORIZATION_REJECTED"
	default:
		return "NETWORK_ERROR"
	}
}
