package handlers

import (
	"context"
	"errors"
	"fitsync/internal/adapters/applehealth"
	"fitsync/internal/core"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PlatformBridge receives permission decisions and samples from the companion app
type PlatformBridge interface {
	RecordGrant(ctx context.Context, granted bool) error
	Upload(ctx context.Context, sample core.HealthData) error
}

// PlatformHandler handles the Apple Health companion app endpoints
type PlatformHandler struct {
	bridge   PlatformBridge
	location *time.Location
	logger   *slog.Logger
}

// NewPlatformHandler creates a new platform handler
func NewPlatformHandler(bridge PlatformBridge, loc *time.Location, logger *slog.Logger) *PlatformHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PlatformHandler{
		bridge:   bridge,
		location: loc,
		logger:   logger,
	}
}

type grantRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

type sampleRequest struct {
	Date           string   `json:"date" binding:"required"`
	Steps          int      `json:"steps"`
	CaloriesBurned float64  `json:"calories_burned"`
	ActiveMinutes  int      `json:"active_minutes"`
	HeartRate      *float64 `json:"heart_rate,omitempty"`
	Distance       *float64 `json:"distance,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
}

// RecordGrant stores the permission decision made on the phone
// POST /platform/apple-health/grant
func (h *PlatformHandler) RecordGrant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.bridge.RecordGrant(c.Request.Context(), *req.Granted); err != nil {
		h.logger.Error("Failed to record platform grant",
			"component", "api.platform",
			"error", err,
		)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record permission")
		return
	}

	c.JSON(http.StatusOK, gin.H{"granted": *req.Granted})
}

// UploadSample stores a daily snapshot
// POST /platform/apple-health/samples
func (h *PlatformHandler) UploadSample(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	date, err := core.ParseDate(req.Date, h.location)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	sample := core.HealthData{
		Date:           date,
		Steps:          req.Steps,
		CaloriesBurned: req.CaloriesBurned,
		ActiveMinutes:  req.ActiveMinutes,
		HeartRate:      req.HeartRate,
		Distance:       req.Distance,
		Weight:         req.Weight,
	}

	if err := h.bridge.Upload(c.Request.Context(), sample); err != nil {
		if errors.Is(err, applehealth.ErrPermissionNotGranted) {
			respondError(c, http.StatusForbidden, "PERMISSION_NOT_GRANTED", err.Error())
			return
		}
		h.logger.Error("Failed to store platform sample",
			"component", "api.platform",
			"error", err,
		)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store sample")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"date": req.Date, "stored": true})
}
