package handlers

import (
	"fitsync/internal/core"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ActivityHandler serves aggregated activity and energy balance
type ActivityHandler struct {
	service  core.SyncService
	balance  core.BalanceService
	location *time.Location
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(service core.SyncService, balance core.BalanceService, loc *time.Location) *ActivityHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityHandler{
		service:  service,
		balance:  balance,
		location: loc,
	}
}

// GetActivity returns the day's activity
// GET /activity/:date
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	date, err := parseDay(c.Param("date"), h.location)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	data := h.service.GetActivityData(c.Request.Context(), date)
	if data == nil {
		respondError(c, http.StatusNotFound, "NO_DATA", "No activity data for this date")
		return
	}
	c.JSON(http.StatusOK, data)
}

// GetBalance returns the day's energy balance
// GET /balance/:date
func (h *ActivityHandler) GetBalance(c *gin.Context) {
	date, err := parseDay(c.Param("date"), h.location)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	balance := h.balance.ComputeBalance(c.Request.Context(), date)
	if balance == nil {
		respondError(c, http.StatusNotFound, "NO_DATA", "Calories burned unknown for this date")
		return
	}
	c.JSON(http.StatusOK, balance)
}
