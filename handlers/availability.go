package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymbuddy/models"
	"gymbuddy/services/availability"
	"gymbuddy/utils"
)

// AvailabilityHandler exposes calendar reads and writes. Every successful
// write fans out to the reconcile hook through the service's change
// listeners.
type AvailabilityHandler struct {
	Service availability.AvailabilityService
	Logger  *zap.Logger
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(svc availability.AvailabilityService, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc, Logger: logger}
}

// GetAvailabilityHandler returns a user's weekly calendar. Users with no
// stored calendar read back as empty.
func (h *AvailabilityHandler) GetAvailabilityHandler(c *gin.Context) {
	userID := c.Param("userID")
	cal, err := h.Service.Get(c.Request.Context(), userID)
	if err != nil {
		h.Logger.Error("failed to fetch availability", zap.String("userId", userID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "could not fetch availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "availability": cal})
}

// SetAvailabilityHandler replaces a user's weekly calendar.
func (h *AvailabilityHandler) SetAvailabilityHandler(c *gin.Context) {
	userID := c.Param("userID")
	var input models.WeeklyAvailability
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := input.Validate(); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid calendar", err.Error())
		return
	}
	if err := h.Service.Set(c.Request.Context(), userID, input); err != nil {
		h.Logger.Error("failed to save availability", zap.String("userId", userID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "could not save availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID})
}
