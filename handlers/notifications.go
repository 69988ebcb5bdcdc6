package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	notificationRepo "gymbuddy/database/repository/notification"
	"gymbuddy/models"
	"gymbuddy/utils"
)

// NotificationHandler lists persisted notification records so a
// presentation layer can show users what they were told.
type NotificationHandler struct {
	Repo   notificationRepo.NotificationRepository
	Logger *zap.Logger
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(repo notificationRepo.NotificationRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{Repo: repo, Logger: logger}
}

// ListNotificationsHandler returns a user's most recent notifications.
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	userID := c.Param("userID")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := h.Repo.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		h.Logger.Error("failed to list notifications", zap.String("userId", userID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "could not fetch notifications")
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

// MarkNotificationReadHandler marks one notification as read.
func (h *NotificationHandler) MarkNotificationReadHandler(c *gin.Context) {
	id := c.Param("notificationID")
	err := h.Repo.MarkRead(c.Request.Context(), id)
	if errors.Is(err, notificationRepo.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, "not found", "unknown notification "+id)
		return
	}
	if err != nil {
		h.Logger.Error("failed to mark notification read", zap.String("id", id), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "could not update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}
