package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/realtime"
	"tritmo/internal/utils"
)

// NotificationHandler handles the persisted notification feed. The feed
// mirrors what the realtime hub pushes; clients that were offline catch up
// from here.
type NotificationHandler struct {
	DB        *gorm.DB
	Publisher realtime.EventPublisher
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB, publisher realtime.EventPublisher) *NotificationHandler {
	return &NotificationHandler{DB: db, Publisher: publisher}
}

// GetNotifications handles listing the caller's notifications: those scoped
// to their user id, their role, or everyone.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Where("scope IN ?", []string{userID, string(role), models.ScopeAll}).
		Order("created_at DESC").
		Limit(100)

	if c.Query("unread") == "true" {
		query = query.Where("`read` = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications: "+err.Error())
		return
	}

	utils.Success(c, "Notifications fetched successfully", notifications)
}

// MarkNotificationRead handles marking one notification as read.
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	var notification models.Notification
	if err := h.DB.First(&notification, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Notification not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !notification.AddressedTo(userID, role) {
		utils.Forbidden(c, "This notification is not addressed to you")
		return
	}

	notification.Read = true
	if err := h.DB.Save(&notification).Error; err != nil {
		utils.InternalServerError(c, "Failed to update notification: "+err.Error())
		return
	}

	utils.Success(c, "Notification marked as read", notification)
}

// MarkAllNotificationsRead handles marking every notification addressed to
// the caller as read.
func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	err := h.DB.Model(&models.Notification{}).
		Where("scope IN ? AND `read` = ?", []string{userID, string(role), models.ScopeAll}, false).
		Update("read", true).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to update notifications: "+err.Error())
		return
	}

	utils.Success(c, "All notifications marked as read", nil)
}

// BroadcastRequest represents the request body for an admin broadcast.
type BroadcastRequest struct {
	// Scope is a user id, a role name, or "all".
	Scope   string `json:"scope" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Broadcast handles an admin pushing an announcement. The notification is
// persisted for catch-up and published to connected clients immediately.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	notification := models.Notification{
		Scope:   req.Scope,
		Kind:    realtime.EventNotificationNew,
		Message: req.Message,
	}
	if err := h.DB.Create(&notification).Error; err != nil {
		utils.InternalServerError(c, "Failed to store notification: "+err.Error())
		return
	}

	if h.Publisher != nil {
		h.Publisher.Publish(c.Request.Context(), realtime.Event{
			Type:    realtime.EventNotificationNew,
			Scope:   req.Scope,
			Message: req.Message,
		})
	}

	utils.Created(c, "Broadcast sent", notification)
}
