package notifications

import (
	"net/http"
	"strconv"

	"aanganwadi/internal/core/response"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Repository Repository
}

func NewNotificationHandler(r Repository) *NotificationHandler {
	return &NotificationHandler{Repository: r}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	authenticated := security.Authorize()

	router.GET("/notifications", authenticated, h.GetNotifications)
	router.PATCH("/notifications/read-all", authenticated, h.MarkAllRead)
	router.PATCH("/notifications/:id/read", authenticated, h.MarkRead)
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	notifications, err := h.Repository.ListForUser(c.Request.Context(), actor.UserID, unreadOnly)
	if err != nil {
		response.Error(c, "Failed to fetch notifications", err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	notification, err := h.Repository.MarkRead(c.Request.Context(), id, actor.UserID)
	if err != nil {
		response.Error(c, "Failed to mark notification as read", err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}

	updated, err := h.Repository.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, "Failed to mark notifications as read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
