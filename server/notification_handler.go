package server

import (
	"net/http"
	"strconv"

	"wingman/service"

	"github.com/gin-gonic/gin"
)

type notificationHandler struct {
	notifications service.NotificationService
}

func (h *notificationHandler) register(r gin.IRoutes) {
	r.GET("/notifications", h.list)
	r.POST("/notifications/:id/read", h.markRead)
}

func (h *notificationHandler) list(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid unread")
			return
		}
		unreadOnly = parsed
	}

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), currentUser(c), unreadOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *notificationHandler) markRead(c *gin.Context) {
	notificationID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c), notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
