package server

import (
	"net/http"

	"wingman/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type friendHandler struct {
	friends service.FriendService
}

func (h *friendHandler) register(r gin.IRoutes) {
	r.GET("/friends", h.listFriends)
	r.GET("/friends/requests", h.listRequests)
	r.POST("/friends/requests", h.sendRequest)
	r.POST("/friends/requests/:id/respond", h.respond)
}

type friendRequest struct {
	AddresseeID uuid.UUID `json:"addresseeId"`
}

func (h *friendHandler) sendRequest(c *gin.Context) {
	var req friendRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AddresseeID == uuid.Nil {
		badRequest(c, "addresseeId is required")
		return
	}

	friendship, err := h.friends.SendRequest(c.Request.Context(), currentUser(c), req.AddresseeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, friendship)
}

type respondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *friendHandler) respond(c *gin.Context) {
	friendshipID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req respondRequest
	if !bindJSON(c, &req) {
		return
	}

	friendship, err := h.friends.RespondToRequest(c.Request.Context(), currentUser(c), friendshipID, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, friendship)
}

func (h *friendHandler) listFriends(c *gin.Context) {
	friends, err := h.friends.ListFriends(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (h *friendHandler) listRequests(c *gin.Context) {
	requests, err := h.friends.ListPendingRequests(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}
