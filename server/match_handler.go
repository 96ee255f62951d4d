package server

import (
	"net/http"

	"wingman/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type matchHandler struct {
	matches service.MatchService
}

func (h *matchHandler) register(r gin.IRoutes) {
	r.GET("/matches", h.listMatches)
	r.POST("/matches", h.propose)
	r.POST("/matches/:id/respond", h.respond)
	r.POST("/matches/:id/outcome", h.reportOutcome)
}

type proposeMatchRequest struct {
	UserAID uuid.UUID `json:"userAId"`
	UserBID uuid.UUID `json:"userBId"`
}

func (h *matchHandler) propose(c *gin.Context) {
	var req proposeMatchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserAID == uuid.Nil || req.UserBID == uuid.Nil {
		badRequest(c, "userAId and userBId are required")
		return
	}

	match, err := h.matches.ProposeMatch(c.Request.Context(), currentUser(c), req.UserAID, req.UserBID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, match)
}

func (h *matchHandler) respond(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req respondRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.matches.RespondToMatch(c.Request.Context(), currentUser(c), matchID, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type outcomeRequest struct {
	Success *bool `json:"success" binding:"required"`
}

func (h *matchHandler) reportOutcome(c *gin.Context) {
	matchID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req outcomeRequest
	if !bindJSON(c, &req) {
		return
	}

	match, err := h.matches.ReportDateOutcome(c.Request.Context(), currentUser(c), matchID, *req.Success)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

func (h *matchHandler) listMatches(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	matches, err := h.matches.ListMatches(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}
