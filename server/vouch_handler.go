package server

import (
	"net/http"

	"wingman/models"
	"wingman/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type vouchHandler struct {
	vouches service.VouchService
}

func (h *vouchHandler) register(r gin.IRoutes) {
	r.POST("/vouches", h.setVouch)
	r.GET("/vouches", h.listGiven)
	r.GET("/vouches/stats/:userId", h.getStats)
	r.GET("/vouches/history", h.getHistory)
}

type setVouchRequest struct {
	UserID       *uuid.UUID `json:"userId"`
	VouchedForID uuid.UUID  `json:"vouchedForId"`
	Points       *int       `json:"points" binding:"required,min=0,max=5"`
}

func (h *vouchHandler) setVouch(c *gin.Context) {
	var req setVouchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.VouchedForID == uuid.Nil {
		badRequest(c, "vouchedForId is required")
		return
	}

	voucherID := currentUser(c)
	if req.UserID != nil && *req.UserID != voucherID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "userId must be the authenticated user"})
		return
	}

	result, err := h.vouches.SetVouch(c.Request.Context(), voucherID, req.VouchedForID, *req.Points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *vouchHandler) getStats(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	stats, err := h.vouches.GetStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *vouchHandler) getHistory(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	history, err := h.vouches.GetHistory(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []*models.VouchHistory{}
	}
	c.JSON(http.StatusOK, history)
}

func (h *vouchHandler) listGiven(c *gin.Context) {
	vouches, err := h.vouches.ListGiven(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vouches)
}
