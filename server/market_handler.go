package server

import (
	"net/http"

	"wingman/models"
	"wingman/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type marketHandler struct {
	markets service.MarketService
}

func (h *marketHandler) register(r gin.IRoutes) {
	r.GET("/markets", h.listMarkets)
	r.GET("/markets/:id", h.getMarket)
	r.POST("/markets/:id/bets", h.placeBet)
	r.POST("/markets/:id/resolve", h.resolve)
}

func (h *marketHandler) listMarkets(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}

	var state *models.MarketState
	if raw := c.Query("state"); raw != "" {
		s := models.MarketState(raw)
		switch s {
		case models.MarketStateOpen, models.MarketStateClosed, models.MarketStateResolved:
			state = &s
		default:
			badRequest(c, "state must be open, closed or resolved")
			return
		}
	}

	markets, err := h.markets.ListMarkets(c.Request.Context(), state, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, markets)
}

func (h *marketHandler) getMarket(c *gin.Context) {
	marketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.markets.GetMarket(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type placeBetRequest struct {
	Position *bool           `json:"position" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	TxHash   *string         `json:"txHash"`
}

func (h *marketHandler) placeBet(c *gin.Context) {
	marketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req placeBetRequest
	if !bindJSON(c, &req) {
		return
	}

	bet, err := h.markets.PlaceBet(c.Request.Context(), marketID, currentUser(c), *req.Position, req.Amount, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bet)
}

type resolveRequest struct {
	Outcome    *bool      `json:"outcome" binding:"required"`
	ResolverID *uuid.UUID `json:"resolverId"`
	Evidence   string     `json:"evidence"`
}

func (h *marketHandler) resolve(c *gin.Context) {
	marketID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}

	resolverID := currentUser(c)
	if req.ResolverID != nil && *req.ResolverID != resolverID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "resolverId must be the authenticated user"})
		return
	}

	result, err := h.markets.ResolveMarket(c.Request.Context(), marketID, resolverID, *req.Outcome, req.Evidence)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
