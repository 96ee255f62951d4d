package server

import (
	"net/http"

	"wingman/service"

	"github.com/gin-gonic/gin"
)

type userHandler struct {
	users service.UserService
}

func (h *userHandler) register(r gin.IRoutes) {
	r.GET("/me", h.getProfile)
	r.PUT("/me/wallet", h.updateWallet)
}

func (h *userHandler) getProfile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateWalletRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

func (h *userHandler) updateWallet(c *gin.Context) {
	var req updateWalletRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateWallet(c.Request.Context(), currentUser(c), req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
