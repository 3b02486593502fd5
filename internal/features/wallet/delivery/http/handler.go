package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/wallet/models"
	"zapboard-backend/internal/features/wallet/service"
)

type WalletHandler struct {
	walletService service.WalletService
}

func NewWalletHandler(walletService service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/wallet/validate", h.Validate)
}

// Validate checks a wallet connection string by performing the capability
// handshake against the wallet's relay.
func (h *WalletHandler) Validate(c *gin.Context) {
	var input models.ValidateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	result, err := h.walletService.Validate(c.Request.Context(), input.ConnectionString)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
