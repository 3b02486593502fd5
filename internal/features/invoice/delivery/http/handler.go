package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "zapboard-backend/internal/common/errors"
	boardservice "zapboard-backend/internal/features/board/service"
	"zapboard-backend/internal/features/invoice/models"
	"zapboard-backend/internal/features/invoice/service"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	boardService   boardservice.BoardService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, boardService boardservice.BoardService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, boardService: boardService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/boards/:id/invoice", h.Create)
}

// Create resolves the board, enforces its minimum amount and returns a
// verified invoice bound to a signed payment request.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var input models.InvoiceCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	boardID := c.Param("id")
	config, err := h.boardService.Get(c.Request.Context(), boardID)
	if err != nil {
		c.Error(err)
		return
	}

	if input.AmountSats < config.MinZapAmount {
		c.Error(apperrors.New(apperrors.ErrCodeAmountOutOfRange,
			fmt.Sprintf("Amount %d sats is below the board minimum of %d sats", input.AmountSats, config.MinZapAmount)))
		return
	}

	invoice, err := h.invoiceService.Generate(c.Request.Context(), &models.InvoiceRequest{
		LightningAddress: config.LightningAddress,
		AmountSats:       input.AmountSats,
		Message:          input.Message,
		BoardID:          config.BoardID,
		RecipientPubkey:  config.CreatorPubkey,
		DisplayName:      input.DisplayName,
		Relays:           config.Relays,
		SenderKey:        input.SenderKey,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}
