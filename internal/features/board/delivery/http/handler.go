package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/features/board/service"
)

type BoardHandler struct {
	boardService service.BoardService
}

func NewBoardHandler(boardService service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

func (h *BoardHandler) RegisterRoutes(router *gin.RouterGroup) {
	boards := router.Group("/boards")
	{
		boards.POST("", h.Create)
		boards.GET("", h.List)
		boards.GET("/:id", h.Get)
		boards.DELETE("/:id", h.Delete)
	}
	// Lives outside /boards: a static segment there would collide with the
	// :id wildcard used by the invoice route.
	router.POST("/profiles/:npub/board", h.CreateFromNpub)
	router.GET("/explore", h.Explore)
}

type boardResponse struct {
	BoardID string             `json:"boardId"`
	Config  models.BoardConfig `json:"config"`
}

// Create publishes a new board config and records it in the local directory.
func (h *BoardHandler) Create(c *gin.Context) {
	var input models.BoardCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	board, err := h.boardService.Create(c.Request.Context(), &input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, boardResponse{BoardID: board.BoardID, Config: board.Config})
}

// CreateFromNpub bootstraps a board from a public profile: the Lightning
// address comes from the profile's lud16 field.
func (h *BoardHandler) CreateFromNpub(c *gin.Context) {
	npub := c.Param("npub")

	board, err := h.boardService.CreateFromNpub(c.Request.Context(), npub)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, boardResponse{BoardID: board.BoardID, Config: board.Config})
}

// Get resolves the authoritative config for a board id.
func (h *BoardHandler) Get(c *gin.Context) {
	boardID := c.Param("id")

	config, err := h.boardService.Get(c.Request.Context(), boardID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, config)
}

// List returns the boards created through this instance.
func (h *BoardHandler) List(c *gin.Context) {
	boards, err := h.boardService.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]boardResponse, 0, len(boards))
	for _, board := range boards {
		out = append(out, boardResponse{BoardID: board.BoardID, Config: board.Config})
	}
	c.JSON(http.StatusOK, gin.H{"boards": out})
}

// Delete removes a board from the local directory. The published record is
// left alone: replaceable records have no portable delete.
func (h *BoardHandler) Delete(c *gin.Context) {
	if err := h.boardService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Explore lists publicly discoverable boards collected by the explore worker.
func (h *BoardHandler) Explore(c *gin.Context) {
	configs, err := h.boardService.Explore(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": configs})
}
