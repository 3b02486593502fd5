package repository

import (
	"context"
	"errors"

	"zapboard-backend/internal/features/board/models"
)

// ErrNotFound is returned when a board is absent from the local directory.
var ErrNotFound = errors.New("board not found")

// BoardRepository is the injected local persistence port: a keyed directory
// of the creator's boards, also used as a fallback cache while the relay
// network catches up after a publish.
type BoardRepository interface {
	Save(ctx context.Context, board *models.StoredBoard) error
	GetByID(ctx context.Context, boardID string) (*models.StoredBoard, error)
	List(ctx context.Context) ([]*models.StoredBoard, error)
	Delete(ctx context.Context, boardID string) error
}

// ExploreRepository indexes publicly listable board configs.
type ExploreRepository interface {
	SaveExplorable(ctx context.Context, config *models.BoardConfig) error
	RemoveExplorable(ctx context.Context, boardID string) error
	ListExplorable(ctx context.Context) ([]*models.BoardConfig, error)
}
