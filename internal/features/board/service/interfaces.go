package service

import (
	"context"

	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/platform/nostr"
)

// RelayBus is the slice of the relay pool the registry needs.
type RelayBus interface {
	Publish(ctx context.Context, ev *nostr.Event) error
	Query(ctx context.Context, filters []nostr.Filter) ([]*nostr.Event, error)
	Ensure(url string)
}

// AddressValidator checks that a payable address resolves to a working
// payment endpoint before a board is created for it.
type AddressValidator interface {
	ValidateAddress(ctx context.Context, address string) error
}

// BoardService owns the board registry: publishing and resolving the
// authoritative board-configuration record and the creator-side directory.
type BoardService interface {
	Create(ctx context.Context, input *models.BoardCreate) (*models.StoredBoard, error)
	CreateFromNpub(ctx context.Context, npub string) (*models.StoredBoard, error)
	Get(ctx context.Context, boardID string) (*models.BoardConfig, error)
	Fetch(ctx context.Context, boardID string) (*models.BoardConfig, error)
	Publish(ctx context.Context, config *models.BoardConfig, signingKey string) error
	List(ctx context.Context) ([]*models.StoredBoard, error)
	Delete(ctx context.Context, boardID string) error
	Explore(ctx context.Context) ([]*models.BoardConfig, error)
}
