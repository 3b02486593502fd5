// Package memory holds an in-memory board directory used in tests and as a
// zero-dependency fallback when Redis is not configured.
package memory

import (
	"context"
	"sync"

	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/features/board/repository"
)

type boardRepository struct {
	mu     sync.RWMutex
	boards map[string]models.StoredBoard
}

func NewBoardRepository() repository.BoardRepository {
	return &boardRepository{boards: make(map[string]models.StoredBoard)}
}

func (r *boardRepository) Save(_ context.Context, board *models.StoredBoard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards[board.BoardID] = *board
	return nil
}

func (r *boardRepository) GetByID(_ context.Context, boardID string) (*models.StoredBoard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	board, ok := r.boards[boardID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &board, nil
}

func (r *boardRepository) List(_ context.Context) ([]*models.StoredBoard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	boards := make([]*models.StoredBoard, 0, len(r.boards))
	for _, board := range r.boards {
		b := board
		boards = append(boards, &b)
	}
	return boards, nil
}

func (r *boardRepository) Delete(_ context.Context, boardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, boardID)
	return nil
}
