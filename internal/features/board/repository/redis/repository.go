package redis

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/features/board/repository"
)

const (
	boardKeyPrefix   = "board:"
	exploreKeyPrefix = "explore:board:"
)

type boardRepository struct {
	client *redis.Client
}

func NewBoardRepository(client *redis.Client) repository.BoardRepository {
	return &boardRepository{client: client}
}

func (r *boardRepository) Save(ctx context.Context, board *models.StoredBoard) error {
	data, err := json.Marshal(board)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, boardKeyPrefix+board.BoardID, data, 0).Err()
}

func (r *boardRepository) GetByID(ctx context.Context, boardID string) (*models.StoredBoard, error) {
	data, err := r.client.Get(ctx, boardKeyPrefix+boardID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	var board models.StoredBoard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("corrupt board entry %s: %w", boardID, err)
	}
	return &board, nil
}

func (r *boardRepository) List(ctx context.Context) ([]*models.StoredBoard, error) {
	var boards []*models.StoredBoard
	iter := r.client.Scan(ctx, 0, boardKeyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var board models.StoredBoard
		if err := json.Unmarshal(data, &board); err != nil {
			continue
		}
		boards = append(boards, &board)
	}

	return boards, iter.Err()
}

func (r *boardRepository) Delete(ctx context.Context, boardID string) error {
	return r.client.Del(ctx, boardKeyPrefix+boardID).Err()
}

type exploreRepository struct {
	client *redis.Client
}

func NewExploreRepository(client *redis.Client) repository.ExploreRepository {
	return &exploreRepository{client: client}
}

func (r *exploreRepository) SaveExplorable(ctx context.Context, config *models.BoardConfig) error {
	// Keep only the newest config per slot.
	existing, err := r.client.Get(ctx, exploreKeyPrefix+config.BoardID).Bytes()
	if err == nil {
		var old models.BoardConfig
		if json.Unmarshal(existing, &old) == nil && old.CreatedAt > config.CreatedAt {
			return nil
		}
	}

	data, err := json.Marshal(config)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, exploreKeyPrefix+config.BoardID, data, 0).Err()
}

func (r *exploreRepository) RemoveExplorable(ctx context.Context, boardID string) error {
	return r.client.Del(ctx, exploreKeyPrefix+boardID).Err()
}

func (r *exploreRepository) ListExplorable(ctx context.Context) ([]*models.BoardConfig, error) {
	var configs []*models.BoardConfig
	iter := r.client.Scan(ctx, 0, exploreKeyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}

		var config models.BoardConfig
		if err := json.Unmarshal(data, &config); err != nil {
			continue
		}
		configs = append(configs, &config)
	}

	return configs, iter.Err()
}
