package workers

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/features/board/repository"
	"zapboard-backend/internal/platform/nostr"
	"zapboard-backend/internal/platform/relay"
)

const resubscribeBackoff = 5 * time.Second

// ExploreWorker watches the network for board-config records and keeps the
// public board index current: explorable configs are indexed, and a board
// that republishes as non-explorable is removed.
type ExploreWorker struct {
	bus     Bus
	explore repository.ExploreRepository
	log     zerolog.Logger
}

// Bus is the slice of the relay pool the worker needs.
type Bus interface {
	Subscribe(ctx context.Context, filters []nostr.Filter, onEvent func(*nostr.Event)) (relay.CancelFunc, error)
}

func NewExploreWorker(bus Bus, explore repository.ExploreRepository, log zerolog.Logger) *ExploreWorker {
	return &ExploreWorker{bus: bus, explore: explore, log: log}
}

// Start runs until the context is cancelled, resubscribing if the pool
// rejects the subscription (no relays connected yet at startup).
func (w *ExploreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Starting explore worker")

	for {
		cancel, err := w.bus.Subscribe(ctx, []nostr.Filter{{
			Kinds: []int{nostr.KindBoardConfig},
		}}, func(ev *nostr.Event) {
			w.processConfig(ctx, ev)
		})
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeBackoff):
				continue
			}
		}

		<-ctx.Done()
		cancel()
		w.log.Info().Msg("Stopping explore worker")
		return
	}
}

func (w *ExploreWorker) processConfig(ctx context.Context, ev *nostr.Event) {
	if ev.Kind != nostr.KindBoardConfig {
		return
	}
	if err := nostr.Verify(ev); err != nil {
		return
	}

	var config models.BoardConfig
	if err := json.Unmarshal([]byte(ev.Content), &config); err != nil {
		return
	}
	if config.BoardID == "" || config.BoardID != ev.TagValue("d") || config.CreatorPubkey != ev.PubKey {
		return
	}
	if err := config.Validate(); err != nil {
		return
	}

	if !config.IsExplorable {
		if err := w.explore.RemoveExplorable(ctx, config.BoardID); err != nil {
			w.log.Error().Err(err).Str("board_id", config.BoardID).Msg("Failed to drop board from explore index")
		}
		return
	}

	if err := w.explore.SaveExplorable(ctx, &config); err != nil {
		w.log.Error().Err(err).Str("board_id", config.BoardID).Msg("Failed to index explorable board")
		return
	}
	w.log.Debug().Str("board_id", config.BoardID).Msg("Indexed explorable board")
}
