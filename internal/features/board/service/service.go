package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/board/models"
	"zapboard-backend/internal/features/board/repository"
	"zapboard-backend/internal/platform/nostr"
	"zapboard-backend/internal/platform/relay"
)

type boardService struct {
	repo           repository.BoardRepository
	explore        repository.ExploreRepository
	bus            RelayBus
	addresses      AddressValidator
	relayHints     []string
	publishTimeout time.Duration
	fetchTimeout   time.Duration
	log            zerolog.Logger
}

func NewBoardService(
	repo repository.BoardRepository,
	explore repository.ExploreRepository,
	bus RelayBus,
	addresses AddressValidator,
	relayHints []string,
	publishTimeout, fetchTimeout time.Duration,
	log zerolog.Logger,
) BoardService {
	return &boardService{
		repo:           repo,
		explore:        explore,
		bus:            bus,
		addresses:      addresses,
		relayHints:     relayHints,
		publishTimeout: publishTimeout,
		fetchTimeout:   fetchTimeout,
		log:            log,
	}
}

func (s *boardService) Create(ctx context.Context, input *models.BoardCreate) (*models.StoredBoard, error) {
	signingKey, err := nostr.GeneratePrivateKey()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate board key")
	}
	creatorPubkey, err := nostr.PublicKey(signingKey)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to derive board pubkey")
	}

	config := &models.BoardConfig{
		BoardID:          uuid.New().String(),
		BoardName:        strings.TrimSpace(input.BoardName),
		LightningAddress: strings.TrimSpace(input.LightningAddress),
		MinZapAmount:     input.MinZapAmount,
		CreatorPubkey:    creatorPubkey,
		CreatedAt:        time.Now().UnixMilli(),
		IsExplorable:     input.IsExplorable,
		Relays:           s.relayHints,
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewValidationError("board", err.Error())
	}
	if err := s.addresses.ValidateAddress(ctx, config.LightningAddress); err != nil {
		return nil, err
	}

	return s.publishAndStore(ctx, config, signingKey)
}

func (s *boardService) CreateFromNpub(ctx context.Context, npub string) (*models.StoredBoard, error) {
	pubkey, err := nostr.DecodeNpub(npub)
	if err != nil {
		return nil, apperrors.NewValidationError("npub", err.Error())
	}

	profile, err := s.fetchProfile(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	if profile.Lud16 == "" {
		return nil, apperrors.NewEligibilityError("Profile has no Lightning address (lud16)")
	}

	username := profile.Name
	if username == "" {
		username = profile.DisplayName
	}
	if username == "" {
		username = "Anonymous"
	}

	signingKey, err := nostr.GeneratePrivateKey()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate board key")
	}
	creatorPubkey, _ := nostr.PublicKey(signingKey)

	boardID := uuid.New().String()
	config := &models.BoardConfig{
		BoardID:          boardID,
		BoardName:        fmt.Sprintf("%s's Board-%s", username, boardID[:8]),
		LightningAddress: profile.Lud16,
		MinZapAmount:     models.DefaultMinZapAmount,
		CreatorPubkey:    creatorPubkey,
		CreatedAt:        time.Now().UnixMilli(),
		IsExplorable:     false,
		Relays:           s.relayHints,
	}
	if err := s.addresses.ValidateAddress(ctx, config.LightningAddress); err != nil {
		return nil, err
	}

	return s.publishAndStore(ctx, config, signingKey)
}

func (s *boardService) publishAndStore(ctx context.Context, config *models.BoardConfig, signingKey string) (*models.StoredBoard, error) {
	if err := s.Publish(ctx, config, signingKey); err != nil {
		return nil, err
	}

	stored := &models.StoredBoard{
		BoardID:    config.BoardID,
		Config:     *config,
		SigningKey: signingKey,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		// The record is already on the network; losing the local entry only
		// degrades the fallback path.
		s.log.Error().Err(err).Str("board_id", config.BoardID).Msg("Failed to store board locally")
		return nil, apperrors.NewStorageError("save board", err)
	}

	s.log.Info().
		Str("board_id", config.BoardID).
		Str("board_name", config.BoardName).
		Msg("Board created")
	return stored, nil
}

// Publish wraps the config as a replaceable record for the
// (creatorPubkey, boardId) slot, signs it and fans it out. A later publish on
// the same slot supersedes this one for anyone comparing createdAt.
func (s *boardService) Publish(ctx context.Context, config *models.BoardConfig, signingKey string) error {
	if err := config.Validate(); err != nil {
		return apperrors.NewValidationError("board", err.Error())
	}

	content, err := json.Marshal(config)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encode board config")
	}

	ev := &nostr.Event{
		Kind:      nostr.KindBoardConfig,
		CreatedAt: config.CreatedAt / 1000,
		Content:   string(content),
		Tags:      []nostr.Tag{{"d", config.BoardID}},
	}
	if err := nostr.Sign(ev, signingKey); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to sign board config")
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.bus.Publish(pubCtx, ev); err != nil {
		return apperrors.NewPublishFailedError(err)
	}
	return nil
}

// Fetch resolves the authoritative config for a board id from the network:
// every candidate is codec-verified, then the greatest createdAt wins.
func (s *boardService) Fetch(ctx context.Context, boardID string) (*models.BoardConfig, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	events, err := s.bus.Query(queryCtx, []nostr.Filter{{
		Kinds: []int{nostr.KindBoardConfig},
		Tags:  map[string][]string{"d": {boardID}},
	}})
	if err != nil {
		if errors.Is(err, relay.ErrNoRelays) {
			// Nothing to consult: same outcome as an empty query, so the
			// caller can still fall back to the local directory.
			return nil, apperrors.NewBoardNotFoundError(boardID)
		}
		return nil, apperrors.NewNetworkError("fetch board config", err)
	}
	if len(events) == 0 {
		return nil, apperrors.NewBoardNotFoundError(boardID)
	}

	var best *models.BoardConfig
	var bestEventTime int64
	for _, ev := range events {
		config, ok := s.decodeConfig(ev, boardID)
		if !ok {
			continue
		}
		if best == nil ||
			config.CreatedAt > best.CreatedAt ||
			(config.CreatedAt == best.CreatedAt && ev.CreatedAt > bestEventTime) {
			best = config
			bestEventTime = ev.CreatedAt
		}
	}
	if best == nil {
		return nil, apperrors.New(apperrors.ErrCodeVerificationFailed, "No verifiable board config on the network")
	}
	return best, nil
}

func (s *boardService) decodeConfig(ev *nostr.Event, boardID string) (*models.BoardConfig, bool) {
	if err := nostr.Verify(ev); err != nil {
		s.log.Debug().Err(err).Str("event_id", ev.ID).Msg("Dropping unverifiable board config")
		return nil, false
	}
	if ev.Kind != nostr.KindBoardConfig || ev.TagValue("d") != boardID {
		return nil, false
	}

	var config models.BoardConfig
	if err := json.Unmarshal([]byte(ev.Content), &config); err != nil {
		s.log.Debug().Err(err).Str("event_id", ev.ID).Msg("Dropping malformed board config")
		return nil, false
	}
	// The body must agree with the record's slot.
	if config.BoardID != boardID || config.CreatorPubkey != ev.PubKey {
		return nil, false
	}
	if err := config.Validate(); err != nil {
		return nil, false
	}
	return &config, true
}

// Get resolves a board from the network, falling back to the local directory
// when the network has no record yet (replication lag right after creation).
func (s *boardService) Get(ctx context.Context, boardID string) (*models.BoardConfig, error) {
	config, err := s.Fetch(ctx, boardID)
	if err == nil {
		for _, url := range config.Relays {
			s.bus.Ensure(url)
		}
		return config, nil
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok || !appErr.IsNotFound() {
		return nil, err
	}

	stored, repoErr := s.repo.GetByID(ctx, boardID)
	if repoErr != nil {
		if repoErr == repository.ErrNotFound {
			return nil, apperrors.NewBoardNotFoundError(boardID)
		}
		return nil, apperrors.NewStorageError("get board", repoErr)
	}
	return &stored.Config, nil
}

func (s *boardService) List(ctx context.Context) ([]*models.StoredBoard, error) {
	boards, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list boards", err)
	}
	return boards, nil
}

func (s *boardService) Delete(ctx context.Context, boardID string) error {
	if err := s.repo.Delete(ctx, boardID); err != nil {
		return apperrors.NewStorageError("delete board", err)
	}
	return nil
}

func (s *boardService) Explore(ctx context.Context) ([]*models.BoardConfig, error) {
	configs, err := s.explore.ListExplorable(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list explorable boards", err)
	}
	return configs, nil
}

type profileMetadata struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lud16       string `json:"lud16"`
}

func (s *boardService) fetchProfile(ctx context.Context, pubkey string) (*profileMetadata, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	events, err := s.bus.Query(queryCtx, []nostr.Filter{{
		Kinds:   []int{nostr.KindProfile},
		Authors: []string{pubkey},
		Limit:   1,
	}})
	if err != nil {
		return nil, apperrors.NewNetworkError("fetch profile", err)
	}

	var best *nostr.Event
	for _, ev := range events {
		if nostr.Verify(ev) != nil || ev.PubKey != pubkey {
			continue
		}
		if best == nil || ev.CreatedAt > best.CreatedAt {
			best = ev
		}
	}
	if best == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "Profile not found for npub")
	}

	var profile profileMetadata
	if err := json.Unmarshal([]byte(best.Content), &profile); err != nil {
		return nil, apperrors.NewValidationError("profile", "profile metadata is not valid JSON")
	}
	return &profile, nil
}
