package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/wallet/models"
	"zapboard-backend/internal/platform/nostr"
	"zapboard-backend/internal/platform/relay"
)

const credentialScheme = "nostr+walletconnect"

// WalletBus is the slice of the relay pool the wallet handshake needs.
type WalletBus interface {
	AwaitConnected(ctx context.Context, url string) error
	Publish(ctx context.Context, ev *nostr.Event) error
	Subscribe(ctx context.Context, filters []nostr.Filter, onEvent func(*nostr.Event)) (relay.CancelFunc, error)
}

// WalletService validates wallet connection strings end to end: parse the
// credential, then perform an encrypted capability handshake over the
// credential's relay.
type WalletService interface {
	ParseCredential(raw string) (*models.Credential, error)
	Validate(ctx context.Context, raw string) (*models.ValidateResponse, error)
}

type walletService struct {
	bus     WalletBus
	timeout time.Duration
	log     zerolog.Logger
}

func NewWalletService(bus WalletBus, timeout time.Duration, log zerolog.Logger) WalletService {
	return &walletService{bus: bus, timeout: timeout, log: log}
}

// ParseCredential rejects malformed connection strings before any network
// traffic happens.
func (s *walletService) ParseCredential(raw string) (*models.Credential, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperrors.NewWalletMalformedError("not a valid URI")
	}
	if u.Scheme != credentialScheme {
		return nil, apperrors.NewWalletMalformedError("scheme must be " + credentialScheme)
	}

	walletPubkey := u.Host
	if walletPubkey == "" {
		walletPubkey = u.Opaque
	}
	if len(walletPubkey) != 64 {
		return nil, apperrors.NewWalletMalformedError("wallet pubkey must be 64 hex characters")
	}

	query := u.Query()
	relayURL := query.Get("relay")
	if relayURL == "" {
		return nil, apperrors.NewWalletMalformedError("missing relay parameter")
	}
	if !strings.HasPrefix(relayURL, "ws://") && !strings.HasPrefix(relayURL, "wss://") {
		return nil, apperrors.NewWalletMalformedError("relay must be a websocket url")
	}

	secret := query.Get("secret")
	if len(secret) != 64 {
		return nil, apperrors.NewWalletMalformedError("secret must be 64 hex characters")
	}
	if _, err := nostr.PublicKey(secret); err != nil {
		return nil, apperrors.NewWalletMalformedError("secret is not a valid key")
	}

	return &models.Credential{
		WalletPubkey: walletPubkey,
		RelayURL:     relayURL,
		Secret:       secret,
	}, nil
}

type walletRPC struct {
	Method string `json:"method"`
}

type walletReply struct {
	ResultType string `json:"result_type"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result *models.WalletInfo `json:"result"`
}

// Validate performs a get_info round trip against the wallet. The wallet must
// answer on its own relay within the configured window; silence is reported
// as unreachable, an error reply as rejected.
func (s *walletService) Validate(ctx context.Context, raw string) (*models.ValidateResponse, error) {
	cred, err := s.ParseCredential(raw)
	if err != nil {
		return nil, err
	}

	clientPubkey, err := nostr.PublicKey(cred.Secret)
	if err != nil {
		return nil, apperrors.NewWalletMalformedError("secret is not a valid key")
	}
	sharedKey, err := nostr.SharedSecret(cred.Secret, cred.WalletPubkey)
	if err != nil {
		return nil, apperrors.NewWalletMalformedError("wallet pubkey is not a valid key")
	}

	payload, err := json.Marshal(walletRPC{Method: "get_info"})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encode wallet request")
	}
	encrypted, err := nostr.Encrypt(string(payload), sharedKey)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encrypt wallet request")
	}

	request := &nostr.Event{
		Kind:      nostr.KindWalletRequest,
		CreatedAt: time.Now().Unix(),
		Content:   encrypted,
		Tags:      []nostr.Tag{{"p", cred.WalletPubkey}},
	}
	if err := nostr.Sign(request, cred.Secret); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to sign wallet request")
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The wallet listens on exactly one relay; publishing before that
	// connection is up would drop the request on the floor.
	if err := s.bus.AwaitConnected(waitCtx, cred.RelayURL); err != nil {
		return nil, apperrors.NewWalletUnreachableError(err)
	}

	replies := make(chan *nostr.Event, 8)
	unsubscribe, err := s.bus.Subscribe(waitCtx, []nostr.Filter{{
		Kinds:   []int{nostr.KindWalletResponse},
		Authors: []string{cred.WalletPubkey},
		Tags: map[string][]string{
			"p": {clientPubkey},
			"e": {request.ID},
		},
	}}, func(ev *nostr.Event) {
		select {
		case replies <- ev:
		default:
		}
	})
	if err != nil {
		return nil, apperrors.NewWalletUnreachableError(err)
	}
	defer unsubscribe()

	if err := s.bus.Publish(waitCtx, request); err != nil {
		return nil, apperrors.NewWalletUnreachableError(err)
	}

	var reply *nostr.Event
	for reply == nil {
		var candidate *nostr.Event
		select {
		case candidate = <-replies:
		case <-waitCtx.Done():
			return nil, apperrors.NewWalletUnreachableError(waitCtx.Err())
		}
		// Relays are untrusted; only a reply signed by the wallet itself
		// ends the wait.
		if nostr.Verify(candidate) != nil || candidate.PubKey != cred.WalletPubkey {
			s.log.Debug().Str("event_id", candidate.ID).Msg("Ignoring forged wallet reply")
			continue
		}
		reply = candidate
	}

	plaintext, err := nostr.Decrypt(reply.Content, sharedKey)
	if err != nil {
		return nil, apperrors.NewWalletRejectedError("DECRYPT_FAILED", "reply could not be decrypted")
	}

	var parsed walletReply
	if err := json.Unmarshal([]byte(plaintext), &parsed); err != nil {
		return nil, apperrors.NewWalletRejectedError("MALFORMED_REPLY", "reply is not valid JSON")
	}
	if parsed.Error != nil {
		return nil, apperrors.NewWalletRejectedError(parsed.Error.Code, parsed.Error.Message)
	}

	resp := &models.ValidateResponse{
		Valid:        true,
		WalletPubkey: cred.WalletPubkey,
		RelayURL:     cred.RelayURL,
	}
	if parsed.Result != nil {
		resp.Methods = parsed.Result.Methods
	}

	s.log.Info().Str("wallet_pubkey", cred.WalletPubkey).Msg("Wallet validated")
	return resp, nil
}
