package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"zapboard-backend/internal/features/zap/models"
	"zapboard-backend/internal/platform/lightning"
	"zapboard-backend/internal/platform/nostr"
	"zapboard-backend/internal/platform/relay"
)

// Bus is the slice of the relay pool the monitor needs.
type Bus interface {
	Subscribe(ctx context.Context, filters []nostr.Filter, onEvent func(*nostr.Event)) (relay.CancelFunc, error)
}

// Monitor turns raw payment receipts from untrusted relays into verified
// board messages. Every receipt is independently checked; relays are never
// trusted to filter or deduplicate correctly.
type Monitor struct {
	bus Bus
	log zerolog.Logger
}

func New(bus Bus, log zerolog.Logger) *Monitor {
	return &Monitor{bus: bus, log: log}
}

// Subscribe delivers each verified receipt for the board exactly once.
// Callbacks stop once the returned cancel func returns.
func (m *Monitor) Subscribe(ctx context.Context, boardID, recipientPubkey string, onMessage func(*models.ZapMessage)) (relay.CancelFunc, error) {
	var mu sync.Mutex
	seen := make(map[string]struct{})

	return m.bus.Subscribe(ctx, []nostr.Filter{{
		Kinds: []int{nostr.KindZapReceipt},
		Tags:  map[string][]string{"p": {recipientPubkey}},
	}}, func(ev *nostr.Event) {
		msg, ok := m.verifyReceipt(ev, boardID, recipientPubkey)
		if !ok {
			return
		}

		mu.Lock()
		if _, dup := seen[msg.ID]; dup {
			mu.Unlock()
			return
		}
		seen[msg.ID] = struct{}{}
		mu.Unlock()

		onMessage(msg)
	})
}

// verifyReceipt runs the full admission chain on one receipt. Any failure
// drops the receipt silently; a hostile relay must not be able to crash or
// pollute a board.
func (m *Monitor) verifyReceipt(ev *nostr.Event, boardID, recipientPubkey string) (*models.ZapMessage, bool) {
	if ev.Kind != nostr.KindZapReceipt {
		return nil, false
	}
	if err := nostr.Verify(ev); err != nil {
		m.log.Debug().Err(err).Str("event_id", ev.ID).Msg("Dropping unverifiable receipt")
		return nil, false
	}

	description := ev.TagValue("description")
	if description == "" {
		return nil, false
	}

	var request nostr.Event
	if err := json.Unmarshal([]byte(description), &request); err != nil {
		return nil, false
	}
	if request.Kind != nostr.KindZapRequest {
		return nil, false
	}
	if err := nostr.Verify(&request); err != nil {
		m.log.Debug().Err(err).Str("event_id", ev.ID).Msg("Dropping receipt with unverifiable request")
		return nil, false
	}

	// The embedded request must target this board and this recipient.
	if request.TagValue("board") != boardID || request.TagValue("p") != recipientPubkey {
		return nil, false
	}

	bolt11 := ev.TagValue("bolt11")
	if bolt11 == "" {
		return nil, false
	}
	inv, err := lightning.Decode(bolt11)
	if err != nil {
		return nil, false
	}
	// The invoice must commit to the request bytes, otherwise the receipt
	// issuer could attach an unrelated (or unpaid) invoice.
	if !invoiceCommitsTo(inv, description) {
		m.log.Debug().Str("event_id", ev.ID).Msg("Dropping receipt whose invoice does not commit to the request")
		return nil, false
	}
	if inv.MilliSat <= 0 {
		return nil, false
	}

	timestamp := ev.CreatedAt * 1000
	if timestamp <= 0 {
		timestamp = time.Now().UnixMilli()
	}

	return &models.ZapMessage{
		ID:           ev.ID,
		Content:      request.Content,
		DisplayName:  request.TagValue("name"),
		ZapAmount:    inv.MilliSat / 1000,
		Timestamp:    timestamp,
		SenderPubkey: request.PubKey,
	}, true
}

func invoiceCommitsTo(inv *lightning.Invoice, description string) bool {
	sum := sha256.Sum256([]byte(description))
	expected := hex.EncodeToString(sum[:])
	if inv.DescriptionHash != "" {
		return inv.DescriptionHash == expected
	}
	return inv.Description == description
}
