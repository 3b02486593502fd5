package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/bech32"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/invoice/models"
	"zapboard-backend/internal/platform/nostr"
)

// encodeInvoice builds a decodable invoice with a zeroed signature committing
// to the given description hash.
func encodeInvoice(t *testing.T, hrp string, descHash [32]byte) string {
	t.Helper()

	var data []byte
	timestamp := int64(1700000000)
	for i := 6; i >= 0; i-- {
		data = append(data, byte((timestamp>>(uint(i)*5))&31))
	}
	payload, err := bech32.ConvertBits(descHash[:], 8, 5, true)
	require.NoError(t, err)
	data = append(data, 23, byte(len(payload)>>5), byte(len(payload)&31))
	data = append(data, payload...)
	data = append(data, make([]byte, 104)...)

	s, err := bech32.Encode(hrp, data)
	require.NoError(t, err)
	return s
}

type endpointConfig struct {
	minSendable int64
	maxSendable int64
	allowsNostr bool
	invoiceHRP  string
	wrongHash   bool
}

// payEndpoint stands in for a payable-address server: it serves pay params
// and answers the callback with an invoice committing to the nostr param.
func payEndpoint(t *testing.T, cfg endpointConfig) (address string, lastRequest *string) {
	t.Helper()
	lastRequest = new(string)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/.well-known/lnurlp/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"callback":    srv.URL + "/callback",
				"minSendable": cfg.minSendable,
				"maxSendable": cfg.maxSendable,
				"tag":         "payRequest",
				"allowsNostr": cfg.allowsNostr,
			})
		case r.URL.Path == "/callback":
			*lastRequest = r.URL.Query().Get("nostr")
			committed := *lastRequest
			if cfg.wrongHash {
				committed = "something else entirely"
			}
			hash := sha256.Sum256([]byte(committed))
			json.NewEncoder(w).Encode(map[string]string{
				"pr": encodeInvoice(t, cfg.invoiceHRP, hash),
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return "alice@" + strings.TrimPrefix(srv.URL, "http://"), lastRequest
}

func newTestService() InvoiceService {
	return NewInvoiceService(http.DefaultClient, true, time.Second, time.Second, zerolog.Nop())
}

func invoiceRequest(address string, amountSats int64) *models.InvoiceRequest {
	return &models.InvoiceRequest{
		LightningAddress: address,
		AmountSats:       amountSats,
		Message:          "great board!",
		BoardID:          "board-1",
		RecipientPubkey:  strings.Repeat("ab", 32),
		DisplayName:      "carol",
		Relays:           []string{"wss://relay.test"},
	}
}

func TestGenerateReturnsVerifiedInvoice(t *testing.T) {
	// 50 sats = 50000 msat = 500n.
	address, lastRequest := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc500n",
	})

	svc := newTestService()
	out, err := svc.Generate(context.Background(), invoiceRequest(address, 50))
	require.NoError(t, err)

	assert.NotEmpty(t, out.Invoice)
	assert.Equal(t, int64(50_000), out.AmountMsat)

	// The signed request the endpoint saw must verify and carry the
	// binding tags.
	var request nostr.Event
	require.NoError(t, json.Unmarshal([]byte(*lastRequest), &request))
	require.NoError(t, nostr.Verify(&request))
	assert.Equal(t, nostr.KindZapRequest, request.Kind)
	assert.Equal(t, out.RequestID, request.ID)
	assert.Equal(t, "50000", request.TagValue("amount"))
	assert.Equal(t, "board-1", request.TagValue("board"))
	assert.Equal(t, strings.Repeat("ab", 32), request.TagValue("p"))
	assert.Equal(t, "carol", request.TagValue("name"))
	assert.Equal(t, "great board!", request.Content)
}

func TestGenerateWithSenderKey(t *testing.T) {
	address, lastRequest := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc500n",
	})

	senderKey, err := nostr.GeneratePrivateKey()
	require.NoError(t, err)
	senderPub, err := nostr.PublicKey(senderKey)
	require.NoError(t, err)

	req := invoiceRequest(address, 50)
	req.SenderKey = senderKey

	svc := newTestService()
	_, err = svc.Generate(context.Background(), req)
	require.NoError(t, err)

	var request nostr.Event
	require.NoError(t, json.Unmarshal([]byte(*lastRequest), &request))
	assert.Equal(t, senderPub, request.PubKey)
}

func TestGenerateRejectsAmountOutOfRange(t *testing.T) {
	address, _ := payEndpoint(t, endpointConfig{
		minSendable: 100_000, // 100 sats minimum
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc500n",
	})

	svc := newTestService()
	_, err := svc.Generate(context.Background(), invoiceRequest(address, 50))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAmountOutOfRange, appErr.Code)
}

func TestGenerateRejectsEndpointWithoutNostrSupport(t *testing.T) {
	address, _ := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: false,
		invoiceHRP:  "lnbc500n",
	})

	svc := newTestService()
	_, err := svc.Generate(context.Background(), invoiceRequest(address, 50))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidAddress, appErr.Code)
}

func TestGenerateRejectsAmountMismatch(t *testing.T) {
	// Invoice says 1000n (100 sats) while 50 sats were requested.
	address, _ := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc1000n",
	})

	svc := newTestService()
	_, err := svc.Generate(context.Background(), invoiceRequest(address, 50))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvoiceMismatch, appErr.Code)
}

func TestGenerateRejectsForeignDescriptionHash(t *testing.T) {
	address, _ := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc500n",
		wrongHash:   true,
	})

	svc := newTestService()
	_, err := svc.Generate(context.Background(), invoiceRequest(address, 50))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvoiceMismatch, appErr.Code)
}

func TestGenerateRejectsOverlongMessage(t *testing.T) {
	svc := newTestService()

	req := invoiceRequest("alice@getalby.com", 50)
	req.Message = strings.Repeat("x", models.MaxMessageLength+1)

	_, err := svc.Generate(context.Background(), req)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsValidation())
}

func TestValidateAddress(t *testing.T) {
	address, _ := payEndpoint(t, endpointConfig{
		minSendable: 1000,
		maxSendable: 100_000_000,
		allowsNostr: true,
		invoiceHRP:  "lnbc500n",
	})

	svc := newTestService()
	assert.NoError(t, svc.ValidateAddress(context.Background(), address))

	err := svc.ValidateAddress(context.Background(), fmt.Sprintf("nobody@localhost:%d", 1))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidAddress, appErr.Code)
}
