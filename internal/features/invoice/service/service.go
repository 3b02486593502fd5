package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/features/invoice/models"
	"zapboard-backend/internal/platform/lightning"
	"zapboard-backend/internal/platform/nostr"
)

// InvoiceService generates invoices bound to signed payment requests and
// verifies the returned invoice against the request before handing it out.
type InvoiceService interface {
	ValidateAddress(ctx context.Context, address string) error
	Generate(ctx context.Context, req *models.InvoiceRequest) (*models.GeneratedInvoice, error)
}

type invoiceService struct {
	client          *http.Client
	insecure        bool
	resolveTimeout  time.Duration
	callbackTimeout time.Duration
	log             zerolog.Logger
}

func NewInvoiceService(client *http.Client, insecure bool, resolveTimeout, callbackTimeout time.Duration, log zerolog.Logger) InvoiceService {
	return &invoiceService{
		client:          client,
		insecure:        insecure,
		resolveTimeout:  resolveTimeout,
		callbackTimeout: callbackTimeout,
		log:             log,
	}
}

func (s *invoiceService) ValidateAddress(ctx context.Context, address string) error {
	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	if _, err := lightning.ResolveAddress(resolveCtx, s.client, address, s.insecure); err != nil {
		return apperrors.NewInvalidAddressError(address, err)
	}
	return nil
}

// Generate builds and signs the payment request, fetches an invoice for it and
// refuses to return anything whose amount or description commitment does not
// match the request. There is no retry: a mismatched invoice is a hard error.
func (s *invoiceService) Generate(ctx context.Context, req *models.InvoiceRequest) (*models.GeneratedInvoice, error) {
	if len(req.Message) > models.MaxMessageLength {
		return nil, apperrors.NewValidationError("message", fmt.Sprintf("must be at most %d characters", models.MaxMessageLength))
	}
	if req.AmountSats <= 0 {
		return nil, apperrors.NewValidationError("amountSats", "must be positive")
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	params, err := lightning.ResolveAddress(resolveCtx, s.client, req.LightningAddress, s.insecure)
	cancel()
	if err != nil {
		return nil, apperrors.NewInvalidAddressError(req.LightningAddress, err)
	}

	amountMsat := req.AmountSats * 1000
	if amountMsat < params.MinSendable || amountMsat > params.MaxSendable {
		return nil, apperrors.NewAmountOutOfRangeError(amountMsat, params.MinSendable, params.MaxSendable)
	}
	if !params.AllowsNostr {
		return nil, apperrors.NewInvalidAddressError(req.LightningAddress,
			fmt.Errorf("endpoint does not accept signed payment requests"))
	}

	request, err := s.buildPaymentRequest(req, amountMsat)
	if err != nil {
		return nil, err
	}
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encode payment request")
	}

	callbackCtx, cancel := context.WithTimeout(ctx, s.callbackTimeout)
	defer cancel()
	bolt11, err := lightning.FetchInvoice(callbackCtx, s.client, params.Callback, amountMsat, string(requestJSON))
	if err != nil {
		return nil, apperrors.NewNetworkError("fetch invoice", err)
	}

	if err := verifyInvoice(bolt11, amountMsat, requestJSON); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("board_id", req.BoardID).
		Int64("amount_msat", amountMsat).
		Str("request_id", request.ID).
		Msg("Invoice generated")

	return &models.GeneratedInvoice{
		Invoice:    bolt11,
		RequestID:  request.ID,
		AmountMsat: amountMsat,
	}, nil
}

func (s *invoiceService) buildPaymentRequest(req *models.InvoiceRequest, amountMsat int64) (*nostr.Event, error) {
	senderKey := req.SenderKey
	if senderKey == "" {
		var err error
		senderKey, err = nostr.GeneratePrivateKey()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate request key")
		}
	}

	tags := []nostr.Tag{
		append(nostr.Tag{"relays"}, req.Relays...),
		{"amount", strconv.FormatInt(amountMsat, 10)},
		{"p", req.RecipientPubkey},
		{"board", req.BoardID},
	}
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		tags = append(tags, nostr.Tag{"name", name})
	}

	ev := &nostr.Event{
		Kind:      nostr.KindZapRequest,
		CreatedAt: time.Now().Unix(),
		Content:   req.Message,
		Tags:      tags,
	}
	if err := nostr.Sign(ev, senderKey); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to sign payment request")
	}
	return ev, nil
}

// verifyInvoice enforces the binding between invoice and signed request:
// the amount must be exact and the description commitment must cover the
// request bytes. Anything else means the payment could not be attributed
// back to the request.
func verifyInvoice(bolt11 string, amountMsat int64, requestJSON []byte) error {
	inv, err := lightning.Decode(bolt11)
	if err != nil {
		return apperrors.NewInvoiceMismatchError(fmt.Sprintf("invoice does not decode: %v", err))
	}
	if inv.MilliSat != amountMsat {
		return apperrors.NewInvoiceMismatchError(
			fmt.Sprintf("invoice amount %d msat, requested %d msat", inv.MilliSat, amountMsat))
	}

	sum := sha256.Sum256(requestJSON)
	expected := hex.EncodeToString(sum[:])
	switch {
	case inv.DescriptionHash != "":
		if inv.DescriptionHash != expected {
			return apperrors.NewInvoiceMismatchError("description hash does not commit to the signed request")
		}
	case inv.Description != "":
		actual := sha256.Sum256([]byte(inv.Description))
		if hex.EncodeToString(actual[:]) != expected {
			return apperrors.NewInvoiceMismatchError("description does not match the signed request")
		}
	default:
		return apperrors.NewInvoiceMismatchError("invoice carries no description commitment")
	}
	return nil
}
