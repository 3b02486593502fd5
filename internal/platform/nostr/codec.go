package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	json "github.com/goccy/go-json"
)

// Codec-level failures. All of them are non-fatal to the caller: records that
// fail any check are dropped, optionally logged, and never trusted.
var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrIDMismatch       = errors.New("record id does not match content hash")
	ErrInvalidSignature = errors.New("invalid record signature")
)

// Serialize returns the canonical byte representation the record id is
// computed over: [0,pubkey,created_at,kind,tags,content] with HTML escaping
// disabled.
func Serialize(e *Event) ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = []Tag{}
	}
	arr := []interface{}{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}
	b, err := json.MarshalWithOption(arr, json.DisableHTMLEscape())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return b, nil
}

// ComputeID returns the content-addressed id of the event.
func ComputeID(e *Event) (string, error) {
	b, err := Serialize(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Sign fills in PubKey, ID and Sig from the given private key (hex).
func Sign(e *Event, privateKey string) error {
	raw, err := hex.DecodeString(privateKey)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: bad private key", ErrMalformedRecord)
	}
	priv, pub := btcec.PrivKeyFromBytes(raw)

	e.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pub))
	id, err := ComputeID(e)
	if err != nil {
		return err
	}
	e.ID = id

	idBytes, _ := hex.DecodeString(id)
	sig, err := schnorr.Sign(priv, idBytes)
	if err != nil {
		return fmt.Errorf("sign record: %w", err)
	}
	e.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify checks that the id matches the recomputed content hash and that the
// signature matches the claimed public key. This is the sole cryptographic
// trust boundary; relays themselves are never trusted.
func Verify(e *Event) error {
	id, err := ComputeID(e)
	if err != nil {
		return err
	}
	if id != e.ID {
		return ErrIDMismatch
	}

	pubBytes, err := hex.DecodeString(e.PubKey)
	if err != nil || len(pubBytes) != 32 {
		return fmt.Errorf("%w: bad pubkey", ErrMalformedRecord)
	}
	pub, err := schnorr.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil || len(sigBytes) != 64 {
		return fmt.Errorf("%w: bad signature encoding", ErrMalformedRecord)
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	idBytes, _ := hex.DecodeString(e.ID)
	if !sig.Verify(idBytes, pub) {
		return ErrInvalidSignature
	}
	return nil
}
