package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// EncodeNpub encodes a hex public key in its human-readable bech32 form.
func EncodeNpub(publicKey string) (string, error) {
	raw, err := hex.DecodeString(publicKey)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("bad public key")
	}
	grouped, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	return bech32.Encode("npub", grouped)
}

// DecodeNpub decodes an npub string back into a hex public key.
func DecodeNpub(npub string) (string, error) {
	hrp, grouped, err := bech32.Decode(npub)
	if err != nil {
		return "", fmt.Errorf("decode npub: %w", err)
	}
	if hrp != "npub" {
		return "", fmt.Errorf("unexpected prefix %q", hrp)
	}
	raw, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("unexpected key length %d", len(raw))
	}
	return hex.EncodeToString(raw), nil
}
