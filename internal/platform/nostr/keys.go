package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// GeneratePrivateKey returns a fresh hex-encoded private key. Boards use
// ephemeral keys generated here; user identity keys are supplied externally.
func GeneratePrivateKey() (string, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(priv.Serialize()), nil
}

// PublicKey derives the 32-byte x-only public key (hex) for a private key.
func PublicKey(privateKey string) (string, error) {
	raw, err := hex.DecodeString(privateKey)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("bad private key")
	}
	_, pub := btcec.PrivKeyFromBytes(raw)
	return hex.EncodeToString(schnorr.SerializePubKey(pub)), nil
}
