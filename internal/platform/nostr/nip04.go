package nostr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SharedSecret derives the ECDH secret between our private key and the
// counterparty's x-only public key. The raw x coordinate is used directly as
// the AES-256 key, matching the wallet-connect encryption scheme.
func SharedSecret(privateKey, publicKey string) ([]byte, error) {
	privRaw, err := hex.DecodeString(privateKey)
	if err != nil || len(privRaw) != 32 {
		return nil, fmt.Errorf("bad private key")
	}
	pubRaw, err := hex.DecodeString(publicKey)
	if err != nil || len(pubRaw) != 32 {
		return nil, fmt.Errorf("bad public key")
	}

	priv, _ := btcec.PrivKeyFromBytes(privRaw)
	pub, err := schnorr.ParsePubKey(pubRaw)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return btcec.GenerateSharedSecret(priv, pub), nil
}

// Encrypt encrypts plaintext with AES-256-CBC under the shared secret and
// returns "<cipher base64>?iv=<iv base64>".
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return base64.StdEncoding.EncodeToString(ciphertext) +
		"?iv=" + base64.StdEncoding.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt.
func Decrypt(content string, key []byte) (string, error) {
	parts := strings.Split(content, "?iv=")
	if len(parts) != 2 {
		return "", fmt.Errorf("missing iv")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("bad ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("bad iv: %w", err)
	}
	if len(iv) != aes.BlockSize || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("bad payload size")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
