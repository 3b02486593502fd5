package nostr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedSecretIsSymmetric(t *testing.T) {
	privA, err := GeneratePrivateKey()
	require.NoError(t, err)
	privB, err := GeneratePrivateKey()
	require.NoError(t, err)

	pubA, err := PublicKey(privA)
	require.NoError(t, err)
	pubB, err := PublicKey(privB)
	require.NoError(t, err)

	keyAB, err := SharedSecret(privA, pubB)
	require.NoError(t, err)
	keyBA, err := SharedSecret(privB, pubA)
	require.NoError(t, err)

	assert.Equal(t, keyAB, keyBA)
	assert.Len(t, keyAB, 32)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	privA, _ := GeneratePrivateKey()
	privB, _ := GeneratePrivateKey()
	pubB, _ := PublicKey(privB)

	key, err := SharedSecret(privA, pubB)
	require.NoError(t, err)

	for _, plaintext := range []string{
		"",
		"hi",
		`{"method":"get_info"}`,
		"exactly sixteen.",
	} {
		ciphertext, err := Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.Contains(t, ciphertext, "?iv=")

		out, err := Decrypt(ciphertext, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, out)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	privA, _ := GeneratePrivateKey()
	privB, _ := GeneratePrivateKey()
	privC, _ := GeneratePrivateKey()
	pubB, _ := PublicKey(privB)
	pubC, _ := PublicKey(privC)

	key, _ := SharedSecret(privA, pubB)
	wrongKey, _ := SharedSecret(privA, pubC)

	ciphertext, err := Encrypt(`{"method":"get_info"}`, key)
	require.NoError(t, err)

	out, err := Decrypt(ciphertext, wrongKey)
	if err == nil {
		// CBC padding may coincidentally validate; the plaintext still
		// must not survive.
		assert.NotEqual(t, `{"method":"get_info"}`, out)
	}
}

func TestDecryptRejectsMalformedPayload(t *testing.T) {
	privA, _ := GeneratePrivateKey()
	privB, _ := GeneratePrivateKey()
	pubB, _ := PublicKey(privB)
	key, _ := SharedSecret(privA, pubB)

	for _, payload := range []string{"", "noseparator", "abc?iv=", "?iv=abc", "!!!?iv=!!!"} {
		_, err := Decrypt(payload, key)
		assert.Error(t, err, "payload %q", payload)
	}
}
