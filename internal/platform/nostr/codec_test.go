package nostr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedEvent(t *testing.T) (*Event, string) {
	t.Helper()

	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	ev := &Event{
		Kind:      KindBoardConfig,
		CreatedAt: 1700000000,
		Content:   `{"hello":"world"}`,
		Tags:      []Tag{{"d", "board-1"}},
	}
	require.NoError(t, Sign(ev, key))
	return ev, key
}

func TestSignAndVerify(t *testing.T) {
	ev, key := signedEvent(t)

	assert.Len(t, ev.ID, 64)
	assert.Len(t, ev.PubKey, 64)
	assert.Len(t, ev.Sig, 128)

	pub, err := PublicKey(key)
	require.NoError(t, err)
	assert.Equal(t, pub, ev.PubKey)

	require.NoError(t, Verify(ev))
}

func TestVerifyRejectsTamperedContent(t *testing.T) {
	ev, _ := signedEvent(t)

	ev.Content = `{"hello":"tampered"}`
	assert.ErrorIs(t, Verify(ev), ErrIDMismatch)
}

func TestVerifyRejectsTamperedID(t *testing.T) {
	ev, _ := signedEvent(t)

	ev.ID = "00" + ev.ID[2:]
	assert.ErrorIs(t, Verify(ev), ErrIDMismatch)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	ev, _ := signedEvent(t)
	other, _ := signedEvent(t)

	// Same structure, signature from a different event.
	ev.Sig = other.Sig
	assert.ErrorIs(t, Verify(ev), ErrInvalidSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ev, _ := signedEvent(t)

	ev.PubKey = "not-hex"
	assert.ErrorIs(t, Verify(ev), ErrMalformedRecord)
}

func TestSerializeIsStable(t *testing.T) {
	ev := &Event{
		PubKey:    "ab",
		CreatedAt: 123,
		Kind:      1,
		Content:   `<b>&amp;</b>`,
	}

	b, err := Serialize(ev)
	require.NoError(t, err)

	// HTML characters must pass through unescaped and nil tags must encode
	// as an empty array, or ids diverge from other implementations.
	assert.Equal(t, `[0,"ab",123,1,[],"<b>&amp;</b>"]`, string(b))
}

func TestSignRejectsBadKey(t *testing.T) {
	ev := &Event{Kind: 1}
	assert.Error(t, Sign(ev, "zz"))
	assert.Error(t, Sign(ev, "abcd"))
}
