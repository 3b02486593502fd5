package nostr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpubRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)
	pub, err := PublicKey(priv)
	require.NoError(t, err)

	npub, err := EncodeNpub(pub)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(npub, "npub1"))

	decoded, err := DecodeNpub(npub)
	require.NoError(t, err)
	assert.Equal(t, pub, decoded)
}

func TestDecodeNpubKnownValue(t *testing.T) {
	// npub for pubkey 3bf0c63f...d2 from the interop reference set.
	pub, err := DecodeNpub("npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w6")
	require.NoError(t, err)
	assert.Equal(t, "3bf0c63fcb93463407af97a5e5ee64fa883d107ef9e558472c4eb9aaaefa459d", pub)
}

func TestDecodeNpubRejectsBadInput(t *testing.T) {
	for _, bad := range []string{
		"",
		"npub1",
		"nsec180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsdm9gkc",
		"npub180cvv07tjdrrgpa0j7j7tmnyl2yr6yr7l8j4s3evf6u64th6gkwsyjh6w7",
	} {
		_, err := DecodeNpub(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
