package lightning

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedField struct {
	typ   byte
	value []byte
}

// encodeTestInvoice builds a syntactically valid invoice with a zeroed
// signature block. Decode never checks invoice signatures, so these are
// enough to exercise the parser.
func encodeTestInvoice(t *testing.T, hrp string, timestamp int64, fields ...taggedField) string {
	t.Helper()

	var data []byte
	for i := 6; i >= 0; i-- {
		data = append(data, byte((timestamp>>(uint(i)*5))&31))
	}
	for _, f := range fields {
		payload, err := bech32.ConvertBits(f.value, 8, 5, true)
		require.NoError(t, err)
		require.Less(t, len(payload), 1024)
		data = append(data, f.typ, byte(len(payload)>>5), byte(len(payload)&31))
		data = append(data, payload...)
	}
	data = append(data, make([]byte, signatureGroups)...)

	s, err := bech32.Encode(hrp, data)
	require.NoError(t, err)
	return s
}

func TestDecodeAmounts(t *testing.T) {
	tests := []struct {
		hrp  string
		want int64
	}{
		{"lnbc", 0},
		{"lnbc1", 100_000_000_000},
		{"lnbc25m", 2_500_000_000},
		{"lnbc2500u", 250_000_000},
		{"lnbc100n", 10_000},
		{"lnbc10p", 1},
	}

	for _, tt := range tests {
		t.Run(tt.hrp, func(t *testing.T) {
			inv, err := Decode(encodeTestInvoice(t, tt.hrp, 1700000000))
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.MilliSat)
			assert.Equal(t, "bc", inv.Network)
			assert.Equal(t, int64(1700000000), inv.Timestamp)
		})
	}
}

func TestDecodeRejectsSubMillisatAmount(t *testing.T) {
	_, err := Decode(encodeTestInvoice(t, "lnbc1p", 1700000000))
	assert.Error(t, err)
}

func TestDecodeDescription(t *testing.T) {
	inv, err := Decode(encodeTestInvoice(t, "lnbc10u", 1700000000,
		taggedField{fieldDescription, []byte("1 cup coffee")}))
	require.NoError(t, err)
	assert.Equal(t, "1 cup coffee", inv.Description)
	assert.Empty(t, inv.DescriptionHash)
}

func TestDecodeDescriptionHash(t *testing.T) {
	sum := sha256.Sum256([]byte("a longer order description"))
	inv, err := Decode(encodeTestInvoice(t, "lnbc20m", 1700000000,
		taggedField{fieldDescriptionHash, sum[:]}))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), inv.DescriptionHash)
	assert.Empty(t, inv.Description)
}

func TestDecodePaymentHash(t *testing.T) {
	hash, _ := hex.DecodeString("0001020304050607080900010203040506070809000102030405060708090102")
	inv, err := Decode(encodeTestInvoice(t, "lnbc2500u", 1496314658,
		taggedField{fieldPaymentHash, hash},
		taggedField{fieldDescription, []byte("1 cup coffee")}))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(hash), inv.PaymentHash)
	assert.Equal(t, "1 cup coffee", inv.Description)
	assert.Equal(t, int64(250_000_000), inv.MilliSat)
}

func TestDecodeStripsURIPrefix(t *testing.T) {
	raw := encodeTestInvoice(t, "lnbc1", 1700000000)
	inv, err := Decode("lightning:" + raw)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000_000_000), inv.MilliSat)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"",
		"notaninvoice",
		"lnbc1qqqqqqqqq", // checksum cannot be valid
	} {
		_, err := Decode(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDecodeRejectsNonLightningHRP(t *testing.T) {
	s, err := bech32.Encode("bc", make([]byte, 120))
	require.NoError(t, err)
	_, err = Decode(s)
	assert.Error(t, err)
}

func TestDecodeRejectsShortData(t *testing.T) {
	s, err := bech32.Encode("lnbc1", make([]byte, 20))
	require.NoError(t, err)
	_, err = Decode(s)
	assert.Error(t, err)
}
