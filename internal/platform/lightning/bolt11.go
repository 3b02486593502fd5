// Package lightning implements the payable-address resolution protocol and
// the minimal bolt11 parsing the invoice anti-tamper checks need: encoded
// amount, description and description hash. Invoice signatures are not
// verified here; trust comes from the relay-record signatures.
package lightning

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Tagged field types defined by the invoice format.
const (
	fieldPaymentHash     = 1
	fieldDescription     = 13
	fieldDescriptionHash = 23
)

const signatureGroups = 104 // 512-bit signature + 8-bit recovery id, in 5-bit groups

// Invoice is a decoded bolt11 payment request. Hashes are lowercase hex.
type Invoice struct {
	Network         string
	MilliSat        int64 // 0 when the invoice carries no amount
	Timestamp       int64
	PaymentHash     string
	Description     string
	DescriptionHash string
}

// Decode parses a bolt11 invoice string.
func Decode(bolt11 string) (*Invoice, error) {
	bolt11 = strings.TrimPrefix(strings.TrimSpace(bolt11), "lightning:")

	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(bolt11))
	if err != nil {
		return nil, fmt.Errorf("bech32 decode: %w", err)
	}
	if !strings.HasPrefix(hrp, "ln") {
		return nil, fmt.Errorf("not a lightning invoice: %q", hrp)
	}

	inv := &Invoice{}
	if err := parseHRP(hrp[2:], inv); err != nil {
		return nil, err
	}

	if len(data) < 7+signatureGroups {
		return nil, fmt.Errorf("invoice data too short")
	}
	tagged := data[7 : len(data)-signatureGroups]

	for _, g := range data[:7] {
		inv.Timestamp = inv.Timestamp<<5 | int64(g)
	}

	for len(tagged) > 0 {
		if len(tagged) < 3 {
			return nil, fmt.Errorf("truncated tagged field")
		}
		fieldType := tagged[0]
		size := int(tagged[1])<<5 | int(tagged[2])
		if len(tagged) < 3+size {
			return nil, fmt.Errorf("tagged field overruns data")
		}
		payload := tagged[3 : 3+size]
		tagged = tagged[3+size:]

		switch int(fieldType) {
		case fieldPaymentHash:
			if size == 52 {
				inv.PaymentHash = hex.EncodeToString(groupsToBytes(payload)[:32])
			}
		case fieldDescription:
			inv.Description = string(groupsToBytes(payload))
		case fieldDescriptionHash:
			if size == 52 {
				inv.DescriptionHash = hex.EncodeToString(groupsToBytes(payload)[:32])
			}
		}
	}

	return inv, nil
}

func parseHRP(rest string, inv *Invoice) error {
	i := 0
	for i < len(rest) && (rest[i] < '0' || rest[i] > '9') {
		i++
	}
	inv.Network = rest[:i]
	if inv.Network == "" {
		return fmt.Errorf("missing network prefix")
	}

	amount := rest[i:]
	if amount == "" {
		return nil // amountless invoice
	}

	multiplier := amount[len(amount)-1]
	digits := amount
	if multiplier < '0' || multiplier > '9' {
		digits = amount[:len(amount)-1]
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return fmt.Errorf("bad amount %q: %w", amount, err)
	}

	// Amounts are denominated in BTC; 1 BTC = 1e11 msat.
	switch multiplier {
	case 'm':
		inv.MilliSat = value * 100_000_000
	case 'u':
		inv.MilliSat = value * 100_000
	case 'n':
		inv.MilliSat = value * 100
	case 'p':
		if value%10 != 0 {
			return fmt.Errorf("pico amount %d not expressible in msat", value)
		}
		inv.MilliSat = value / 10
	default:
		inv.MilliSat = value * 100_000_000_000
	}
	return nil
}

// groupsToBytes converts 5-bit groups to bytes, dropping any incomplete
// trailing group as the invoice format requires.
func groupsToBytes(groups []byte) []byte {
	out := make([]byte, 0, len(groups)*5/8)
	var acc uint32
	bits := 0
	for _, g := range groups {
		acc = acc<<5 | uint32(g)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(acc>>uint(bits)))
		}
	}
	return out
}
