package lightning

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// PayParams is the metadata advertised by a payable address endpoint.
type PayParams struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"` // msat
	MaxSendable int64  `json:"maxSendable"` // msat
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
	AllowsNostr bool   `json:"allowsNostr"`
	NostrPubkey string `json:"nostrPubkey"`
}

type invoiceResponse struct {
	PR     string `json:"pr"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// SplitAddress validates the name@domain shape of a payable address.
func SplitAddress(address string) (name, domain string, err error) {
	parts := strings.Split(strings.TrimSpace(address), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("address must look like name@domain")
	}
	return parts[0], parts[1], nil
}

// EndpointURL derives the payment metadata endpoint for an address. The
// derivation is deterministic from the address string alone. Insecure mode
// exists for local endpoints in tests and development.
func EndpointURL(address string, insecure bool) (string, error) {
	name, domain, err := SplitAddress(address)
	if err != nil {
		return "", err
	}
	scheme := "https"
	if insecure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/.well-known/lnurlp/%s", scheme, domain, url.PathEscape(name)), nil
}

// ResolveAddress fetches and validates the pay parameters for an address.
func ResolveAddress(ctx context.Context, client *http.Client, address string, insecure bool) (*PayParams, error) {
	endpoint, err := EndpointURL(address, insecure)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned http %d", resp.StatusCode)
	}

	params := &PayParams{}
	if err := json.NewDecoder(resp.Body).Decode(params); err != nil {
		return nil, fmt.Errorf("malformed pay parameters: %w", err)
	}
	if params.Callback == "" || params.Tag != "payRequest" {
		return nil, fmt.Errorf("endpoint is not a pay endpoint")
	}
	if params.MinSendable <= 0 || params.MaxSendable < params.MinSendable {
		return nil, fmt.Errorf("endpoint advertises invalid sendable range")
	}
	return params, nil
}

// FetchInvoice calls the endpoint's callback with the amount and the signed
// payment request and returns the bolt11 invoice string. The caller is
// responsible for verifying the invoice against the request.
func FetchInvoice(ctx context.Context, client *http.Client, callback string, amountMsat int64, paymentRequestJSON string) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("bad callback url: %w", err)
	}

	q := u.Query()
	q.Set("amount", strconv.FormatInt(amountMsat, 10))
	q.Set("nostr", paymentRequestJSON)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("callback returned http %d", resp.StatusCode)
	}

	var out invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("malformed callback response: %w", err)
	}
	if strings.EqualFold(out.Status, "ERROR") {
		return "", fmt.Errorf("callback error: %s", out.Reason)
	}
	if out.PR == "" {
		return "", fmt.Errorf("callback returned no invoice")
	}
	return out.PR, nil
}
