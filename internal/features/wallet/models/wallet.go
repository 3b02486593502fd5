package models

// Credential is a parsed wallet connection string. Secret is the client-side
// private key; WalletPubkey identifies the wallet service on the relay.
type Credential struct {
	WalletPubkey string
	RelayURL     string
	Secret       string
}

// WalletInfo is the capability set a wallet reports during validation.
type WalletInfo struct {
	Methods []string `json:"methods"`
	Alias   string   `json:"alias,omitempty"`
}

// ValidateRequest carries the raw connection string from the client.
type ValidateRequest struct {
	ConnectionString string `json:"connectionString" binding:"required"`
}

// ValidateResponse reports a successful wallet handshake.
type ValidateResponse struct {
	Valid        bool     `json:"valid"`
	WalletPubkey string   `json:"walletPubkey"`
	RelayURL     string   `json:"relayUrl"`
	Methods      []string `json:"methods,omitempty"`
}
