package models

// MaxMessageLength caps the message carried inside a payment request.
const MaxMessageLength = 500

// InvoiceRequest describes one invoice to be generated against a board.
type InvoiceRequest struct {
	LightningAddress string
	AmountSats       int64
	Message          string
	BoardID          string
	RecipientPubkey  string
	DisplayName      string
	Relays           []string
	// SenderKey optionally signs the payment request with the sender's own
	// identity. When empty a throwaway key is generated per request.
	SenderKey string
}

// InvoiceCreate is the transport-level payload for the invoice endpoint.
type InvoiceCreate struct {
	AmountSats  int64  `json:"amountSats" binding:"required,gt=0"`
	Message     string `json:"message" binding:"max=500"`
	DisplayName string `json:"displayName" binding:"max=100"`
	SenderKey   string `json:"senderKey"`
}

// GeneratedInvoice is a bolt11 invoice verified to match the signed payment
// request it was generated for.
type GeneratedInvoice struct {
	Invoice    string `json:"invoice"`
	RequestID  string `json:"requestId"`
	AmountMsat int64  `json:"amountMsat"`
}
