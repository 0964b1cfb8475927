package commerce

import "fmt"

type Method string

const (
	MethodPaypal     Method = "PAYPAL"
	MethodStripe     Method = "STRIPE"
	MethodRazorpay   Method = "RAZORPAY"
	MethodSSLCommerz Method = "SSLCOMMERZ"
	MethodCOD        Method = "COD"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodPaypal, MethodStripe, MethodRazorpay, MethodSSLCommerz, MethodCOD:
		return Method(s), nil
	}
	return "", fmt.Errorf("unsupported payment method: %q", s)
}

type Kind string

const (
	KindBook         Kind = "BOOK"
	KindSubscription Kind = "SUBSCRIPTION"
)

type Item struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

// MethodConfig carries only what is needed to construct an adapter:
// enablement, mode and public keys. Secrets never leave the backend.
type MethodConfig struct {
	Method    Method `json:"method"`
	Enabled   bool   `json:"enabled"`
	Mode      Mode   `json:"mode"`
	PublicKey string `json:"public_key,omitempty"`
	ScriptURL string `json:"script_url,omitempty"`
}

// MethodSet is the session-scoped view of provider configuration,
// fetched from the backend when a session starts.
type MethodSet map[Method]MethodConfig

func (s MethodSet) Enabled(m Method) bool {
	cfg, ok := s[m]
	return ok && cfg.Enabled
}

func (s MethodSet) Config(m Method) (MethodConfig, bool) {
	cfg, ok := s[m]
	return cfg, ok
}

// Proof is provider-issued data (ids, signature) proving a payment attempt
// occurred. It is forwarded verbatim to the backend; this component never
// validates it locally.
type Proof map[string]string

// IntentRequest is a purchase or subscription intent.
type IntentRequest struct {
	UserID int64  `json:"user_id"`
	Items  []Item `json:"items"`
	Kind   Kind   `json:"kind"`
	Method Method `json:"method"`
}

// Initiation is the backend's answer to an intent: a transaction identifier
// plus whichever method-specific parameter the chosen provider needs.
type Initiation struct {
	TransactionID string `json:"transaction_id"`
	GatewayURL    string `json:"gateway_url,omitempty"`
	ClientSecret  string `json:"client_secret,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
}

type VerifyRequest struct {
	IntentRequest
	TransactionID string `json:"transaction_id"`
	Proof         Proof  `json:"proof"`
}

// VerificationResult is consumed exactly once to move a session to a
// terminal status.
type VerificationResult struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
}
