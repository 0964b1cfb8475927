package gateway

import "boipoka/internal/commerce"

// BeginRequest carries the initiator's method-specific parameters into an
// adapter, plus the public provider config for the session.
type BeginRequest struct {
	UserID        int64
	TransactionID string
	GatewayURL    string
	ClientSecret  string
	OrderID       string
	Config        commerce.MethodConfig

	// Fields collected from the caller for embedded flows, e.g. a stripe
	// payment method id. Never secrets.
	ClientFields map[string]string
}

type HandoffMode string

const (
	// HandoffRedirect: send the user to URL (hosted gateway page).
	HandoffRedirect HandoffMode = "redirect"
	// HandoffClientSDK: the caller opens the provider's checkout UI with
	// Fields (order id, public key, ...).
	HandoffClientSDK HandoffMode = "client_sdk"
	// HandoffNone: nothing to do client-side; Event is already terminal.
	HandoffNone HandoffMode = "none"
)

// Handoff tells the caller what must happen next for this attempt.
type Handoff struct {
	Mode   HandoffMode
	URL    string
	Fields map[string]string

	// Event is set only for HandoffNone adapters (cash on delivery),
	// where the attempt is terminal immediately.
	Event *Event
}

type Outcome string

const (
	// OutcomeProof: the provider delivered proof; verification must run.
	OutcomeProof Outcome = "proof"
	// OutcomeDeclined: provider-side rejection, non-retryable without a
	// fresh session.
	OutcomeDeclined Outcome = "declined"
	// OutcomeCancelled: user or provider aborted the attempt.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeFallback: the popup was blocked; the caller should offer a
	// manual-continue link. Not a payment failure.
	OutcomeFallback Outcome = "fallback"
	// OutcomeError: unrecoverable adapter error (script load, transport).
	OutcomeError Outcome = "error"
)

// Event is the single terminal event an adapter emits per attempt.
type Event struct {
	Method        commerce.Method
	TransactionID string
	Outcome       Outcome
	Proof         commerce.Proof
	Reason        string
	FallbackURL   string
}

// ReturnRoute names which provider callback address a payload arrived on.
type ReturnRoute string

const (
	RouteReturn   ReturnRoute = "return"
	RouteFail     ReturnRoute = "fail"
	RouteCancel   ReturnRoute = "cancel"
	RouteCallback ReturnRoute = "callback"
)
