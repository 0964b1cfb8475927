package gateway

import (
	"context"
	"net/url"

	"boipoka/internal/commerce"
)

// Adapter drives one provider's side of a payment attempt. Begin consumes
// the parameters the initiator returned and tells the caller how to hand
// the user off; the authoritative outcome arrives later as exactly one
// terminal Event per attempt.
type Adapter interface {
	Method() commerce.Method
	Begin(ctx context.Context, req BeginRequest) (*Handoff, error)
}

// ReturnParser turns a provider-originated callback (redirect query
// parameters or SDK callback payload) into the attempt's terminal event.
// Absent optional fields default to empty strings; adapters never assume
// all fields are present.
type ReturnParser interface {
	ParseReturn(route ReturnRoute, q url.Values) Event
}

// Confirmer is implemented by embedded-element adapters where confirmation
// is a single blocking provider-SDK call with the session's client secret.
type Confirmer interface {
	Confirm(ctx context.Context, req BeginRequest) Event
}
