package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"boipoka/internal/commerce"

	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
)

// paymentIntents is the slice of the stripe client the adapter needs.
type paymentIntents interface {
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// StripeAdapter is an embedded-element adapter. Begin mounts the element
// (hands the client secret and publishable key to the caller); Confirm is
// the single blocking SDK call that settles the attempt. A provider decline
// is non-retryable without a fresh session.
type StripeAdapter struct {
	intents paymentIntents
}

func NewStripeAdapter(apiKey string) *StripeAdapter {
	sc := &stripeclient.API{}
	sc.Init(apiKey, nil)
	return &StripeAdapter{intents: sc.PaymentIntents}
}

func (a *StripeAdapter) Method() commerce.Method { return commerce.MethodStripe }

func (a *StripeAdapter) Begin(ctx context.Context, req BeginRequest) (*Handoff, error) {
	if req.ClientSecret == "" {
		return nil, fmt.Errorf("stripe begin: initiator returned no client secret")
	}

	return &Handoff{
		Mode: HandoffClientSDK,
		Fields: map[string]string{
			"public_key":    req.Config.PublicKey,
			"client_secret": req.ClientSecret,
		},
	}, nil
}

// Confirm runs the blocking confirmation against the payment intent named
// by the session's client secret.
func (a *StripeAdapter) Confirm(ctx context.Context, req BeginRequest) Event {
	intentID := intentIDFromClientSecret(req.ClientSecret)
	if intentID == "" {
		return Event{
			Method:        commerce.MethodStripe,
			TransactionID: req.TransactionID,
			Outcome:       OutcomeError,
			Reason:        "malformed client secret",
		}
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if pm := req.ClientFields["payment_method"]; pm != "" {
		params.PaymentMethod = stripe.String(pm)
	}

	pi, err := a.intents.Confirm(intentID, params)
	if err != nil {
		var sErr *stripe.Error
		if errors.As(err, &sErr) {
			return Event{
				Method:        commerce.MethodStripe,
				TransactionID: req.TransactionID,
				Outcome:       OutcomeDeclined,
				Reason:        (&ProviderDeclinedError{Code: string(sErr.Code), Message: sErr.Msg}).Error(),
			}
		}
		return Event{
			Method:        commerce.MethodStripe,
			TransactionID: req.TransactionID,
			Outcome:       OutcomeError,
			Reason:        err.Error(),
		}
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture, stripe.PaymentIntentStatusProcessing:
		return Event{
			Method:        commerce.MethodStripe,
			TransactionID: req.TransactionID,
			Outcome:       OutcomeProof,
			Proof:         commerce.Proof{"payment_intent_id": pi.ID},
		}
	}

	return Event{
		Method:        commerce.MethodStripe,
		TransactionID: req.TransactionID,
		Outcome:       OutcomeDeclined,
		Reason:        (&ProviderDeclinedError{Message: fmt.Sprintf("intent in state %s", pi.Status)}).Error(),
	}
}

// Client secrets look like pi_xxx_secret_yyy; everything before _secret is
// the intent id.
func intentIDFromClientSecret(cs string) string {
	i := strings.Index(cs, "_secret")
	if i <= 0 {
		return ""
	}
	return cs[:i]
}
