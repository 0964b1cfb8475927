package gateway

import (
	"context"
	"fmt"
	"net/url"

	"boipoka/internal/commerce"
)

// PayPalAdapter is a hosted redirect/popup adapter: the backend creates the
// provider payment and returns a gateway URL; we hand the user off and wait
// for the return redirect carrying paymentId/PayerID/token.
type PayPalAdapter struct {
	// Loader/Opener are set by embedded callers only. When Opener is nil
	// the adapter hands off with a plain redirect.
	Loader ScriptLoader
	Opener WindowOpener
}

func NewPayPalAdapter() *PayPalAdapter { return &PayPalAdapter{} }

func (a *PayPalAdapter) Method() commerce.Method { return commerce.MethodPaypal }

func (a *PayPalAdapter) Begin(ctx context.Context, req BeginRequest) (*Handoff, error) {
	if req.GatewayURL == "" {
		return nil, fmt.Errorf("paypal begin: initiator returned no gateway url")
	}

	if a.Opener == nil {
		return &Handoff{Mode: HandoffRedirect, URL: req.GatewayURL}, nil
	}

	flow := NewHostedFlow(req.TransactionID, req.Config.ScriptURL, req.GatewayURL, a.Loader, a.Opener)
	if err := flow.Launch(ctx); err != nil {
		return nil, err
	}
	return &Handoff{Mode: HandoffRedirect, URL: req.GatewayURL}, nil
}

// ParseReturn handles the provider redirect. PayPal includes paymentId and
// token on success returns; PayerID may be absent and defaults to "".
func (a *PayPalAdapter) ParseReturn(route ReturnRoute, q url.Values) Event {
	txn := q.Get("txn")

	switch route {
	case RouteCancel:
		return Event{
			Method:        commerce.MethodPaypal,
			TransactionID: txn,
			Outcome:       OutcomeCancelled,
			Reason:        "cancelled at provider",
		}
	case RouteFail:
		return Event{
			Method:        commerce.MethodPaypal,
			TransactionID: txn,
			Outcome:       OutcomeDeclined,
			Reason:        nonEmpty(q.Get("message"), "payment failed at provider"),
		}
	}

	// A return without paymentId is a decline: PayPal only attaches it
	// once the payer approved the payment.
	if q.Get("paymentId") == "" {
		return Event{
			Method:        commerce.MethodPaypal,
			TransactionID: txn,
			Outcome:       OutcomeDeclined,
			Reason:        nonEmpty(q.Get("message"), "payment not approved"),
		}
	}

	return Event{
		Method:        commerce.MethodPaypal,
		TransactionID: txn,
		Outcome:       OutcomeProof,
		Proof: commerce.Proof{
			"paymentId": q.Get("paymentId"),
			"token":     q.Get("token"),
			"PayerID":   q.Get("PayerID"),
		},
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
