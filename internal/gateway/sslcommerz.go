package gateway

import (
	"context"
	"fmt"
	"net/url"

	"boipoka/internal/commerce"
)

// SSLCommerzAdapter is a hosted popup adapter. The gateway page is opened
// from an embedded script; the authoritative outcome arrives on the
// success/fail/cancel callback addresses with tran_id and val_id.
type SSLCommerzAdapter struct {
	Loader ScriptLoader
	Opener WindowOpener
}

func NewSSLCommerzAdapter() *SSLCommerzAdapter { return &SSLCommerzAdapter{} }

func (a *SSLCommerzAdapter) Method() commerce.Method { return commerce.MethodSSLCommerz }

func (a *SSLCommerzAdapter) Begin(ctx context.Context, req BeginRequest) (*Handoff, error) {
	if req.GatewayURL == "" {
		return nil, fmt.Errorf("sslcommerz begin: initiator returned no gateway url")
	}

	if a.Opener == nil {
		return &Handoff{Mode: HandoffRedirect, URL: req.GatewayURL}, nil
	}

	flow := NewHostedFlow(req.TransactionID, scriptURL(req.Config), req.GatewayURL, a.Loader, a.Opener)
	if err := flow.Launch(ctx); err != nil {
		// PopupBlockedError keeps the gateway URL unmodified for the
		// manual-continue link.
		return nil, err
	}
	return &Handoff{Mode: HandoffRedirect, URL: req.GatewayURL}, nil
}

func scriptURL(cfg commerce.MethodConfig) string {
	if cfg.ScriptURL != "" {
		return cfg.ScriptURL
	}
	if cfg.Mode == commerce.ModeLive {
		return "https://seamless-epay.sslcommerz.com/embed.min.js"
	}
	return "https://sandbox.sslcommerz.com/embed.min.js"
}

// ParseReturn handles the three callback addresses. val_id is the
// verification proof; status defaults to empty when the gateway omits it.
func (a *SSLCommerzAdapter) ParseReturn(route ReturnRoute, q url.Values) Event {
	txn := q.Get("tran_id")

	switch route {
	case RouteCancel:
		return Event{
			Method:        commerce.MethodSSLCommerz,
			TransactionID: txn,
			Outcome:       OutcomeCancelled,
			Reason:        "cancelled at provider",
		}
	case RouteFail:
		return Event{
			Method:        commerce.MethodSSLCommerz,
			TransactionID: txn,
			Outcome:       OutcomeDeclined,
			Reason:        nonEmpty(q.Get("error"), "payment failed at provider"),
		}
	}

	return Event{
		Method:        commerce.MethodSSLCommerz,
		TransactionID: txn,
		Outcome:       OutcomeProof,
		Proof: commerce.Proof{
			"val_id": q.Get("val_id"),
			"status": q.Get("status"),
		},
	}
}
