package gateway

import (
	"context"
	"fmt"
	"net/url"

	"boipoka/internal/commerce"
)

// RazorpayAdapter is an SDK-checkout adapter: the provider's own UI collects
// payment against the order id from initiation, then one callback delivers
// {payment_id, order_id, signature}. The proof is forwarded verbatim to the
// verifier; signature validation is the backend's job, never ours.
type RazorpayAdapter struct {
	DisplayName string
}

func NewRazorpayAdapter(displayName string) *RazorpayAdapter {
	return &RazorpayAdapter{DisplayName: displayName}
}

func (a *RazorpayAdapter) Method() commerce.Method { return commerce.MethodRazorpay }

func (a *RazorpayAdapter) Begin(ctx context.Context, req BeginRequest) (*Handoff, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("razorpay begin: initiator returned no order id")
	}

	return &Handoff{
		Mode: HandoffClientSDK,
		Fields: map[string]string{
			"key":      req.Config.PublicKey,
			"order_id": req.OrderID,
			"name":     a.DisplayName,
		},
	}, nil
}

// ParseReturn consumes the checkout callback. Missing fields default to
// empty strings; the backend decides whether the proof holds up.
func (a *RazorpayAdapter) ParseReturn(route ReturnRoute, q url.Values) Event {
	txn := q.Get("transaction_id")

	if route == RouteCancel {
		return Event{
			Method:        commerce.MethodRazorpay,
			TransactionID: txn,
			Outcome:       OutcomeCancelled,
			Reason:        "checkout dismissed",
		}
	}

	return Event{
		Method:        commerce.MethodRazorpay,
		TransactionID: txn,
		Outcome:       OutcomeProof,
		Proof: commerce.Proof{
			"payment_id": q.Get("razorpay_payment_id"),
			"order_id":   q.Get("razorpay_order_id"),
			"signature":  q.Get("razorpay_signature"),
		},
	}
}
