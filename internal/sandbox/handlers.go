package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"boipoka/internal/commerce"

	razorpayutils "github.com/razorpay/razorpay-go/utils"
	"github.com/stripe/stripe-go/v82"
)

// Unit prices in the smallest currency unit. The sandbox has no catalog
// service, so books are flat-priced and subscriptions are one tier.
const (
	bookUnitPrice     int64 = 45000
	subscriptionPrice int64 = 29900
	currency                = "BDT"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func amountFor(kind commerce.Kind, items []commerce.Item) int64 {
	if kind == commerce.KindSubscription {
		return subscriptionPrice
	}
	var total int64
	for _, it := range items {
		total += bookUnitPrice * int64(it.Quantity)
	}
	return total
}

func (b *Backend) initiateHandler(w http.ResponseWriter, r *http.Request) {
	var req commerce.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed intent"})
		return
	}
	if req.UserID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "user_id is required"})
		return
	}
	if req.Kind == commerce.KindBook && len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "a book purchase needs at least one item"})
		return
	}
	if !b.methods.Enabled(req.Method) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": fmt.Sprintf("payment method %s is not enabled", req.Method)})
		return
	}

	ref, err := b.refs.Generate(req.UserID)
	if err != nil {
		b.logger.Errorw("generate transaction ref", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "internal error"})
		return
	}

	txn := &transaction{
		Ref:       ref,
		UserID:    req.UserID,
		Method:    req.Method,
		Kind:      req.Kind,
		Amount:    amountFor(req.Kind, req.Items),
		Status:    txnCreated,
		CreatedAt: time.Now().UTC(),
	}

	res := map[string]any{"success": true, "transaction_id": ref}

	switch req.Method {
	case commerce.MethodPaypal:
		res["gateway_url"] = fmt.Sprintf("%s/sandbox/paypal/checkout?txn=%s", b.baseURL, url.QueryEscape(ref))

	case commerce.MethodSSLCommerz:
		res["gateway_url"] = fmt.Sprintf("%s/sandbox/sslcommerz/checkout?tran_id=%s", b.baseURL, url.QueryEscape(ref))

	case commerce.MethodStripe:
		secret, err := b.stripeClientSecret(txn)
		if err != nil {
			b.logger.Errorw("create stripe intent", "txn", ref, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "message": "stripe intent creation failed"})
			return
		}
		res["client_secret"] = secret

	case commerce.MethodRazorpay:
		orderID, err := b.razorpayOrder(txn)
		if err != nil {
			b.logger.Errorw("create razorpay order", "txn", ref, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "message": "razorpay order creation failed"})
			return
		}
		txn.OrderID = orderID
		res["order_id"] = orderID

	case commerce.MethodCOD:
		// Nothing provider-side to set up.
	}

	b.put(txn)
	b.logger.Infow("transaction initiated", "txn", ref, "method", req.Method, "amount", txn.Amount)
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) stripeClientSecret(txn *transaction) (string, error) {
	if b.intents == nil {
		// No key configured: mint an offline secret in Stripe's shape so
		// the rest of the flow stays exercisable.
		return fmt.Sprintf("pi_%s_secret_%d", txn.Ref, txn.CreatedAt.UnixNano()), nil
	}

	pi, err := b.intents.New(&stripe.PaymentIntentParams{
		Amount:   stripe.Int64(txn.Amount),
		Currency: stripe.String(currency),
		Metadata: map[string]string{"transaction_ref": txn.Ref},
	})
	if err != nil {
		return "", err
	}
	return pi.ClientSecret, nil
}

func (b *Backend) razorpayOrder(txn *transaction) (string, error) {
	if b.orders == nil {
		return "order_" + txn.Ref, nil
	}

	order, err := b.orders.Create(map[string]interface{}{
		"amount":   txn.Amount,
		"currency": currency,
		"receipt":  txn.Ref,
	}, nil)
	if err != nil {
		return "", err
	}
	id, _ := order["id"].(string)
	if id == "" {
		return "", fmt.Errorf("razorpay order response missing id")
	}
	return id, nil
}

func (b *Backend) verifyHandler(w http.ResponseWriter, r *http.Request) {
	var req commerce.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "malformed verify request"})
		return
	}

	b.mu.Lock()
	txn := b.txns[req.TransactionID]
	if txn == nil {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "unknown transaction"})
		return
	}

	// One verification per transaction. Replays observe the recorded
	// outcome instead of re-running provider checks.
	switch txn.Status {
	case txnVerified:
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "transaction already verified"})
		return
	case txnFailed:
		reason := txn.Reason
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": reason})
		return
	}

	ok, reason := b.checkProof(txn, req.Proof)
	if ok {
		txn.Status = txnVerified
		b.mu.Unlock()
		b.logger.Infow("transaction verified", "txn", txn.Ref, "method", txn.Method)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "verified"})
		return
	}

	txn.Status = txnFailed
	txn.Reason = reason
	b.mu.Unlock()
	b.logger.Warnw("transaction verification failed", "txn", txn.Ref, "reason", reason)
	writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": reason})
}

func (b *Backend) checkProof(txn *transaction, proof commerce.Proof) (bool, string) {
	switch txn.Method {
	case commerce.MethodPaypal:
		if proof["paymentId"] == "" {
			return false, "missing paypal payment id"
		}
		return true, ""

	case commerce.MethodSSLCommerz:
		if proof["val_id"] == "" {
			return false, "missing sslcommerz validation id"
		}
		if s := proof["status"]; s != "" && s != "VALID" && s != "VALIDATED" {
			return false, "sslcommerz reported status " + s
		}
		return true, ""

	case commerce.MethodStripe:
		if proof["payment_intent_id"] == "" {
			return false, "missing stripe payment intent id"
		}
		return true, ""

	case commerce.MethodRazorpay:
		paymentID := proof["payment_id"]
		orderID := proof["order_id"]
		signature := proof["signature"]
		if paymentID == "" || orderID == "" || signature == "" {
			return false, "incomplete razorpay proof"
		}
		if txn.OrderID != "" && orderID != txn.OrderID {
			return false, "razorpay order mismatch"
		}
		params := map[string]interface{}{
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": paymentID,
		}
		if !razorpayutils.VerifyPaymentSignature(params, signature, b.razorpaySecret) {
			return false, "razorpay signature verification failed"
		}
		return true, ""

	case commerce.MethodCOD:
		return true, ""
	}

	return false, "unsupported method"
}

func (b *Backend) methodsHandler(w http.ResponseWriter, r *http.Request) {
	methods := make([]commerce.MethodConfig, 0, len(b.methods))
	for _, cfg := range b.methods {
		methods = append(methods, cfg)
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": methods})
}
