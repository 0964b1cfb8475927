package main

import (
	"fmt"
	"net/http"
	"net/url"

	"boipoka/internal/checkout"
	"boipoka/internal/commerce"
	"boipoka/internal/gateway"
)

// redirectToAppReturn serves an HTML page that:
// 1) tries to open the app via deep link: boipoka://payments/return?...params...
// 2) falls back to a web URL if the app is not installed
//
// Why HTML instead of a 302 redirect?
// - iOS Safari / SFSafariViewController can be inconsistent with 302 -> custom scheme.
// - HTML + JS is more reliable and also provides a button for manual open.
func (app *application) redirectToAppReturn(
	w http.ResponseWriter,
	result string, // "success" | "failed" | "cancelled"
	transactionRef string,
	method commerce.Method,
	reason string, // optional internal reason for debugging
) {
	q := url.Values{}
	q.Set("result", result)
	if transactionRef != "" {
		q.Set("ref", transactionRef)
	}
	if method != "" {
		q.Set("method", string(method))
	}
	if reason != "" {
		q.Set("reason", reason)
	}

	deepLink := fmt.Sprintf("%s://payments/return?%s", app.config.appScheme, q.Encode())
	webFallback := fmt.Sprintf("%s/payments/return?%s", app.config.frontendURL, q.Encode())

	html := fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Returning to app…</title>
    <style>
      body { font-family: system-ui, -apple-system, Segoe UI, Roboto; padding: 24px; }
      .btn { display: inline-block; padding: 12px 16px; border-radius: 10px; background:#111; color:#fff; text-decoration:none; }
      .muted { opacity: 0.7; margin-top: 12px; }
    </style>
  </head>
  <body>
    <h3>Returning to Boipoka…</h3>
    <p class="muted">If you are not redirected automatically, tap the button below.</p>
    <p><a class="btn" href="%s">Open in app</a></p>
    <p class="muted">Or continue on the web:</p>
    <p><a href="%s">%s</a></p>

    <script>
      window.location.href = %q;

      setTimeout(function() {
        window.location.href = %q;
      }, 1200);
    </script>
  </body>
</html>`,
		deepLink,
		webFallback,
		webFallback,
		deepLink,
		webFallback,
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// handleProviderReturn is the shared path for every provider redirect: parse
// the callback into an adapter event, feed it to the session machine, mirror
// the result to storage and send the buyer back into the app.
//
// NOTE: these endpoints open in a browser/webview. Always answer with the
// HTML return page, never JSON.
func (app *application) handleProviderReturn(w http.ResponseWriter, r *http.Request, method commerce.Method, route gateway.ReturnRoute, refParam string, values url.Values) {
	ctx := r.Context()

	ref := values.Get(refParam)
	if ref == "" {
		app.redirectToAppReturn(w, "failed", "", method, "missing_transaction_ref")
		return
	}

	machine, ok := app.sessions.ByTransaction(ref)
	if !ok {
		app.answerFromSessionRow(w, r, method, ref)
		return
	}

	snap := machine.Session()
	_ = app.store.PayLogs.Insert(ctx, snap.ID, "redirect", map[string]any{
		"route":  string(route),
		"params": values,
	})

	// Duplicate redirects land here after the session settled; HandleEvent
	// hands back the stored outcome without a second verification.
	ev := app.gateways.ParseReturn(method, route, values)
	_, err := machine.HandleEvent(ctx, ev)

	snap = machine.Session()
	app.syncSessionRow(ctx, snap)
	if snap.Status.Terminal() {
		app.finalizeSession(snap)
	}

	if err != nil {
		_ = app.store.PayLogs.Insert(ctx, snap.ID, "error", map[string]any{
			"route": string(route),
			"error": err.Error(),
		})
	}

	switch snap.Status {
	case checkout.StatusSucceeded:
		app.redirectToAppReturn(w, "success", ref, method, "")
	case checkout.StatusCancelled:
		app.redirectToAppReturn(w, "cancelled", ref, method, "")
	default:
		app.redirectToAppReturn(w, "failed", ref, method, snap.FailureReason)
	}
}

// answerFromSessionRow serves a redirect whose session this process no
// longer holds in memory (restart, or the grace window elapsed). The audit
// row keeps the recorded outcome. A non-terminal row cannot be resumed
// because the initiation context is gone; reconciling the provider-side
// state is the backend's job.
func (app *application) answerFromSessionRow(w http.ResponseWriter, r *http.Request, method commerce.Method, ref string) {
	row, err := app.store.Sessions.GetByTransactionRef(r.Context(), ref)
	if err != nil {
		app.logger.Errorw("lookup session row", "transaction_ref", ref, "error", err)
	}
	if row == nil {
		app.redirectToAppReturn(w, "failed", ref, method, "session_not_found")
		return
	}

	switch checkout.Status(row.Status) {
	case checkout.StatusSucceeded:
		app.redirectToAppReturn(w, "success", ref, method, "")
	case checkout.StatusCancelled:
		app.redirectToAppReturn(w, "cancelled", ref, method, "")
	case checkout.StatusFailed:
		reason := ""
		if row.FailureReason != nil {
			reason = *row.FailureReason
		}
		app.redirectToAppReturn(w, "failed", ref, method, reason)
	default:
		app.redirectToAppReturn(w, "failed", ref, method, "session_not_resumable")
	}
}

// GET /v1/checkout/paypal/return?txn=...&paymentId=...&token=...&PayerID=...
func (app *application) paypalReturnHandler(w http.ResponseWriter, r *http.Request) {
	app.handleProviderReturn(w, r, commerce.MethodPaypal, gateway.RouteReturn, "txn", r.URL.Query())
}

// GET /v1/checkout/paypal/cancel?txn=...
func (app *application) paypalCancelHandler(w http.ResponseWriter, r *http.Request) {
	app.handleProviderReturn(w, r, commerce.MethodPaypal, gateway.RouteCancel, "txn", r.URL.Query())
}

// GET /v1/checkout/sslcommerz/return?tran_id=...&val_id=...&status=VALID
func (app *application) sslcommerzReturnHandler(w http.ResponseWriter, r *http.Request) {
	app.handleProviderReturn(w, r, commerce.MethodSSLCommerz, gateway.RouteReturn, "tran_id", r.URL.Query())
}

// GET /v1/checkout/sslcommerz/fail?tran_id=...&error=...
func (app *application) sslcommerzFailHandler(w http.ResponseWriter, r *http.Request) {
	app.handleProviderReturn(w, r, commerce.MethodSSLCommerz, gateway.RouteFail, "tran_id", r.URL.Query())
}

// GET /v1/checkout/sslcommerz/cancel?tran_id=...
func (app *application) sslcommerzCancelHandler(w http.ResponseWriter, r *http.Request) {
	app.handleProviderReturn(w, r, commerce.MethodSSLCommerz, gateway.RouteCancel, "tran_id", r.URL.Query())
}

// POST /v1/checkout/razorpay/callback
// The SDK checkout posts razorpay_payment_id, razorpay_order_id and
// razorpay_signature along with our transaction_id.
func (app *application) razorpayCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.redirectToAppReturn(w, "failed", "", commerce.MethodRazorpay, "malformed_callback")
		return
	}

	route := gateway.RouteCallback
	if r.Form.Get("dismissed") == "true" {
		route = gateway.RouteCancel
	}
	app.handleProviderReturn(w, r, commerce.MethodRazorpay, route, "transaction_id", r.Form)
}
