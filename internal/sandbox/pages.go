package sandbox

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
)

// The hosted-gateway pages stand in for the PayPal and SSLCommerz checkout
// sites. A buyer (or an integration test) lands here from a gateway_url,
// picks an outcome and is sent back to the checkout service's return routes
// with the same query parameters the real gateways use.
var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
  <head><title>{{.Provider}} sandbox checkout</title></head>
  <body style="font-family: sans-serif; max-width: 32rem; margin: 4rem auto;">
    <h2>{{.Provider}} sandbox</h2>
    <p>Transaction <code>{{.Ref}}</code></p>
    <p>
      <a href="{{.ApproveURL}}">Approve payment</a> &middot;
      <a href="{{.CancelURL}}">Cancel</a> &middot;
      <a href="{{.FailURL}}">Simulate decline</a>
    </p>
  </body>
</html>
`))

type checkoutPageData struct {
	Provider   string
	Ref        string
	ApproveURL string
	CancelURL  string
	FailURL    string
}

func (b *Backend) paypalCheckoutPage(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("txn")
	if ref == "" || b.get(ref) == nil {
		http.Error(w, "unknown transaction", http.StatusNotFound)
		return
	}

	q := url.QueryEscape(ref)
	data := checkoutPageData{
		Provider:   "PayPal",
		Ref:        ref,
		ApproveURL: fmt.Sprintf("%s/paypal/return?txn=%s&paymentId=PAYID-%s&token=EC-%s&PayerID=SANDBOXPAYER", b.returnURL, q, q, q),
		CancelURL:  fmt.Sprintf("%s/paypal/cancel?txn=%s", b.returnURL, q),
		FailURL:    fmt.Sprintf("%s/paypal/return?txn=%s&message=%s", b.returnURL, q, url.QueryEscape("payment declined by sandbox")),
	}
	renderCheckoutPage(w, data)
}

func (b *Backend) sslcommerzCheckoutPage(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("tran_id")
	if ref == "" || b.get(ref) == nil {
		http.Error(w, "unknown transaction", http.StatusNotFound)
		return
	}

	q := url.QueryEscape(ref)
	data := checkoutPageData{
		Provider:   "SSLCommerz",
		Ref:        ref,
		ApproveURL: fmt.Sprintf("%s/sslcommerz/return?tran_id=%s&val_id=VAL-%s&status=VALID", b.returnURL, q, q),
		CancelURL:  fmt.Sprintf("%s/sslcommerz/cancel?tran_id=%s", b.returnURL, q),
		FailURL:    fmt.Sprintf("%s/sslcommerz/fail?tran_id=%s&error=%s", b.returnURL, q, url.QueryEscape("insufficient funds")),
	}
	renderCheckoutPage(w, data)
}

func renderCheckoutPage(w http.ResponseWriter, data checkoutPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = checkoutPage.Execute(w, data)
}
