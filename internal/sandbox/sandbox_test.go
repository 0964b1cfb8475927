package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"boipoka/internal/commerce"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAPIKey = "sandbox-test-key"

func enabledMethods() commerce.MethodSet {
	set := make(commerce.MethodSet)
	for _, m := range []commerce.Method{
		commerce.MethodPaypal,
		commerce.MethodStripe,
		commerce.MethodRazorpay,
		commerce.MethodSSLCommerz,
		commerce.MethodCOD,
	} {
		set[m] = commerce.MethodConfig{Method: m, Enabled: true, Mode: commerce.ModeTest}
	}
	return set
}

func newTestServer(t *testing.T, cfg Config) (*httptest.Server, *commerce.Client) {
	t.Helper()

	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://sandbox.local"
	}
	if cfg.ReturnURL == "" {
		cfg.ReturnURL = "http://api.local/v1/checkout"
	}
	if cfg.RefSalt == "" {
		cfg.RefSalt = "test-salt"
	}
	if cfg.Methods == nil {
		cfg.Methods = enabledMethods()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	b, err := New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(b.Routes())
	t.Cleanup(srv.Close)

	return srv, commerce.NewClient(srv.URL, cfg.APIKey)
}

func bookIntent(method commerce.Method) commerce.IntentRequest {
	return commerce.IntentRequest{
		UserID: 42,
		Kind:   commerce.KindBook,
		Items:  []commerce.Item{{ProductID: 7, Quantity: 2}},
		Method: method,
	}
}

func TestBackend_Initiate(t *testing.T) {
	_, client := newTestServer(t, Config{})
	ctx := context.Background()

	t.Run("PayPalGetsHostedURL", func(t *testing.T) {
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodPaypal))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(init.TransactionID, "BOI-"))
		assert.Contains(t, init.GatewayURL, "/sandbox/paypal/checkout?txn="+url.QueryEscape(init.TransactionID))
	})

	t.Run("SSLCommerzGetsHostedURL", func(t *testing.T) {
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodSSLCommerz))
		require.NoError(t, err)
		assert.Contains(t, init.GatewayURL, "/sandbox/sslcommerz/checkout?tran_id="+url.QueryEscape(init.TransactionID))
	})

	t.Run("StripeGetsOfflineClientSecret", func(t *testing.T) {
		// No secret key configured, so the backend mints a secret in
		// Stripe's pi_xxx_secret_yyy shape.
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodStripe))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(init.ClientSecret, "pi_"+init.TransactionID+"_secret_"))
	})

	t.Run("RazorpayGetsOrderID", func(t *testing.T) {
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodRazorpay))
		require.NoError(t, err)
		assert.Equal(t, "order_"+init.TransactionID, init.OrderID)
	})

	t.Run("CODNeedsNoHandoffParams", func(t *testing.T) {
		init, err := client.Initiate(ctx, commerce.IntentRequest{
			UserID: 42,
			Kind:   commerce.KindSubscription,
			Method: commerce.MethodCOD,
		})
		require.NoError(t, err)
		assert.Empty(t, init.GatewayURL)
		assert.Empty(t, init.ClientSecret)
		assert.Empty(t, init.OrderID)
	})

	t.Run("DisabledMethodRejected", func(t *testing.T) {
		methods := enabledMethods()
		methods[commerce.MethodPaypal] = commerce.MethodConfig{Method: commerce.MethodPaypal, Enabled: false}
		_, client := newTestServer(t, Config{Methods: methods})

		_, err := client.Initiate(ctx, bookIntent(commerce.MethodPaypal))
		var rejected *commerce.RequestRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Contains(t, rejected.Message, "not enabled")
	})

	t.Run("BookWithoutItemsRejected", func(t *testing.T) {
		_, err := client.Initiate(ctx, commerce.IntentRequest{
			UserID: 42,
			Kind:   commerce.KindBook,
			Method: commerce.MethodCOD,
		})
		var rejected *commerce.RequestRejectedError
		require.True(t, errors.As(err, &rejected))
	})

	t.Run("MissingUserRejected", func(t *testing.T) {
		_, err := client.Initiate(ctx, commerce.IntentRequest{
			Kind:   commerce.KindSubscription,
			Method: commerce.MethodCOD,
		})
		var rejected *commerce.RequestRejectedError
		require.True(t, errors.As(err, &rejected))
	})

	t.Run("BadAPIKeyRejected", func(t *testing.T) {
		srv, _ := newTestServer(t, Config{})
		stranger := commerce.NewClient(srv.URL, "wrong-key")

		_, err := stranger.Initiate(ctx, bookIntent(commerce.MethodCOD))
		var rejected *commerce.RequestRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Contains(t, rejected.Message, "invalid api key")
	})
}

func TestBackend_Verify(t *testing.T) {
	ctx := context.Background()

	verify := func(client *commerce.Client, txn string, method commerce.Method, proof commerce.Proof) *commerce.VerificationResult {
		res, err := client.Verify(ctx, commerce.VerifyRequest{
			IntentRequest: commerce.IntentRequest{UserID: 42, Kind: commerce.KindBook, Method: method},
			TransactionID: txn,
			Proof:         proof,
		})
		require.NoError(t, err)
		return res
	}

	t.Run("SSLCommerzProof", func(t *testing.T) {
		_, client := newTestServer(t, Config{})
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodSSLCommerz))
		require.NoError(t, err)

		res := verify(client, init.TransactionID, commerce.MethodSSLCommerz, commerce.Proof{"val_id": "VAL-1", "status": "VALID"})
		assert.True(t, res.Success)
	})

	t.Run("ReplayCountsAsSuccess", func(t *testing.T) {
		_, client := newTestServer(t, Config{})
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodPaypal))
		require.NoError(t, err)

		proof := commerce.Proof{"paymentId": "PAYID-1", "PayerID": "PAYER-1"}
		first := verify(client, init.TransactionID, commerce.MethodPaypal, proof)
		require.True(t, first.Success)

		// A duplicate redirect replays the verification; the recorded
		// outcome must come back, not a contradictory one.
		second := verify(client, init.TransactionID, commerce.MethodPaypal, proof)
		assert.True(t, second.Success)
	})

	t.Run("FailedOutcomeIsSticky", func(t *testing.T) {
		_, client := newTestServer(t, Config{})
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodSSLCommerz))
		require.NoError(t, err)

		first := verify(client, init.TransactionID, commerce.MethodSSLCommerz, commerce.Proof{})
		require.False(t, first.Success)
		require.Equal(t, "missing sslcommerz validation id", first.FailureReason)

		// A good proof after a recorded failure cannot resurrect the
		// transaction.
		second := verify(client, init.TransactionID, commerce.MethodSSLCommerz, commerce.Proof{"val_id": "VAL-1", "status": "VALID"})
		assert.False(t, second.Success)
		assert.Equal(t, "missing sslcommerz validation id", second.FailureReason)
	})

	t.Run("UnknownTransaction", func(t *testing.T) {
		_, client := newTestServer(t, Config{})

		res := verify(client, "BOI-NOPE", commerce.MethodCOD, nil)
		assert.False(t, res.Success)
		assert.Equal(t, "unknown transaction", res.FailureReason)
	})

	t.Run("StripeProof", func(t *testing.T) {
		_, client := newTestServer(t, Config{})
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodStripe))
		require.NoError(t, err)

		res := verify(client, init.TransactionID, commerce.MethodStripe, commerce.Proof{"payment_intent_id": "pi_1"})
		assert.True(t, res.Success)
	})

	t.Run("CODNeedsNoProof", func(t *testing.T) {
		_, client := newTestServer(t, Config{})
		init, err := client.Initiate(ctx, commerce.IntentRequest{
			UserID: 42,
			Kind:   commerce.KindSubscription,
			Method: commerce.MethodCOD,
		})
		require.NoError(t, err)

		res := verify(client, init.TransactionID, commerce.MethodCOD, nil)
		assert.True(t, res.Success)
	})
}

func TestBackend_VerifyRazorpaySignature(t *testing.T) {
	const secret = "rzp_test_secret"
	ctx := context.Background()

	sign := func(orderID, paymentID string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(orderID + "|" + paymentID))
		return hex.EncodeToString(mac.Sum(nil))
	}

	initiate := func(t *testing.T) (*commerce.Client, *commerce.Initiation) {
		_, client := newTestServer(t, Config{Razorpay: RazorpayConfig{KeySecret: secret}})
		init, err := client.Initiate(ctx, bookIntent(commerce.MethodRazorpay))
		require.NoError(t, err)
		return client, init
	}

	verify := func(client *commerce.Client, txn string, proof commerce.Proof) *commerce.VerificationResult {
		res, err := client.Verify(ctx, commerce.VerifyRequest{
			IntentRequest: commerce.IntentRequest{UserID: 42, Kind: commerce.KindBook, Method: commerce.MethodRazorpay},
			TransactionID: txn,
			Proof:         proof,
		})
		require.NoError(t, err)
		return res
	}

	t.Run("ValidSignature", func(t *testing.T) {
		client, init := initiate(t)

		res := verify(client, init.TransactionID, commerce.Proof{
			"payment_id": "pay_1",
			"order_id":   init.OrderID,
			"signature":  sign(init.OrderID, "pay_1"),
		})
		assert.True(t, res.Success)
	})

	t.Run("TamperedSignature", func(t *testing.T) {
		client, init := initiate(t)

		res := verify(client, init.TransactionID, commerce.Proof{
			"payment_id": "pay_1",
			"order_id":   init.OrderID,
			"signature":  sign(init.OrderID, "pay_2"),
		})
		assert.False(t, res.Success)
		assert.Equal(t, "razorpay signature verification failed", res.FailureReason)
	})

	t.Run("OrderMismatch", func(t *testing.T) {
		client, init := initiate(t)

		res := verify(client, init.TransactionID, commerce.Proof{
			"payment_id": "pay_1",
			"order_id":   "order_SOMEONE_ELSE",
			"signature":  sign("order_SOMEONE_ELSE", "pay_1"),
		})
		assert.False(t, res.Success)
		assert.Equal(t, "razorpay order mismatch", res.FailureReason)
	})

	t.Run("IncompleteProof", func(t *testing.T) {
		client, init := initiate(t)

		res := verify(client, init.TransactionID, commerce.Proof{"payment_id": "pay_1"})
		assert.False(t, res.Success)
		assert.Equal(t, "incomplete razorpay proof", res.FailureReason)
	})
}

func TestBackend_MethodConfigs(t *testing.T) {
	_, client := newTestServer(t, Config{})

	set, err := client.MethodConfigs(context.Background())
	require.NoError(t, err)
	assert.Len(t, set, 5)
	assert.True(t, set.Enabled(commerce.MethodPaypal))
	assert.True(t, set.Enabled(commerce.MethodCOD))
}

func TestBackend_CheckoutPages(t *testing.T) {
	const returnURL = "http://api.local/v1/checkout"
	srv, client := newTestServer(t, Config{ReturnURL: returnURL})

	init, err := client.Initiate(context.Background(), bookIntent(commerce.MethodPaypal))
	require.NoError(t, err)

	gw, err := url.Parse(init.GatewayURL)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + gw.Path + "?" + gw.RawQuery)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)

	assert.Contains(t, page, returnURL+"/paypal/return")
	assert.Contains(t, page, returnURL+"/paypal/cancel")
	assert.Contains(t, page, "paymentId=")
	assert.Contains(t, page, init.TransactionID)

	t.Run("UnknownTransaction", func(t *testing.T) {
		resp, err := http.Get(srv.URL + gw.Path + "?txn=BOI-NOPE")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAmountFor(t *testing.T) {
	assert.Equal(t, subscriptionPrice, amountFor(commerce.KindSubscription, nil))
	assert.Equal(t, 3*bookUnitPrice, amountFor(commerce.KindBook, []commerce.Item{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}))
}
