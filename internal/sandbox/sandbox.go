package sandbox

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"boipoka/internal/commerce"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

// Backend is a self-contained stand-in for the commerce payment backend.
// It issues transaction references, talks to provider sandboxes where keys
// are configured, and records one verified outcome per transaction.
type Backend struct {
	logger  *zap.SugaredLogger
	refs    *RefGenerator
	methods commerce.MethodSet

	apiKey    string
	baseURL   string
	returnURL string

	intents intentCreator
	orders  orderCreator

	razorpayKeyID  string
	razorpaySecret string

	mu   sync.Mutex
	txns map[string]*transaction
}

type txnStatus string

const (
	txnCreated  txnStatus = "created"
	txnVerified txnStatus = "verified"
	txnFailed   txnStatus = "failed"
)

type transaction struct {
	Ref       string
	UserID    int64
	Method    commerce.Method
	Kind      commerce.Kind
	Amount    int64
	OrderID   string
	Status    txnStatus
	Reason    string
	CreatedAt time.Time
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Config struct {
	APIKey string
	// BaseURL is where this backend is reachable; hosted gateway URLs are
	// minted under it.
	BaseURL string
	// ReturnURL is the checkout service's return-route prefix, e.g.
	// https://api.boipoka.app/v1/checkout. The simulated gateway pages
	// send the buyer back there.
	ReturnURL string
	RefSalt   string
	Methods   commerce.MethodSet
	Logger    *zap.SugaredLogger
	Stripe    StripeConfig
	Razorpay  RazorpayConfig
}

type StripeConfig struct {
	SecretKey string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

func New(cfg Config) (*Backend, error) {
	refs, err := NewRefGenerator(cfg.RefSalt)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		logger:         cfg.Logger,
		refs:           refs,
		methods:        cfg.Methods,
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		returnURL:      strings.TrimRight(cfg.ReturnURL, "/"),
		razorpayKeyID:  cfg.Razorpay.KeyID,
		razorpaySecret: cfg.Razorpay.KeySecret,
		txns:           make(map[string]*transaction),
	}

	if cfg.Stripe.SecretKey != "" {
		sc := &stripeclient.API{}
		sc.Init(cfg.Stripe.SecretKey, nil)
		b.intents = sc.PaymentIntents
	}
	if cfg.Razorpay.KeyID != "" {
		rc := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
		b.orders = rc.Order
	}

	return b, nil
}

// Routes mounts the backend API plus the simulated hosted-gateway pages.
func (b *Backend) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1/payments", func(r chi.Router) {
		r.Use(b.requireAPIKey)
		r.Post("/initiate", b.initiateHandler)
		r.Post("/verify", b.verifyHandler)
		r.Get("/methods", b.methodsHandler)
	})

	r.Route("/sandbox", func(r chi.Router) {
		r.Get("/paypal/checkout", b.paypalCheckoutPage)
		r.Get("/sslcommerz/checkout", b.sslcommerzCheckoutPage)
	})

	return r
}

func (b *Backend) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.apiKey != "" {
			got := r.Header.Get("Authorization")
			if got != "key "+b.apiKey {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": "invalid api key",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) get(ref string) *transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txns[ref]
}

func (b *Backend) put(t *transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txns[t.Ref] = t
}
