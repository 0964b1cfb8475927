package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"boipoka/docs" //this is required to generate swagger docs
	"boipoka/internal/auth"
	"boipoka/internal/checkout"
	"boipoka/internal/commerce"
	"boipoka/internal/domain/storage"
	"boipoka/internal/gateway"
	"boipoka/internal/mailer"
	"boipoka/internal/notifications"
	"boipoka/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	store         *storage.Container
	backend       commerce.Service
	gateways      *gateway.Manager
	sessions      *checkout.Manager
	mailer        mailer.Client
	push          notifications.PushSender
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter

	// contacts maps a live transaction ref to the buyer email supplied at
	// checkout start, consumed when the receipt is sent.
	contactsMu sync.Mutex
	contacts   map[string]string

	wg sync.WaitGroup
}

type config struct {
	addr        string
	env         string
	apiURL      string
	frontendURL string
	appScheme   string
	db          dbConfig
	auth        authConfig
	mail        mailConfig
	backend     backendConfig
	stripe      stripeConfig
	razorpay    razorpayConfig
	rateLimiter ratelimiter.Config
}

type backendConfig struct {
	baseURL string
	apiKey  string
}

type stripeConfig struct {
	secretKey string
}

type razorpayConfig struct {
	displayName string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/checkout", func(r chi.Router) {
			// Provider redirects land here in the buyer's browser. They
			// carry no bearer token; the transaction ref correlates them.
			r.Get("/paypal/return", app.paypalReturnHandler)
			r.Get("/paypal/cancel", app.paypalCancelHandler)
			r.Get("/sslcommerz/return", app.sslcommerzReturnHandler)
			r.Get("/sslcommerz/fail", app.sslcommerzFailHandler)
			r.Get("/sslcommerz/cancel", app.sslcommerzCancelHandler)
			r.Post("/razorpay/callback", app.razorpayCallbackHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Use(app.RateLimiterMiddleware)
				r.Get("/methods", app.paymentMethodsHandler)
				r.Post("/", app.startCheckoutHandler)
				r.Get("/current", app.currentCheckoutHandler)
				r.Post("/cancel", app.cancelCheckoutHandler)
				r.Post("/stripe/confirm", app.stripeConfirmHandler)
			})
		})

		r.Route("/push-tokens", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.registerPushTokenHandler)
			r.Delete("/", app.removePushTokenHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		// Let in-flight notification/receipt sends finish.
		app.wg.Wait()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
