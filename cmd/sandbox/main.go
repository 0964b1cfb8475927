package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"boipoka/internal/commerce"
	"boipoka/internal/sandbox"

	"github.com/joho/godotenv"
)

// The sandbox binary runs a stand-alone payment backend for local
// development and integration testing: the checkout API points
// PAYMENT_BACKEND_URL at it.
func main() {
	_ = godotenv.Load()

	addr := os.Getenv("SANDBOX_ADDR")
	if addr == "" {
		addr = ":4000"
	}
	baseURL := os.Getenv("SANDBOX_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	returnURL := os.Getenv("SANDBOX_RETURN_URL")
	if returnURL == "" {
		returnURL = "http://localhost:8080/v1/checkout"
	}

	logger, err := NewLogger()
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	backend, err := sandbox.New(sandbox.Config{
		APIKey:    os.Getenv("PAYMENT_BACKEND_API_KEY"),
		BaseURL:   baseURL,
		ReturnURL: returnURL,
		RefSalt:   envOr("SANDBOX_REF_SALT", "boipoka-sandbox"),
		Methods:   defaultMethods(),
		Logger:    logger,
		Stripe: sandbox.StripeConfig{
			SecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		},
		Razorpay: sandbox.RazorpayConfig{
			KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		},
	})
	if err != nil {
		logger.Fatal(err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      backend.Routes(),
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	logger.Infow("sandbox backend started", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
}

func defaultMethods() commerce.MethodSet {
	return commerce.MethodSet{
		commerce.MethodPaypal: {
			Method:  commerce.MethodPaypal,
			Enabled: true,
			Mode:    commerce.ModeTest,
		},
		commerce.MethodSSLCommerz: {
			Method:    commerce.MethodSSLCommerz,
			Enabled:   true,
			Mode:      commerce.ModeTest,
			ScriptURL: "https://sandbox.sslcommerz.com/embed.min.js",
		},
		commerce.MethodStripe: {
			Method:    commerce.MethodStripe,
			Enabled:   true,
			Mode:      commerce.ModeTest,
			PublicKey: os.Getenv("STRIPE_PUBLIC_KEY"),
		},
		commerce.MethodRazorpay: {
			Method:    commerce.MethodRazorpay,
			Enabled:   true,
			Mode:      commerce.ModeTest,
			PublicKey: os.Getenv("RAZORPAY_KEY_ID"),
		},
		commerce.MethodCOD: {
			Method:  commerce.MethodCOD,
			Enabled: true,
			Mode:    commerce.ModeTest,
		},
	}
}
