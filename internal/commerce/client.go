package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Service is what the checkout machine needs from the commerce backend:
// the session initiator and the outcome verifier.
type Service interface {
	Initiate(ctx context.Context, req IntentRequest) (*Initiation, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerificationResult, error)
	MethodConfigs(ctx context.Context) (MethodSet, error)
}

// Client talks to the commerce backend over HTTP. The backend is the sole
// source of truth for payment outcomes.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type initiateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	GatewayURL    string `json:"gateway_url"`
	ClientSecret  string `json:"client_secret"`
	OrderID       string `json:"order_id"`
	Message       string `json:"message"`
}

// Initiate sends a purchase/subscription intent and returns the transaction
// identifier plus method-specific parameters. A non-2xx response with a
// decoded message is a business rejection; everything else is
// ErrInitiationFailed.
func (c *Client) Initiate(ctx context.Context, req IntentRequest) (*Initiation, error) {
	var res initiateResponse
	if err := c.post(ctx, "/v1/payments/initiate", req, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitiationFailed, err)
	}

	if !res.Success {
		return nil, &RequestRejectedError{Message: res.Message}
	}
	if res.TransactionID == "" {
		return nil, fmt.Errorf("%w: backend returned no transaction id", ErrInitiationFailed)
	}

	return &Initiation{
		TransactionID: res.TransactionID,
		GatewayURL:    res.GatewayURL,
		ClientSecret:  res.ClientSecret,
		OrderID:       res.OrderID,
	}, nil
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Verify submits provider proof for a transaction. The backend returning
// "already verified" counts as success: duplicate redirects must not
// surface a second, different outcome to the user.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	var res verifyResponse
	if err := c.post(ctx, "/v1/payments/verify", req, &res); err != nil {
		return nil, &VerificationFailedError{TransactionID: req.TransactionID, Reason: err.Error()}
	}

	if res.Success || alreadyVerified(res.Message) {
		return &VerificationResult{TransactionID: req.TransactionID, Success: true}, nil
	}

	return &VerificationResult{
		TransactionID: req.TransactionID,
		Success:       false,
		FailureReason: res.Message,
	}, nil
}

func alreadyVerified(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "already verified")
}

// MethodConfigs fetches per-provider enablement and public parameters.
func (c *Client) MethodConfigs(ctx context.Context) (MethodSet, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/methods", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch method configs: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch method configs: http=%d body=%s", resp.StatusCode, string(raw))
	}

	var res struct {
		Methods []MethodConfig `json:"methods"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode method configs: %w", err)
	}

	set := make(MethodSet, len(res.Methods))
	for _, m := range res.Methods {
		set[m.Method] = m
	}
	return set, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	// Backends report business failures with success=false in the body;
	// 4xx still carries a decodable envelope. Only treat undecodable or
	// 5xx responses as transport failure.
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend error: http=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode backend response: http=%d err=%v body=%s", resp.StatusCode, err, string(raw))
	}
	return nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		r.Header.Set("Authorization", "key "+c.apiKey)
	}
}
