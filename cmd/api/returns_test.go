package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"boipoka/internal/checkout"
	"boipoka/internal/domain/sessions"
	"boipoka/internal/domain/storage"
	"boipoka/internal/gateway"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSessionStore struct {
	rows map[string]*sessions.Row
}

func (f *fakeSessionStore) Create(ctx context.Context, row *sessions.Row) error { return nil }
func (f *fakeSessionStore) SetTransactionRef(ctx context.Context, id, ref string) error {
	return nil
}
func (f *fakeSessionStore) SetStatus(ctx context.Context, id, status, reason string) error {
	return nil
}
func (f *fakeSessionStore) SetFallback(ctx context.Context, id, url string) error { return nil }
func (f *fakeSessionStore) MarkSucceeded(ctx context.Context, id string) (bool, error) {
	return true, nil
}
func (f *fakeSessionStore) GetByTransactionRef(ctx context.Context, ref string) (*sessions.Row, error) {
	return f.rows[ref], nil
}

type fakePayLogStore struct{}

func (f *fakePayLogStore) Insert(ctx context.Context, sessionID, logType string, payload any) error {
	return nil
}

func newReturnsTestApp(rows map[string]*sessions.Row) *application {
	return &application{
		config: config{appScheme: "boipoka", frontendURL: "https://boipoka.app"},
		logger: zap.NewNop().Sugar(),
		store: &storage.Container{
			Sessions: &fakeSessionStore{rows: rows},
			PayLogs:  &fakePayLogStore{},
		},
		sessions: checkout.NewManager(),
		gateways: gateway.NewManager(),
		contacts: make(map[string]string),
	}
}

func row(ref, status string, reason *string) *sessions.Row {
	return &sessions.Row{
		ID:             "11111111-2222-3333-4444-555555555555",
		UserID:         42,
		Kind:           "BOOK",
		Method:         "PAYPAL",
		Status:         status,
		TransactionRef: &ref,
		FailureReason:  reason,
		Items:          json.RawMessage(`[]`),
	}
}

// Redirects for sessions this process no longer holds in memory are
// answered from the persisted row instead of "session_not_found".
func TestProviderReturnFallsBackToSessionRow(t *testing.T) {
	serve := func(app *application, target string) string {
		rec := httptest.NewRecorder()
		app.paypalReturnHandler(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec.Body.String()
	}

	t.Run("SucceededRow", func(t *testing.T) {
		app := newReturnsTestApp(map[string]*sessions.Row{
			"BOI-R1": row("BOI-R1", string(checkout.StatusSucceeded), nil),
		})

		body := serve(app, "/v1/checkout/paypal/return?txn=BOI-R1&paymentId=PAYID-1")
		assert.Contains(t, body, "result=success")
		assert.Contains(t, body, "ref=BOI-R1")
	})

	t.Run("CancelledRow", func(t *testing.T) {
		app := newReturnsTestApp(map[string]*sessions.Row{
			"BOI-R2": row("BOI-R2", string(checkout.StatusCancelled), nil),
		})

		body := serve(app, "/v1/checkout/paypal/return?txn=BOI-R2")
		assert.Contains(t, body, "result=cancelled")
	})

	t.Run("FailedRowCarriesReason", func(t *testing.T) {
		reason := "declined"
		app := newReturnsTestApp(map[string]*sessions.Row{
			"BOI-R3": row("BOI-R3", string(checkout.StatusFailed), &reason),
		})

		body := serve(app, "/v1/checkout/paypal/return?txn=BOI-R3")
		assert.Contains(t, body, "result=failed")
		assert.Contains(t, body, "reason=declined")
	})

	t.Run("NonTerminalRowIsNotResumable", func(t *testing.T) {
		app := newReturnsTestApp(map[string]*sessions.Row{
			"BOI-R4": row("BOI-R4", string(checkout.StatusMethodInProgress), nil),
		})

		body := serve(app, "/v1/checkout/paypal/return?txn=BOI-R4&paymentId=PAYID-1")
		assert.Contains(t, body, "result=failed")
		assert.Contains(t, body, "session_not_resumable")
	})

	t.Run("UnknownRef", func(t *testing.T) {
		app := newReturnsTestApp(nil)

		body := serve(app, "/v1/checkout/paypal/return?txn=BOI-NOPE")
		assert.Contains(t, body, "result=failed")
		assert.Contains(t, body, "session_not_found")
	})
}
