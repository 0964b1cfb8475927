package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"boipoka/internal/checkout"
	"boipoka/internal/commerce"
	"boipoka/internal/domain/sessions"
	"boipoka/internal/domain/storage"
	"boipoka/internal/gateway"
	"boipoka/internal/mailer"
	"boipoka/internal/notifications"
)

type startCheckoutRequest struct {
	Kind   string          `json:"kind" validate:"required,purchasekind"`
	Method string          `json:"method" validate:"required,paymethod"`
	Items  []commerce.Item `json:"items" validate:"omitempty,dive"`
	Email  string          `json:"email" validate:"omitempty,email"`
}

type sessionPayload struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	Kind          string    `json:"kind"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id,omitempty"`
	FallbackURL   string    `json:"fallback_url,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type handoffPayload struct {
	Mode   string            `json:"mode"`
	URL    string            `json:"url,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

type checkoutResponse struct {
	Session sessionPayload               `json:"session"`
	Handoff *handoffPayload              `json:"handoff,omitempty"`
	Result  *commerce.VerificationResult `json:"result,omitempty"`
}

func newSessionRow(sess *checkout.Session, items json.RawMessage) *sessions.Row {
	return &sessions.Row{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Kind:      string(sess.Kind),
		Method:    string(sess.Method),
		Status:    string(sess.Status),
		Items:     items,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
}

func toSessionPayload(snap checkout.Session) sessionPayload {
	return sessionPayload{
		ID:            snap.ID,
		Status:        string(snap.Status),
		Kind:          string(snap.Kind),
		Method:        string(snap.Method),
		TransactionID: snap.TransactionID,
		FallbackURL:   snap.FallbackURL,
		FailureReason: snap.FailureReason,
		CreatedAt:     snap.CreatedAt,
		UpdatedAt:     snap.UpdatedAt,
	}
}

func toHandoffPayload(h *gateway.Handoff) *handoffPayload {
	if h == nil {
		return nil
	}
	return &handoffPayload{
		Mode:   string(h.Mode),
		URL:    h.URL,
		Fields: h.Fields,
	}
}

// startCheckoutHandler godoc
//
//	@Summary		Start a payment session
//	@Description	Confirms method selection, initiates the transaction and returns the provider hand-off
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		startCheckoutRequest	true	"Checkout intent"
//	@Success		201		{object}	checkoutResponse
//	@Failure		400		{object}	error
//	@Failure		409		{object}	error	"a session is already in flight"
//	@Failure		422		{object}	error	"the backend rejected the request"
//	@Router			/checkout [post]
//	@Security		ApiKeyAuth
func (app *application) startCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)

	var req startCheckoutRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	kind := commerce.Kind(req.Kind)
	method, _ := commerce.ParseMethod(req.Method)
	if kind == commerce.KindBook && len(req.Items) == 0 {
		app.badRequestResponse(w, r, fmt.Errorf("a book purchase needs at least one item"))
		return
	}

	ctx := r.Context()

	// Method configs are fetched per session: a provider toggled off
	// mid-session stays usable for that session only.
	methods, err := app.backend.MethodConfigs(ctx)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	sess := checkout.NewSession(userID, req.Items, kind, method)
	machine := checkout.NewMachine(sess, methods, app.backend, app.gateways, app.logger)

	if err := app.sessions.Track(userID, machine); err != nil {
		app.conflictResponse(w, r, err)
		return
	}

	itemsJSON, _ := json.Marshal(req.Items)
	if err := app.store.Sessions.Create(ctx, newSessionRow(sess, itemsJSON)); err != nil {
		app.sessions.Release(userID)
		app.internalServerError(w, r, err)
		return
	}

	handoff, startErr := machine.Start(ctx)

	snap := machine.Session()
	if snap.TransactionID != "" {
		app.sessions.Bind(snap.TransactionID, machine)
		if err := app.store.Sessions.SetTransactionRef(ctx, snap.ID, snap.TransactionID); err != nil {
			app.logger.Errorw("set transaction ref", "session_id", snap.ID, "error", err)
		}
		if req.Email != "" {
			app.setContact(snap.TransactionID, req.Email)
		}
	}
	_ = app.store.PayLogs.Insert(ctx, snap.ID, "initiate", map[string]any{
		"method":          string(snap.Method),
		"transaction_ref": snap.TransactionID,
		"status":          string(snap.Status),
	})
	app.syncSessionRow(ctx, snap)

	if startErr != nil {
		if snap.Status.Terminal() {
			app.finalizeSession(snap)
		}

		var rejected *commerce.RequestRejectedError
		var blocked *gateway.PopupBlockedError
		switch {
		case errors.Is(startErr, checkout.ErrMethodDisabled):
			app.badRequestResponse(w, r, startErr)
		case errors.As(startErr, &rejected):
			app.unprocessableEntityResponse(w, r, startErr)
		case errors.As(startErr, &blocked):
			// Fallback contract: the session is waiting, not failed. The
			// client gets the untouched provider URL to present as a link.
			app.jsonResponse(w, http.StatusCreated, checkoutResponse{
				Session: toSessionPayload(snap),
				Handoff: toHandoffPayload(handoff),
			})
		case errors.Is(startErr, commerce.ErrInitiationFailed):
			app.badGatewayResponse(w, r, startErr)
		default:
			app.internalServerError(w, r, startErr)
		}
		return
	}

	if snap.Status.Terminal() {
		app.finalizeSession(snap)
	}

	app.jsonResponse(w, http.StatusCreated, checkoutResponse{
		Session: toSessionPayload(snap),
		Handoff: toHandoffPayload(handoff),
		Result:  machine.Result(),
	})
}

// currentCheckoutHandler godoc
//
//	@Summary	Get the in-flight payment session
//	@Tags		checkout
//	@Produce	json
//	@Success	200	{object}	checkoutResponse
//	@Failure	404	{object}	error
//	@Router		/checkout/current [get]
//	@Security	ApiKeyAuth
func (app *application) currentCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	machine, ok := app.sessions.Active(getUserIDFromContext(r))
	if !ok {
		app.notFoundResponse(w, r, checkout.ErrNoSession)
		return
	}

	app.jsonResponse(w, http.StatusOK, checkoutResponse{
		Session: toSessionPayload(machine.Session()),
		Result:  machine.Result(),
	})
}

// cancelCheckoutHandler godoc
//
//	@Summary	Cancel the in-flight payment session
//	@Tags		checkout
//	@Produce	json
//	@Success	200	{object}	checkoutResponse
//	@Failure	404	{object}	error
//	@Failure	409	{object}	error	"the session already settled"
//	@Router		/checkout/cancel [post]
//	@Security	ApiKeyAuth
func (app *application) cancelCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	machine, ok := app.sessions.Active(getUserIDFromContext(r))
	if !ok {
		app.notFoundResponse(w, r, checkout.ErrNoSession)
		return
	}

	if err := machine.Cancel("cancelled by user"); err != nil {
		app.conflictResponse(w, r, err)
		return
	}

	snap := machine.Session()
	app.syncSessionRow(r.Context(), snap)
	app.finalizeSession(snap)

	app.jsonResponse(w, http.StatusOK, checkoutResponse{Session: toSessionPayload(snap)})
}

type stripeConfirmRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// stripeConfirmHandler godoc
//
//	@Summary		Confirm an embedded-element payment
//	@Description	Confirms the payment intent created at initiation and verifies the outcome
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		stripeConfirmRequest	true	"Confirmation parameters"
//	@Success		200		{object}	checkoutResponse
//	@Failure		404		{object}	error
//	@Router			/checkout/stripe/confirm [post]
//	@Security		ApiKeyAuth
func (app *application) stripeConfirmHandler(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)

	machine, ok := app.sessions.Active(userID)
	if !ok {
		app.notFoundResponse(w, r, checkout.ErrNoSession)
		return
	}

	snap := machine.Session()
	if snap.Method != commerce.MethodStripe {
		app.badRequestResponse(w, r, fmt.Errorf("session method is %s, not STRIPE", snap.Method))
		return
	}
	init := machine.Initiation()
	if init == nil {
		app.conflictResponse(w, r, fmt.Errorf("session has no payment intent yet"))
		return
	}

	var req stripeConfirmRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	ev, err := app.gateways.Confirm(ctx, commerce.MethodStripe, gateway.BeginRequest{
		UserID:        userID,
		TransactionID: snap.TransactionID,
		ClientSecret:  init.ClientSecret,
		ClientFields:  map[string]string{"payment_method": req.PaymentMethod},
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	result, evErr := machine.HandleEvent(ctx, ev)

	snap = machine.Session()
	_ = app.store.PayLogs.Insert(ctx, snap.ID, "verify", map[string]any{
		"outcome": string(ev.Outcome),
		"status":  string(snap.Status),
	})
	app.syncSessionRow(ctx, snap)
	if snap.Status.Terminal() {
		app.finalizeSession(snap)
	}

	if evErr != nil && !errors.Is(evErr, checkout.ErrSessionTerminal) {
		app.internalServerError(w, r, evErr)
		return
	}

	app.jsonResponse(w, http.StatusOK, checkoutResponse{
		Session: toSessionPayload(snap),
		Result:  result,
	})
}

// paymentMethodsHandler godoc
//
//	@Summary	List configured payment methods
//	@Tags		checkout
//	@Produce	json
//	@Success	200	{array}	commerce.MethodConfig
//	@Router		/checkout/methods [get]
//	@Security	ApiKeyAuth
func (app *application) paymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	methods, err := app.backend.MethodConfigs(r.Context())
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	configs := make([]commerce.MethodConfig, 0, len(methods))
	for _, cfg := range methods {
		configs = append(configs, cfg)
	}
	app.jsonResponse(w, http.StatusOK, configs)
}

// syncSessionRow mirrors the in-memory session state onto its audit row.
// Persistence failures are logged, never surfaced: the row is an audit
// trail, the machine owns the outcome.
func (app *application) syncSessionRow(ctx context.Context, snap checkout.Session) {
	var err error
	switch snap.Status {
	case checkout.StatusSucceeded:
		err = app.store.WithCheckoutTx(ctx, func(s *storage.CheckoutTx) error {
			changed, terr := s.Sessions.MarkSucceeded(ctx, snap.ID)
			if terr != nil {
				return terr
			}
			if changed {
				return s.PayLogs.Insert(ctx, snap.ID, "verify", map[string]any{
					"transaction_ref": snap.TransactionID,
					"status":          string(snap.Status),
				})
			}
			return nil
		})
	case checkout.StatusFallbackRequired:
		err = app.store.Sessions.SetFallback(ctx, snap.ID, snap.FallbackURL)
	default:
		err = app.store.Sessions.SetStatus(ctx, snap.ID, string(snap.Status), snap.FailureReason)
	}
	if err != nil {
		app.logger.Errorw("sync session row", "session_id", snap.ID, "status", snap.Status, "error", err)
	}
}

// finalizeSession releases the user slot and fires the best-effort
// notifications for a terminal session.
func (app *application) finalizeSession(snap checkout.Session) {
	if !snap.Status.Terminal() {
		return
	}
	app.sessions.Release(snap.UserID)

	var event notifications.PaymentEvent
	switch snap.Status {
	case checkout.StatusSucceeded:
		event = notifications.PaymentSucceeded
	case checkout.StatusCancelled:
		event = notifications.PaymentCancelled
	default:
		event = notifications.PaymentFailed
	}

	app.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := notifications.SendPaymentNotification(ctx, app.push, app.store.PushTokens, snap.UserID, event, snap.TransactionID); err != nil {
			app.logger.Warnw("payment push not delivered", "user_id", snap.UserID, "error", err)
		}
	})

	email := app.takeContact(snap.TransactionID)
	if email == "" {
		return
	}
	app.background(func() {
		var tmpl string
		data := map[string]any{
			"Username":       email,
			"TransactionRef": snap.TransactionID,
			"Method":         string(snap.Method),
			"Kind":           string(snap.Kind),
			"PaidAt":         snap.UpdatedAt.Format(time.RFC1123),
			"Reason":         snap.FailureReason,
		}
		switch snap.Status {
		case checkout.StatusSucceeded:
			tmpl = mailer.PaymentReceiptTemplate
		case checkout.StatusFailed:
			tmpl = mailer.PaymentFailedTemplate
		default:
			return
		}
		if _, err := app.mailer.Send(tmpl, email, email, data); err != nil {
			app.logger.Warnw("receipt email not delivered", "user_id", snap.UserID, "error", err)
		}
	})
}

func (app *application) setContact(transactionRef, email string) {
	app.contactsMu.Lock()
	app.contacts[transactionRef] = email
	app.contactsMu.Unlock()
}

func (app *application) takeContact(transactionRef string) string {
	app.contactsMu.Lock()
	defer app.contactsMu.Unlock()
	email := app.contacts[transactionRef]
	delete(app.contacts, transactionRef)
	return email
}
