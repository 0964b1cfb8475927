package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"boipoka/internal/commerce"
	"boipoka/internal/gateway"

	"go.uber.org/zap"
)

// Machine coordinates the initiator, the method adapter and the verifier
// for one session, mapping every path to exactly one terminal state. All
// transitions are driven by discrete external events: user selection, the
// initiator response, adapter terminal events, the verifier result, or a
// provider cancellation redirect.
type Machine struct {
	mu sync.Mutex

	session  *Session
	methods  commerce.MethodSet
	backend  commerce.Service
	gateways *gateway.Manager
	logger   *zap.SugaredLogger

	initiation *commerce.Initiation
	result     *commerce.VerificationResult

	// verifying is set for the duration of the backend Verify call, which
	// runs with the lock released. verifyDone closes when it settles.
	verifying  bool
	verifyDone chan struct{}
}

func NewMachine(sess *Session, methods commerce.MethodSet, backend commerce.Service, gateways *gateway.Manager, logger *zap.SugaredLogger) *Machine {
	return &Machine{
		session:  sess,
		methods:  methods,
		backend:  backend,
		gateways: gateways,
		logger:   logger,
	}
}

// Session returns a copy; the machine owns the mutable state.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.session
}

// Result returns the verification result once a proof has been consumed.
func (m *Machine) Result() *commerce.VerificationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Initiation exposes the initiator's method-specific parameters (needed by
// the stripe confirm surface and the fallback link).
func (m *Machine) Initiation() *commerce.Initiation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initiation
}

// Start validates the selected method, initiates the transaction and hands
// off to the adapter. A disabled method is rejected before any network call
// to the initiator.
func (m *Machine) Start(ctx context.Context) (*gateway.Handoff, error) {
	m.mu.Lock()
	sess := m.session

	if sess.Status != StatusAwaitingSelection {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s cannot start from %s", sess.ID, sess.Status)
	}

	if !m.methods.Enabled(sess.Method) {
		m.fail(fmt.Sprintf("method %s not enabled", sess.Method))
		m.mu.Unlock()
		return nil, ErrMethodDisabled
	}

	if err := sess.transition(StatusInitiating); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	init, err := m.backend.Initiate(ctx, commerce.IntentRequest{
		UserID: sess.UserID,
		Items:  sess.Items,
		Kind:   sess.Kind,
		Method: sess.Method,
	})

	m.mu.Lock()
	if err != nil {
		m.fail(err.Error())
		m.mu.Unlock()
		return nil, err
	}
	sess.TransactionID = init.TransactionID
	m.initiation = init
	cfg, _ := m.methods.Config(sess.Method)
	m.mu.Unlock()

	handoff, err := m.gateways.Begin(ctx, sess.Method, gateway.BeginRequest{
		UserID:        sess.UserID,
		TransactionID: init.TransactionID,
		GatewayURL:    init.GatewayURL,
		ClientSecret:  init.ClientSecret,
		OrderID:       init.OrderID,
		Config:        cfg,
	})

	m.mu.Lock()
	if err != nil {
		var blocked *gateway.PopupBlockedError
		if errors.As(err, &blocked) {
			// Fallback contract: not a payment failure. The caller gets
			// the transaction id and the untouched provider URL.
			if terr := sess.transition(StatusFallbackRequired); terr != nil {
				m.mu.Unlock()
				return nil, terr
			}
			sess.FallbackURL = blocked.URL
			m.mu.Unlock()
			return &gateway.Handoff{Mode: gateway.HandoffRedirect, URL: blocked.URL}, err
		}
		m.fail(err.Error())
		m.mu.Unlock()
		return nil, err
	}

	if terr := sess.transition(StatusMethodInProgress); terr != nil {
		m.mu.Unlock()
		return nil, terr
	}
	m.mu.Unlock()

	// Offline methods are terminal at begin time; consume the event now.
	if handoff.Event != nil {
		if _, err := m.HandleEvent(ctx, *handoff.Event); err != nil {
			return handoff, err
		}
	}
	return handoff, nil
}

// HandleEvent consumes an adapter's terminal event. A proof triggers the
// single verification call; any later delivery of the same proof observes
// the stored outcome instead of producing a second one. Events arriving
// while that call is in flight wait for it and observe its outcome, so one
// proof can never surface two different results.
func (m *Machine) HandleEvent(ctx context.Context, ev gateway.Event) (*commerce.VerificationResult, error) {
	m.mu.Lock()
	sess := m.session

	if sess.Status.Terminal() {
		res := m.result
		m.mu.Unlock()
		if res != nil {
			return res, nil
		}
		return nil, ErrSessionTerminal
	}

	if m.verifying {
		done := m.verifyDone
		m.mu.Unlock()
		<-done

		m.mu.Lock()
		res := m.result
		m.mu.Unlock()
		if res != nil {
			return res, nil
		}
		return nil, ErrSessionTerminal
	}

	switch ev.Outcome {
	case gateway.OutcomeProof:
		if err := sess.transition(StatusVerifying); err != nil {
			m.mu.Unlock()
			return nil, err
		}
		m.verifying = true
		m.verifyDone = make(chan struct{})
		req := commerce.VerifyRequest{
			IntentRequest: commerce.IntentRequest{
				UserID: sess.UserID,
				Items:  sess.Items,
				Kind:   sess.Kind,
				Method: sess.Method,
			},
			TransactionID: sess.TransactionID,
			Proof:         ev.Proof,
		}
		m.mu.Unlock()

		res, err := m.backend.Verify(ctx, req)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.verifying = false
		close(m.verifyDone)
		if err != nil {
			m.fail(err.Error())
			return nil, err
		}
		m.result = res
		if res.Success {
			if terr := sess.transition(StatusSucceeded); terr != nil {
				return nil, terr
			}
		} else {
			m.fail(res.FailureReason)
		}
		return res, nil

	case gateway.OutcomeDeclined:
		m.fail(ev.Reason)
		m.mu.Unlock()
		return nil, nil

	case gateway.OutcomeCancelled:
		m.cancel(ev.Reason)
		m.mu.Unlock()
		return nil, nil

	case gateway.OutcomeFallback:
		err := sess.transition(StatusFallbackRequired)
		if err == nil {
			sess.FallbackURL = ev.FallbackURL
		}
		m.mu.Unlock()
		return nil, err

	default:
		m.fail(ev.Reason)
		m.mu.Unlock()
		return nil, nil
	}
}

// Cancel abandons the session (user navigated away, popup closed without a
// redirect). A session whose proof is being verified cannot be cancelled:
// the backend outcome is authoritative and already on its way. The
// transaction stays unconfirmed locally; reconciliation of pending provider
// state is the backend's responsibility.
func (m *Machine) Cancel(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status.Terminal() {
		return ErrSessionTerminal
	}
	if m.session.Status == StatusVerifying {
		return ErrVerifyPending
	}
	m.cancel(reason)
	return nil
}

// fail moves to Failed via the transition table; terminal states are left
// untouched. Callers hold the lock.
func (m *Machine) fail(reason string) {
	if m.session.transition(StatusFailed) != nil {
		return
	}
	m.session.FailureReason = reason
	if m.logger != nil {
		m.logger.Warnw("payment session failed",
			"session_id", m.session.ID,
			"method", m.session.Method,
			"transaction_id", m.session.TransactionID,
			"reason", reason,
		)
	}
}

func (m *Machine) cancel(reason string) {
	if m.session.transition(StatusCancelled) != nil {
		return
	}
	m.session.FailureReason = reason
}
