package checkout

import "errors"

var (
	// ErrSessionInFlight: the user already has a non-terminal session.
	// Retry is always a fresh user-initiated session, never automatic.
	ErrSessionInFlight = errors.New("a payment session is already in flight for this user")

	// ErrMethodDisabled: selection named a method whose config is absent
	// or disabled. Raised before any call to the initiator.
	ErrMethodDisabled = errors.New("payment method is not enabled")

	// ErrSessionTerminal: the session already reached its one terminal
	// outcome.
	ErrSessionTerminal = errors.New("payment session already terminal")

	// ErrVerifyPending: a verification call is in flight. The session
	// cannot be cancelled; the backend's outcome settles it.
	ErrVerifyPending = errors.New("payment verification in progress")

	// ErrNoSession: no session matches the given user or transaction.
	ErrNoSession = errors.New("no payment session")
)
