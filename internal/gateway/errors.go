package gateway

import "fmt"

// ScriptLoadError: the provider's embed script failed to load. Fatal for
// the attempt; there is no automatic retry.
type ScriptLoadError struct {
	Src string
	Err error
}

func (e *ScriptLoadError) Error() string {
	return fmt.Sprintf("provider script %s failed to load: %v", e.Src, e.Err)
}

func (e *ScriptLoadError) Unwrap() error { return e.Err }

// PopupBlockedError: window creation was refused. Carries the provider URL
// and transaction id unmodified so a caller can offer a manual-continue
// link. This is the fallback contract, not a terminal payment failure.
type PopupBlockedError struct {
	TransactionID string
	URL           string
}

func (e *PopupBlockedError) Error() string {
	return fmt.Sprintf("popup blocked for transaction %s", e.TransactionID)
}

// ProviderDeclinedError: the provider rejected the payment. Non-retryable
// without a fresh session.
type ProviderDeclinedError struct {
	Code    string
	Message string
}

func (e *ProviderDeclinedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider declined (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("provider declined: %s", e.Message)
}
