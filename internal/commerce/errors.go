package commerce

import (
	"errors"
	"fmt"
)

// ErrInitiationFailed marks network or backend-unreachable failures during
// initiation. Business rejections use RequestRejectedError instead.
var ErrInitiationFailed = errors.New("payment initiation failed")

// RequestRejectedError is a business-level rejection of the intent by the
// backend (invalid items, amount mismatch, ...).
type RequestRejectedError struct {
	Message string
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("request rejected by backend: %s", e.Message)
}

// VerificationFailedError means the backend refused the submitted proof.
type VerificationFailedError struct {
	TransactionID string
	Reason        string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("verification failed for %s: %s", e.TransactionID, e.Reason)
}
