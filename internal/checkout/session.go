package checkout

import (
	"fmt"
	"time"

	"boipoka/internal/commerce"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle              Status = "Idle"
	StatusAwaitingSelection Status = "AwaitingSelection"
	StatusInitiating        Status = "Initiating"
	StatusMethodInProgress  Status = "MethodInProgress"
	StatusVerifying         Status = "Verifying"
	StatusSucceeded         Status = "Succeeded"
	StatusFailed            Status = "Failed"
	StatusCancelled         Status = "Cancelled"
	StatusFallbackRequired  Status = "FallbackRequired"
)

// allowedTransitions maps each status to the statuses it may move to. A
// session only ever moves forward; terminal statuses map to nothing.
var allowedTransitions = map[Status][]Status{
	StatusIdle:              {StatusAwaitingSelection},
	StatusAwaitingSelection: {StatusInitiating, StatusFailed, StatusCancelled},
	StatusInitiating:        {StatusMethodInProgress, StatusFallbackRequired, StatusFailed, StatusCancelled},
	StatusMethodInProgress:  {StatusVerifying, StatusFallbackRequired, StatusFailed, StatusCancelled},
	StatusFallbackRequired:  {StatusVerifying, StatusFailed, StatusCancelled},
	StatusVerifying:         {StatusSucceeded, StatusFailed},
	StatusSucceeded:         {},
	StatusFailed:            {},
	StatusCancelled:         {},
}

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Session is the single in-flight payment attempt for a user. It is mutated
// only by the machine and discarded on a terminal status.
type Session struct {
	ID            string
	UserID        int64
	Items         []commerce.Item
	Kind          commerce.Kind
	Method        commerce.Method
	TransactionID string
	Status        Status

	// FailureReason is set on Failed/Cancelled; FallbackURL carries the
	// untouched provider URL when a popup was blocked.
	FailureReason string
	FallbackURL   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession is created when the user confirms method selection.
func NewSession(userID int64, items []commerce.Item, kind commerce.Kind, method commerce.Method) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     items,
		Kind:      kind,
		Method:    method,
		Status:    StatusAwaitingSelection,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("invalid session transition %s -> %s", s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}
