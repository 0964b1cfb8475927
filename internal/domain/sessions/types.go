package sessions

import (
	"context"
	"encoding/json"
	"time"
)

// Row mirrors a payment session for audit and callback correlation. The
// in-memory machine owns the live state; rows record its progression.
type Row struct {
	ID             string          `json:"id"`
	UserID         int64           `json:"user_id"`
	Kind           string          `json:"kind"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	TransactionRef *string         `json:"transaction_ref"`
	FallbackURL    *string         `json:"fallback_url"`
	FailureReason  *string         `json:"failure_reason"`
	Items          json.RawMessage `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, row *Row) error
	SetTransactionRef(ctx context.Context, id, ref string) error
	SetStatus(ctx context.Context, id, status, reason string) error
	SetFallback(ctx context.Context, id, url string) error
	MarkSucceeded(ctx context.Context, id string) (bool, error)
	GetByTransactionRef(ctx context.Context, ref string) (*Row, error)
}
