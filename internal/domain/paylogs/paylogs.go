package paylogs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"boipoka/internal/infra/dbx"
)

// Log is one audit record for a session: the raw initiate response, a
// provider redirect payload, a verify result or an error. Kept for support
// and for reconciling disputed transactions.
type Log struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	LogType   string    `json:"log_type"` // initiate, redirect, verify, error
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Store interface {
	Insert(ctx context.Context, sessionID, logType string, payload any) error
}

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func (r *Repository) Insert(ctx context.Context, sessionID, logType string, payload any) error {
	var jb []byte
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			jb = b
		}
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO payment_session_logs (session_id, log_type, payload)
		VALUES ($1, $2, $3)
	`, sessionID, logType, jb)
	if err != nil {
		return fmt.Errorf("insert payment session log: %w", err)
	}
	return nil
}
