package sessions

import (
	"context"
	"errors"
	"fmt"

	"boipoka/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func (r *Repository) Create(ctx context.Context, row *Row) error {
	if err := r.q.QueryRow(ctx, `
		INSERT INTO payment_sessions (id, user_id, kind, method, status, items)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, row.ID, row.UserID, row.Kind, row.Method, row.Status, row.Items).
		Scan(&row.CreatedAt, &row.UpdatedAt); err != nil {
		return fmt.Errorf("create payment session: %w", err)
	}
	return nil
}

func (r *Repository) SetTransactionRef(ctx context.Context, id, ref string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_sessions SET transaction_ref=$2, updated_at=now() WHERE id=$1
	`, id, ref)
	return err
}

func (r *Repository) SetStatus(ctx context.Context, id, status, reason string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_sessions
		   SET status=$2,
		       failure_reason=NULLIF($3,''),
		       updated_at=now()
		 WHERE id=$1
	`, id, status, reason)
	return err
}

func (r *Repository) SetFallback(ctx context.Context, id, url string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_sessions
		   SET status='FallbackRequired', fallback_url=$2, updated_at=now()
		 WHERE id=$1
	`, id, url)
	return err
}

// MarkSucceeded flips a session to Succeeded unless it is already terminal.
// Returns false when the row had already been settled, so duplicate
// redirects never produce a second visible outcome.
func (r *Repository) MarkSucceeded(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_sessions
		   SET status='Succeeded', updated_at=now()
		 WHERE id=$1
		   AND status NOT IN ('Succeeded','Failed','Cancelled')
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark session succeeded: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByTransactionRef resolves a provider redirect that arrived after the
// in-memory session was dropped (restart, grace window elapsed). Returns
// nil, nil when no row matches.
func (r *Repository) GetByTransactionRef(ctx context.Context, ref string) (*Row, error) {
	var row Row
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, kind, method, status, transaction_ref,
		       fallback_url, failure_reason, items, created_at, updated_at
		FROM payment_sessions WHERE transaction_ref=$1
		LIMIT 1
	`, ref).Scan(
		&row.ID, &row.UserID, &row.Kind, &row.Method, &row.Status, &row.TransactionRef,
		&row.FallbackURL, &row.FailureReason, &row.Items, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	return &row, nil
}
