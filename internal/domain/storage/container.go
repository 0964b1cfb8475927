package storage

import (
	"context"
	"fmt"

	"boipoka/internal/domain/paylogs"
	"boipoka/internal/domain/pushtokens"
	"boipoka/internal/domain/sessions"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool       *pgxpool.Pool
	Sessions   sessions.Store
	PayLogs    paylogs.Store
	PushTokens pushtokens.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:       db,
		Sessions:   sessions.NewRepository(db),
		PayLogs:    paylogs.NewRepository(db),
		PushTokens: pushtokens.NewRepository(db),
	}
}

// CheckoutTx is a tx-scoped repo set for atomic units of work, e.g. a
// terminal status write plus its audit log.
type CheckoutTx struct {
	Sessions sessions.Store
	PayLogs  paylogs.Store
}

func (c *Container) WithCheckoutTx(ctx context.Context, fn func(s *CheckoutTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container has no pool")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &CheckoutTx{
		Sessions: sessions.NewRepository(tx),
		PayLogs:  paylogs.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
