// Package store groups the customer and address repositories behind a single
// unit of work so that multi-step writes commit or roll back together.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	addressrepo "customer-address-manager/internal/repository/address"
	customerrepo "customer-address-manager/internal/repository/customer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos exposes the repositories bound to one connection or transaction.
type Repos interface {
	Customers() customerrepo.Repository
	Addresses() addressrepo.Repository
}

// Manager runs work inside a transaction and hands out non-transactional
// repositories for read-only queries.
type Manager interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	Repos() Repos
	Ping(ctx context.Context) error
}

type repos struct {
	customers customerrepo.Repository
	addresses addressrepo.Repository
}

func (r *repos) Customers() customerrepo.Repository { return r.customers }
func (r *repos) Addresses() addressrepo.Repository  { return r.addresses }

// PostgresManager implements Manager on a pgx pool.
type PostgresManager struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	direct *repos
}

// NewPostgres returns a Manager backed by pool.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *PostgresManager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &PostgresManager{
		pool:   pool,
		logger: logger,
		direct: &repos{
			customers: customerrepo.NewPostgres(pool, logger),
			addresses: addressrepo.NewPostgres(pool, logger),
		},
	}
}

func (m *PostgresManager) Repos() Repos { return m.direct }

func (m *PostgresManager) Ping(ctx context.Context) error { return m.pool.Ping(ctx) }

func (m *PostgresManager) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			m.logger.Printf("store: rollback failed: %v", err)
		}
	}()

	r := &repos{
		customers: customerrepo.NewPostgres(tx, m.logger),
		addresses: addressrepo.NewPostgres(tx, m.logger),
	}
	if err := fn(r); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
