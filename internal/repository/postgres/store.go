// Package postgres implements repository.Store on pgx. Atomic maps directly
// onto a database transaction; every repo runs its SQL against either the
// pool or the enclosing pgx.Tx through the querier interface.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

// querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres-backed repository.Store.
type Store struct {
	pool *pgxpool.Pool // nil inside Atomic
	q    querier
}

// New creates a Store on the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Securities() repository.SecurityRepo      { return securityRepo{s.q} }
func (s *Store) Accounts() repository.AccountRepo         { return accountRepo{s.q} }
func (s *Store) Portfolios() repository.PortfolioRepo     { return portfolioRepo{s.q} }
func (s *Store) Transactions() repository.TransactionRepo { return transactionRepo{s.q} }
func (s *Store) Lots() repository.LotRepo                 { return lotRepo{s.q} }
func (s *Store) Prices() repository.PriceRepo             { return priceRepo{s.q} }
func (s *Store) Actions() repository.ActionRepo           { return actionRepo{s.q} }

// Atomic runs fn inside one database transaction. Nested calls join the
// enclosing transaction instead of opening a new one.
func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS security (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL,
			retired BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS account (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			reference_account BIGINT NOT NULL REFERENCES account(id)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_transaction (
			id BIGSERIAL PRIMARY KEY,
			owner_type TEXT NOT NULL,
			owner_id BIGINT NOT NULL,
			security_id BIGINT REFERENCES security(id),
			type TEXT NOT NULL,
			date DATE NOT NULL,
			shares BIGINT NOT NULL DEFAULT 0,
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			fee BIGINT NOT NULL DEFAULT 0,
			tax BIGINT NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			source_ref TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_transaction_replay
			ON ledger_transaction (security_id, date, id)`,
		`CREATE TABLE IF NOT EXISTS fifo_lot (
			id BIGSERIAL PRIMARY KEY,
			portfolio_id BIGINT NOT NULL,
			security_id BIGINT NOT NULL,
			acquired_at DATE NOT NULL,
			seq BIGINT NOT NULL,
			open_quantity BIGINT NOT NULL,
			remaining_quantity BIGINT NOT NULL,
			cost_basis BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fifo_lot_security ON fifo_lot (security_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fifo_lot_portfolio ON fifo_lot (portfolio_id, security_id)`,
		`CREATE TABLE IF NOT EXISTS fact_price (
			security_id BIGINT NOT NULL,
			date DATE NOT NULL,
			close BIGINT NOT NULL,
			PRIMARY KEY (security_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS corporate_action_log (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			security_id BIGINT NOT NULL,
			target_security_id BIGINT,
			effective_date DATE NOT NULL,
			ratio_num BIGINT NOT NULL,
			ratio_den BIGINT NOT NULL,
			cash_per_share BIGINT NOT NULL DEFAULT 0,
			applied_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
