// Package repository abstracts persistence for the ledger core. Two
// implementations exist: postgres (pgx) and memory. The engine only ever
// talks to Store, so every Apply/Rebuild runs through the same Atomic
// contract regardless of backend.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

var (
	ErrSecurityNotFound  = errors.New("security not found")
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrAccountNotFound   = errors.New("account not found")
)

// Store bundles the entity repositories with a failure-atomic unit of work.
// Atomic runs fn against a store view whose writes either all commit or all
// roll back; nested calls join the enclosing unit.
type Store interface {
	Securities() SecurityRepo
	Accounts() AccountRepo
	Portfolios() PortfolioRepo
	Transactions() TransactionRepo
	Lots() LotRepo
	Prices() PriceRepo
	Actions() ActionRepo
	Atomic(ctx context.Context, fn func(Store) error) error
}

// SecurityRepo handles security reads. Create exists for seeding; security
// CRUD proper lives outside this core.
type SecurityRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Security, error)
	List(ctx context.Context) ([]models.Security, error)
	Create(ctx context.Context, s *models.Security) error
}

// AccountRepo handles cash account reads.
type AccountRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
}

// PortfolioRepo handles portfolio reads.
type PortfolioRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Portfolio, error)
	List(ctx context.Context) ([]models.Portfolio, error)
	Create(ctx context.Context, p *models.Portfolio) error
}

// TransactionRepo stores the transaction log. ListBySecurity returns replay
// order: ascending date, ties broken by insertion sequence.
type TransactionRepo interface {
	Create(ctx context.Context, t *models.Transaction) error
	ListBySecurity(ctx context.Context, securityID int64) ([]models.Transaction, error)
	// RescaleShares multiplies the share quantity of every share-moving
	// transaction for securityID dated before the cutoff by r, truncating
	// toward zero. Amounts are untouched. Returns rows changed.
	RescaleShares(ctx context.Context, securityID int64, before time.Time, r numeric.Ratio) (int64, error)
	// RescaleAmounts multiplies the amount of every acquisition transaction
	// for securityID dated on or before the cutoff and owned by one of the
	// given portfolios by r, truncating toward zero. Returns rows changed.
	RescaleAmounts(ctx context.Context, securityID int64, onOrBefore time.Time, portfolioIDs []int64, r numeric.Ratio) (int64, error)
}

// LotRepo stores the derived FIFO lot projection.
type LotRepo interface {
	ListBySecurity(ctx context.Context, securityID int64) ([]models.FifoLot, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.FifoLot, error)
	// ReplaceForSecurity swaps out the whole lot set for one security.
	ReplaceForSecurity(ctx context.Context, securityID int64, lots []models.FifoLot) error
}

// PriceRepo stores historical closes and supports in-place rescaling for
// split price adjustment.
type PriceRepo interface {
	Upsert(ctx context.Context, p *models.PriceRecord) error
	ListBySecurity(ctx context.Context, securityID int64) ([]models.PriceRecord, error)
	CountOnOrAfter(ctx context.Context, securityID int64, date time.Time) (int, error)
	// Rescale multiplies every close for securityID dated on or after from
	// by r, truncating toward zero. Returns rows changed.
	Rescale(ctx context.Context, securityID int64, from time.Time, r numeric.Ratio) (int64, error)
}

// ActionRepo is the corporate action audit log.
type ActionRepo interface {
	Record(ctx context.Context, a *models.AppliedAction) error
	ListBySecurity(ctx context.Context, securityID int64) ([]models.AppliedAction, error)
}
