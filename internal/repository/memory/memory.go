// Package memory implements repository.Store entirely in process. It backs
// the unit tests and lets the service run without Postgres (empty PG_URL).
// Atomic snapshots the whole data set and restores it on error, which gives
// the same all-or-nothing semantics as a database transaction.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

type data struct {
	securities map[int64]models.Security
	accounts   map[int64]models.Account
	portfolios map[int64]models.Portfolio
	txs        []models.Transaction
	lots       []models.FifoLot
	prices     []models.PriceRecord
	actions    []models.AppliedAction

	nextSecurityID  int64
	nextAccountID   int64
	nextPortfolioID int64
	nextTxID        int64
	nextLotID       int64
}

func (d *data) clone() *data {
	c := &data{
		securities:      make(map[int64]models.Security, len(d.securities)),
		accounts:        make(map[int64]models.Account, len(d.accounts)),
		portfolios:      make(map[int64]models.Portfolio, len(d.portfolios)),
		txs:             append([]models.Transaction(nil), d.txs...),
		lots:            append([]models.FifoLot(nil), d.lots...),
		prices:          append([]models.PriceRecord(nil), d.prices...),
		actions:         append([]models.AppliedAction(nil), d.actions...),
		nextSecurityID:  d.nextSecurityID,
		nextAccountID:   d.nextAccountID,
		nextPortfolioID: d.nextPortfolioID,
		nextTxID:        d.nextTxID,
		nextLotID:       d.nextLotID,
	}
	for k, v := range d.securities {
		c.securities[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.portfolios {
		c.portfolios[k] = v
	}
	return c
}

// Store is the in-memory repository.Store implementation.
type Store struct {
	mu   *sync.RWMutex
	d    *data
	inTx bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		mu: &sync.RWMutex{},
		d: &data{
			securities: make(map[int64]models.Security),
			accounts:   make(map[int64]models.Account),
			portfolios: make(map[int64]models.Portfolio),
		},
	}
}

func (s *Store) Securities() repository.SecurityRepo      { return securityRepo{s} }
func (s *Store) Accounts() repository.AccountRepo         { return accountRepo{s} }
func (s *Store) Portfolios() repository.PortfolioRepo     { return portfolioRepo{s} }
func (s *Store) Transactions() repository.TransactionRepo { return transactionRepo{s} }
func (s *Store) Lots() repository.LotRepo                 { return lotRepo{s} }
func (s *Store) Prices() repository.PriceRepo             { return priceRepo{s} }
func (s *Store) Actions() repository.ActionRepo           { return actionRepo{s} }

// Atomic runs fn under the write lock against the live data, restoring a
// snapshot if fn fails. Nested calls join the enclosing unit.
func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.d.clone()
	tx := &Store{mu: s.mu, d: s.d, inTx: true}
	if err := fn(tx); err != nil {
		*s.d = *snap
		return err
	}
	return nil
}

// rlock/lock are no-ops inside Atomic, which already holds the write lock.
func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type securityRepo struct{ s *Store }

func (r securityRepo) GetByID(ctx context.Context, id int64) (*models.Security, error) {
	defer r.s.rlock()()
	sec, ok := r.s.d.securities[id]
	if !ok {
		return nil, repository.ErrSecurityNotFound
	}
	return &sec, nil
}

func (r securityRepo) List(ctx context.Context) ([]models.Security, error) {
	defer r.s.rlock()()
	out := make([]models.Security, 0, len(r.s.d.securities))
	for _, sec := range r.s.d.securities {
		out = append(out, sec)
	}
	slices.SortFunc(out, func(a, b models.Security) int {
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (r securityRepo) Create(ctx context.Context, sec *models.Security) error {
	defer r.s.lock()()
	if sec.ID == 0 {
		r.s.d.nextSecurityID++
		sec.ID = r.s.d.nextSecurityID
	} else if sec.ID > r.s.d.nextSecurityID {
		r.s.d.nextSecurityID = sec.ID
	}
	r.s.d.securities[sec.ID] = *sec
	return nil
}

type accountRepo struct{ s *Store }

func (r accountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	defer r.s.rlock()()
	a, ok := r.s.d.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (r accountRepo) Create(ctx context.Context, a *models.Account) error {
	defer r.s.lock()()
	if a.ID == 0 {
		r.s.d.nextAccountID++
		a.ID = r.s.d.nextAccountID
	} else if a.ID > r.s.d.nextAccountID {
		r.s.d.nextAccountID = a.ID
	}
	r.s.d.accounts[a.ID] = *a
	return nil
}

type portfolioRepo struct{ s *Store }

func (r portfolioRepo) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	defer r.s.rlock()()
	p, ok := r.s.d.portfolios[id]
	if !ok {
		return nil, repository.ErrPortfolioNotFound
	}
	return &p, nil
}

func (r portfolioRepo) List(ctx context.Context) ([]models.Portfolio, error) {
	defer r.s.rlock()()
	out := make([]models.Portfolio, 0, len(r.s.d.portfolios))
	for _, p := range r.s.d.portfolios {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Portfolio) int {
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (r portfolioRepo) Create(ctx context.Context, p *models.Portfolio) error {
	defer r.s.lock()()
	if p.ID == 0 {
		r.s.d.nextPortfolioID++
		p.ID = r.s.d.nextPortfolioID
	} else if p.ID > r.s.d.nextPortfolioID {
		r.s.d.nextPortfolioID = p.ID
	}
	r.s.d.portfolios[p.ID] = *p
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	defer r.s.lock()()
	r.s.d.nextTxID++
	t.ID = r.s.d.nextTxID
	t.Seq = t.ID
	r.s.d.txs = append(r.s.d.txs, *t)
	return nil
}

func (r transactionRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.Transaction, error) {
	defer r.s.rlock()()
	var out []models.Transaction
	for _, t := range r.s.d.txs {
		if t.SecurityID != nil && *t.SecurityID == securityID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return out, nil
}

func (r transactionRepo) RescaleShares(ctx context.Context, securityID int64, before time.Time, ratio numeric.Ratio) (int64, error) {
	defer r.s.lock()()
	var n int64
	for i := range r.s.d.txs {
		t := &r.s.d.txs[i]
		if t.SecurityID == nil || *t.SecurityID != securityID {
			continue
		}
		if !t.Date.Before(before) || t.Shares.IsZero() {
			continue
		}
		if !t.Type.IsAcquisition() && !t.Type.IsDisposal() {
			continue
		}
		t.Shares = t.Shares.MulDiv(ratio)
		n++
	}
	return n, nil
}

func (r transactionRepo) RescaleAmounts(ctx context.Context, securityID int64, onOrBefore time.Time, portfolioIDs []int64, ratio numeric.Ratio) (int64, error) {
	defer r.s.lock()()
	var n int64
	for i := range r.s.d.txs {
		t := &r.s.d.txs[i]
		if t.SecurityID == nil || *t.SecurityID != securityID {
			continue
		}
		if t.OwnerType != models.OwnerPortfolio || !slices.Contains(portfolioIDs, t.OwnerID) {
			continue
		}
		if t.Date.After(onOrBefore) || !t.Type.IsAcquisition() {
			continue
		}
		t.Amount = t.Amount.MulDiv(ratio)
		n++
	}
	return n, nil
}

type lotRepo struct{ s *Store }

func sortLots(lots []models.FifoLot) {
	slices.SortFunc(lots, func(a, b models.FifoLot) int {
		if a.PortfolioID != b.PortfolioID {
			return int(a.PortfolioID - b.PortfolioID)
		}
		if c := a.AcquiredAt.Compare(b.AcquiredAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
}

func (r lotRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.FifoLot, error) {
	defer r.s.rlock()()
	var out []models.FifoLot
	for _, l := range r.s.d.lots {
		if l.SecurityID == securityID {
			out = append(out, l)
		}
	}
	sortLots(out)
	return out, nil
}

func (r lotRepo) ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.FifoLot, error) {
	defer r.s.rlock()()
	var out []models.FifoLot
	for _, l := range r.s.d.lots {
		if l.PortfolioID == portfolioID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b models.FifoLot) int {
		if a.SecurityID != b.SecurityID {
			return int(a.SecurityID - b.SecurityID)
		}
		if c := a.AcquiredAt.Compare(b.AcquiredAt); c != 0 {
			return c
		}
		return int(a.Seq - b.Seq)
	})
	return out, nil
}

func (r lotRepo) ReplaceForSecurity(ctx context.Context, securityID int64, lots []models.FifoLot) error {
	defer r.s.lock()()
	kept := r.s.d.lots[:0:0]
	for _, l := range r.s.d.lots {
		if l.SecurityID != securityID {
			kept = append(kept, l)
		}
	}
	for _, l := range lots {
		r.s.d.nextLotID++
		l.ID = r.s.d.nextLotID
		kept = append(kept, l)
	}
	r.s.d.lots = kept
	return nil
}

type priceRepo struct{ s *Store }

func (r priceRepo) Upsert(ctx context.Context, p *models.PriceRecord) error {
	defer r.s.lock()()
	for i := range r.s.d.prices {
		e := &r.s.d.prices[i]
		if e.SecurityID == p.SecurityID && e.Date.Equal(p.Date) {
			e.Close = p.Close
			return nil
		}
	}
	r.s.d.prices = append(r.s.d.prices, *p)
	return nil
}

func (r priceRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.PriceRecord, error) {
	defer r.s.rlock()()
	var out []models.PriceRecord
	for _, p := range r.s.d.prices {
		if p.SecurityID == securityID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.PriceRecord) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}

func (r priceRepo) CountOnOrAfter(ctx context.Context, securityID int64, date time.Time) (int, error) {
	defer r.s.rlock()()
	n := 0
	for _, p := range r.s.d.prices {
		if p.SecurityID == securityID && !p.Date.Before(date) {
			n++
		}
	}
	return n, nil
}

func (r priceRepo) Rescale(ctx context.Context, securityID int64, from time.Time, ratio numeric.Ratio) (int64, error) {
	defer r.s.lock()()
	var n int64
	for i := range r.s.d.prices {
		p := &r.s.d.prices[i]
		if p.SecurityID == securityID && !p.Date.Before(from) {
			p.Close = p.Close.MulDiv(ratio)
			n++
		}
	}
	return n, nil
}

type actionRepo struct{ s *Store }

func (r actionRepo) Record(ctx context.Context, a *models.AppliedAction) error {
	defer r.s.lock()()
	r.s.d.actions = append(r.s.d.actions, *a)
	return nil
}

func (r actionRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.AppliedAction, error) {
	defer r.s.rlock()()
	var out []models.AppliedAction
	for _, a := range r.s.d.actions {
		if a.SecurityID == securityID || (a.TargetSecurityID != nil && *a.TargetSecurityID == securityID) {
			out = append(out, a)
		}
	}
	return out, nil
}
