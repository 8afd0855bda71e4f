package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

// rebuildParallelism bounds how many securities rebuild concurrently.
// Rebuilds of distinct securities are independent; the per-security locks
// keep same-security writers serialized.
const rebuildParallelism = 4

// LedgerService maintains the FIFO lot projection: it derives open cost-basis
// lots from transaction history and rebuilds the stored lot state.
type LedgerService struct {
	store repository.Store
	locks *securityLocks
}

// NewLedgerService creates a LedgerService on the given store.
func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{
		store: store,
		locks: newSecurityLocks(),
	}
}

// DeriveLots replays the full transaction history of one security and returns
// the open lots across all portfolios. Pure read; no state is written.
func (s *LedgerService) DeriveLots(ctx context.Context, securityID int64) ([]models.FifoLot, error) {
	txs, err := s.store.Transactions().ListBySecurity(ctx, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return replayLots(securityID, txs)
}

// replayLots is the FIFO derivation. Transactions arrive in replay order
// (ascending date, ties broken by sequence). Acquisitions open a lot with the
// transaction amount as its basis; disposals consume lots oldest-first,
// carving basis out proportionally so the truncation remainder stays with the
// lot. A disposal exceeding the held quantity fails the whole security.
func replayLots(securityID int64, txs []models.Transaction) ([]models.FifoLot, error) {
	open := make(map[int64][]*models.FifoLot)

	for _, t := range txs {
		if t.OwnerType != models.OwnerPortfolio || !t.MovesShares() {
			continue
		}
		if !t.Shares.IsPositive() {
			return nil, fmt.Errorf("%w: transaction %d has non-positive share quantity", ErrValidation, t.ID)
		}

		switch {
		case t.Type.IsAcquisition():
			open[t.OwnerID] = append(open[t.OwnerID], &models.FifoLot{
				PortfolioID:       t.OwnerID,
				SecurityID:        securityID,
				AcquiredAt:        t.Date,
				Seq:               t.Seq,
				OpenQuantity:      t.Shares,
				RemainingQuantity: t.Shares,
				CostBasis:         t.Amount,
			})

		case t.Type.IsDisposal():
			need := t.Shares
			for _, lot := range open[t.OwnerID] {
				if need.IsZero() {
					break
				}
				if lot.RemainingQuantity.IsZero() {
					continue
				}
				take := lot.RemainingQuantity
				if take > need {
					take = need
				}
				cost := numeric.AllocMoney(lot.CostBasis, take, lot.RemainingQuantity)
				lot.CostBasis -= cost
				lot.RemainingQuantity -= take
				need -= take
			}
			if need.IsPositive() {
				return nil, &InsufficientLotsError{
					PortfolioID: t.OwnerID,
					SecurityID:  securityID,
					Requested:   t.Shares,
					Available:   t.Shares - need,
				}
			}
		}
	}

	var lots []models.FifoLot
	for _, perPortfolio := range open {
		for _, lot := range perPortfolio {
			if lot.RemainingQuantity.IsPositive() {
				lots = append(lots, *lot)
			}
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if a.PortfolioID != b.PortfolioID {
			return a.PortfolioID < b.PortfolioID
		}
		if !a.AcquiredAt.Equal(b.AcquiredAt) {
			return a.AcquiredAt.Before(b.AcquiredAt)
		}
		return a.Seq < b.Seq
	})
	return lots, nil
}

// rebuildSecurity derives and replaces the lot state for one security inside
// one atomic unit. Callers hold the security lock (or run inside an Apply
// that does). Returns the number of lots created.
func (s *LedgerService) rebuildSecurity(ctx context.Context, st repository.Store, securityID int64) (int, error) {
	var created int
	err := st.Atomic(ctx, func(st repository.Store) error {
		txs, err := st.Transactions().ListBySecurity(ctx, securityID)
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		lots, err := replayLots(securityID, txs)
		if err != nil {
			return err
		}
		if err := st.Lots().ReplaceForSecurity(ctx, securityID, lots); err != nil {
			return fmt.Errorf("failed to replace lots: %w", err)
		}
		created = len(lots)
		return nil
	})
	return created, err
}

// Rebuild recomputes lot state for the given securities, or for every
// security when none are named. Each security is its own atomic unit: a
// corrupt history fails that security alone and is reported, the rest of the
// batch proceeds. Running it twice against unchanged history yields identical
// lot state.
func (s *LedgerService) Rebuild(ctx context.Context, securityIDs []int64) (*models.RebuildReport, error) {
	defer TrackTime("Rebuild", time.Now())

	if len(securityIDs) == 0 {
		securities, err := s.store.Securities().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list securities: %w", err)
		}
		for _, sec := range securities {
			securityIDs = append(securityIDs, sec.ID)
		}
	}

	report := &models.RebuildReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildParallelism)
	for _, id := range securityIDs {
		id := id
		g.Go(func() error {
			unlock := s.locks.Lock(id)
			defer unlock()

			created, err := s.rebuildSecurity(gctx, s.store, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.WithField("security_id", id).Warnf("lot rebuild failed: %v", err)
				report.Errors = append(report.Errors, models.SecurityRebuildError{
					SecurityID: id,
					Message:    err.Error(),
				})
				return nil
			}
			report.SecuritiesProcessed++
			report.LotsCreated += created
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Errors, func(i, j int) bool {
		return report.Errors[i].SecurityID < report.Errors[j].SecurityID
	})
	return report, nil
}

// Holdings aggregates a portfolio's open lots into per-security positions.
func (s *LedgerService) Holdings(ctx context.Context, portfolioID int64) ([]models.Holding, error) {
	if _, err := s.store.Portfolios().GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	lots, err := s.store.Lots().ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}

	var holdings []models.Holding
	for _, lot := range lots {
		if n := len(holdings); n > 0 && holdings[n-1].SecurityID == lot.SecurityID {
			holdings[n-1].Shares += lot.RemainingQuantity
			holdings[n-1].CostBasis += lot.CostBasis
			holdings[n-1].Lots++
			continue
		}
		holdings = append(holdings, models.Holding{
			PortfolioID: portfolioID,
			SecurityID:  lot.SecurityID,
			Shares:      lot.RemainingQuantity,
			CostBasis:   lot.CostBasis,
			Lots:        1,
		})
	}
	return holdings, nil
}

// LotsForSecurity returns the stored lot projection for one security.
func (s *LedgerService) LotsForSecurity(ctx context.Context, securityID int64) ([]models.FifoLot, error) {
	if _, err := s.store.Securities().GetByID(ctx, securityID); err != nil {
		return nil, err
	}
	return s.store.Lots().ListBySecurity(ctx, securityID)
}
