package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

// ActionService computes and applies corporate actions. Every Apply follows
// the same shape: validate, recompute the preview against live state, check
// it against the caller's evidence, then mutate transactions and rebuild lots
// inside one atomic unit. Lots stay a pure projection of transaction history
// throughout.
type ActionService struct {
	store  repository.Store
	ledger *LedgerService
}

// NewActionService creates an ActionService sharing the ledger's per-security
// locks.
func NewActionService(store repository.Store, ledger *LedgerService) *ActionService {
	return &ActionService{store: store, ledger: ledger}
}

// getSecurity maps a missing security onto ErrValidation, since actions on
// unknown securities are parameter errors, not infrastructure failures.
func (s *ActionService) getSecurity(ctx context.Context, id int64) (*models.Security, error) {
	sec, err := s.store.Securities().GetByID(ctx, id)
	if errors.Is(err, repository.ErrSecurityNotFound) {
		return nil, fmt.Errorf("%w: security %d does not exist", ErrValidation, id)
	}
	if err != nil {
		return nil, err
	}
	return sec, nil
}

// portfolioPosition is one portfolio's stake in a security, grouped from
// derived lots.
type portfolioPosition struct {
	portfolioID int64
	shares      numeric.Quantity
	costBasis   numeric.Money
	lots        int
}

// groupByPortfolio folds derived lots (already ordered by portfolio) into
// per-portfolio positions.
func groupByPortfolio(lots []models.FifoLot) []portfolioPosition {
	var positions []portfolioPosition
	for _, lot := range lots {
		if n := len(positions); n > 0 && positions[n-1].portfolioID == lot.PortfolioID {
			positions[n-1].shares += lot.RemainingQuantity
			positions[n-1].costBasis += lot.CostBasis
			positions[n-1].lots++
			continue
		}
		positions = append(positions, portfolioPosition{
			portfolioID: lot.PortfolioID,
			shares:      lot.RemainingQuantity,
			costBasis:   lot.CostBasis,
			lots:        1,
		})
	}
	return positions
}

func (s *ActionService) portfolioName(ctx context.Context, id int64) string {
	p, err := s.store.Portfolios().GetByID(ctx, id)
	if err != nil {
		return ""
	}
	return p.Name
}

// checkEvidence fails closed when the live aggregates no longer match what
// the caller previewed.
func checkEvidence(expect *models.PreviewEvidence, sharesBefore numeric.Quantity, affected int) error {
	if expect == nil {
		return nil
	}
	if expect.TotalSharesBefore != sharesBefore || expect.PortfoliosAffected != affected {
		return fmt.Errorf("%w: previewed %s shares in %d portfolios, found %s in %d",
			ErrConcurrentModification,
			expect.TotalSharesBefore.Decimal(), expect.PortfoliosAffected,
			sharesBefore.Decimal(), affected)
	}
	return nil
}

// PreviewStockSplit computes the effect of a split without writing anything.
// Holdings are taken strictly before the effective date: a transaction booked
// on the ex-date itself is already in post-split units and stays untouched,
// matching Apply's rescale window.
func (s *ActionService) PreviewStockSplit(ctx context.Context, req models.SplitRequest) (*models.StockSplitPreview, error) {
	shareRatio, err := numeric.NewRatio(req.RatioTo, req.RatioFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: split ratio %d:%d", ErrValidation, req.RatioFrom, req.RatioTo)
	}
	if _, err := s.getSecurity(ctx, req.SecurityID); err != nil {
		return nil, err
	}

	txs, err := s.store.Transactions().ListBySecurity(ctx, req.SecurityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	var before []models.Transaction
	for _, t := range txs {
		if t.Date.Before(req.EffectiveDate) {
			before = append(before, t)
		}
	}
	lots, err := replayLots(req.SecurityID, before)
	if err != nil {
		return nil, err
	}

	preview := &models.StockSplitPreview{
		SecurityID:    req.SecurityID,
		EffectiveDate: req.EffectiveDate,
		RatioFrom:     req.RatioFrom,
		RatioTo:       req.RatioTo,
		AdjustPrices:  req.AdjustPrices,
		AdjustFifo:    req.AdjustFifo,
	}
	for _, pos := range groupByPortfolio(lots) {
		after := pos.shares.MulDiv(shareRatio)
		preview.Portfolios = append(preview.Portfolios, models.PortfolioSplitLine{
			PortfolioID:   pos.portfolioID,
			PortfolioName: s.portfolioName(ctx, pos.portfolioID),
			SharesBefore:  pos.shares,
			SharesAfter:   after,
			LotsAffected:  pos.lots,
		})
		preview.TotalSharesBefore += pos.shares
		preview.TotalSharesAfter += after
		preview.LotsAffected += pos.lots
	}
	preview.PortfoliosAffected = len(preview.Portfolios)

	if req.AdjustPrices {
		n, err := s.store.Prices().CountOnOrAfter(ctx, req.SecurityID, req.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("failed to count prices: %w", err)
		}
		preview.PricesAffected = n
	}
	return preview, nil
}

// ApplyStockSplit applies a split: share quantities of pre-effective
// transactions are rescaled by ratioTo/ratioFrom and lots rebuilt (adjustFifo),
// prices on or after the effective date are rescaled by ratioFrom/ratioTo
// (adjustPrices), and the action is recorded. All inside one atomic unit.
func (s *ActionService) ApplyStockSplit(ctx context.Context, req models.SplitRequest) (*models.CorporateActionResult, error) {
	return s.applySplit(ctx, req, models.ActionSplit)
}

// UndoStockSplit reverses a previously applied split by re-applying it with
// the ratio swapped over the same effective date and price window. The
// inverse is bit-exact only when the original rescale was lossless; a ratio
// that produced fractional truncation cannot be perfectly undone.
func (s *ActionService) UndoStockSplit(ctx context.Context, req models.SplitRequest) (*models.CorporateActionResult, error) {
	req.RatioFrom, req.RatioTo = req.RatioTo, req.RatioFrom
	req.AdjustFifo = true
	return s.applySplit(ctx, req, models.ActionSplitUndo)
}

func (s *ActionService) applySplit(ctx context.Context, req models.SplitRequest, kind models.ActionKind) (*models.CorporateActionResult, error) {
	defer TrackTime("applySplit", time.Now())

	unlock := s.ledger.locks.Lock(req.SecurityID)
	defer unlock()

	preview, err := s.PreviewStockSplit(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkEvidence(req.Expect, preview.TotalSharesBefore, preview.PortfoliosAffected); err != nil {
		return nil, err
	}

	if kind == models.ActionSplitUndo {
		// Undo reverses the recorded parameters; warn when no matching split
		// is on file, but honor the explicit request either way.
		if !s.hasRecordedSplit(ctx, req) {
			log.WithField("security_id", req.SecurityID).
				Warn("undoing a split that was not found in the action log")
		}
	}

	result := &models.CorporateActionResult{ActionID: uuid.NewString()}
	err = s.store.Atomic(ctx, func(st repository.Store) error {
		if req.AdjustFifo {
			shareRatio := numeric.Ratio{Num: req.RatioTo, Den: req.RatioFrom}
			if _, err := st.Transactions().RescaleShares(ctx, req.SecurityID, req.EffectiveDate, shareRatio); err != nil {
				return err
			}
			rebuilt, err := s.ledger.rebuildSecurity(ctx, st, req.SecurityID)
			if err != nil {
				return err
			}
			result.LotsRebuilt = rebuilt
		}
		if req.AdjustPrices {
			priceRatio := numeric.Ratio{Num: req.RatioFrom, Den: req.RatioTo}
			if _, err := st.Prices().Rescale(ctx, req.SecurityID, req.EffectiveDate, priceRatio); err != nil {
				return err
			}
		}
		return st.Actions().Record(ctx, &models.AppliedAction{
			ID:            result.ActionID,
			Kind:          kind,
			SecurityID:    req.SecurityID,
			EffectiveDate: req.EffectiveDate,
			RatioNum:      req.RatioFrom,
			RatioDen:      req.RatioTo,
			AppliedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	result.Success = true
	return result, nil
}

// hasRecordedSplit looks for an applied split with the inverse parameters of
// the undo request (the request arrives already swapped).
func (s *ActionService) hasRecordedSplit(ctx context.Context, req models.SplitRequest) bool {
	actions, err := s.store.Actions().ListBySecurity(ctx, req.SecurityID)
	if err != nil {
		return false
	}
	for _, a := range actions {
		if a.Kind == models.ActionSplit &&
			a.EffectiveDate.Equal(req.EffectiveDate) &&
			a.RatioNum == req.RatioTo && a.RatioDen == req.RatioFrom {
			return true
		}
	}
	return false
}
