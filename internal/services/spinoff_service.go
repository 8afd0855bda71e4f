package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

// ApplySpinOff distributes a new security out of a parent holding. The
// parent's share count is unchanged; the caller-supplied basis allocation
// fraction of its cost moves into the new security. Per affected portfolio an
// inbound delivery of the new security is synthesized carrying the allocated
// basis, and the portfolio's parent acquisition amounts are rescaled by the
// complement so that replaying the history reproduces the reduced parent
// basis. Positions and allocations are taken as of the effective date, over
// the same window the rescale covers: parent activity dated after the
// effective date keeps its full amount and contributes nothing to the
// distribution, and a portfolio that receives no shares keeps its full basis.
func (s *ActionService) ApplySpinOff(ctx context.Context, req models.SpinOffRequest) (*models.CorporateActionResult, error) {
	defer TrackTime("ApplySpinOff", time.Now())

	if req.ParentSecurityID == req.NewSecurityID {
		return nil, fmt.Errorf("%w: parent and new security must differ", ErrValidation)
	}
	if _, err := numeric.NewRatio(req.DistributionRatio.Num, req.DistributionRatio.Den); err != nil {
		return nil, fmt.Errorf("%w: distribution ratio %s", ErrValidation, req.DistributionRatio)
	}
	remainder, err := req.BasisAllocation.Complement()
	if err != nil {
		return nil, fmt.Errorf("%w: basis allocation %s must be a fraction below 1", ErrValidation, req.BasisAllocation)
	}
	parent, err := s.getSecurity(ctx, req.ParentSecurityID)
	if err != nil {
		return nil, err
	}
	spun, err := s.getSecurity(ctx, req.NewSecurityID)
	if err != nil {
		return nil, err
	}

	unlock := s.ledger.locks.Lock(req.ParentSecurityID, req.NewSecurityID)
	defer unlock()

	txs, err := s.store.Transactions().ListBySecurity(ctx, req.ParentSecurityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	var asOf []models.Transaction
	for _, t := range txs {
		if !t.Date.After(req.EffectiveDate) {
			asOf = append(asOf, t)
		}
	}
	lots, err := replayLots(req.ParentSecurityID, asOf)
	if err != nil {
		return nil, err
	}

	result := &models.CorporateActionResult{ActionID: uuid.NewString()}
	positions := groupByPortfolio(lots)
	if len(positions) == 0 {
		result.Success = true
		return result, nil
	}

	// Allocated basis is carved per lot so truncation remainders stay with
	// the parent, mirroring how disposals allocate cost.
	allocated := make(map[int64]numeric.Money, len(positions))
	for _, lot := range lots {
		allocated[lot.PortfolioID] += lot.CostBasis.MulDiv(req.BasisAllocation)
	}

	note := fmt.Sprintf("Spin-off of %s from %s", spun.Symbol, parent.Symbol)
	err = s.store.Atomic(ctx, func(st repository.Store) error {
		var received []int64
		for _, pos := range positions {
			newShares := pos.shares.MulDiv(req.DistributionRatio)
			if newShares.IsZero() {
				result.PortfolioErrors = append(result.PortfolioErrors, models.PortfolioError{
					PortfolioID: pos.portfolioID,
					Message:     "holding too small to receive shares at the distribution ratio; skipped",
				})
				continue
			}
			inbound := &models.Transaction{
				OwnerType:  models.OwnerPortfolio,
				OwnerID:    pos.portfolioID,
				SecurityID: &req.NewSecurityID,
				Type:       models.TypeDeliveryInbound,
				Date:       req.EffectiveDate,
				Shares:     newShares,
				Amount:     allocated[pos.portfolioID],
				Currency:   spun.Currency,
				Source:     models.SourceCorporateAction,
				SourceRef:  result.ActionID,
				Note:       note,
			}
			if err := st.Transactions().Create(ctx, inbound); err != nil {
				return fmt.Errorf("failed to create inbound delivery: %w", err)
			}
			result.TransactionsCreated++
			received = append(received, pos.portfolioID)
		}

		if len(received) == 0 {
			// Every holding was skipped. Leave the parent basis alone rather
			// than reducing it with nothing received in return.
			return nil
		}

		// Only the portfolios that received shares give up basis; a skipped
		// holding keeps every cent.
		if _, err := st.Transactions().RescaleAmounts(ctx, req.ParentSecurityID, req.EffectiveDate, received, remainder); err != nil {
			return err
		}

		parentLots, err := s.ledger.rebuildSecurity(ctx, st, req.ParentSecurityID)
		if err != nil {
			return err
		}
		newLots, err := s.ledger.rebuildSecurity(ctx, st, req.NewSecurityID)
		if err != nil {
			return err
		}
		result.LotsRebuilt = parentLots + newLots

		return st.Actions().Record(ctx, &models.AppliedAction{
			ID:               result.ActionID,
			Kind:             models.ActionSpinOff,
			SecurityID:       req.ParentSecurityID,
			TargetSecurityID: &req.NewSecurityID,
			EffectiveDate:    req.EffectiveDate,
			RatioNum:         req.DistributionRatio.Num,
			RatioDen:         req.DistributionRatio.Den,
			AppliedAt:        time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	result.Success = true
	return result, nil
}
