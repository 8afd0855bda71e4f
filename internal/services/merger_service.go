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

func (s *ActionService) validateMerger(ctx context.Context, req *models.MergerRequest) (source, target *models.Security, err error) {
	if req.SourceSecurityID == req.TargetSecurityID {
		return nil, nil, fmt.Errorf("%w: source and target security must differ", ErrValidation)
	}
	if _, err := numeric.NewRatio(req.ShareRatio.Num, req.ShareRatio.Den); err != nil {
		return nil, nil, fmt.Errorf("%w: share ratio %s", ErrValidation, req.ShareRatio)
	}
	if req.CashPerShare < 0 {
		return nil, nil, fmt.Errorf("%w: cash per share must not be negative", ErrValidation)
	}
	source, err = s.getSecurity(ctx, req.SourceSecurityID)
	if err != nil {
		return nil, nil, err
	}
	target, err = s.getSecurity(ctx, req.TargetSecurityID)
	if err != nil {
		return nil, nil, err
	}
	if req.CashCurrency == "" {
		req.CashCurrency = source.Currency
	}
	return source, target, nil
}

// PreviewMerger computes the effect of absorbing the source security into the
// target, per holding portfolio. Target shares truncate toward zero; the lost
// fraction is reported, never compensated. Cost basis moves wholesale: the
// target position inherits exactly the source position's remaining basis.
// Share activity in the source dated after the effective date is rejected
// outright: the outbound delivery would consume a position that did not exist
// yet, and replaying such a history only fails later with a misleading
// oversell.
func (s *ActionService) PreviewMerger(ctx context.Context, req models.MergerRequest) (*models.MergerPreview, error) {
	if _, _, err := s.validateMerger(ctx, &req); err != nil {
		return nil, err
	}

	txs, err := s.store.Transactions().ListBySecurity(ctx, req.SourceSecurityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	for _, t := range txs {
		if t.OwnerType == models.OwnerPortfolio && t.MovesShares() && t.Date.After(req.EffectiveDate) {
			return nil, fmt.Errorf("%w: source security has share activity dated after %s",
				ErrValidation, req.EffectiveDate.Format("2006-01-02"))
		}
	}
	lots, err := replayLots(req.SourceSecurityID, txs)
	if err != nil {
		return nil, err
	}

	preview := &models.MergerPreview{
		SourceSecurityID: req.SourceSecurityID,
		TargetSecurityID: req.TargetSecurityID,
		EffectiveDate:    req.EffectiveDate,
		ShareRatio:       req.ShareRatio,
		CashPerShare:     req.CashPerShare,
		CashCurrency:     req.CashCurrency,
	}
	for _, pos := range groupByPortfolio(lots) {
		targetShares := pos.shares.MulDiv(req.ShareRatio)
		line := models.PortfolioMergerLine{
			PortfolioID:          pos.portfolioID,
			PortfolioName:        s.portfolioName(ctx, pos.portfolioID),
			SourceShares:         pos.shares,
			TargetShares:         targetShares,
			FractionalRemainder:  pos.shares.Decimal().Mul(req.ShareRatio.Decimal()).Sub(targetShares.Decimal()),
			CashAmount:           req.CashPerShare.PerShare(pos.shares),
			CostBasisTransferred: pos.costBasis,
			LotsAffected:         pos.lots,
		}
		preview.Portfolios = append(preview.Portfolios, line)
		preview.TotalSourceShares += line.SourceShares
		preview.TotalTargetShares += line.TargetShares
		preview.TotalCash += line.CashAmount
		preview.TotalCostBasisTransferred += line.CostBasisTransferred
	}
	preview.PortfoliosAffected = len(preview.Portfolios)
	preview.NothingToApply = preview.PortfoliosAffected == 0
	return preview, nil
}

// ApplyMerger synthesizes, per affected portfolio, a full outbound delivery
// of the source holding, an inbound delivery of the target carrying the
// transferred cost basis, and (when cashPerShare > 0) a cash credit against
// the portfolio's reference account. Lots for both securities are rebuilt in
// the same atomic unit. Zero affected portfolios is a successful no-op.
func (s *ActionService) ApplyMerger(ctx context.Context, req models.MergerRequest) (*models.CorporateActionResult, error) {
	defer TrackTime("ApplyMerger", time.Now())

	source, target, err := s.validateMerger(ctx, &req)
	if err != nil {
		return nil, err
	}

	unlock := s.ledger.locks.Lock(req.SourceSecurityID, req.TargetSecurityID)
	defer unlock()

	preview, err := s.PreviewMerger(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkEvidence(req.Expect, preview.TotalSourceShares, preview.PortfoliosAffected); err != nil {
		return nil, err
	}

	result := &models.CorporateActionResult{ActionID: uuid.NewString()}
	if preview.NothingToApply {
		result.Success = true
		return result, nil
	}

	note := fmt.Sprintf("Merger of %s into %s", source.Symbol, target.Symbol)
	err = s.store.Atomic(ctx, func(st repository.Store) error {
		for _, line := range preview.Portfolios {
			if line.TargetShares.IsZero() {
				// A holding too small to convert would strand its cost basis
				// on a zero-quantity lot; skip it and surface the problem.
				result.PortfolioErrors = append(result.PortfolioErrors, models.PortfolioError{
					PortfolioID: line.PortfolioID,
					Message:     "holding too small to convert at the given share ratio; skipped",
				})
				continue
			}
			portfolio, err := st.Portfolios().GetByID(ctx, line.PortfolioID)
			if err != nil {
				return fmt.Errorf("failed to load portfolio %d: %w", line.PortfolioID, err)
			}

			outbound := &models.Transaction{
				OwnerType:  models.OwnerPortfolio,
				OwnerID:    portfolio.ID,
				SecurityID: &req.SourceSecurityID,
				Type:       models.TypeDeliveryOutbound,
				Date:       req.EffectiveDate,
				Shares:     line.SourceShares,
				Amount:     line.CostBasisTransferred,
				Currency:   source.Currency,
				Source:     models.SourceCorporateAction,
				SourceRef:  result.ActionID,
				Note:       note,
			}
			if err := st.Transactions().Create(ctx, outbound); err != nil {
				return fmt.Errorf("failed to create outbound delivery: %w", err)
			}

			inbound := &models.Transaction{
				OwnerType:  models.OwnerPortfolio,
				OwnerID:    portfolio.ID,
				SecurityID: &req.TargetSecurityID,
				Type:       models.TypeDeliveryInbound,
				Date:       req.EffectiveDate,
				Shares:     line.TargetShares,
				Amount:     line.CostBasisTransferred,
				Currency:   target.Currency,
				Source:     models.SourceCorporateAction,
				SourceRef:  result.ActionID,
				Note:       note,
			}
			if err := st.Transactions().Create(ctx, inbound); err != nil {
				return fmt.Errorf("failed to create inbound delivery: %w", err)
			}
			result.TransactionsCreated += 2

			if req.CashPerShare > 0 {
				if _, err := st.Accounts().GetByID(ctx, portfolio.ReferenceAccountID); err != nil {
					return fmt.Errorf("reference account %d of portfolio %d: %w",
						portfolio.ReferenceAccountID, portfolio.ID, err)
				}
				cash := &models.Transaction{
					OwnerType: models.OwnerAccount,
					OwnerID:   portfolio.ReferenceAccountID,
					Type:      models.TypeTransferIn,
					Date:      req.EffectiveDate,
					Amount:    line.CashAmount,
					Currency:  req.CashCurrency,
					Source:    models.SourceCorporateAction,
					SourceRef: result.ActionID,
					Note:      note,
				}
				if err := st.Transactions().Create(ctx, cash); err != nil {
					return fmt.Errorf("failed to create cash transaction: %w", err)
				}
				result.TransactionsCreated++
			}
		}

		sourceLots, err := s.ledger.rebuildSecurity(ctx, st, req.SourceSecurityID)
		if err != nil {
			return err
		}
		targetLots, err := s.ledger.rebuildSecurity(ctx, st, req.TargetSecurityID)
		if err != nil {
			return err
		}
		result.LotsRebuilt = sourceLots + targetLots

		return st.Actions().Record(ctx, &models.AppliedAction{
			ID:               result.ActionID,
			Kind:             models.ActionMerger,
			SecurityID:       req.SourceSecurityID,
			TargetSecurityID: &req.TargetSecurityID,
			EffectiveDate:    req.EffectiveDate,
			RatioNum:         req.ShareRatio.Num,
			RatioDen:         req.ShareRatio.Den,
			CashPerShare:     req.CashPerShare,
			AppliedAt:        time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	result.Success = true
	return result, nil
}
