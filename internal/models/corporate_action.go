package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

// ActionKind identifies what an applied corporate action did.
type ActionKind string

const (
	ActionSplit     ActionKind = "SPLIT"
	ActionSplitUndo ActionKind = "SPLIT_UNDO"
	ActionMerger    ActionKind = "MERGER"
	ActionSpinOff   ActionKind = "SPINOFF"
)

// PreviewEvidence carries the aggregates a caller saw at preview time.
// Apply recomputes them against live state and fails closed on mismatch, so
// state that drifted between preview and apply is never mutated blindly.
type PreviewEvidence struct {
	TotalSharesBefore  numeric.Quantity `json:"total_shares_before"`
	PortfoliosAffected int              `json:"portfolios_affected"`
}

// SplitRequest describes a stock split of SecurityID by RatioFrom:RatioTo
// (e.g. 1:2 doubles the share count).
type SplitRequest struct {
	SecurityID    int64            `json:"security_id"`
	EffectiveDate time.Time        `json:"effective_date"`
	RatioFrom     int64            `json:"ratio_from"`
	RatioTo       int64            `json:"ratio_to"`
	AdjustPrices  bool             `json:"adjust_prices"`
	AdjustFifo    bool             `json:"adjust_fifo"`
	Expect        *PreviewEvidence `json:"expect,omitempty"`
}

// PortfolioSplitLine is the per-portfolio effect of a split preview.
type PortfolioSplitLine struct {
	PortfolioID   int64            `json:"portfolio_id"`
	PortfolioName string           `json:"portfolio_name"`
	SharesBefore  numeric.Quantity `json:"shares_before"`
	SharesAfter   numeric.Quantity `json:"shares_after"`
	LotsAffected  int              `json:"lots_affected"`
}

// StockSplitPreview is the pure, side-effect-free projection of a split.
type StockSplitPreview struct {
	SecurityID         int64                `json:"security_id"`
	EffectiveDate      time.Time            `json:"effective_date"`
	RatioFrom          int64                `json:"ratio_from"`
	RatioTo            int64                `json:"ratio_to"`
	AdjustPrices       bool                 `json:"adjust_prices"`
	AdjustFifo         bool                 `json:"adjust_fifo"`
	TotalSharesBefore  numeric.Quantity     `json:"total_shares_before"`
	TotalSharesAfter   numeric.Quantity     `json:"total_shares_after"`
	PortfoliosAffected int                  `json:"portfolios_affected"`
	LotsAffected       int                  `json:"lots_affected"`
	PricesAffected     int                  `json:"prices_affected"`
	Portfolios         []PortfolioSplitLine `json:"portfolios"`
}

// Evidence reduces the preview to the aggregates Apply revalidates.
func (p *StockSplitPreview) Evidence() *PreviewEvidence {
	return &PreviewEvidence{
		TotalSharesBefore:  p.TotalSharesBefore,
		PortfoliosAffected: p.PortfoliosAffected,
	}
}

// MergerRequest describes SourceSecurityID being absorbed into
// TargetSecurityID at ShareRatio target shares per source share, optionally
// with a cash component per source share.
type MergerRequest struct {
	SourceSecurityID int64            `json:"source_security_id"`
	TargetSecurityID int64            `json:"target_security_id"`
	EffectiveDate    time.Time        `json:"effective_date"`
	ShareRatio       numeric.Ratio    `json:"share_ratio"`
	CashPerShare     numeric.Money    `json:"cash_per_share"`
	CashCurrency     string           `json:"cash_currency,omitempty"`
	Expect           *PreviewEvidence `json:"expect,omitempty"`
}

// PortfolioMergerLine is the per-portfolio effect of a merger preview.
// FractionalRemainder is the share fraction lost to truncation; it is
// reported, never compensated (no automatic cash-in-lieu).
type PortfolioMergerLine struct {
	PortfolioID          int64            `json:"portfolio_id"`
	PortfolioName        string           `json:"portfolio_name"`
	SourceShares         numeric.Quantity `json:"source_shares"`
	TargetShares         numeric.Quantity `json:"target_shares"`
	FractionalRemainder  decimal.Decimal  `json:"fractional_remainder"`
	CashAmount           numeric.Money    `json:"cash_amount"`
	CostBasisTransferred numeric.Money    `json:"cost_basis_transferred"`
	LotsAffected         int              `json:"lots_affected"`
}

// MergerPreview aggregates the merger effect across all holding portfolios.
// NothingToApply distinguishes an empty but valid preview from a failure.
type MergerPreview struct {
	SourceSecurityID          int64                 `json:"source_security_id"`
	TargetSecurityID          int64                 `json:"target_security_id"`
	EffectiveDate             time.Time             `json:"effective_date"`
	ShareRatio                numeric.Ratio         `json:"share_ratio"`
	CashPerShare              numeric.Money         `json:"cash_per_share"`
	CashCurrency              string                `json:"cash_currency,omitempty"`
	TotalSourceShares         numeric.Quantity      `json:"total_source_shares"`
	TotalTargetShares         numeric.Quantity      `json:"total_target_shares"`
	TotalCash                 numeric.Money         `json:"total_cash"`
	TotalCostBasisTransferred numeric.Money         `json:"total_cost_basis_transferred"`
	PortfoliosAffected        int                   `json:"portfolios_affected"`
	NothingToApply            bool                  `json:"nothing_to_apply"`
	Portfolios                []PortfolioMergerLine `json:"portfolios"`
}

// Evidence reduces the preview to the aggregates Apply revalidates.
func (p *MergerPreview) Evidence() *PreviewEvidence {
	return &PreviewEvidence{
		TotalSharesBefore:  p.TotalSourceShares,
		PortfoliosAffected: p.PortfoliosAffected,
	}
}

// SpinOffRequest describes NewSecurityID being distributed out of
// ParentSecurityID. The parent holding keeps its share count; BasisAllocation
// is the caller-supplied fraction of parent cost basis (relative fair value)
// that moves into the new security's lots.
type SpinOffRequest struct {
	ParentSecurityID  int64         `json:"parent_security_id"`
	NewSecurityID     int64         `json:"new_security_id"`
	EffectiveDate     time.Time     `json:"effective_date"`
	DistributionRatio numeric.Ratio `json:"distribution_ratio"`
	BasisAllocation   numeric.Ratio `json:"basis_allocation"`
}

// PortfolioError reports a per-portfolio failure inside an Apply that is
// allowed to partially succeed.
type PortfolioError struct {
	PortfolioID int64  `json:"portfolio_id"`
	Message     string `json:"message"`
}

// CorporateActionResult is the outcome of an Apply or Undo.
type CorporateActionResult struct {
	Success             bool             `json:"success"`
	ActionID            string           `json:"action_id,omitempty"`
	TransactionsCreated int              `json:"transactions_created"`
	LotsRebuilt         int              `json:"lots_rebuilt"`
	PortfolioErrors     []PortfolioError `json:"portfolio_errors,omitempty"`
}

// SecurityRebuildError reports one security that failed validation during a
// batch rebuild. The batch continues past it.
type SecurityRebuildError struct {
	SecurityID int64  `json:"security_id"`
	Message    string `json:"message"`
}

// RebuildReport summarizes a full or scoped FIFO lot rebuild.
type RebuildReport struct {
	SecuritiesProcessed int                    `json:"securities_processed"`
	LotsCreated         int                    `json:"lots_created"`
	Errors              []SecurityRebuildError `json:"errors,omitempty"`
}

// AppliedAction is an audit row recording a corporate action that was
// applied, with enough parameters to reverse a split.
type AppliedAction struct {
	ID               string        `json:"id"`
	Kind             ActionKind    `json:"kind"`
	SecurityID       int64         `json:"security_id"`
	TargetSecurityID *int64        `json:"target_security_id,omitempty"`
	EffectiveDate    time.Time     `json:"effective_date"`
	RatioNum         int64         `json:"ratio_num"`
	RatioDen         int64         `json:"ratio_den"`
	CashPerShare     numeric.Money `json:"cash_per_share"`
	AppliedAt        time.Time     `json:"applied_at"`
}
