package models

import (
	"github.com/shopspring/decimal"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SplitParams is the request body for split preview/apply/undo endpoints.
type SplitParams struct {
	SecurityID    int64            `json:"security_id" binding:"required"`
	EffectiveDate FlexibleDate     `json:"effective_date" binding:"required"`
	RatioFrom     int64            `json:"ratio_from" binding:"required"`
	RatioTo       int64            `json:"ratio_to" binding:"required"`
	AdjustPrices  bool             `json:"adjust_prices"`
	AdjustFifo    bool             `json:"adjust_fifo"`
	Expect        *PreviewEvidence `json:"expect,omitempty"`
}

// MergerParams is the request body for merger preview/apply endpoints.
// ShareRatio is a decimal string (e.g. "0.5" target shares per source share)
// and CashPerShare is in minor units of CashCurrency.
type MergerParams struct {
	SourceSecurityID int64            `json:"source_security_id" binding:"required"`
	TargetSecurityID int64            `json:"target_security_id" binding:"required"`
	EffectiveDate    FlexibleDate     `json:"effective_date" binding:"required"`
	ShareRatio       decimal.Decimal  `json:"share_ratio" binding:"required"`
	CashPerShare     int64            `json:"cash_per_share"`
	CashCurrency     string           `json:"cash_currency"`
	Expect           *PreviewEvidence `json:"expect,omitempty"`
}

// SpinOffParams is the request body for the spin-off apply endpoint.
// DistributionRatio is new shares per parent share; BasisAllocation is the
// fraction of parent cost basis moved to the new security, both as decimal
// strings.
type SpinOffParams struct {
	ParentSecurityID  int64           `json:"parent_security_id" binding:"required"`
	NewSecurityID     int64           `json:"new_security_id" binding:"required"`
	EffectiveDate     FlexibleDate    `json:"effective_date" binding:"required"`
	DistributionRatio decimal.Decimal `json:"distribution_ratio" binding:"required"`
	BasisAllocation   decimal.Decimal `json:"basis_allocation" binding:"required"`
}

// RebuildParams optionally scopes a lot rebuild to specific securities.
type RebuildParams struct {
	SecurityIDs []int64 `json:"security_ids"`
}

// HoldingsResponse lists a portfolio's current positions.
type HoldingsResponse struct {
	PortfolioID int64     `json:"portfolio_id"`
	Holdings    []Holding `json:"holdings"`
}

// LotsResponse lists the open lots for one security across portfolios.
type LotsResponse struct {
	SecurityID int64     `json:"security_id"`
	Lots       []FifoLot `json:"lots"`
}
