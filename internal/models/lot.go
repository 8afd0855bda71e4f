package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

// FifoLot is one tranche of shares acquired at a point in cost, consumed
// oldest-first on disposal. CostBasis is the exact remaining basis in minor
// units; per-share unit cost is derived for display only, so division
// remainders accumulate in the lot instead of being dropped.
type FifoLot struct {
	ID                int64            `json:"id"`
	PortfolioID       int64            `json:"portfolio_id"`
	SecurityID        int64            `json:"security_id"`
	AcquiredAt        time.Time        `json:"acquired_at"`
	Seq               int64            `json:"seq"`
	OpenQuantity      numeric.Quantity `json:"open_quantity"`
	RemainingQuantity numeric.Quantity `json:"remaining_quantity"`
	CostBasis         numeric.Money    `json:"cost_basis"`
}

// UnitCost returns the remaining basis per whole share as a decimal in minor
// units. Reporting only; the engine never round-trips through this value.
func (l FifoLot) UnitCost() decimal.Decimal {
	if l.RemainingQuantity.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(l.CostBasis)).
		Div(l.RemainingQuantity.Decimal())
}

// PriceRecord is one historical close for a security, in minor units.
type PriceRecord struct {
	SecurityID int64         `json:"security_id"`
	Date       time.Time     `json:"date"`
	Close      numeric.Money `json:"close"`
}

// Holding is the current position in one security within a portfolio,
// aggregated from its open lots.
type Holding struct {
	PortfolioID int64            `json:"portfolio_id"`
	SecurityID  int64            `json:"security_id"`
	Shares      numeric.Quantity `json:"shares"`
	CostBasis   numeric.Money    `json:"cost_basis"`
	Lots        int              `json:"lots"`
}
