// Package numeric provides the fixed-point types the ledger computes with.
// Shares are int64 scaled by 1e8, money is int64 minor units (cents for most
// currencies). All multiply-then-divide steps go through big.Int so that
// intermediates never overflow and truncation happens exactly once.
package numeric

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional share units per whole share.
const QuantityScale int64 = 100_000_000

// Quantity is a share count scaled by QuantityScale.
type Quantity int64

// Money is an amount in minor currency units (e.g. cents).
type Money int64

// QuantityFromShares converts a whole-share count into a Quantity.
func QuantityFromShares(shares int64) Quantity {
	return Quantity(shares * QuantityScale)
}

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }

// Decimal renders the quantity as a whole-share decimal.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -8)
}

// MulDiv returns q*r.Num/r.Den truncated toward zero.
func (q Quantity) MulDiv(r Ratio) Quantity {
	return Quantity(mulDiv(int64(q), r.Num, r.Den))
}

// Decimal renders the amount assuming two minor-unit digits.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// MulDiv returns m*r.Num/r.Den truncated toward zero.
func (m Money) MulDiv(r Ratio) Money {
	return Money(mulDiv(int64(m), r.Num, r.Den))
}

// PerShare computes m (minor units per whole share) applied to a scaled
// quantity: m*q/QuantityScale, truncated toward zero.
func (m Money) PerShare(q Quantity) Money {
	return Money(mulDiv(int64(m), int64(q), QuantityScale))
}

// AllocMoney returns total*part/whole truncated toward zero. It is the
// proportional cost allocation used when a lot is partially consumed; the
// truncation remainder stays with the lot the allocation was taken from.
func AllocMoney(total Money, part, whole Quantity) Money {
	return Money(mulDiv(int64(total), int64(part), int64(whole)))
}

// mulDiv computes a*num/den exactly, truncating toward zero. den must be
// positive; callers validate ratios before arithmetic reaches this point.
func mulDiv(a, num, den int64) int64 {
	if den <= 0 {
		panic(fmt.Sprintf("numeric: non-positive divisor %d", den))
	}
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(num))
	p.Quo(p, big.NewInt(den))
	if !p.IsInt64() {
		panic("numeric: mulDiv result overflows int64")
	}
	return p.Int64()
}
