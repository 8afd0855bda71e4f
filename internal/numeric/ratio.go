package numeric

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidRatio = errors.New("ratio must be positive")

// Ratio is a positive rational factor (Num/Den). Split ratios, merger share
// ratios and spin-off allocations are all carried as Ratios so the engine can
// multiply-then-divide without precision loss.
type Ratio struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// NewRatio builds a Ratio from two positive integers.
func NewRatio(num, den int64) (Ratio, error) {
	if num <= 0 || den <= 0 {
		return Ratio{}, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, num, den)
	}
	return Ratio{Num: num, Den: den}, nil
}

// RatioFromDecimal converts a positive decimal (e.g. a merger share ratio of
// "0.5") into an exact Ratio.
func RatioFromDecimal(d decimal.Decimal) (Ratio, error) {
	if !d.IsPositive() {
		return Ratio{}, fmt.Errorf("%w: %s", ErrInvalidRatio, d)
	}
	coef := d.Coefficient()
	if !coef.IsInt64() {
		return Ratio{}, fmt.Errorf("%w: %s has too many digits", ErrInvalidRatio, d)
	}
	num := coef.Int64()
	den := int64(1)
	exp := int64(d.Exponent())
	for ; exp < 0; exp++ {
		if den > (1<<62)/10 {
			return Ratio{}, fmt.Errorf("%w: %s has too many digits", ErrInvalidRatio, d)
		}
		den *= 10
	}
	for ; exp > 0; exp-- {
		if num > (1<<62)/10 {
			return Ratio{}, fmt.Errorf("%w: %s has too many digits", ErrInvalidRatio, d)
		}
		num *= 10
	}
	return Ratio{Num: num, Den: den}, nil
}

// Inverse swaps numerator and denominator.
func (r Ratio) Inverse() Ratio {
	return Ratio{Num: r.Den, Den: r.Num}
}

// Complement returns (Den-Num)/Den, the fraction left behind after r has been
// carved out. Only meaningful for r < 1 (spin-off basis allocations).
func (r Ratio) Complement() (Ratio, error) {
	if r.Num >= r.Den {
		return Ratio{}, fmt.Errorf("%w: complement of %d/%d", ErrInvalidRatio, r.Num, r.Den)
	}
	return Ratio{Num: r.Den - r.Num, Den: r.Den}, nil
}

// Decimal renders the ratio for reporting. Non-terminating fractions are
// rounded at the decimal package's default precision; ledger math never uses
// this value.
func (r Ratio) Decimal() decimal.Decimal {
	return decimal.NewFromInt(r.Num).Div(decimal.NewFromInt(r.Den))
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.Num, r.Den)
}
