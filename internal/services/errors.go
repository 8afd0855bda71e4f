package services

import (
	"errors"
	"fmt"

	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

var (
	// ErrValidation rejects bad parameters before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrConcurrentModification means state moved between preview and apply;
	// the caller must re-preview.
	ErrConcurrentModification = errors.New("state changed since preview")
	// ErrInsufficientLots matches any InsufficientLotsError via errors.Is.
	ErrInsufficientLots = errors.New("insufficient lots")
)

// InsufficientLotsError reports a disposal exceeding the held quantity.
// The ledger rejects these rather than allowing silent negative lots.
type InsufficientLotsError struct {
	PortfolioID int64
	SecurityID  int64
	Requested   numeric.Quantity
	Available   numeric.Quantity
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots: portfolio %d security %d: disposal of %s exceeds held %s",
		e.PortfolioID, e.SecurityID, e.Requested.Decimal(), e.Available.Decimal())
}

func (e *InsufficientLotsError) Is(target error) bool {
	return target == ErrInsufficientLots
}
