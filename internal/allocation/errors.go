package allocation

import (
	"errors"
	"fmt"

	"profitpool/internal/models"
)

var (
	ErrInvalidRange       = errors.New("start date is after end date")
	ErrRangeTooLong       = errors.New("date range is too long")
	ErrNoOwner            = errors.New("no owner contributor configured")
	ErrMultipleOwners     = errors.New("more than one owner contributor configured")
	ErrInvalidLedgerEntry = errors.New("invalid capital ledger entry")
	ErrInvalidRates       = errors.New("invalid allocation rates")
	ErrConservation       = errors.New("conservation check failed")
)

// ComputationError aborts a batch because the inputs of one date cannot be
// distributed. Nothing of the batch is committed.
type ComputationError struct {
	Date models.Date
	Err  error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("allocation for %s: %v", e.Date, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// PersistenceError wraps a failing store read or write. The batch can be
// retried as is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MaxRangeDays bounds the number of days one batch may cover.
const MaxRangeDays = 3660

// ValidateRange checks that [start, end] is a usable batch range.
func ValidateRange(start, end models.Date) error {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidRange, start, end)
	}
	if n := (models.DateRange{Start: start, End: end}).Len(); n > MaxRangeDays {
		return fmt.Errorf("%w: %d days, at most %d", ErrRangeTooLong, n, MaxRangeDays)
	}
	return nil
}

// IsRetryable reports whether err came from the store rather than from the inputs.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsInvalidInput reports whether err was caused by the inputs of the run.
func IsInvalidInput(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrRangeTooLong) ||
		errors.Is(err, ErrNoOwner) ||
		errors.Is(err, ErrMultipleOwners) ||
		errors.Is(err, ErrInvalidRates)
}
