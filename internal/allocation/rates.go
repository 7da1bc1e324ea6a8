package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest drift accepted by the conservation checks.
var Tolerance = decimal.RequireFromString("0.01")

// Rates holds the fixed fractions applied by the engine.
type Rates struct {
	// WeeklyTargetRate is the weekly gain a non-owner may keep, spread evenly
	// over TradingDaysPerWeek to obtain the daily cap.
	WeeklyTargetRate   decimal.Decimal
	TradingDaysPerWeek int
	PerformanceFeeRate decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{
		WeeklyTargetRate:   decimal.RequireFromString("0.00625"),
		TradingDaysPerWeek: 5,
		PerformanceFeeRate: decimal.RequireFromString("0.00126"),
	}
}

// DailyCapRate is the fraction of its balance a non-owner may gain per day.
func (r Rates) DailyCapRate() decimal.Decimal {
	if r.TradingDaysPerWeek <= 0 {
		return decimal.Zero
	}
	return r.WeeklyTargetRate.Div(decimal.NewFromInt(int64(r.TradingDaysPerWeek)))
}

func (r Rates) Validate() error {
	if r.TradingDaysPerWeek <= 0 {
		return fmt.Errorf("%w: trading days per week must be positive, got %d", ErrInvalidRates, r.TradingDaysPerWeek)
	}
	if r.WeeklyTargetRate.IsNegative() {
		return fmt.Errorf("%w: weekly target rate is negative", ErrInvalidRates)
	}
	if r.PerformanceFeeRate.IsNegative() || r.PerformanceFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: performance fee rate must be in [0, 1)", ErrInvalidRates)
	}
	return nil
}
