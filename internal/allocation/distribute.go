package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"profitpool/internal/models"
)

type dayEntry struct {
	ContributorID string
	IsOwner       bool
	Balance       decimal.Decimal
}

type dayInput struct {
	Date       models.Date
	GrossTotal decimal.Decimal
	Tax        decimal.Decimal
	Entries    []dayEntry // eligible contributors, owner included
}

type dayOutput struct {
	Allocations []models.DailyAllocation
	Aggregate   models.OwnerDailyAggregate
}

// distributeDay splits one day's result over the eligible contributors. It
// returns nil when no capital takes part. Non-owners keep at most their daily
// cap on a profit day; the excess and all performance fees go to the owner.
// The owner is emitted even with a zero balance so that excess and fees
// always have a home.
func distributeDay(in dayInput, rates Rates) (*dayOutput, error) {
	var (
		entries []dayEntry
		total   = decimal.Zero
		owner   = -1
	)
	for _, e := range in.Entries {
		if !e.Balance.IsPositive() && !e.IsOwner {
			continue
		}
		if e.IsOwner {
			if owner >= 0 {
				return nil, &ComputationError{Date: in.Date, Err: ErrMultipleOwners}
			}
			owner = len(entries)
			e.Balance = clampZero(e.Balance)
		}
		total = total.Add(e.Balance)
		entries = append(entries, e)
	}
	if !total.IsPositive() {
		return nil, nil
	}
	if owner < 0 {
		return nil, &ComputationError{Date: in.Date, Err: ErrNoOwner}
	}

	netProfitTotal := in.GrossTotal.Sub(in.Tax)
	isProfitDay := netProfitTotal.IsPositive()
	capRate := rates.DailyCapRate()

	share := func(amount, balance decimal.Decimal) decimal.Decimal {
		return models.RoundMoney(amount.Mul(balance).Div(total))
	}

	var (
		surplus          = decimal.Zero
		totalFees        = decimal.Zero
		totalNonOwnerNet = decimal.Zero
		allocations      = make([]models.DailyAllocation, 0, len(entries))
	)
	for _, e := range entries {
		proRataNet := share(netProfitTotal, e.Balance)
		net := proRataNet
		fee := decimal.Zero

		if !e.IsOwner {
			if isProfitDay {
				limit := models.RoundMoney(e.Balance.Mul(capRate))
				if net.GreaterThan(limit) {
					net = limit
				}
				surplus = surplus.Add(proRataNet.Sub(net))
				fee = models.RoundMoney(net.Mul(rates.PerformanceFeeRate))
			}
			totalFees = totalFees.Add(fee)
			totalNonOwnerNet = totalNonOwnerNet.Add(net.Sub(fee))
		}

		allocations = append(allocations, models.DailyAllocation{
			Date:            in.Date,
			ContributorID:   e.ContributorID,
			CapitalDayStart: models.RoundMoney(e.Balance),
			GrossAlloc:      share(in.GrossTotal, e.Balance),
			TaxAlloc:        share(in.Tax, e.Balance),
			NetAlloc:        net,
			PerformanceFee:  fee,
		})
	}

	allocations[owner].NetAlloc = allocations[owner].NetAlloc.Add(surplus).Add(totalFees)

	out := &dayOutput{
		Allocations: allocations,
		Aggregate: models.OwnerDailyAggregate{
			Date:                   in.Date,
			TotalInvestorNetProfit: totalNonOwnerNet,
			TotalPerformanceFees:   totalFees,
			OwnerTake:              allocations[owner].NetAlloc,
		},
	}
	if err := checkConservation(in, out.Allocations); err != nil {
		return nil, err
	}
	return out, nil
}

// Conservation holds the per-day sums compared by checkConservation.
type Conservation struct {
	Gross    decimal.Decimal `json:"gross"`
	Tax      decimal.Decimal `json:"tax"`
	Net      decimal.Decimal `json:"net"`
	Realized decimal.Decimal `json:"realized"` // net minus performance fees
}

// Sums adds up the allocations of one day.
func Sums(allocations []models.DailyAllocation) Conservation {
	var c Conservation
	for _, a := range allocations {
		c.Gross = c.Gross.Add(a.GrossAlloc)
		c.Tax = c.Tax.Add(a.TaxAlloc)
		c.Net = c.Net.Add(a.NetAlloc)
		c.Realized = c.Realized.Add(a.RealizedGain())
	}
	return c
}

// checkConservation verifies that the day's gross total, charge and net
// result are fully distributed. Fees are counted once: they sit inside the
// non-owner net figures and are added again to the owner, so the exact
// invariant is on net minus fee.
func checkConservation(in dayInput, allocations []models.DailyAllocation) error {
	s := Sums(allocations)
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"gross", s.Gross, in.GrossTotal},
		{"tax", s.Tax, in.Tax},
		{"net of fees", s.Realized, in.GrossTotal.Sub(in.Tax)},
	}
	for _, c := range checks {
		if c.got.Sub(c.want).Abs().GreaterThan(Tolerance) {
			return &ComputationError{
				Date: in.Date,
				Err:  fmt.Errorf("%w: %s distributed %s, expected %s", ErrConservation, c.name, c.got, c.want),
			}
		}
	}
	return nil
}
