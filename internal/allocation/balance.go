package allocation

import (
	"github.com/shopspring/decimal"

	"profitpool/internal/models"
)

// LedgerBalance sums the committed capital movements of a contributor that
// are effective on or before date.
func LedgerBalance(contributorID string, date models.Date, ledger []models.CapitalLedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range ledger {
		if e.ContributorID != contributorID || !e.Committed || e.EffectiveDate.After(date) {
			continue
		}
		total = total.Add(e.Signed())
	}
	return total
}

// RealizedGains sums net-of-fee allocations of a contributor dated strictly
// before date.
func RealizedGains(contributorID string, date models.Date, allocations []models.DailyAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		if a.ContributorID != contributorID || !a.Date.Before(date) {
			continue
		}
		total = total.Add(a.RealizedGain())
	}
	return total
}

// BalanceAtDate is the capital a contributor brings into the distribution of
// date: committed ledger movements plus every gain realized before that day,
// whether already persisted or produced earlier in the running batch. The
// result never goes below zero.
func BalanceAtDate(contributorID string, date models.Date, ledger []models.CapitalLedgerEntry, historical, inFlight []models.DailyAllocation) decimal.Decimal {
	b := LedgerBalance(contributorID, date, ledger).
		Add(RealizedGains(contributorID, date, historical)).
		Add(RealizedGains(contributorID, date, inFlight))
	return clampZero(b)
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// balanceBook resolves balances during one batch. Persisted history is
// limited to records before the batch start; records inside the batch come
// from the in-flight accumulator, which is updated once per processed date.
type balanceBook struct {
	ledger     map[string][]models.CapitalLedgerEntry
	historical map[string][]models.DailyAllocation
	inFlight   map[string]decimal.Decimal
}

func newBalanceBook(ledger []models.CapitalLedgerEntry, historical []models.DailyAllocation) *balanceBook {
	b := &balanceBook{
		ledger:     make(map[string][]models.CapitalLedgerEntry),
		historical: make(map[string][]models.DailyAllocation),
		inFlight:   make(map[string]decimal.Decimal),
	}
	for _, e := range ledger {
		if e.Committed {
			b.ledger[e.ContributorID] = append(b.ledger[e.ContributorID], e)
		}
	}
	for _, a := range historical {
		b.historical[a.ContributorID] = append(b.historical[a.ContributorID], a)
	}
	return b
}

func (b *balanceBook) balanceAt(contributorID string, date models.Date) decimal.Decimal {
	v := LedgerBalance(contributorID, date, b.ledger[contributorID]).
		Add(RealizedGains(contributorID, date, b.historical[contributorID])).
		Add(b.inFlight[contributorID])
	return clampZero(v)
}

// settle folds a finished date into the accumulator.
func (b *balanceBook) settle(allocations []models.DailyAllocation) {
	for _, a := range allocations {
		b.inFlight[a.ContributorID] = b.inFlight[a.ContributorID].Add(a.RealizedGain())
	}
}
