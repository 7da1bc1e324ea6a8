package allocation

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"profitpool/internal/models"
)

type allocKey struct {
	date          models.Date
	contributorID string
}

// memStore is an in-memory Store with the same replace semantics as the
// gorm repository.
type memStore struct {
	contributors []models.Contributor
	ledger       []models.CapitalLedgerEntry
	totals       []models.DailyGrossTotal
	charges      []models.DailyCharge
	allocations  map[allocKey]models.DailyAllocation
	aggregates   map[models.Date]models.OwnerDailyAggregate

	replaceErr   error
	replaceCalls int

	// onHistory runs after every historical read, before the batch goes on.
	onHistory func()
	lock      sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		allocations: make(map[allocKey]models.DailyAllocation),
		aggregates:  make(map[models.Date]models.OwnerDailyAggregate),
	}
}

func (s *memStore) addContributor(id string, owner bool, activation string) *memStore {
	c := models.Contributor{ID: id, Name: id, IsOwner: owner, Status: "active"}
	if activation != "" {
		d := models.MustParseDate(activation)
		c.ActivationDate = &d
	}
	s.contributors = append(s.contributors, c)
	return s
}

func (s *memStore) fund(id string, amount string, date string) *memStore {
	s.ledger = append(s.ledger, models.CapitalLedgerEntry{
		ID:            id + "-" + date + "-" + amount,
		ContributorID: id,
		Direction:     models.DirectionAdd,
		Amount:        decimal.RequireFromString(amount),
		EffectiveDate: models.MustParseDate(date),
		Committed:     true,
	})
	return s
}

func (s *memStore) gross(date, amount string) *memStore {
	d := models.MustParseDate(date)
	for i := range s.totals {
		if s.totals[i].Date == d {
			s.totals[i].GrossTotal = decimal.RequireFromString(amount)
			return s
		}
	}
	s.totals = append(s.totals, models.DailyGrossTotal{Date: d, GrossTotal: decimal.RequireFromString(amount)})
	return s
}

func (s *memStore) charge(date, amount string) *memStore {
	s.charges = append(s.charges, models.DailyCharge{Date: models.MustParseDate(date), TaxAmount: decimal.RequireFromString(amount)})
	return s
}

func (s *memStore) ListContributors(ctx context.Context) ([]models.Contributor, error) {
	return append([]models.Contributor(nil), s.contributors...), nil
}

func (s *memStore) GetCapitalLedger(ctx context.Context, contributorID string) ([]models.CapitalLedgerEntry, error) {
	var out []models.CapitalLedgerEntry
	for _, e := range s.ledger {
		if contributorID == "" || e.ContributorID == contributorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) GetDailyGrossTotals(ctx context.Context, r models.DateRange) ([]models.DailyGrossTotal, error) {
	var out []models.DailyGrossTotal
	for _, t := range s.totals {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) GetDailyCharges(ctx context.Context, r models.DateRange) ([]models.DailyCharge, error) {
	var out []models.DailyCharge
	for _, c := range s.charges {
		if r.Contains(c.Date) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) GetHistoricalAllocations(ctx context.Context, contributorID string, before models.Date) ([]models.DailyAllocation, error) {
	var out []models.DailyAllocation
	for _, a := range s.sortedAllocations() {
		if (contributorID == "" || a.ContributorID == contributorID) && a.Date.Before(before) {
			out = append(out, a)
		}
	}
	if s.onHistory != nil {
		s.onHistory()
	}
	return out, nil
}

func (s *memStore) Exclusive(ctx context.Context, fn func(Store) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s)
}

func (s *memStore) ReplaceAllocations(ctx context.Context, r models.DateRange, allocations []models.DailyAllocation, aggregates []models.OwnerDailyAggregate) error {
	s.replaceCalls++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	for k := range s.allocations {
		if r.Contains(k.date) {
			delete(s.allocations, k)
		}
	}
	for d := range s.aggregates {
		if r.Contains(d) {
			delete(s.aggregates, d)
		}
	}
	for _, a := range allocations {
		s.allocations[allocKey{a.Date, a.ContributorID}] = a
	}
	for _, a := range aggregates {
		s.aggregates[a.Date] = a
	}
	return nil
}

func (s *memStore) sortedAllocations() []models.DailyAllocation {
	out := make([]models.DailyAllocation, 0, len(s.allocations))
	for _, a := range s.allocations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return out[i].ContributorID < out[j].ContributorID
	})
	return out
}

func (s *memStore) allocation(date, contributorID string) (models.DailyAllocation, bool) {
	a, ok := s.allocations[allocKey{models.MustParseDate(date), contributorID}]
	return a, ok
}
