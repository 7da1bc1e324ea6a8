package allocation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"profitpool/internal/models"
)

type SkipReason string

const (
	SkipNoGrossTotal      SkipReason = "no_gross_total"
	SkipNoEligibleCapital SkipReason = "no_eligible_capital"
)

// SkippedDate is a day of the range that produced no records.
type SkippedDate struct {
	Date   models.Date `json:"date"`
	Reason SkipReason  `json:"reason"`
}

// Result is the output of one batch, ordered by date then contributor id.
type Result struct {
	Range           models.DateRange             `json:"range"`
	Allocations     []models.DailyAllocation     `json:"allocations"`
	OwnerAggregates []models.OwnerDailyAggregate `json:"owner_aggregates"`
	Skipped         []SkippedDate                `json:"skipped"`
}

// Engine distributes daily results over contributors. Runs are serialized:
// each date depends on every earlier date of the same batch, and two batches
// writing the same days would interleave. The mutex covers one process,
// Store.Exclusive covers every engine sharing the store.
type Engine struct {
	store Store
	rates Rates
	log   *logrus.Entry
	mu    sync.Mutex
}

func NewEngine(store Store, rates Rates, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{store: store, rates: rates, log: log.WithField("component", "allocation")}
}

// Rates returns the rates the engine was built with.
func (e *Engine) Rates() Rates { return e.rates }

// RunAllocationForRange recomputes [start, end] and replaces every derived
// record of those days in a single commit. Inputs are read under the same
// store lock as the commit.
func (e *Engine) RunAllocationForRange(ctx context.Context, start, end models.Date) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		res      *Result
		batchErr error
	)
	err := e.store.Exclusive(ctx, func(s Store) error {
		res, batchErr = e.runRange(ctx, s, start, end)
		if batchErr != nil {
			return batchErr
		}
		if err := s.ReplaceAllocations(ctx, res.Range, res.Allocations, res.OwnerAggregates); err != nil {
			batchErr = &PersistenceError{Op: "replace allocations", Err: err}
			return batchErr
		}
		return nil
	})
	if batchErr != nil {
		return nil, batchErr
	}
	if err != nil {
		return nil, &PersistenceError{Op: "allocation transaction", Err: err}
	}
	e.log.WithFields(logrus.Fields{
		"range":       res.Range.String(),
		"allocations": len(res.Allocations),
		"days":        len(res.OwnerAggregates),
		"skipped":     len(res.Skipped),
	}).Info("allocation range committed")
	return res, nil
}

// RunRange computes [start, end] without writing anything.
func (e *Engine) RunRange(ctx context.Context, start, end models.Date) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runRange(ctx, e.store, start, end)
}

func (e *Engine) runRange(ctx context.Context, store Store, start, end models.Date) (*Result, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}
	if err := e.rates.Validate(); err != nil {
		return nil, err
	}
	r := models.DateRange{Start: start, End: end}

	in, err := e.load(ctx, store, r)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Range:           r,
		Allocations:     []models.DailyAllocation{},
		OwnerAggregates: []models.OwnerDailyAggregate{},
		Skipped:         []SkippedDate{},
	}
	book := newBalanceBook(in.ledger, in.historical)

	for _, d := range r.Days() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gross, ok := in.grossTotals[d]
		if !ok {
			res.Skipped = append(res.Skipped, SkippedDate{Date: d, Reason: SkipNoGrossTotal})
			continue
		}
		if in.owner == nil {
			return nil, ErrNoOwner
		}

		day := dayInput{
			Date:       d,
			GrossTotal: gross,
			Tax:        in.charges[d],
		}
		for _, c := range in.contributors {
			if !c.EligibleOn(d) {
				continue
			}
			day.Entries = append(day.Entries, dayEntry{
				ContributorID: c.ID,
				IsOwner:       c.IsOwner,
				Balance:       book.balanceAt(c.ID, d),
			})
		}

		out, err := distributeDay(day, e.rates)
		if err != nil {
			return nil, err
		}
		if out == nil {
			res.Skipped = append(res.Skipped, SkippedDate{Date: d, Reason: SkipNoEligibleCapital})
			continue
		}
		book.settle(out.Allocations)
		res.Allocations = append(res.Allocations, out.Allocations...)
		res.OwnerAggregates = append(res.OwnerAggregates, out.Aggregate)
	}

	for _, s := range res.Skipped {
		e.log.WithFields(logrus.Fields{"date": s.Date.String(), "reason": s.Reason}).Debug("date skipped")
	}
	return res, nil
}

type runInput struct {
	contributors []models.Contributor
	owner        *models.Contributor
	ledger       []models.CapitalLedgerEntry
	historical   []models.DailyAllocation
	grossTotals  map[models.Date]decimal.Decimal
	charges      map[models.Date]decimal.Decimal
}

func (e *Engine) load(ctx context.Context, store Store, r models.DateRange) (*runInput, error) {
	contributors, err := store.ListContributors(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list contributors", Err: err}
	}
	sort.Slice(contributors, func(i, j int) bool { return contributors[i].ID < contributors[j].ID })

	in := &runInput{
		contributors: contributors,
		grossTotals:  make(map[models.Date]decimal.Decimal),
		charges:      make(map[models.Date]decimal.Decimal),
	}
	for i := range contributors {
		if !contributors[i].IsOwner {
			continue
		}
		if in.owner != nil {
			return nil, fmt.Errorf("%w: %s and %s", ErrMultipleOwners, in.owner.ID, contributors[i].ID)
		}
		in.owner = &contributors[i]
	}

	if in.ledger, err = store.GetCapitalLedger(ctx, ""); err != nil {
		return nil, &PersistenceError{Op: "get capital ledger", Err: err}
	}
	for _, entry := range in.ledger {
		if err := validateLedgerEntry(entry); err != nil {
			return nil, err
		}
	}

	// Persisted allocations inside r are about to be replaced; only the ones
	// before the batch feed the balances.
	if in.historical, err = store.GetHistoricalAllocations(ctx, "", r.Start); err != nil {
		return nil, &PersistenceError{Op: "get historical allocations", Err: err}
	}

	totals, err := store.GetDailyGrossTotals(ctx, r)
	if err != nil {
		return nil, &PersistenceError{Op: "get daily gross totals", Err: err}
	}
	for _, t := range totals {
		if r.Contains(t.Date) {
			in.grossTotals[t.Date] = t.GrossTotal
		}
	}

	charges, err := store.GetDailyCharges(ctx, r)
	if err != nil {
		return nil, &PersistenceError{Op: "get daily charges", Err: err}
	}
	for _, c := range charges {
		if r.Contains(c.Date) {
			in.charges[c.Date] = c.TaxAmount
		}
	}
	return in, nil
}

func validateLedgerEntry(e models.CapitalLedgerEntry) error {
	if !e.Committed {
		return nil
	}
	var problem string
	switch {
	case e.EffectiveDate.IsZero():
		problem = "missing effective date"
	case e.Direction != models.DirectionAdd && e.Direction != models.DirectionSubtract:
		problem = fmt.Sprintf("unknown direction %q", e.Direction)
	case !e.Amount.IsPositive():
		problem = fmt.Sprintf("amount %s is not positive", e.Amount)
	default:
		return nil
	}
	return &ComputationError{
		Date: e.EffectiveDate,
		Err:  fmt.Errorf("%w: entry %s of %s: %s", ErrInvalidLedgerEntry, e.ID, e.ContributorID, problem),
	}
}
