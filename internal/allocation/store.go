package allocation

import (
	"context"

	"profitpool/internal/models"
)

// Store is everything the engine reads and writes. An empty contributorID
// means all contributors.
type Store interface {
	ListContributors(ctx context.Context) ([]models.Contributor, error)
	GetCapitalLedger(ctx context.Context, contributorID string) ([]models.CapitalLedgerEntry, error)
	GetDailyGrossTotals(ctx context.Context, r models.DateRange) ([]models.DailyGrossTotal, error)
	GetDailyCharges(ctx context.Context, r models.DateRange) ([]models.DailyCharge, error)
	GetHistoricalAllocations(ctx context.Context, contributorID string, before models.Date) ([]models.DailyAllocation, error)

	// ReplaceAllocations drops every allocation and owner aggregate dated in r
	// and upserts the given records, all in one transaction.
	ReplaceAllocations(ctx context.Context, r models.DateRange, allocations []models.DailyAllocation, aggregates []models.OwnerDailyAggregate) error

	// Exclusive runs fn while holding the allocation lock shared by every
	// process writing to the store. Reads made through the Store handed to fn
	// see every batch committed before the lock was taken, and its writes
	// commit before the lock is released.
	Exclusive(ctx context.Context, fn func(s Store) error) error
}
