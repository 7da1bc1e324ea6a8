package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"profitpool/internal/allocation"
	"profitpool/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(db)
}

func d(s string) models.Date { return models.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	activation := d("2024-01-01")
	require.NoError(t, s.CreateContributor(ctx, &models.Contributor{ID: "owner", Name: "Owner", IsOwner: true}))
	require.NoError(t, s.CreateContributor(ctx, &models.Contributor{ID: "alice", Name: "Alice", ActivationDate: &activation}))
	require.NoError(t, s.CreateLedgerEntry(ctx, &models.CapitalLedgerEntry{
		ID: "l1", ContributorID: "owner", Direction: models.DirectionAdd, Amount: dec("900"), EffectiveDate: d("2024-01-01"), Committed: true,
	}))
	require.NoError(t, s.CreateLedgerEntry(ctx, &models.CapitalLedgerEntry{
		ID: "l2", ContributorID: "alice", Direction: models.DirectionAdd, Amount: dec("100"), EffectiveDate: d("2024-01-01"), Committed: true,
	}))
}

func TestStore_ContributorsAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	items, err := s.ListContributors(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "alice", items[0].ID)
	require.NotNil(t, items[0].ActivationDate)
	assert.Equal(t, d("2024-01-01"), *items[0].ActivationDate)
	assert.Nil(t, items[1].ActivationDate)

	owner, err := s.GetOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "owner", owner.ID)

	ledger, err := s.GetCapitalLedger(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, d("2024-01-01"), ledger[0].EffectiveDate)
	assert.True(t, ledger[0].Amount.Equal(dec("100")))

	all, err := s.GetCapitalLedger(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.UpdateActivationDate(ctx, "alice", d("2024-02-01")))
	c, err := s.GetContributor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, d("2024-02-01"), *c.ActivationDate)

	assert.ErrorIs(t, s.UpdateActivationDate(ctx, "nobody", d("2024-02-01")), ErrNotFound)
	_, err = s.GetContributor(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PendingLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)

	require.NoError(t, s.CreateLedgerEntry(ctx, &models.CapitalLedgerEntry{
		ID: "p1", ContributorID: "alice", Direction: models.DirectionAdd, Amount: dec("50"), EffectiveDate: d("2024-01-05"), Committed: false,
	}))

	pending, err := s.ListPendingLedger(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "p1", pending[0].ID)
	assert.False(t, pending[0].Committed)

	require.NoError(t, s.DeleteLedgerEntries(ctx, []string{"p1"}))
	pending, err = s.ListPendingLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.NoError(t, s.DeleteLedgerEntries(ctx, nil))
}

func TestStore_DailyFactsUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDailyGrossTotals(ctx, []models.DailyGrossTotal{
		{Date: d("2024-01-02"), GrossTotal: dec("10"), Source: "manual"},
		{Date: d("2024-01-03"), GrossTotal: dec("-4"), Source: "manual"},
	}))
	require.NoError(t, s.UpsertDailyGrossTotals(ctx, []models.DailyGrossTotal{
		{Date: d("2024-01-02"), GrossTotal: dec("12.5"), Source: "import"},
	}))

	totals, err := s.GetDailyGrossTotals(ctx, models.DateRange{Start: d("2024-01-01"), End: d("2024-01-31")})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.True(t, totals[0].GrossTotal.Equal(dec("12.5")))
	assert.Equal(t, "import", totals[0].Source)
	assert.True(t, totals[1].GrossTotal.Equal(dec("-4")))

	require.NoError(t, s.UpsertDailyCharge(ctx, &models.DailyCharge{Date: d("2024-01-02"), TaxAmount: dec("1")}))
	require.NoError(t, s.UpsertDailyCharge(ctx, &models.DailyCharge{Date: d("2024-01-02"), TaxAmount: dec("2")}))
	charges, err := s.GetDailyCharges(ctx, models.DateRange{Start: d("2024-01-02"), End: d("2024-01-02")})
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.True(t, charges[0].TaxAmount.Equal(dec("2")))

	outside, err := s.GetDailyCharges(ctx, models.DateRange{Start: d("2024-01-03"), End: d("2024-01-04")})
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestStore_ReplaceAllocations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alloc := func(date, id, net string) models.DailyAllocation {
		return models.DailyAllocation{Date: d(date), ContributorID: id, NetAlloc: dec(net)}
	}
	require.NoError(t, s.UpsertAllocations(ctx, []models.DailyAllocation{
		alloc("2024-01-01", "alice", "1"),
		alloc("2024-01-02", "alice", "2"),
		alloc("2024-01-02", "bob", "3"),
		alloc("2024-01-03", "alice", "4"),
	}))
	require.NoError(t, s.UpsertOwnerAggregates(ctx, []models.OwnerDailyAggregate{
		{Date: d("2024-01-02"), OwnerTake: dec("5")},
	}))

	r := models.DateRange{Start: d("2024-01-02"), End: d("2024-01-02")}
	require.NoError(t, s.ReplaceAllocations(ctx, r,
		[]models.DailyAllocation{alloc("2024-01-02", "alice", "7")},
		[]models.OwnerDailyAggregate{{Date: d("2024-01-02"), OwnerTake: dec("8")}},
	))

	all, err := s.ListAllocations(ctx, "", models.DateRange{Start: d("2024-01-01"), End: d("2024-01-31")})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, d("2024-01-01"), all[0].Date)
	assert.True(t, all[1].NetAlloc.Equal(dec("7")))
	assert.Equal(t, "alice", all[1].ContributorID)
	assert.Equal(t, d("2024-01-03"), all[2].Date)

	aggs, err := s.ListOwnerAggregates(ctx, r)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.True(t, aggs[0].OwnerTake.Equal(dec("8")))

	hist, err := s.GetHistoricalAllocations(ctx, "alice", d("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, d("2024-01-02"), hist[1].Date)
}

func TestStore_UpsertAllocationsLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := models.DailyAllocation{Date: d("2024-01-02"), ContributorID: "alice", NetAlloc: dec("1")}
	require.NoError(t, s.UpsertAllocations(ctx, []models.DailyAllocation{rec}))
	rec.NetAlloc = dec("2")
	rec.PerformanceFee = dec("0.1")
	require.NoError(t, s.UpsertAllocations(ctx, []models.DailyAllocation{rec}))

	items, err := s.ListAllocations(ctx, "alice", models.DateRange{Start: d("2024-01-02"), End: d("2024-01-02")})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].NetAlloc.Equal(dec("2")))
	assert.True(t, items[0].PerformanceFee.Equal(dec("0.1")))
	assert.Zero(t, rec.ID)
}

func TestStore_DeleteContributor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.UpsertAllocations(ctx, []models.DailyAllocation{
		{Date: d("2024-01-02"), ContributorID: "alice", NetAlloc: dec("1")},
	}))

	require.NoError(t, s.DeleteContributor(ctx, "alice"))

	ledger, err := s.GetCapitalLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ledger)
	hist, err := s.GetHistoricalAllocations(ctx, "alice", d("2024-12-31"))
	require.NoError(t, err)
	assert.Empty(t, hist)

	assert.ErrorIs(t, s.DeleteContributor(ctx, "alice"), ErrNotFound)
}

func TestStore_AuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := "2024-01-01"
	require.NoError(t, s.CreateAuditLog(ctx, &models.AuditLog{
		ContributorID: "alice",
		Field:         "activation_date",
		OldValue:      &old,
		NewValue:      "2024-02-01",
		Meta:          models.JSONMap{"recompute_from": "2024-01-01"},
	}))

	logs, err := s.ListAuditLogs(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "2024-02-01", logs[0].NewValue)
	assert.Equal(t, "2024-01-01", logs[0].Meta["recompute_from"])
}

func TestEngineAgainstStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)
	require.NoError(t, s.UpsertDailyGrossTotals(ctx, []models.DailyGrossTotal{
		{Date: d("2024-01-02"), GrossTotal: dec("1000"), Source: "manual"},
		{Date: d("2024-01-03"), GrossTotal: dec("1000"), Source: "manual"},
	}))

	log, _ := test.NewNullLogger()
	engine := allocation.NewEngine(s, allocation.DefaultRates(), logrus.NewEntry(log))

	first, err := engine.RunAllocationForRange(ctx, d("2024-01-02"), d("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, first.Allocations, 4)

	stored, err := s.ListAllocations(ctx, "", models.DateRange{Start: d("2024-01-02"), End: d("2024-01-03")})
	require.NoError(t, err)
	require.Len(t, stored, 4)

	for _, a := range stored {
		if a.Date == d("2024-01-02") && a.ContributorID == "alice" {
			// 100 * 0.00125 cap, fee on the capped amount
			assert.True(t, a.NetAlloc.Equal(dec("0.125")), a.NetAlloc.String())
			assert.True(t, a.PerformanceFee.Equal(dec("0.0001575")), a.PerformanceFee.String())
		}
	}

	// Rerun of the second day only reads the first day back as history.
	second, err := engine.RunAllocationForRange(ctx, d("2024-01-03"), d("2024-01-03"))
	require.NoError(t, err)
	for i, a := range second.Allocations {
		assert.True(t, a.NetAlloc.Equal(first.Allocations[i+2].NetAlloc))
		assert.True(t, a.CapitalDayStart.Equal(first.Allocations[i+2].CapitalDayStart))
	}

	stored, err = s.ListAllocations(ctx, "", models.DateRange{Start: d("2024-01-02"), End: d("2024-01-03")})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestStore_ExclusiveRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed(t, s)
	r := models.DateRange{Start: d("2024-01-02"), End: d("2024-01-02")}

	failed := errors.New("batch failed")
	err := s.Exclusive(ctx, func(tx allocation.Store) error {
		require.NoError(t, tx.ReplaceAllocations(ctx, r, []models.DailyAllocation{
			{Date: d("2024-01-02"), ContributorID: "alice", NetAlloc: dec("1")},
		}, nil))
		return failed
	})
	assert.ErrorIs(t, err, failed)

	items, err := s.ListAllocations(ctx, "", r)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_ExclusiveSerializesStores(t *testing.T) {
	s := newTestStore(t)
	other := New(s.db)
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for _, st := range []*Store{s, other, s, other} {
		wg.Add(1)
		go func(st *Store) {
			defer wg.Done()
			assert.NoError(t, st.Exclusive(ctx, func(allocation.Store) error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			}))
		}(st)
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}
