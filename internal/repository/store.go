package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"profitpool/internal/allocation"
	"profitpool/internal/models"
)

const batchSize = 500

// allocationLockKey identifies the advisory lock held by allocation batches.
const allocationLockKey int64 = 0x70726f66

// localAllocationLock stands in for the advisory lock on databases without one.
var localAllocationLock sync.Mutex

var ErrNotFound = errors.New("record not found")

// Store is the gorm-backed ledger store.
type Store struct {
	db *gorm.DB
}

var _ allocation.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn against a Store bound to a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// AutoMigrate creates or updates every table of the ledger.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Contributor{},
		&models.CapitalLedgerEntry{},
		&models.DailyGrossTotal{},
		&models.DailyCharge{},
		&models.DailyAllocation{},
		&models.OwnerDailyAggregate{},
		&models.AuditLog{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Contributors

func (s *Store) ListContributors(ctx context.Context) ([]models.Contributor, error) {
	var items []models.Contributor
	err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error
	return items, err
}

func (s *Store) GetContributor(ctx context.Context, id string) (*models.Contributor, error) {
	var c models.Contributor
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetOwner(ctx context.Context) (*models.Contributor, error) {
	var c models.Contributor
	if err := s.db.WithContext(ctx).Where("is_owner = ?", true).Order("id asc").First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CreateContributor(ctx context.Context, c *models.Contributor) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) UpdateActivationDate(ctx context.Context, id string, d models.Date) error {
	res := s.db.WithContext(ctx).Model(&models.Contributor{}).Where("id = ?", id).Update("activation_date", d)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateCapitalCurrent(ctx context.Context, id string, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&models.Contributor{}).Where("id = ?", id).
		Update("capital_current", amount).Error
}

// DeleteContributor removes a contributor with its ledger entries and
// derived allocations.
func (s *Store) DeleteContributor(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("contributor_id = ?", id).Delete(&models.CapitalLedgerEntry{}).Error; err != nil {
			return err
		}
		if err := db.Where("contributor_id = ?", id).Delete(&models.DailyAllocation{}).Error; err != nil {
			return err
		}
		res := db.Where("id = ?", id).Delete(&models.Contributor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Capital ledger

func (s *Store) GetCapitalLedger(ctx context.Context, contributorID string) ([]models.CapitalLedgerEntry, error) {
	q := s.db.WithContext(ctx).Model(&models.CapitalLedgerEntry{})
	if contributorID != "" {
		q = q.Where("contributor_id = ?", contributorID)
	}
	var items []models.CapitalLedgerEntry
	err := q.Order("effective_date asc, created_at asc, id asc").Find(&items).Error
	return items, err
}

func (s *Store) CreateLedgerEntry(ctx context.Context, e *models.CapitalLedgerEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) ListPendingLedger(ctx context.Context, contributorID string) ([]models.CapitalLedgerEntry, error) {
	var items []models.CapitalLedgerEntry
	err := s.db.WithContext(ctx).
		Where("contributor_id = ? AND committed = ?", contributorID, false).
		Order("effective_date asc, id asc").
		Find(&items).Error
	return items, err
}

func (s *Store) DeleteLedgerEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.CapitalLedgerEntry{}).Error
}

// Daily facts

func (s *Store) GetDailyGrossTotals(ctx context.Context, r models.DateRange) ([]models.DailyGrossTotal, error) {
	var items []models.DailyGrossTotal
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", r.Start, r.End).
		Order("date asc").
		Find(&items).Error
	return items, err
}

func (s *Store) UpsertDailyGrossTotals(ctx context.Context, items []models.DailyGrossTotal) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"gross_total", "source", "updated_at"}),
	}).CreateInBatches(&items, batchSize).Error
}

func (s *Store) GetDailyCharges(ctx context.Context, r models.DateRange) ([]models.DailyCharge, error) {
	var items []models.DailyCharge
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", r.Start, r.End).
		Order("date asc").
		Find(&items).Error
	return items, err
}

func (s *Store) UpsertDailyCharge(ctx context.Context, item *models.DailyCharge) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"tax_amount", "note", "updated_at"}),
	}).Create(item).Error
}

// Allocations

func (s *Store) GetHistoricalAllocations(ctx context.Context, contributorID string, before models.Date) ([]models.DailyAllocation, error) {
	q := s.db.WithContext(ctx).Where("date < ?", before)
	if contributorID != "" {
		q = q.Where("contributor_id = ?", contributorID)
	}
	var items []models.DailyAllocation
	err := q.Order("date asc, contributor_id asc").Find(&items).Error
	return items, err
}

func (s *Store) ListAllocations(ctx context.Context, contributorID string, r models.DateRange) ([]models.DailyAllocation, error) {
	q := s.db.WithContext(ctx).Where("date >= ? AND date <= ?", r.Start, r.End)
	if contributorID != "" {
		q = q.Where("contributor_id = ?", contributorID)
	}
	var items []models.DailyAllocation
	err := q.Order("date asc, contributor_id asc").Find(&items).Error
	return items, err
}

func (s *Store) ListOwnerAggregates(ctx context.Context, r models.DateRange) ([]models.OwnerDailyAggregate, error) {
	var items []models.OwnerDailyAggregate
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", r.Start, r.End).
		Order("date asc").
		Find(&items).Error
	return items, err
}

// UpsertAllocations merges records by (date, contributor_id), last write wins.
func (s *Store) UpsertAllocations(ctx context.Context, records []models.DailyAllocation) error {
	if len(records) == 0 {
		return nil
	}
	items := append([]models.DailyAllocation(nil), records...)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "contributor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"capital_day_start",
			"gross_alloc",
			"tax_alloc",
			"net_alloc",
			"performance_fee",
			"updated_at",
		}),
	}).CreateInBatches(&items, batchSize).Error
}

// UpsertOwnerAggregates merges records by date, last write wins.
func (s *Store) UpsertOwnerAggregates(ctx context.Context, records []models.OwnerDailyAggregate) error {
	if len(records) == 0 {
		return nil
	}
	items := append([]models.OwnerDailyAggregate(nil), records...)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_investor_net_profit",
			"total_performance_fees",
			"owner_take",
			"updated_at",
		}),
	}).CreateInBatches(&items, batchSize).Error
}

func (s *Store) ReplaceAllocations(ctx context.Context, r models.DateRange, allocations []models.DailyAllocation, aggregates []models.OwnerDailyAggregate) error {
	return s.InTx(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("date >= ? AND date <= ?", r.Start, r.End).Delete(&models.DailyAllocation{}).Error; err != nil {
			return fmt.Errorf("clear allocations %s: %w", r, err)
		}
		if err := db.Where("date >= ? AND date <= ?", r.Start, r.End).Delete(&models.OwnerDailyAggregate{}).Error; err != nil {
			return fmt.Errorf("clear owner aggregates %s: %w", r, err)
		}
		if err := tx.UpsertAllocations(ctx, allocations); err != nil {
			return fmt.Errorf("upsert allocations: %w", err)
		}
		if err := tx.UpsertOwnerAggregates(ctx, aggregates); err != nil {
			return fmt.Errorf("upsert owner aggregates: %w", err)
		}
		return nil
	})
}

// Exclusive runs fn in one transaction holding the allocation lock. On
// postgres the lock is pg_advisory_xact_lock, so it spans every process on
// the database and is released by the commit.
func (s *Store) Exclusive(ctx context.Context, fn func(allocation.Store) error) error {
	return s.exclusive(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) exclusive(ctx context.Context, fn func(tx *Store) error) error {
	if s.db.Dialector.Name() != "postgres" {
		localAllocationLock.Lock()
		defer localAllocationLock.Unlock()
	}
	return s.InTx(ctx, func(tx *Store) error {
		if tx.db.Dialector.Name() == "postgres" {
			if err := tx.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", allocationLockKey).Error; err != nil {
				return fmt.Errorf("acquire allocation lock: %w", err)
			}
		}
		return fn(tx)
	})
}

// Reset empties every table except the owner row, whose balance goes back to
// zero. It holds the allocation lock so no batch commits in between.
func (s *Store) Reset(ctx context.Context) error {
	return s.exclusive(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []interface{}{
			&models.DailyAllocation{},
			&models.OwnerDailyAggregate{},
			&models.DailyCharge{},
			&models.DailyGrossTotal{},
			&models.CapitalLedgerEntry{},
			&models.AuditLog{},
		} {
			if err := db.Delete(m).Error; err != nil {
				return fmt.Errorf("reset %T: %w", m, err)
			}
		}
		if err := db.Where("is_owner = ?", false).Delete(&models.Contributor{}).Error; err != nil {
			return fmt.Errorf("reset contributors: %w", err)
		}
		return db.Model(&models.Contributor{}).Where("is_owner = ?", true).Updates(map[string]interface{}{
			"capital_committed": decimal.Zero,
			"capital_current":   decimal.Zero,
		}).Error
	})
}

// Audit log

func (s *Store) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) ListAuditLogs(ctx context.Context, contributorID string) ([]models.AuditLog, error) {
	var items []models.AuditLog
	err := s.db.WithContext(ctx).Where("contributor_id = ?", contributorID).
		Order("changed_at desc, id desc").
		Find(&items).Error
	return items, err
}
