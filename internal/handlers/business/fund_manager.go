package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/models"
	"profitpool/internal/repository"
)

var (
	ErrOwnerImmutable = errors.New("the owner cannot be removed")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNameRequired   = errors.New("contributor name is required")
	ErrNoPending      = errors.New("no pending ledger entries")
)

const (
	notePendingAddition = "Pending Capital Addition"
	noteAddition        = "Capital Addition"
	noteWithdrawal      = "Capital Withdrawal"
)

// NewContributor is the input of AddContributor.
type NewContributor struct {
	Name             string
	Phone            string
	Email            string
	CapitalCommitted decimal.Decimal
	ActivationDate   *models.Date
}

// FundManager applies changes to contributors, capital and daily facts and
// recomputes the allocations each change affects. Ranges always end today:
// every allocation after the first touched day depends on it.
type FundManager struct {
	store     *repository.Store
	recompute Recomputer
	log       *logrus.Entry
	now       func() time.Time
}

type Option func(*FundManager)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(m *FundManager) { m.now = now }
}

func NewFundManager(store *repository.Store, recompute Recomputer, log *logrus.Entry, opts ...Option) *FundManager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m := &FundManager{
		store:     store,
		recompute: recompute,
		log:       log.WithField("component", "fund_manager"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *FundManager) Today() models.Date {
	return models.DateOf(m.now())
}

// Recompute recomputes [start, end] through the configured trigger.
func (m *FundManager) Recompute(ctx context.Context, start, end models.Date, reason string) (*allocation.Result, error) {
	return m.recompute.Recompute(ctx, RecomputeMessage{StartDate: start, EndDate: end, Reason: reason})
}

// recomputeFrom refreshes everything from start through today.
func (m *FundManager) recomputeFrom(ctx context.Context, start models.Date, reason string) error {
	end := models.MaxDate(m.Today(), start)
	res, err := m.Recompute(ctx, start, end, reason)
	if err != nil {
		return fmt.Errorf("recompute %s..%s: %w", start, end, err)
	}
	if res != nil {
		if err := m.RefreshBalances(ctx); err != nil {
			return err
		}
	}
	return nil
}

// EnsureOwner creates the owner contributor when none exists yet.
func (m *FundManager) EnsureOwner(ctx context.Context, id, name string) (*models.Contributor, error) {
	owner, err := m.store.GetOwner(ctx)
	if err == nil {
		if owner.ID != id {
			m.log.WithFields(logrus.Fields{"configured": id, "stored": owner.ID}).Warn("owner id differs from configuration, keeping stored owner")
		}
		return owner, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	owner = &models.Contributor{ID: id, Name: name, Status: "active", IsOwner: true}
	if err := m.store.CreateContributor(ctx, owner); err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}
	m.log.WithField("owner_id", id).Info("owner contributor created")
	return owner, nil
}

// AddContributor creates a non-owner contributor. Committed capital is booked
// as an addition effective on the activation date, which defaults to today.
func (m *FundManager) AddContributor(ctx context.Context, in NewContributor) (*models.Contributor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if in.CapitalCommitted.IsNegative() {
		return nil, ErrInvalidAmount
	}
	activation := m.Today()
	if in.ActivationDate != nil && !in.ActivationDate.IsZero() {
		activation = *in.ActivationDate
	}

	c := &models.Contributor{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(in.Name),
		Phone:            in.Phone,
		Email:            in.Email,
		Status:           "active",
		CapitalCommitted: in.CapitalCommitted,
		ActivationDate:   &activation,
	}
	err := m.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.CreateContributor(ctx, c); err != nil {
			return err
		}
		if !in.CapitalCommitted.IsPositive() {
			return nil
		}
		return tx.CreateLedgerEntry(ctx, &models.CapitalLedgerEntry{
			ID:            uuid.NewString(),
			ContributorID: c.ID,
			Direction:     models.DirectionAdd,
			Amount:        in.CapitalCommitted,
			Note:          noteAddition,
			EffectiveDate: activation,
			Committed:     true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("add contributor: %w", err)
	}
	m.log.WithFields(logrus.Fields{"contributor_id": c.ID, "activation_date": activation.String()}).Info("contributor added")

	if in.CapitalCommitted.IsPositive() {
		if err := m.recomputeFrom(ctx, activation, "contributor added"); err != nil {
			return c, err
		}
	}
	return c, nil
}

// RemoveContributor deletes a non-owner with its ledger and allocations, then
// recomputes from its first capital movement so the owner's share is
// redistributed.
func (m *FundManager) RemoveContributor(ctx context.Context, id string) error {
	c, err := m.store.GetContributor(ctx, id)
	if err != nil {
		return err
	}
	if c.IsOwner {
		return ErrOwnerImmutable
	}
	ledger, err := m.store.GetCapitalLedger(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.DeleteContributor(ctx, id); err != nil {
		return fmt.Errorf("remove contributor: %w", err)
	}
	m.log.WithField("contributor_id", id).Info("contributor removed")

	var from models.Date
	for _, e := range ledger {
		if e.Committed && (from.IsZero() || e.EffectiveDate.Before(from)) {
			from = e.EffectiveDate
		}
	}
	if from.IsZero() || from.After(m.Today()) {
		return m.RefreshBalances(ctx)
	}
	return m.recomputeFrom(ctx, from, "contributor removed")
}

// UpdateActivationDate moves the start of a contributor's participation and
// recomputes from whichever of the old and new dates comes first.
func (m *FundManager) UpdateActivationDate(ctx context.Context, id string, d models.Date) error {
	if d.IsZero() {
		return fmt.Errorf("%w: activation date is required", allocation.ErrInvalidRange)
	}
	c, err := m.store.GetContributor(ctx, id)
	if err != nil {
		return err
	}

	from := d
	var old *string
	if c.ActivationDate != nil && !c.ActivationDate.IsZero() {
		s := c.ActivationDate.String()
		old = &s
		from = models.MinDate(*c.ActivationDate, d)
	}

	err = m.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.UpdateActivationDate(ctx, id, d); err != nil {
			return err
		}
		return tx.CreateAuditLog(ctx, &models.AuditLog{
			ContributorID: id,
			Field:         "activation_date",
			OldValue:      old,
			NewValue:      d.String(),
			Meta:          models.JSONMap{"recompute_from": from.String()},
		})
	})
	if err != nil {
		return fmt.Errorf("update activation date: %w", err)
	}
	return m.recomputeFrom(ctx, from, "activation date changed")
}

// AddFund books a committed capital addition.
func (m *FundManager) AddFund(ctx context.Context, contributorID string, amount decimal.Decimal, effective models.Date) (*models.CapitalLedgerEntry, error) {
	return m.bookFund(ctx, contributorID, models.DirectionAdd, amount, effective, noteAddition)
}

// SubtractFund books a committed capital withdrawal. Balances below zero are
// clamped by the engine.
func (m *FundManager) SubtractFund(ctx context.Context, contributorID string, amount decimal.Decimal, effective models.Date) (*models.CapitalLedgerEntry, error) {
	return m.bookFund(ctx, contributorID, models.DirectionSubtract, amount, effective, noteWithdrawal)
}

func (m *FundManager) bookFund(ctx context.Context, contributorID, direction string, amount decimal.Decimal, effective models.Date, note string) (*models.CapitalLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if effective.IsZero() {
		effective = m.Today()
	}
	if _, err := m.store.GetContributor(ctx, contributorID); err != nil {
		return nil, err
	}
	e := &models.CapitalLedgerEntry{
		ID:            uuid.NewString(),
		ContributorID: contributorID,
		Direction:     direction,
		Amount:        amount,
		Note:          note,
		EffectiveDate: effective,
		Committed:     true,
	}
	if err := m.store.CreateLedgerEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("book %s: %w", direction, err)
	}
	m.log.WithFields(logrus.Fields{
		"contributor_id": contributorID,
		"direction":      direction,
		"amount":         amount.String(),
		"effective_date": effective.String(),
	}).Info("capital movement booked")

	return e, m.recomputeFrom(ctx, effective, "capital "+direction)
}

// SavePendingLedger records an addition that does not count until confirmed.
func (m *FundManager) SavePendingLedger(ctx context.Context, contributorID string, amount decimal.Decimal, effective models.Date) (*models.CapitalLedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if effective.IsZero() {
		effective = m.Today()
	}
	if _, err := m.store.GetContributor(ctx, contributorID); err != nil {
		return nil, err
	}
	e := &models.CapitalLedgerEntry{
		ID:            uuid.NewString(),
		ContributorID: contributorID,
		Direction:     models.DirectionAdd,
		Amount:        amount,
		Note:          notePendingAddition,
		EffectiveDate: effective,
		Committed:     false,
	}
	if err := m.store.CreateLedgerEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("save pending entry: %w", err)
	}
	return e, nil
}

// ConfirmPendingLedger commits every pending entry of a contributor and
// recomputes from the earliest of them.
func (m *FundManager) ConfirmPendingLedger(ctx context.Context, contributorID string) ([]models.CapitalLedgerEntry, error) {
	pending, err := m.store.ListPendingLedger(ctx, contributorID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNoPending
	}

	confirmed := make([]models.CapitalLedgerEntry, 0, len(pending))
	ids := make([]string, 0, len(pending))
	from := pending[0].EffectiveDate
	for _, p := range pending {
		ids = append(ids, p.ID)
		from = models.MinDate(from, p.EffectiveDate)
		confirmed = append(confirmed, models.CapitalLedgerEntry{
			ID:            uuid.NewString(),
			ContributorID: p.ContributorID,
			Direction:     p.Direction,
			Amount:        p.Amount,
			Note:          noteAddition,
			EffectiveDate: p.EffectiveDate,
			Committed:     true,
		})
	}

	err = m.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.DeleteLedgerEntries(ctx, ids); err != nil {
			return err
		}
		for i := range confirmed {
			if err := tx.CreateLedgerEntry(ctx, &confirmed[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("confirm pending entries: %w", err)
	}
	m.log.WithFields(logrus.Fields{"contributor_id": contributorID, "entries": len(confirmed)}).Info("pending entries confirmed")

	return confirmed, m.recomputeFrom(ctx, from, "pending capital confirmed")
}

// CancelPendingLedger drops every pending entry of a contributor.
func (m *FundManager) CancelPendingLedger(ctx context.Context, contributorID string) (int, error) {
	pending, err := m.store.ListPendingLedger(ctx, contributorID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	if err := m.store.DeleteLedgerEntries(ctx, ids); err != nil {
		return 0, fmt.Errorf("cancel pending entries: %w", err)
	}
	return len(ids), nil
}

// UpsertDailyCharge stores the charge of one day and recomputes from it.
func (m *FundManager) UpsertDailyCharge(ctx context.Context, d models.Date, tax decimal.Decimal, note *string) (*models.DailyCharge, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: date is required", allocation.ErrInvalidRange)
	}
	if tax.IsNegative() {
		return nil, ErrInvalidAmount
	}
	charge := &models.DailyCharge{Date: d, TaxAmount: tax, Note: note}
	if err := m.store.UpsertDailyCharge(ctx, charge); err != nil {
		return nil, fmt.Errorf("upsert daily charge: %w", err)
	}
	return charge, m.recomputeFrom(ctx, d, "daily charge changed")
}

// UpsertDailyGrossTotals stores a batch of gross totals and recomputes from the
// earliest of them. Later days depend on the batch through compounding.
func (m *FundManager) UpsertDailyGrossTotals(ctx context.Context, totals []models.DailyGrossTotal) error {
	if len(totals) == 0 {
		return nil
	}
	first := totals[0].Date
	seen := make(map[models.Date]int, len(totals))
	deduped := make([]models.DailyGrossTotal, 0, len(totals))
	for _, t := range totals {
		if t.Date.IsZero() {
			return fmt.Errorf("%w: gross total without date", allocation.ErrInvalidRange)
		}
		if t.Source == "" {
			t.Source = "manual"
		}
		first = models.MinDate(first, t.Date)
		// last value of a date wins, the upsert must not see it twice
		if i, ok := seen[t.Date]; ok {
			deduped[i] = t
			continue
		}
		seen[t.Date] = len(deduped)
		deduped = append(deduped, t)
	}
	if err := m.store.UpsertDailyGrossTotals(ctx, deduped); err != nil {
		return fmt.Errorf("upsert daily totals: %w", err)
	}
	m.log.WithFields(logrus.Fields{"days": len(deduped), "from": first.String()}).Info("daily totals stored")
	return m.recomputeFrom(ctx, first, "daily totals changed")
}

// FactoryReset wipes contributors, the ledger, daily facts, allocations and
// audit logs. Only the owner survives, with no capital.
func (m *FundManager) FactoryReset(ctx context.Context) error {
	if err := m.store.Reset(ctx); err != nil {
		return fmt.Errorf("factory reset: %w", err)
	}
	m.log.Warn("factory reset done")
	return nil
}

// RefreshBalances stores every contributor's balance as of tomorrow, which
// includes today's allocation, in capital_current.
func (m *FundManager) RefreshBalances(ctx context.Context) error {
	contributors, err := m.store.ListContributors(ctx)
	if err != nil {
		return err
	}
	ledger, err := m.store.GetCapitalLedger(ctx, "")
	if err != nil {
		return err
	}
	asOf := m.Today().AddDays(1)
	history, err := m.store.GetHistoricalAllocations(ctx, "", asOf)
	if err != nil {
		return err
	}
	for _, c := range contributors {
		balance := models.RoundMoney(allocation.BalanceAtDate(c.ID, asOf, ledger, history, nil))
		if balance.Equal(c.CapitalCurrent) {
			continue
		}
		if err := m.store.UpdateCapitalCurrent(ctx, c.ID, balance); err != nil {
			return fmt.Errorf("update balance of %s: %w", c.ID, err)
		}
	}
	return nil
}
