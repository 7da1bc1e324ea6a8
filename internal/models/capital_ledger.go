package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionAdd      = "add"
	DirectionSubtract = "subtract"
)

// CapitalLedgerEntry is one capital movement of a contributor. Only committed
// entries count toward the balance.
type CapitalLedgerEntry struct {
	ID            string          `gorm:"primaryKey;size:64" json:"id"`
	ContributorID string          `gorm:"size:64;not null;index" json:"contributor_id"`
	Direction     string          `gorm:"size:20;not null" json:"direction"` // "add" or "subtract"
	Amount        decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount"`
	Note          string          `gorm:"size:255" json:"note"`
	EffectiveDate Date            `gorm:"type:date;not null;index" json:"effective_date"`
	Committed     bool            `gorm:"not null;default:true" json:"committed"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (CapitalLedgerEntry) TableName() string {
	return "capital_ledger"
}

// Signed returns the amount with the sign implied by the direction.
func (e CapitalLedgerEntry) Signed() decimal.Decimal {
	if e.Direction == DirectionSubtract {
		return e.Amount.Neg()
	}
	return e.Amount
}
