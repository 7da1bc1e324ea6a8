package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contributor is a capital participant of the pool. Exactly one contributor
// carries IsOwner and absorbs capped surplus and performance fees.
type Contributor struct {
	ID               string          `gorm:"primaryKey;size:64" json:"id"`
	Name             string          `gorm:"size:128;not null" json:"name"`
	Phone            string          `gorm:"size:32" json:"phone"`
	Email            string          `gorm:"size:128" json:"email"`
	Status           string          `gorm:"size:20;not null;default:'active'" json:"status"` // active, disabled
	CapitalCommitted decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"capital_committed"`
	CapitalCurrent   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"capital_current"`
	IsOwner          bool            `gorm:"not null;default:false" json:"is_owner"`
	ActivationDate   *Date           `gorm:"type:date" json:"activation_date"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Contributor) TableName() string {
	return "contributors"
}

// EligibleOn reports whether the contributor takes part in the distribution of
// day d. Participation starts the day after activation; the owner always takes part.
func (c Contributor) EligibleOn(d Date) bool {
	if c.IsOwner {
		return true
	}
	if c.ActivationDate == nil || c.ActivationDate.IsZero() {
		return false
	}
	return c.ActivationDate.Before(d)
}
