package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyGrossTotal is the pool-wide gross trading profit or loss of one day.
type DailyGrossTotal struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	Date       Date            `gorm:"type:date;not null;uniqueIndex" json:"date"`
	GrossTotal decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"gross_total"`
	Source     string          `gorm:"size:32;not null;default:'manual'" json:"source"`
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailyGrossTotal) TableName() string {
	return "daily_totals"
}

// DailyCharge is the tax and brokerage charge booked against one day.
type DailyCharge struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Date      Date            `gorm:"type:date;not null;uniqueIndex" json:"date"`
	TaxAmount decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"tax_amount"`
	Note      *string         `gorm:"size:255" json:"note"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailyCharge) TableName() string {
	return "daily_charges"
}
