package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyAllocation is a contributor's share of one day's result. It is only
// produced by the allocation engine and keyed by (date, contributor).
type DailyAllocation struct {
	ID              uint            `gorm:"primarykey" json:"-"`
	Date            Date            `gorm:"type:date;not null;uniqueIndex:idx_allocation_day_contributor;index" json:"date"`
	ContributorID   string          `gorm:"size:64;not null;uniqueIndex:idx_allocation_day_contributor;index" json:"contributor_id"`
	CapitalDayStart decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"capital_day_start"`
	GrossAlloc      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"gross_alloc"`
	TaxAlloc        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"tax_alloc"`
	NetAlloc        decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"net_alloc"`
	PerformanceFee  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"performance_fee"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DailyAllocation) TableName() string {
	return "daily_allocations"
}

// RealizedGain is the part of the allocation that compounds into the
// contributor's balance.
func (a DailyAllocation) RealizedGain() decimal.Decimal {
	return a.NetAlloc.Sub(a.PerformanceFee)
}

// OwnerDailyAggregate summarizes what the owner took on one day.
type OwnerDailyAggregate struct {
	ID                     uint            `gorm:"primarykey" json:"-"`
	Date                   Date            `gorm:"type:date;not null;uniqueIndex" json:"date"`
	TotalInvestorNetProfit decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_investor_net_profit"`
	TotalPerformanceFees   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"total_performance_fees"`
	OwnerTake              decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"owner_take"`
	CreatedAt              time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (OwnerDailyAggregate) TableName() string {
	return "owner_daily_pnls"
}
