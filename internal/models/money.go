package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for derived amounts; it
// matches the numeric(30,10) columns so in-memory and persisted values agree.
const MoneyScale = 10

// RoundMoney rounds an amount to MoneyScale places.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}

// SumMoney adds up a list of amounts.
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
