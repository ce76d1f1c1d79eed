package model

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept by numeric(20,8) columns.
const MoneyScale = 8

// RoundMoney rounds d to MoneyScale places. SQLite stores numeric columns
// as REAL, so values are rounded before saving to read back exactly.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

func roundNullMoney(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid {
		d.Decimal = RoundMoney(d.Decimal)
	}
	return d
}
