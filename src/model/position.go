package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Position is the running open position for one
// (user, symbol, instrument type, option identity) tuple.
//
// AvgCostBasis and TotalCost are expressed in multiplied units, so an option
// bought at a 2.50 premium carries a basis of 250 per contract.
type Position struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	UserID         uint          `gorm:"not null;uniqueIndex:idx_position_identity" json:"user_id"`
	Symbol         string        `gorm:"size:50;not null;uniqueIndex:idx_position_identity" json:"symbol"`
	InstrumentType string        `gorm:"size:10;not null;uniqueIndex:idx_position_identity" json:"instrument_type"`
	OptionKey      string        `gorm:"size:64;not null;uniqueIndex:idx_position_identity" json:"option_key"`
	Option         OptionDetails `gorm:"embedded;embeddedPrefix:option_" json:"option"`

	CurrentQty   int64           `gorm:"not null" json:"current_qty"`
	AvgCostBasis decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"avg_cost_basis"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"total_cost"`
	RealizedPnl  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"realized_pnl"`

	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName keeps the positions table name stable.
func (Position) TableName() string {
	return "positions"
}

// IsOpen reports whether the position currently holds exposure.
func (p *Position) IsOpen() bool {
	return p.CurrentQty != 0
}

// IsLong reports a positive quantity.
func (p *Position) IsLong() bool {
	return p.CurrentQty > 0
}

// MarketValue is the position valued at its cost basis, signed by direction.
func (p *Position) MarketValue() decimal.Decimal {
	return decimal.NewFromInt(p.CurrentQty).Mul(p.AvgCostBasis)
}

// NewPositionForExecution builds an empty (flat) position keyed on the
// execution's instrument.
func NewPositionForExecution(exec *Execution) *Position {
	return &Position{
		UserID:         exec.UserID,
		Symbol:         exec.Symbol,
		InstrumentType: exec.InstrumentType,
		OptionKey:      exec.Option.Key(),
		Option:         exec.Option,
		AvgCostBasis:   decimal.Zero,
		TotalCost:      decimal.Zero,
		RealizedPnl:    decimal.Zero,
	}
}

// BeforeSave keeps OptionKey in sync with the option details and rounds
// money to the column scale.
func (p *Position) BeforeSave(_ *gorm.DB) error {
	p.OptionKey = p.Option.Key()
	p.AvgCostBasis = RoundMoney(p.AvgCostBasis)
	p.TotalCost = RoundMoney(p.TotalCost)
	p.RealizedPnl = RoundMoney(p.RealizedPnl)
	return nil
}
