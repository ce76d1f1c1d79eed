package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TradeTypeLong  = "LONG"
	TradeTypeShort = "SHORT"
)

// CompletedTrade is one closed round trip (flat -> non-flat -> flat).
// Financial fields are immutable after creation; only SetupPattern and
// TradeNotes are updated later by annotation.
type CompletedTrade struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	UserID         uint          `gorm:"not null;index" json:"user_id"`
	Symbol         string        `gorm:"size:50;not null;index" json:"symbol"`
	InstrumentType string        `gorm:"size:10;not null" json:"instrument_type"`
	OptionKey      string        `gorm:"size:64;not null" json:"option_key"`
	Option         OptionDetails `gorm:"embedded;embeddedPrefix:option_" json:"option"`

	TotalQty      int64           `gorm:"not null" json:"total_qty"`
	EntryAvgPrice decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"entry_avg_price"`
	ExitAvgPrice  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"exit_avg_price"`
	GrossCost     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"gross_cost"`
	GrossProceeds decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"gross_proceeds"`
	NetPnl        decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"net_pnl"`

	OpenedAt            time.Time `gorm:"not null" json:"opened_at"`
	ClosedAt            time.Time `gorm:"not null;index" json:"closed_at"`
	HoldDurationSeconds int64     `json:"hold_duration_seconds"`

	TradeType      string `gorm:"size:10;not null" json:"trade_type"`
	IsWinningTrade bool   `json:"is_winning_trade"`

	SetupPattern string `gorm:"type:text" json:"setup_pattern,omitempty"`
	TradeNotes   string `gorm:"type:text" json:"trade_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Executions []Execution `gorm:"foreignKey:CompletedTradeID" json:"executions,omitempty"`
}

// TableName keeps the completed trades table name stable.
func (CompletedTrade) TableName() string {
	return "completed_trades"
}

// HoldDuration returns the time between the first open and the last close.
func (t *CompletedTrade) HoldDuration() time.Duration {
	return time.Duration(t.HoldDurationSeconds) * time.Second
}

func (t *CompletedTrade) BeforeSave(_ *gorm.DB) error {
	t.OptionKey = t.Option.Key()
	t.EntryAvgPrice = RoundMoney(t.EntryAvgPrice)
	t.ExitAvgPrice = RoundMoney(t.ExitAvgPrice)
	t.GrossCost = RoundMoney(t.GrossCost)
	t.GrossProceeds = RoundMoney(t.GrossProceeds)
	t.NetPnl = RoundMoney(t.NetPnl)
	return nil
}
