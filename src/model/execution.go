package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InstrumentTypeEquity = "EQUITY"
	InstrumentTypeOption = "OPTION"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

const (
	PosEffectToOpen  = "TO_OPEN"
	PosEffectToClose = "TO_CLOSE"
)

const (
	EventTypeFill   = "fill"
	EventTypeCancel = "cancel"
	EventTypeAmend  = "amend"
)

const (
	OptionRightCall = "CALL"
	OptionRightPut  = "PUT"
)

// Execution is a single brokerage fill ("trade" in the journal vocabulary).
// Quantity is always stored positive; direction lives in Side.
type Execution struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index;uniqueIndex:idx_execution_unique_key" json:"user_id"`
	UniqueKey string `gorm:"type:text;not null;uniqueIndex:idx_execution_unique_key" json:"unique_key"`

	ExecTimestamp time.Time `gorm:"not null;index" json:"exec_timestamp"`
	EventType     string    `gorm:"size:10;not null" json:"event_type"`

	Symbol         string `gorm:"size:50;not null;index" json:"symbol"`
	InstrumentType string `gorm:"size:10;not null" json:"instrument_type"`

	Side      string `gorm:"size:10;not null" json:"side"`
	Qty       int64  `gorm:"not null" json:"qty"`
	PosEffect string `gorm:"size:10;not null" json:"pos_effect"`

	Price     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"price"`
	NetPrice  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"net_price"`
	OrderType string          `gorm:"size:10" json:"order_type,omitempty"`

	Option    OptionDetails `gorm:"embedded;embeddedPrefix:option_" json:"option"`
	OptionKey string        `gorm:"size:64;not null" json:"option_key"`

	SourceFile string `gorm:"type:text" json:"source_file,omitempty"`
	SourceRow  int    `json:"source_row"`
	RawData    string `gorm:"type:text" json:"-"`

	RealizedPnl      decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"realized_pnl"`
	CompletedTradeID *uint               `gorm:"index" json:"completed_trade_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the executions table name stable.
func (Execution) TableName() string {
	return "executions"
}

// IsFill reports whether the record is an executed fill.
func (e *Execution) IsFill() bool {
	return e.EventType == EventTypeFill && !e.ExecTimestamp.IsZero()
}

// SignedQty is +Qty for buys and -Qty for sells.
func (e *Execution) SignedQty() int64 {
	if e.Side == SideSell {
		return -e.Qty
	}
	return e.Qty
}

// Multiplier returns the contract multiplier of the instrument.
func (e *Execution) Multiplier() decimal.Decimal {
	return ContractMultiplier(e.InstrumentType)
}

// Notional is NetPrice * multiplier * Qty.
func (e *Execution) Notional() decimal.Decimal {
	return e.NetPrice.Mul(e.Multiplier()).Mul(decimal.NewFromInt(e.Qty))
}

// ContractMultiplier converts a quoted price into per-unit notional.
func ContractMultiplier(instrumentType string) decimal.Decimal {
	if instrumentType == InstrumentTypeOption {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(1)
}

// BeforeSave keeps OptionKey in sync with the option details and rounds
// money to the column scale.
func (e *Execution) BeforeSave(_ *gorm.DB) error {
	e.OptionKey = e.Option.Key()
	e.Price = RoundMoney(e.Price)
	e.NetPrice = RoundMoney(e.NetPrice)
	e.RealizedPnl = roundNullMoney(e.RealizedPnl)
	return nil
}
