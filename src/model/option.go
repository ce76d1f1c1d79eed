package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OptionDetails identifies an option contract. It is embedded with the
// "option_" column prefix in every table that tracks an instrument.
type OptionDetails struct {
	Expiration *time.Time          `gorm:"type:date" json:"expiration,omitempty"`
	Strike     decimal.NullDecimal `gorm:"type:numeric(18,4)" json:"strike"`
	Right      string              `gorm:"size:4" json:"right,omitempty"`
}

// IsZero reports whether no option data is present.
func (o OptionDetails) IsZero() bool {
	return o.Expiration == nil && !o.Strike.Valid && o.Right == ""
}

// Key is the normalized identity used in unique indexes and grouping.
// Equities (no option data) map to the empty key.
func (o OptionDetails) Key() string {
	if o.IsZero() {
		return ""
	}

	exp := ""
	if o.Expiration != nil {
		exp = o.Expiration.UTC().Format("2006-01-02")
	}

	strike := ""
	if o.Strike.Valid {
		strike = o.Strike.Decimal.String()
	}

	return fmt.Sprintf("%s|%s|%s", exp, strike, o.Right)
}
