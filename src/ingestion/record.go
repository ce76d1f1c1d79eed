package ingestion

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tradejournal/src/model"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// OptionRecord is the nested option object added by the statement converter.
type OptionRecord struct {
	ExpDate string          `json:"exp_date"`
	Strike  decimal.Decimal `json:"strike"`
	Right   string          `json:"right"`
}

// Record is one NDJSON line of a converted brokerage statement.
type Record struct {
	Section  string   `json:"section"`
	RowIndex int      `json:"row_index"`
	Raw      string   `json:"raw"`
	Issues   []string `json:"issues"`

	ExecTime     string `json:"exec_time"`
	TimeCanceled string `json:"time_canceled"`

	Side      string `json:"side"`
	Qty       *int64 `json:"qty"`
	PosEffect string `json:"pos_effect"`
	Symbol    string `json:"symbol"`

	Exp    string              `json:"exp"`
	Strike decimal.NullDecimal `json:"strike"`
	Type   string              `json:"type"` // STOCK, CALL, PUT
	Spread string              `json:"spread"`

	Price     decimal.NullDecimal `json:"price"`
	NetPrice  decimal.NullDecimal `json:"net_price"`
	OrderType string              `json:"order_type"`

	EventType string        `json:"event_type"`
	AssetType string        `json:"asset_type"`
	Option    *OptionRecord `json:"option"`

	SourceFile      string `json:"source_file"`
	SourceFileIndex *int   `json:"source_file_index"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, value); err == nil {
				return t.UTC(), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseDate(value string) (*time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", value)
	}
	return &d, nil
}

func oneOf(value string, allowed ...string) bool {
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate checks the enumerated fields of the record. Every problem is
// reported, not just the first.
func (r *Record) Validate() error {
	var err error

	if !oneOf(r.Side, model.SideBuy, model.SideSell) {
		err = multierr.Append(err, fmt.Errorf("side must be BUY or SELL, got %q", r.Side))
	}
	if !oneOf(r.PosEffect, "TO OPEN", "TO CLOSE") {
		err = multierr.Append(err, fmt.Errorf("pos_effect must be TO OPEN or TO CLOSE, got %q", r.PosEffect))
	}
	if !oneOf(r.EventType, model.EventTypeFill, model.EventTypeCancel, model.EventTypeAmend) {
		err = multierr.Append(err, fmt.Errorf("event_type must be fill, cancel or amend, got %q", r.EventType))
	}
	if !oneOf(r.AssetType, "STOCK", "OPTION") {
		err = multierr.Append(err, fmt.Errorf("asset_type must be STOCK or OPTION, got %q", r.AssetType))
	}

	return err
}

// IsSectionHeader reports statement section header rows.
func (r *Record) IsSectionHeader() bool {
	for _, issue := range r.Issues {
		if issue == "section_header" {
			return true
		}
	}
	return false
}

// IsFill reports executed fills. A missing event type counts as a fill.
func (r *Record) IsFill() bool {
	return (r.EventType == "" || r.EventType == model.EventTypeFill) && r.ExecTime != ""
}

func (r *Record) IsOption() bool {
	return r.AssetType == "OPTION" || r.Type == model.OptionRightCall || r.Type == model.OptionRightPut
}

// UniqueKey identifies the record across re-ingestion of the same source.
// Quantity is taken as positive.
func (r *Record) UniqueKey(sourceFile string, execTime time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d", sourceFile, r.RowIndex)

	if !execTime.IsZero() {
		b.WriteString(":" + execTime.Format(time.RFC3339Nano))
	} else if r.TimeCanceled != "" {
		b.WriteString(":" + r.TimeCanceled)
	}

	if r.Symbol != "" {
		b.WriteString(":" + r.Symbol)
	}

	if r.Side != "" && r.Qty != nil && *r.Qty != 0 {
		fmt.Fprintf(&b, ":%s:%d", r.Side, absQty(*r.Qty))
	}

	return b.String()
}

func (r *Record) optionDetails() (model.OptionDetails, error) {
	var details model.OptionDetails

	if r.Option != nil {
		exp, err := parseDate(r.Option.ExpDate)
		if err != nil {
			return details, err
		}
		details.Expiration = exp
		details.Strike = decimal.NewNullDecimal(r.Option.Strike)
		details.Right = strings.ToUpper(r.Option.Right)
		return details, nil
	}

	if r.Exp != "" {
		exp, err := parseDate(r.Exp)
		if err != nil {
			return details, err
		}
		details.Expiration = exp
	}
	details.Strike = r.Strike
	if r.Type == model.OptionRightCall || r.Type == model.OptionRightPut {
		details.Right = r.Type
	}

	return details, nil
}

// ToExecution converts a validated fill into an execution owned by userID.
func (r *Record) ToExecution(userID uint, sourcePath string, loc *time.Location) (*model.Execution, error) {
	execTime, err := parseTimestamp(r.ExecTime, loc)
	if err != nil {
		return nil, err
	}

	var missing error
	if r.Symbol == "" {
		missing = multierr.Append(missing, errors.New("symbol is required"))
	}
	if r.Side == "" {
		missing = multierr.Append(missing, errors.New("side is required"))
	}
	if r.Qty == nil || *r.Qty == 0 {
		missing = multierr.Append(missing, errors.New("qty is required"))
	}
	if r.PosEffect == "" {
		missing = multierr.Append(missing, errors.New("pos_effect is required"))
	}
	if !r.NetPrice.Valid && !r.Price.Valid {
		missing = multierr.Append(missing, errors.New("net_price or price is required"))
	}
	if missing != nil {
		return nil, missing
	}

	sourceFile := r.SourceFile
	if sourceFile == "" {
		sourceFile = filepath.Base(sourcePath)
	}

	netPrice := r.NetPrice.Decimal
	if !r.NetPrice.Valid {
		netPrice = r.Price.Decimal
	}
	price := r.Price.Decimal
	if !r.Price.Valid {
		price = netPrice
	}

	exec := &model.Execution{
		UserID:         userID,
		UniqueKey:      r.UniqueKey(sourceFile, execTime),
		ExecTimestamp:  execTime,
		EventType:      model.EventTypeFill,
		Symbol:         strings.ToUpper(r.Symbol),
		InstrumentType: model.InstrumentTypeEquity,
		Side:           r.Side,
		Qty:            absQty(*r.Qty),
		PosEffect:      posEffect(r.PosEffect),
		Price:          price,
		NetPrice:       netPrice,
		OrderType:      r.OrderType,
		SourceFile:     sourcePath,
		SourceRow:      r.RowIndex,
		RawData:        r.Raw,
	}

	if r.SourceFileIndex != nil {
		exec.SourceRow = *r.SourceFileIndex
	}

	if r.IsOption() {
		exec.InstrumentType = model.InstrumentTypeOption
		details, err := r.optionDetails()
		if err != nil {
			return nil, err
		}
		exec.Option = details
	}

	return exec, nil
}

func posEffect(value string) string {
	if value == "TO CLOSE" {
		return model.PosEffectToClose
	}
	return model.PosEffectToOpen
}

func absQty(q int64) int64 {
	if q < 0 {
		return -q
	}
	return q
}
