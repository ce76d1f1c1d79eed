package completion

import (
	"io"
	"strconv"
	"time"

	"tradejournal/src/model"
	"tradejournal/src/utils"

	"github.com/gocarina/gocsv"
)

// TradeRow is the flat CSV shape of a completed trade.
type TradeRow struct {
	ID              uint   `csv:"id"`
	Symbol          string `csv:"symbol"`
	InstrumentType  string `csv:"instrument_type"`
	OptionKey       string `csv:"option_key"`
	TradeType       string `csv:"trade_type"`
	TotalQty        int64  `csv:"total_qty"`
	EntryAvgPrice   string `csv:"entry_avg_price"`
	ExitAvgPrice    string `csv:"exit_avg_price"`
	GrossCost       string `csv:"gross_cost"`
	GrossProceeds   string `csv:"gross_proceeds"`
	NetPnl          string `csv:"net_pnl"`
	OpenedAt        string `csv:"opened_at"`
	ClosedAt        string `csv:"closed_at"`
	HoldDurationSec int64  `csv:"hold_duration_seconds"`
	Winner          string `csv:"is_winning_trade"`
	SetupPattern    string `csv:"setup_pattern"`
	TradeNotes      string `csv:"trade_notes"`
}

func NewTradeRow(t *model.CompletedTrade) TradeRow {
	return TradeRow{
		ID:              t.ID,
		Symbol:          t.Symbol,
		InstrumentType:  t.InstrumentType,
		OptionKey:       t.OptionKey,
		TradeType:       t.TradeType,
		TotalQty:        t.TotalQty,
		EntryAvgPrice:   t.EntryAvgPrice.StringFixed(2),
		ExitAvgPrice:    t.ExitAvgPrice.StringFixed(2),
		GrossCost:       t.GrossCost.StringFixed(2),
		GrossProceeds:   t.GrossProceeds.StringFixed(2),
		NetPnl:          t.NetPnl.StringFixed(2),
		OpenedAt:        t.OpenedAt.UTC().Format(time.RFC3339),
		ClosedAt:        t.ClosedAt.UTC().Format(time.RFC3339),
		HoldDurationSec: t.HoldDurationSeconds,
		Winner:          strconv.FormatBool(t.IsWinningTrade),
		SetupPattern:    utils.SanitizeForFormulaInjection(t.SetupPattern),
		TradeNotes:      utils.SanitizeForFormulaInjection(t.TradeNotes),
	}
}

// WriteCSV writes trades as CSV with a header row.
func WriteCSV(w io.Writer, trades []model.CompletedTrade) error {
	rows := make([]TradeRow, 0, len(trades))
	for i := range trades {
		rows = append(rows, NewTradeRow(&trades[i]))
	}

	return gocsv.Marshal(&rows, w)
}
