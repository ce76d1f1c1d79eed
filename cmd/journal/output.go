package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tradejournal/src/completion"
	"tradejournal/src/dashboard"
	"tradejournal/src/ingestion"
	"tradejournal/src/model"
	"tradejournal/src/positions"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
)

// Render writes v as JSON or YAML. Table output is type specific and handled
// by the Print* helpers.
func Render(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		// round trip through JSON so decimals and json tags carry over
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// money renders d with thousands separators and exactly two decimals.
func money(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	sign := ""
	if strings.HasPrefix(whole, "-") {
		sign, whole = "-", whole[1:]
	}

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return d.StringFixed(2)
	}
	return sign + humanize.Comma(n) + "." + frac
}

func PrintPositions(w io.Writer, list []model.Position) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tTYPE\tOPTION\tQTY\tAVG COST\tTOTAL COST\tREALIZED\tOPENED")
	for i := range list {
		p := &list[i]
		opened := "-"
		if p.OpenedAt != nil {
			opened = humanize.Time(*p.OpenedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Symbol, p.InstrumentType, p.OptionKey, humanize.Comma(p.CurrentQty),
			money(p.AvgCostBasis), money(p.TotalCost), money(p.RealizedPnl), opened)
	}
	return tw.Flush()
}

func PrintTrades(w io.Writer, trades []model.CompletedTrade) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSYMBOL\tTYPE\tQTY\tENTRY\tEXIT\tNET P&L\tHELD\tCLOSED\tPATTERN")
	for i := range trades {
		t := &trades[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Symbol, t.TradeType, humanize.Comma(t.TotalQty),
			money(t.EntryAvgPrice), money(t.ExitAvgPrice), money(t.NetPnl),
			t.HoldDuration().String(), t.ClosedAt.UTC().Format(time.DateTime), t.SetupPattern)
	}
	return tw.Flush()
}

func PrintTradesCSV(w io.Writer, trades []model.CompletedTrade) error {
	return completion.WriteCSV(w, trades)
}

func PrintPositionSummary(w io.Writer, s *positions.Summary) {
	fmt.Fprintf(w, "Positions: %d total, %d open (%d long, %d short), %d closed\n",
		s.TotalPositions, s.OpenPositions, s.LongPositions, s.ShortPositions, s.ClosedPositions)
	fmt.Fprintf(w, "Open cost basis: %s  Realized P&L: %s\n", money(s.OpenCostBasis), money(s.TotalRealizedPnl))
}

func PrintIngestion(w io.Writer, r *ingestion.BatchResult) {
	fmt.Fprintf(w, "Files: %d processed, %d failed\n", r.FilesProcessed, r.FilesFailed)
	fmt.Fprintf(w, "Records: %s processed, %s failed\n",
		humanize.Comma(int64(r.TotalRecordsProcessed)), humanize.Comma(int64(r.TotalRecordsFailed)))
	for _, f := range r.Results {
		status := "ok"
		if !f.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "  %-6s %s (%d records, %d new executions)\n", status, f.FilePath, f.RecordsProcessed, f.ExecutionsCreated)
		if f.Error != "" {
			fmt.Fprintf(w, "         %s\n", f.Error)
		}
	}
	if r.Completion != nil {
		fmt.Fprintln(w, r.Completion.Message)
	}
	if r.DryRun {
		fmt.Fprintln(w, "dry run: nothing was written")
	}
}

func PrintDashboard(w io.Writer, d *dashboard.Dashboard) {
	if d.Message != "" {
		fmt.Fprintln(w, d.Message)
		return
	}

	m := d.CoreMetrics
	fmt.Fprintf(w, "Trades: %d (%d winners, %d losers, win rate %s%%)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRatePct.StringFixed(2))
	fmt.Fprintf(w, "Net P&L: %s  Avg trade: %s  Avg win: %s  Avg loss: %s\n",
		money(m.TotalPnl), money(m.AvgTrade), money(m.AvgWin), money(m.AvgLoss))
	fmt.Fprintf(w, "Largest win: %s  Largest loss: %s  Streaks: %d wins / %d losses\n",
		money(m.LargestWin), money(m.LargestLoss), m.MaxWinStreak, m.MaxLossStreak)
	if m.ProfitFactor.Valid {
		fmt.Fprintf(w, "Profit factor: %s\n", m.ProfitFactor.Decimal.StringFixed(2))
	}
	if d.MaxDrawdown != nil {
		fmt.Fprintf(w, "Max drawdown: %s (%s%%)\n", money(d.MaxDrawdown.MaxDrawdown), d.MaxDrawdown.MaxDrawdownPct.StringFixed(2))
	}

	if d.PatternAnalysis != nil && len(d.PatternAnalysis.ByPattern) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATTERN\tTRADES\tWIN %\tTOTAL P&L")
		for _, p := range d.PatternAnalysis.ByPattern {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Pattern, p.TotalTrades, p.WinRatePct.StringFixed(2), money(p.TotalPnl))
		}
		tw.Flush()
	}

	if len(d.SessionAnalysis) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tTRADES\tWIN %\tTOTAL P&L")
		for _, s := range d.SessionAnalysis {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Session, s.TotalTrades, s.WinRatePct.StringFixed(2), money(s.TotalPnl))
		}
		tw.Flush()
	}

	if d.Positions != nil {
		PrintPositionSummary(w, d.Positions)
	}
}
