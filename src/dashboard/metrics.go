package dashboard

import (
	"sort"
	"time"

	"tradejournal/src/completion"
	"tradejournal/src/model"
	"tradejournal/src/utils"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const noPattern = "No Pattern"

// CoreMetrics extends the completion summary with streaks and dispersion.
type CoreMetrics struct {
	completion.Summary

	MaxWinStreak  int     `json:"max_win_streak"`
	MaxLossStreak int     `json:"max_loss_streak"`
	PnlMean       float64 `json:"pnl_mean"`
	PnlStdDev     float64 `json:"pnl_std_dev"`
}

type PatternStats struct {
	Pattern       string          `json:"pattern"`
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	LosingTrades  int             `json:"losing_trades"`
	WinRatePct    decimal.Decimal `json:"win_rate_pct"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
	AvgPnl        decimal.Decimal `json:"avg_pnl"`
}

type PatternAnalysis struct {
	ByPattern    []PatternStats `json:"by_pattern"`
	TopPattern   *PatternStats  `json:"top_pattern"`
	WorstPattern *PatternStats  `json:"worst_pattern"`
}

type EquityPoint struct {
	Timestamp     time.Time       `json:"timestamp"`
	TradeID       uint            `json:"trade_id"`
	Symbol        string          `json:"symbol"`
	TradePnl      decimal.Decimal `json:"trade_pnl"`
	CumulativePnl decimal.Decimal `json:"cumulative_pnl"`
}

type Drawdown struct {
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	PeakValue      decimal.Decimal `json:"peak_value"`
	TroughValue    decimal.Decimal `json:"trough_value"`
	PeakDate       *time.Time      `json:"peak_date"`
	TroughDate     *time.Time      `json:"trough_date"`
}

type DailyPnl struct {
	Date   string          `json:"date"`
	Trades int             `json:"trades"`
	Pnl    decimal.Decimal `json:"pnl"`
}

// CalculateCoreMetrics expects trades ordered by close time.
func CalculateCoreMetrics(trades []model.CompletedTrade) *CoreMetrics {
	metrics := &CoreMetrics{Summary: *completion.Summarize(trades)}

	winStreak, lossStreak := 0, 0
	pnls := make([]float64, 0, len(trades))

	for i := range trades {
		pnls = append(pnls, trades[i].NetPnl.InexactFloat64())

		if trades[i].IsWinningTrade {
			winStreak++
			lossStreak = 0
		} else {
			lossStreak++
			winStreak = 0
		}

		metrics.MaxWinStreak = max(metrics.MaxWinStreak, winStreak)
		metrics.MaxLossStreak = max(metrics.MaxLossStreak, lossStreak)
	}

	if len(pnls) > 0 {
		metrics.PnlMean = stat.Mean(pnls, nil)
	}
	// sample standard deviation needs two points
	if len(pnls) > 1 {
		metrics.PnlStdDev = stat.StdDev(pnls, nil)
	}

	return metrics
}

// CalculatePatternAnalysis groups trades by setup pattern, best total P&L first.
func CalculatePatternAnalysis(trades []model.CompletedTrade) *PatternAnalysis {
	byName := make(map[string]*PatternStats)
	var order []string

	for i := range trades {
		name := trades[i].SetupPattern
		if name == "" {
			name = noPattern
		}

		stats, ok := byName[name]
		if !ok {
			stats = &PatternStats{Pattern: name, TotalPnl: decimal.Zero}
			byName[name] = stats
			order = append(order, name)
		}

		stats.TotalTrades++
		stats.TotalPnl = stats.TotalPnl.Add(trades[i].NetPnl)
		if trades[i].IsWinningTrade {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
	}

	analysis := &PatternAnalysis{ByPattern: make([]PatternStats, 0, len(order))}
	for _, name := range order {
		stats := byName[name]
		count := decimal.NewFromInt(int64(stats.TotalTrades))
		stats.WinRatePct = decimal.NewFromInt(int64(stats.WinningTrades)).Mul(decimal.NewFromInt(100)).Div(count).Round(2)
		stats.AvgPnl = stats.TotalPnl.Div(count)
		analysis.ByPattern = append(analysis.ByPattern, *stats)
	}

	sort.SliceStable(analysis.ByPattern, func(i, j int) bool {
		return analysis.ByPattern[i].TotalPnl.GreaterThan(analysis.ByPattern[j].TotalPnl)
	})

	if n := len(analysis.ByPattern); n > 0 {
		top := analysis.ByPattern[0]
		worst := analysis.ByPattern[n-1]
		analysis.TopPattern = &top
		analysis.WorstPattern = &worst
	}

	return analysis
}

// CalculateEquityCurve accumulates P&L in the given trade order.
func CalculateEquityCurve(trades []model.CompletedTrade) []EquityPoint {
	curve := make([]EquityPoint, 0, len(trades))
	cumulative := decimal.Zero

	for i := range trades {
		cumulative = cumulative.Add(trades[i].NetPnl)
		curve = append(curve, EquityPoint{
			Timestamp:     trades[i].ClosedAt,
			TradeID:       trades[i].ID,
			Symbol:        trades[i].Symbol,
			TradePnl:      trades[i].NetPnl,
			CumulativePnl: cumulative,
		})
	}

	return curve
}

// CalculateMaxDrawdown measures the deepest fall from a positive equity peak.
func CalculateMaxDrawdown(curve []EquityPoint) Drawdown {
	dd := Drawdown{
		MaxDrawdown:    decimal.Zero,
		MaxDrawdownPct: decimal.Zero,
		PeakValue:      decimal.Zero,
		TroughValue:    decimal.Zero,
	}

	peak := decimal.Zero
	var peakDate *time.Time

	for i := range curve {
		point := curve[i]

		if point.CumulativePnl.GreaterThan(peak) {
			peak = point.CumulativePnl
			ts := point.Timestamp
			peakDate = &ts
		}

		if !peak.IsPositive() {
			continue
		}

		drawdown := peak.Sub(point.CumulativePnl)
		if drawdown.GreaterThan(dd.MaxDrawdown) {
			ts := point.Timestamp
			dd.MaxDrawdown = drawdown
			dd.MaxDrawdownPct = drawdown.Div(peak).Mul(decimal.NewFromInt(100)).Round(2)
			dd.PeakValue = peak
			dd.TroughValue = point.CumulativePnl
			dd.PeakDate = peakDate
			dd.TroughDate = &ts
		}
	}

	return dd
}

// CalculateDailyPnl buckets trades by the UTC day they closed.
func CalculateDailyPnl(trades []model.CompletedTrade) []DailyPnl {
	var days []DailyPnl
	index := make(map[string]int)

	for i := range trades {
		day := utils.ResetTime(trades[i].ClosedAt.UTC(), "day").Format(utils.DateLayout)

		pos, ok := index[day]
		if !ok {
			pos = len(days)
			index[day] = pos
			days = append(days, DailyPnl{Date: day, Pnl: decimal.Zero})
		}

		days[pos].Trades++
		days[pos].Pnl = days[pos].Pnl.Add(trades[i].NetPnl)
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return days
}
