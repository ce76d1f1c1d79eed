package dashboard

import (
	"testing"
	"time"

	"tradejournal/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 2, 5, 20, 0, 0, 0, time.UTC)

func trade(id uint, pnl int64, pattern string, closedAt time.Time) model.CompletedTrade {
	return model.CompletedTrade{
		ID:             id,
		UserID:         1,
		Symbol:         "AAPL",
		NetPnl:         decimal.NewFromInt(pnl),
		IsWinningTrade: pnl > 0,
		SetupPattern:   pattern,
		ClosedAt:       closedAt,
	}
}

func sampleTrades() []model.CompletedTrade {
	return []model.CompletedTrade{
		trade(1, 100, "Breakout", day),
		trade(2, 200, "Breakout", day.Add(time.Hour)),
		trade(3, -150, "", day.Add(24*time.Hour)),
		trade(4, -50, "Reversal", day.Add(25*time.Hour)),
		trade(5, -20, "Reversal", day.Add(26*time.Hour)),
		trade(6, 300, "Breakout", day.Add(48*time.Hour)),
	}
}

func TestCalculateCoreMetrics(t *testing.T) {
	m := CalculateCoreMetrics(sampleTrades())

	assert.Equal(t, 6, m.TotalTrades)
	assert.Equal(t, 3, m.WinningTrades)
	assert.Equal(t, 2, m.MaxWinStreak)
	assert.Equal(t, 3, m.MaxLossStreak)
	assert.True(t, m.TotalPnl.Equal(decimal.NewFromInt(380)))
	assert.InDelta(t, 63.3333, m.PnlMean, 0.001)
	assert.Greater(t, m.PnlStdDev, 0.0)

	single := CalculateCoreMetrics(sampleTrades()[:1])
	assert.Equal(t, 0.0, single.PnlStdDev)
}

func TestCalculatePatternAnalysis(t *testing.T) {
	analysis := CalculatePatternAnalysis(sampleTrades())

	require.Len(t, analysis.ByPattern, 3)
	assert.Equal(t, "Breakout", analysis.ByPattern[0].Pattern)
	assert.True(t, analysis.ByPattern[0].TotalPnl.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "100", analysis.ByPattern[0].WinRatePct.String())
	assert.Equal(t, "Reversal", analysis.ByPattern[1].Pattern)
	assert.Equal(t, noPattern, analysis.ByPattern[2].Pattern)

	require.NotNil(t, analysis.TopPattern)
	require.NotNil(t, analysis.WorstPattern)
	assert.Equal(t, "Breakout", analysis.TopPattern.Pattern)
	assert.Equal(t, noPattern, analysis.WorstPattern.Pattern)

	empty := CalculatePatternAnalysis(nil)
	assert.Empty(t, empty.ByPattern)
	assert.Nil(t, empty.TopPattern)
}

func TestEquityCurveAndDrawdown(t *testing.T) {
	curve := CalculateEquityCurve(sampleTrades())
	require.Len(t, curve, 6)
	assert.True(t, curve[1].CumulativePnl.Equal(decimal.NewFromInt(300)))
	assert.True(t, curve[5].CumulativePnl.Equal(decimal.NewFromInt(380)))

	dd := CalculateMaxDrawdown(curve)
	assert.True(t, dd.MaxDrawdown.Equal(decimal.NewFromInt(220)), "drawdown %s", dd.MaxDrawdown)
	assert.True(t, dd.PeakValue.Equal(decimal.NewFromInt(300)))
	assert.True(t, dd.TroughValue.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "73.33", dd.MaxDrawdownPct.StringFixed(2))
	require.NotNil(t, dd.PeakDate)
	assert.Equal(t, day.Add(time.Hour), *dd.PeakDate)
	require.NotNil(t, dd.TroughDate)
	assert.Equal(t, day.Add(26*time.Hour), *dd.TroughDate)
}

func TestDrawdownIgnoresLossesBeforeFirstPeak(t *testing.T) {
	curve := CalculateEquityCurve([]model.CompletedTrade{
		trade(1, -100, "", day),
		trade(2, -50, "", day.Add(time.Hour)),
	})

	dd := CalculateMaxDrawdown(curve)
	assert.True(t, dd.MaxDrawdown.IsZero())
	assert.Nil(t, dd.PeakDate)
}

func TestCalculateDailyPnl(t *testing.T) {
	days := CalculateDailyPnl(sampleTrades())

	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-05", days[0].Date)
	assert.Equal(t, 2, days[0].Trades)
	assert.True(t, days[0].Pnl.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "2024-02-06", days[1].Date)
	assert.True(t, days[1].Pnl.Equal(decimal.NewFromInt(-220)))
}
