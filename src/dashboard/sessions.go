package dashboard

import (
	"tradejournal/src/market"
	"tradejournal/src/model"

	"github.com/shopspring/decimal"
)

// SessionStats aggregates trades by the market session they were opened in.
type SessionStats struct {
	Session       market.Session  `json:"session"`
	TotalTrades   int             `json:"total_trades"`
	WinningTrades int             `json:"winning_trades"`
	WinRatePct    decimal.Decimal `json:"win_rate_pct"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
}

// CalculateSessionAnalysis returns one entry per session that saw a trade,
// in trading day order.
func CalculateSessionAnalysis(trades []model.CompletedTrade) []SessionStats {
	bySession := make(map[market.Session]*SessionStats)

	for i := range trades {
		session := market.SessionAt(trades[i].OpenedAt)

		stats, ok := bySession[session]
		if !ok {
			stats = &SessionStats{Session: session, TotalPnl: decimal.Zero}
			bySession[session] = stats
		}

		stats.TotalTrades++
		stats.TotalPnl = stats.TotalPnl.Add(trades[i].NetPnl)
		if trades[i].IsWinningTrade {
			stats.WinningTrades++
		}
	}

	out := make([]SessionStats, 0, len(bySession))
	for _, session := range market.Sessions {
		stats, ok := bySession[session]
		if !ok {
			continue
		}
		stats.WinRatePct = decimal.NewFromInt(int64(stats.WinningTrades)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(stats.TotalTrades))).
			Round(2)
		out = append(out, *stats)
	}

	return out
}
