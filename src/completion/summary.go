package completion

import (
	"tradejournal/src/model"

	"github.com/shopspring/decimal"
)

// Summary is the win/loss overview of a set of completed trades.
type Summary struct {
	TotalTrades   int                 `json:"total_trades"`
	WinningTrades int                 `json:"winning_trades"`
	LosingTrades  int                 `json:"losing_trades"`
	WinRatePct    decimal.Decimal     `json:"win_rate_pct"`
	TotalPnl      decimal.Decimal     `json:"total_pnl"`
	GrossProfit   decimal.Decimal     `json:"gross_profit"`
	GrossLoss     decimal.Decimal     `json:"gross_loss"`
	AvgWin        decimal.Decimal     `json:"avg_win"`
	AvgLoss       decimal.Decimal     `json:"avg_loss"`
	AvgTrade      decimal.Decimal     `json:"avg_trade"`
	LargestWin    decimal.Decimal     `json:"largest_win"`
	LargestLoss   decimal.Decimal     `json:"largest_loss"`
	ProfitFactor  decimal.NullDecimal `json:"profit_factor"` // null without losses
}

// Summarize computes the overview. Break-even trades count as losses, like
// IsWinningTrade does.
func Summarize(trades []model.CompletedTrade) *Summary {
	s := &Summary{
		WinRatePct:  decimal.Zero,
		TotalPnl:    decimal.Zero,
		GrossProfit: decimal.Zero,
		GrossLoss:   decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
		AvgTrade:    decimal.Zero,
		LargestWin:  decimal.Zero,
		LargestLoss: decimal.Zero,
	}

	for i := range trades {
		pnl := trades[i].NetPnl
		s.TotalTrades++
		s.TotalPnl = s.TotalPnl.Add(pnl)

		if trades[i].IsWinningTrade {
			s.WinningTrades++
			s.GrossProfit = s.GrossProfit.Add(pnl)
			if pnl.GreaterThan(s.LargestWin) {
				s.LargestWin = pnl
			}
			continue
		}

		s.LosingTrades++
		s.GrossLoss = s.GrossLoss.Add(pnl.Abs())
		if pnl.LessThan(s.LargestLoss) {
			s.LargestLoss = pnl
		}
	}

	if s.TotalTrades == 0 {
		return s
	}

	hundred := decimal.NewFromInt(100)
	s.WinRatePct = decimal.NewFromInt(int64(s.WinningTrades)).Mul(hundred).Div(decimal.NewFromInt(int64(s.TotalTrades))).Round(2)
	s.AvgTrade = s.TotalPnl.Div(decimal.NewFromInt(int64(s.TotalTrades)))

	if s.WinningTrades > 0 {
		s.AvgWin = s.GrossProfit.Div(decimal.NewFromInt(int64(s.WinningTrades)))
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = s.GrossLoss.Neg().Div(decimal.NewFromInt(int64(s.LosingTrades)))
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = decimal.NewNullDecimal(s.GrossProfit.Div(s.GrossLoss))
	}

	return s
}
