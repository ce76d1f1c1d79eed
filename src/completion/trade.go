package completion

import (
	"errors"

	"tradejournal/src/model"

	"github.com/shopspring/decimal"
)

// ErrMalformedCycle is returned for a cycle without opens or without closes.
var ErrMalformedCycle = errors.New("cycle has no opening or no closing fills")

// BuildCompletedTrade materializes a closed cycle. Average prices are
// volume-weighted over the multiplied fill prices.
func BuildCompletedTrade(userID uint, cycle Cycle) (*model.CompletedTrade, error) {
	var opens, closes []model.Execution
	for _, exec := range cycle.Fills {
		if exec.PosEffect == model.PosEffectToOpen {
			opens = append(opens, exec)
		} else {
			closes = append(closes, exec)
		}
	}

	if len(opens) == 0 || len(closes) == 0 {
		return nil, ErrMalformedCycle
	}

	grossCost, openQty := notional(opens)
	grossProceeds, closeQty := notional(closes)

	tradeType := model.TradeTypeLong
	netPnl := grossProceeds.Sub(grossCost)
	if opens[0].Side == model.SideSell {
		tradeType = model.TradeTypeShort
		netPnl = grossCost.Sub(grossProceeds)
	}

	openedAt := opens[0].ExecTimestamp
	for _, exec := range opens[1:] {
		if exec.ExecTimestamp.Before(openedAt) {
			openedAt = exec.ExecTimestamp
		}
	}

	closedAt := closes[0].ExecTimestamp
	for _, exec := range closes[1:] {
		if exec.ExecTimestamp.After(closedAt) {
			closedAt = exec.ExecTimestamp
		}
	}

	first := cycle.Fills[0]

	return &model.CompletedTrade{
		UserID:              userID,
		Symbol:              first.Symbol,
		InstrumentType:      first.InstrumentType,
		Option:              first.Option,
		TotalQty:            openQty,
		EntryAvgPrice:       average(grossCost, openQty),
		ExitAvgPrice:        average(grossProceeds, closeQty),
		GrossCost:           grossCost,
		GrossProceeds:       grossProceeds,
		NetPnl:              netPnl,
		OpenedAt:            openedAt,
		ClosedAt:            closedAt,
		HoldDurationSeconds: int64(closedAt.Sub(openedAt).Seconds()),
		TradeType:           tradeType,
		IsWinningTrade:      netPnl.IsPositive(),
	}, nil
}

func notional(fills []model.Execution) (decimal.Decimal, int64) {
	total := decimal.Zero
	var qty int64
	for i := range fills {
		total = total.Add(fills[i].Notional())
		qty += fills[i].Qty
	}
	return total, qty
}

func average(total decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(qty))
}
