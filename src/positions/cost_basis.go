package positions

import (
	"fmt"
	"time"

	"tradejournal/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// CostBasisMethod is the accounting rule applied to a position for each fill.
// ApplyOpen and ApplyClose mutate pos in place. ApplyClose reports the
// realized P&L and whether the fill changed the position at all.
type CostBasisMethod interface {
	Name() string
	ApplyOpen(pos *model.Position, exec *model.Execution)
	ApplyClose(pos *model.Position, exec *model.Execution) (decimal.Decimal, bool)
}

const MethodAverageCost = "average"

// MethodByName resolves a configured cost basis method.
func MethodByName(name string) (CostBasisMethod, error) {
	switch name {
	case MethodAverageCost, "":
		return AverageCost{}, nil
	default:
		return nil, fmt.Errorf("unsupported cost basis method %q", name)
	}
}

// AverageCost keeps one volume-weighted average per position. Closing fills
// never change the average of the remaining lot.
type AverageCost struct{}

func (AverageCost) Name() string { return MethodAverageCost }

func (AverageCost) ApplyOpen(pos *model.Position, exec *model.Execution) {
	unitCost := exec.NetPrice.Mul(exec.Multiplier())
	tradeCost := unitCost.Mul(decimal.NewFromInt(exec.Qty))

	if pos.CurrentQty == 0 {
		pos.CurrentQty = exec.SignedQty()
		pos.AvgCostBasis = unitCost
		pos.TotalCost = tradeCost
		if pos.OpenedAt == nil {
			pos.OpenedAt = timePtr(exec.ExecTimestamp)
		}
		pos.ClosedAt = nil
		return
	}

	pos.TotalCost = pos.TotalCost.Add(tradeCost)
	pos.CurrentQty += exec.SignedQty()

	if pos.CurrentQty == 0 {
		reset(pos, exec.ExecTimestamp)
		return
	}

	pos.AvgCostBasis = pos.TotalCost.Div(decimal.NewFromInt(absQty(pos.CurrentQty)))
}

func (AverageCost) ApplyClose(pos *model.Position, exec *model.Execution) (decimal.Decimal, bool) {
	fields := logger.Fields{
		"component": "AverageCost",
		"user_id":   exec.UserID,
		"symbol":    exec.Symbol,
		"exec_id":   exec.ID,
	}

	if pos.CurrentQty == 0 {
		logger.WithFields(fields).Warn("closing fill without an open position, ignored")
		return decimal.Zero, false
	}

	// a long closes with a sell, a short with a buy
	if (pos.IsLong() && exec.Side != model.SideSell) || (!pos.IsLong() && exec.Side != model.SideBuy) {
		logger.WithFields(fields).
			WithField("position_qty", pos.CurrentQty).
			WithField("side", exec.Side).
			Warn("closing fill on the wrong side of the position, ignored")
		return decimal.Zero, false
	}

	held := absQty(pos.CurrentQty)
	closed := exec.Qty
	if closed > held {
		logger.WithFields(fields).
			WithField("position_qty", pos.CurrentQty).
			WithField("fill_qty", exec.Qty).
			Warn("closing fill exceeds position, clamped")
		closed = held
	}

	closedQty := decimal.NewFromInt(closed)
	costRemoved := pos.AvgCostBasis.Mul(closedQty)
	proceeds := exec.NetPrice.Mul(exec.Multiplier()).Mul(closedQty)

	realized := proceeds.Sub(costRemoved)
	if !pos.IsLong() {
		realized = costRemoved.Sub(proceeds)
	}

	pos.RealizedPnl = pos.RealizedPnl.Add(realized)

	remaining := held - closed
	if remaining == 0 {
		reset(pos, exec.ExecTimestamp)
		return realized, true
	}

	if pos.IsLong() {
		pos.CurrentQty = remaining
	} else {
		pos.CurrentQty = -remaining
	}
	pos.TotalCost = pos.AvgCostBasis.Mul(decimal.NewFromInt(remaining))

	return realized, true
}

func reset(pos *model.Position, at time.Time) {
	pos.CurrentQty = 0
	pos.AvgCostBasis = decimal.Zero
	pos.TotalCost = decimal.Zero
	pos.ClosedAt = timePtr(at)
}

func absQty(q int64) int64 {
	if q < 0 {
		return -q
	}
	return q
}

func timePtr(t time.Time) *time.Time {
	return &t
}
