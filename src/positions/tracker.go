package positions

import (
	"context"
	"fmt"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Tracker maintains the running position of every instrument a user trades.
type Tracker struct {
	db     *gorm.DB
	method CostBasisMethod
}

// RebuildResult reports a full replay of a user's fills.
type RebuildResult struct {
	FillsApplied  int `json:"fills_applied"`
	Positions     int `json:"positions"`
	OpenPositions int `json:"open_positions"`
}

// Summary aggregates the positions of one user.
type Summary struct {
	TotalPositions   int             `json:"total_positions"`
	OpenPositions    int             `json:"open_positions"`
	ClosedPositions  int             `json:"closed_positions"`
	LongPositions    int             `json:"long_positions"`
	ShortPositions   int             `json:"short_positions"`
	OpenCostBasis    decimal.Decimal `json:"open_cost_basis"`
	TotalRealizedPnl decimal.Decimal `json:"total_realized_pnl"`
}

// NewTracker builds a tracker on the main database with the configured
// cost basis method.
func NewTracker() *Tracker {
	method, err := MethodByName(GetConfig().CostBasisMethod)
	if err != nil {
		panic(err)
	}

	logger.WithField("component", "PositionTracker").
		WithField("method", method.Name()).
		Info("Creating new position tracker with MainDB")

	return &Tracker{db: database.MainDB, method: method}
}

// NewTrackerWithDB builds an average-cost tracker bound to db.
func NewTrackerWithDB(db *gorm.DB) *Tracker {
	return &Tracker{db: db, method: AverageCost{}}
}

// WithMethod returns a copy of the tracker using method.
func (t *Tracker) WithMethod(method CostBasisMethod) *Tracker {
	return &Tracker{db: t.db, method: method}
}

// ApplyFill folds one stored fill into the user's position for its
// instrument. Closing fills get their realized P&L recorded. Data anomalies
// are logged and leave the position untouched.
func (t *Tracker) ApplyFill(ctx context.Context, userID uint, exec *model.Execution) (*model.Position, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	var pos *model.Position
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pos, err = t.applyFill(ctx, tx, userID, exec)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pos, nil
}

// ApplyFillTx is ApplyFill inside the caller's transaction, so storing a
// fill and updating its position commit or roll back together.
func (t *Tracker) ApplyFillTx(ctx context.Context, tx *gorm.DB, userID uint, exec *model.Execution) (*model.Position, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}
	return t.applyFill(ctx, tx, userID, exec)
}

func (t *Tracker) applyFill(ctx context.Context, tx *gorm.DB, userID uint, exec *model.Execution) (*model.Position, error) {
	if exec.UserID != userID {
		return nil, fmt.Errorf("execution %d belongs to another user: %w", exec.ID, auth.ErrUnauthorized)
	}

	log := logger.WithFields(logger.Fields{
		"component": "PositionTracker",
		"user_id":   userID,
		"symbol":    exec.Symbol,
		"exec_id":   exec.ID,
	})

	if !exec.IsFill() {
		log.WithField("event_type", exec.EventType).Debug("not a fill, skipped")
		return nil, nil
	}

	if exec.Qty <= 0 {
		log.WithField("qty", exec.Qty).Warn("fill without quantity, skipped")
		return nil, nil
	}

	positions := repository.NewPositionRepositoryWithDB(tx)

	pos, err := positions.FindByIdentity(ctx, userID, exec.Symbol, exec.InstrumentType, exec.Option.Key())
	if err != nil {
		return nil, fmt.Errorf("load position: %w", err)
	}
	if pos == nil {
		pos = model.NewPositionForExecution(exec)
	}

	switch exec.PosEffect {
	case model.PosEffectToOpen:
		t.method.ApplyOpen(pos, exec)

	case model.PosEffectToClose:
		realized, applied := t.method.ApplyClose(pos, exec)
		if !applied {
			return pos, nil
		}
		realized = model.RoundMoney(realized)

		if exec.ID != 0 {
			if err := repository.NewExecutionRepositoryWithDB(tx).SetRealizedPnl(ctx, exec.ID, realized); err != nil {
				return nil, fmt.Errorf("store realized pnl: %w", err)
			}
		}
		exec.RealizedPnl = decimal.NullDecimal{Decimal: realized, Valid: true}

	default:
		log.WithField("pos_effect", exec.PosEffect).Warn("unknown position effect, skipped")
		return pos, nil
	}

	if err := positions.Upsert(ctx, pos); err != nil {
		return nil, fmt.Errorf("store position: %w", err)
	}

	log.WithFields(logger.Fields{
		"current_qty":    pos.CurrentQty,
		"avg_cost_basis": pos.AvgCostBasis.String(),
	}).Debug("position updated")

	return pos, nil
}

// RebuildPositions drops the user's positions and replays every fill in
// chronological order.
func (t *Tracker) RebuildPositions(ctx context.Context, userID uint) (*RebuildResult, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	result := &RebuildResult{}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		positions := repository.NewPositionRepositoryWithDB(tx)
		executions := repository.NewExecutionRepositoryWithDB(tx)

		if _, err := positions.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete positions: %w", err)
		}

		if err := executions.ClearRealizedPnl(ctx, userID); err != nil {
			return fmt.Errorf("clear realized pnl: %w", err)
		}

		fills, err := executions.FindFills(ctx, userID)
		if err != nil {
			return fmt.Errorf("load fills: %w", err)
		}

		for i := range fills {
			if _, err := t.applyFill(ctx, tx, userID, &fills[i]); err != nil {
				return err
			}
			result.FillsApplied++
		}

		rebuilt, err := positions.Search(ctx, repository.PositionSearchOptions{UserID: userID})
		if err != nil {
			return fmt.Errorf("list positions: %w", err)
		}

		result.Positions = len(rebuilt)
		for i := range rebuilt {
			if rebuilt[i].IsOpen() {
				result.OpenPositions++
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"component":     "PositionTracker",
		"user_id":       userID,
		"fills_applied": result.FillsApplied,
		"positions":     result.Positions,
	}).Info("positions rebuilt")

	return result, nil
}

// ListPositions returns the user's positions, optionally only open ones.
func (t *Tracker) ListPositions(ctx context.Context, userID uint, openOnly bool) ([]model.Position, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	return repository.NewPositionRepositoryWithDB(t.db).Search(ctx, repository.PositionSearchOptions{
		UserID:   userID,
		OpenOnly: openOnly,
	})
}

// Summary aggregates the user's positions, optionally for one symbol.
func (t *Tracker) Summary(ctx context.Context, userID uint, symbol *string) (*Summary, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	list, err := repository.NewPositionRepositoryWithDB(t.db).Search(ctx, repository.PositionSearchOptions{
		UserID: userID,
		Symbol: symbol,
	})
	if err != nil {
		return nil, err
	}

	return Summarize(list), nil
}

// Summarize aggregates an already loaded list of positions.
func Summarize(list []model.Position) *Summary {
	summary := &Summary{
		OpenCostBasis:    decimal.Zero,
		TotalRealizedPnl: decimal.Zero,
	}

	for i := range list {
		pos := &list[i]
		summary.TotalPositions++
		summary.TotalRealizedPnl = summary.TotalRealizedPnl.Add(pos.RealizedPnl)

		if !pos.IsOpen() {
			summary.ClosedPositions++
			continue
		}

		summary.OpenPositions++
		summary.OpenCostBasis = summary.OpenCostBasis.Add(pos.TotalCost)
		if pos.IsLong() {
			summary.LongPositions++
		} else {
			summary.ShortPositions++
		}
	}

	return summary
}
