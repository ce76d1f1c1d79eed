package positions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLiteMemory(uuid.NewString())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func storeAndApply(t *testing.T, db *gorm.DB, tracker *Tracker, userID uint, exec *model.Execution) *model.Execution {
	t.Helper()
	ctx := context.Background()

	exec.UserID = userID
	exec.UniqueKey = fmt.Sprintf("test.json:%s:%s:%d", exec.ExecTimestamp.Format(time.RFC3339), exec.Side, exec.Qty)

	stored, _, err := repository.NewExecutionRepositoryWithDB(db).Upsert(ctx, exec)
	require.NoError(t, err)

	_, err = tracker.ApplyFill(ctx, userID, stored)
	require.NoError(t, err)

	return stored
}

func TestTrackerRejectsMissingUser(t *testing.T) {
	tracker := NewTrackerWithDB(newTestDB(t))

	_, err := tracker.ApplyFill(context.Background(), 0, fill(model.SideBuy, model.PosEffectToOpen, 1, "1", t0))
	assert.True(t, errors.Is(err, auth.ErrUnauthorized))

	_, err = tracker.RebuildPositions(context.Background(), 0)
	assert.True(t, errors.Is(err, auth.ErrUnauthorized))

	_, err = tracker.ListPositions(context.Background(), 0, false)
	assert.True(t, errors.Is(err, auth.ErrUnauthorized))
}

func TestTrackerRejectsForeignExecution(t *testing.T) {
	tracker := NewTrackerWithDB(newTestDB(t))

	exec := fill(model.SideBuy, model.PosEffectToOpen, 1, "1", t0)
	exec.UserID = 2

	_, err := tracker.ApplyFill(context.Background(), 1, exec)
	assert.True(t, errors.Is(err, auth.ErrUnauthorized))
}

func TestTrackerApplyFillPersists(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 100, "150", t0))
	closing := storeAndApply(t, db, tracker, 1, fill(model.SideSell, model.PosEffectToClose, 40, "160", t0.Add(time.Hour)))

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(60), pos.CurrentQty)
	assert.True(t, pos.AvgCostBasis.Equal(decimal.NewFromInt(150)))
	assert.True(t, pos.TotalCost.Equal(decimal.NewFromInt(9000)))
	assert.True(t, pos.RealizedPnl.Equal(decimal.NewFromInt(400)))

	stored, err := repository.NewExecutionRepositoryWithDB(db).FindByUniqueKey(ctx, 1, closing.UniqueKey)
	require.NoError(t, err)
	require.True(t, stored.RealizedPnl.Valid)
	assert.True(t, stored.RealizedPnl.Decimal.Equal(decimal.NewFromInt(400)))
}

func TestTrackerUserIsolation(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 100, "150", t0))
	storeAndApply(t, db, tracker, 2, fill(model.SideBuy, model.PosEffectToOpen, 5, "200", t0))

	mine, err := tracker.ListPositions(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(100), mine[0].CurrentQty)

	theirs, err := tracker.ListPositions(ctx, 2, true)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, int64(5), theirs[0].CurrentQty)
	assert.True(t, theirs[0].AvgCostBasis.Equal(decimal.NewFromInt(200)))
}

func TestTrackerOptionIdentitySeparatesPositions(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	call := optionFill(model.SideBuy, model.PosEffectToOpen, 1, "2.50", t0)
	put := optionFill(model.SideBuy, model.PosEffectToOpen, 2, "1.00", t0.Add(time.Minute))
	put.Option.Right = model.OptionRightPut

	storeAndApply(t, db, tracker, 1, call)
	storeAndApply(t, db, tracker, 1, put)

	list, err := tracker.ListPositions(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, list, 2)

	summary, err := tracker.Summary(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OpenPositions)
	assert.Equal(t, 2, summary.LongPositions)
	assert.True(t, summary.OpenCostBasis.Equal(decimal.NewFromInt(450)), "cost %s", summary.OpenCostBasis)
}

func TestTrackerRebuildMatchesIncremental(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 100, "150", t0))
	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 50, "160", t0.Add(time.Minute)))
	storeAndApply(t, db, tracker, 1, fill(model.SideSell, model.PosEffectToClose, 75, "160", t0.Add(time.Hour)))

	before, err := tracker.ListPositions(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, before, 1)

	result, err := tracker.RebuildPositions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FillsApplied)
	assert.Equal(t, 1, result.Positions)
	assert.Equal(t, 1, result.OpenPositions)

	after, err := tracker.ListPositions(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, after, 1)

	assert.Equal(t, before[0].CurrentQty, after[0].CurrentQty)
	assert.Equal(t, before[0].AvgCostBasis.StringFixed(6), after[0].AvgCostBasis.StringFixed(6))
	assert.Equal(t, before[0].RealizedPnl.StringFixed(2), after[0].RealizedPnl.StringFixed(2))
	assert.Equal(t, "500.00", after[0].RealizedPnl.StringFixed(2))
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]model.Position{
		{CurrentQty: 10, TotalCost: decimal.NewFromInt(1000), RealizedPnl: decimal.NewFromInt(50)},
		{CurrentQty: -2, TotalCost: decimal.NewFromInt(600), RealizedPnl: decimal.Zero},
		{CurrentQty: 0, TotalCost: decimal.Zero, RealizedPnl: decimal.NewFromInt(-20)},
	})

	assert.Equal(t, 3, summary.TotalPositions)
	assert.Equal(t, 2, summary.OpenPositions)
	assert.Equal(t, 1, summary.ClosedPositions)
	assert.Equal(t, 1, summary.LongPositions)
	assert.Equal(t, 1, summary.ShortPositions)
	assert.True(t, summary.OpenCostBasis.Equal(decimal.NewFromInt(1600)))
	assert.True(t, summary.TotalRealizedPnl.Equal(decimal.NewFromInt(30)))
}

func TestTrackerStoresMoneyAtColumnScale(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 1, "100", t0))
	storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 2, "101", t0.Add(time.Minute)))
	closing := storeAndApply(t, db, tracker, 1, fill(model.SideSell, model.PosEffectToClose, 1, "110.03", t0.Add(time.Hour)))

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(2), pos.CurrentQty)
	assert.True(t, pos.AvgCostBasis.Equal(decimal.RequireFromString("100.66666667")), "avg %s", pos.AvgCostBasis)
	assert.True(t, pos.TotalCost.Equal(decimal.RequireFromString("201.33333334")), "total %s", pos.TotalCost)
	assert.True(t, pos.RealizedPnl.Equal(decimal.RequireFromString("9.36333333")), "realized %s", pos.RealizedPnl)

	stored, err := repository.NewExecutionRepositoryWithDB(db).FindByUniqueKey(ctx, 1, closing.UniqueKey)
	require.NoError(t, err)
	require.True(t, stored.RealizedPnl.Valid)
	assert.True(t, stored.RealizedPnl.Decimal.Equal(decimal.RequireFromString("9.36333333")), "realized %s", stored.RealizedPnl.Decimal)
}

func TestTrackerRebuildKeepsLinkedFills(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTrackerWithDB(db)
	ctx := context.Background()

	opening := storeAndApply(t, db, tracker, 1, fill(model.SideBuy, model.PosEffectToOpen, 100, "150", t0))
	closing := storeAndApply(t, db, tracker, 1, fill(model.SideSell, model.PosEffectToClose, 100, "154", t0.Add(time.Hour)))

	trade := &model.CompletedTrade{
		UserID:         1,
		Symbol:         "AAPL",
		InstrumentType: model.InstrumentTypeEquity,
		TotalQty:       100,
		TradeType:      model.TradeTypeLong,
		OpenedAt:       t0,
		ClosedAt:       t0.Add(time.Hour),
	}
	require.NoError(t, repository.NewCompletedTradeRepositoryWithDB(db).Create(ctx, trade))

	executions := repository.NewExecutionRepositoryWithDB(db)
	require.NoError(t, executions.LinkToCompletedTrade(ctx, 1, []uint{opening.ID, closing.ID}, trade.ID))

	// marker value to detect a rewrite
	require.NoError(t, db.Model(&model.Execution{}).Where("id = ?", closing.ID).
		Update("realized_pnl", decimal.NewFromInt(999)).Error)

	_, err := tracker.RebuildPositions(ctx, 1)
	require.NoError(t, err)

	stored, err := executions.FindByUniqueKey(ctx, 1, closing.UniqueKey)
	require.NoError(t, err)
	require.True(t, stored.RealizedPnl.Valid)
	assert.True(t, stored.RealizedPnl.Decimal.Equal(decimal.NewFromInt(999)), "realized %s", stored.RealizedPnl.Decimal)

	list, err := tracker.ListPositions(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(0), list[0].CurrentQty)
	assert.True(t, list[0].RealizedPnl.Equal(decimal.NewFromInt(400)))
}
