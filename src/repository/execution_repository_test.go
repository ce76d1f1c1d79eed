package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"tradejournal/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionRepositorySearch(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &ExecutionRepository{db: mockDB}

	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	execRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "symbol", "side", "qty", "net_price", "exec_timestamp", "event_type"}).
			AddRow(1, 7, "AAPL", "BUY", 100, "150", ts, "fill").
			AddRow(2, 7, "AAPL", "SELL", 100, "160", ts.Add(time.Hour), "fill")
	}

	t.Run("unlinked fills for one symbol", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "executions" WHERE user_id = $1 AND event_type = $2 AND completed_trade_id IS NULL AND symbol = $3 ORDER BY exec_timestamp ASC, id ASC`)).
			WithArgs(uint(7), model.EventTypeFill, "AAPL").
			WillReturnRows(execRows())

		results, err := repo.FindUnlinkedFills(context.Background(), 7, ptrString("AAPL"))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, model.SideBuy, results[0].Side)
		assert.True(t, results[1].NetPrice.Equal(decimal.NewFromInt(160)))
	})

	t.Run("all fills with pagination", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "executions" WHERE user_id = $1 AND event_type = $2 ORDER BY exec_timestamp ASC, id ASC LIMIT $3`)).
			WithArgs(uint(7), model.EventTypeFill, 2).
			WillReturnRows(execRows())

		results, err := repo.Search(context.Background(), ExecutionSearchOptions{UserID: 7, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func newTestExecution(userID uint, key, side string, qty int64, price string, ts time.Time) *model.Execution {
	return &model.Execution{
		UserID:         userID,
		UniqueKey:      key,
		ExecTimestamp:  ts,
		EventType:      model.EventTypeFill,
		Symbol:         "AAPL",
		InstrumentType: model.InstrumentTypeEquity,
		Side:           side,
		Qty:            qty,
		PosEffect:      model.PosEffectToOpen,
		Price:          decimal.RequireFromString(price),
		NetPrice:       decimal.RequireFromString(price),
	}
}

func TestExecutionRepositoryUpsert(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewExecutionRepositoryWithDB(db)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	stored, created, err := repo.Upsert(ctx, newTestExecution(1, "f.json:1", model.SideBuy, 100, "150", ts))
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, stored.ID)

	again, created, err := repo.Upsert(ctx, newTestExecution(1, "f.json:1", model.SideBuy, 100, "150.5", ts))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.True(t, again.NetPrice.Equal(decimal.RequireFromString("150.5")))

	// same key for another user is a different row
	other, created, err := repo.Upsert(ctx, newTestExecution(2, "f.json:1", model.SideBuy, 100, "150", ts))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, stored.ID, other.ID)

	var count int64
	require.NoError(t, db.Model(&model.Execution{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestExecutionRepositoryLinkedFillsAreImmutable(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewExecutionRepositoryWithDB(db)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	stored, _, err := repo.Upsert(ctx, newTestExecution(1, "f.json:1", model.SideBuy, 100, "150", ts))
	require.NoError(t, err)

	require.NoError(t, repo.LinkToCompletedTrade(ctx, 1, []uint{stored.ID}, 42))

	// linking twice fails
	assert.Error(t, repo.LinkToCompletedTrade(ctx, 1, []uint{stored.ID}, 43))

	again, created, err := repo.Upsert(ctx, newTestExecution(1, "f.json:1", model.SideBuy, 100, "999", ts))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.NetPrice.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, again.CompletedTradeID)
	assert.Equal(t, uint(42), *again.CompletedTradeID)

	unlinked, err := repo.FindUnlinkedFills(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}
