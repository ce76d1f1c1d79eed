package repository

import (
	"context"
	"testing"

	"tradejournal/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRepositoryUpsertUpdatesInPlace(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPositionRepositoryWithDB(db)
	ctx := context.Background()

	missing, err := repo.FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	assert.Nil(t, missing)

	pos := &model.Position{
		UserID:         1,
		Symbol:         "AAPL",
		InstrumentType: model.InstrumentTypeEquity,
		CurrentQty:     100,
		AvgCostBasis:   decimal.NewFromInt(150),
		TotalCost:      decimal.NewFromInt(15000),
		RealizedPnl:    decimal.Zero,
	}
	require.NoError(t, repo.Upsert(ctx, pos))

	loaded, err := repo.FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	loaded.CurrentQty = 0
	loaded.AvgCostBasis = decimal.Zero
	loaded.TotalCost = decimal.Zero
	loaded.RealizedPnl = decimal.NewFromInt(1000)
	require.NoError(t, repo.Upsert(ctx, loaded))

	var count int64
	require.NoError(t, db.Model(&model.Position{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	again, err := repo.FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	assert.Equal(t, loaded.ID, again.ID)
	assert.Equal(t, int64(0), again.CurrentQty)
	assert.True(t, again.RealizedPnl.Equal(decimal.NewFromInt(1000)))

	open, err := repo.Search(ctx, PositionSearchOptions{UserID: 1, OpenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, open)
}
