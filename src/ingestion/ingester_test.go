package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

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

const statement = `{"section":"Filled Orders","row_index":0,"raw":"Filled Orders","issues":["section_header"]}
{"section":"Filled Orders","row_index":1,"raw":"r1","exec_time":"2024-01-02T09:30:00","side":"BUY","qty":100,"pos_effect":"TO OPEN","symbol":"AAPL","price":150,"net_price":150,"event_type":"fill","asset_type":"STOCK"}

{"section":"Canceled Orders","row_index":2,"raw":"r2","time_canceled":"2024-01-02T09:31:00","side":"BUY","qty":5,"symbol":"MSFT","event_type":"cancel"}
{"section":"Filled Orders","row_index":3,"raw":"r3","exec_time":"2024-01-02T15:00:00","side":"SELL","qty":-100,"pos_effect":"TO CLOSE","symbol":"AAPL","price":160,"net_price":160,"event_type":"fill","asset_type":"STOCK"}
{"section":"Filled Orders","row_index":4,"raw":"r4","exec_time":"2024-01-02T15:00:00","side":"HOLD","qty":1,"symbol":"AAPL"}
`

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

func newTestIngester(db *gorm.DB, dataDir string) *Ingester {
	return NewIngesterWithDB(db, Config{
		AutoComplete: true,
		Timezone:     "UTC",
		MaxLineBytes: 1 << 20,
		DataDir:      dataDir,
	})
}

func TestProcessReaderStoresFillsAndPositions(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	result, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, 1, result.RecordsFailed)
	assert.Equal(t, 2, result.RecordsSkipped)
	assert.Equal(t, 2, result.ExecutionsCreated)
	assert.False(t, result.Success)
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0], "row 4")

	fills, err := repository.NewExecutionRepositoryWithDB(db).FindFills(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	require.True(t, fills[1].RealizedPnl.Valid)
	assert.True(t, fills[1].RealizedPnl.Decimal.Equal(decimal.NewFromInt(1000)))

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(0), pos.CurrentQty)
	assert.True(t, pos.RealizedPnl.Equal(decimal.NewFromInt(1000)))

	logs, err := repository.NewProcessingLogRepositoryWithDB(db).ListByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ProcessingStatusPartial, logs[0].Status)
	assert.Equal(t, result.RunID, logs[0].RunID)
	assert.NotNil(t, logs[0].CompletedAt)
}

func TestProcessReaderIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	_, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{})
	require.NoError(t, err)

	again, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.ExecutionsCreated)

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	assert.True(t, pos.RealizedPnl.Equal(decimal.NewFromInt(1000)), "realized %s", pos.RealizedPnl)

	var count int64
	require.NoError(t, db.Model(&model.Execution{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestProcessReaderDryRun(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	result, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, 0, result.ExecutionsCreated)

	var executions, logs int64
	require.NoError(t, db.Model(&model.Execution{}).Count(&executions).Error)
	require.NoError(t, db.Model(&model.ProcessingLog{}).Count(&logs).Error)
	assert.Zero(t, executions)
	assert.Zero(t, logs)
}

func TestProcessReaderInvalidJSON(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	_, err := ingester.ProcessReader(ctx, 1, "broken.ndjson", strings.NewReader("{\"row_index\":1}\n{not json\n"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIngestion))
	assert.Contains(t, err.Error(), "line 2")

	logs, err := repository.NewProcessingLogRepositoryWithDB(db).ListByUser(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ProcessingStatusFailed, logs[0].Status)
	assert.NotEmpty(t, logs[0].ErrorMessage)
}

func TestProcessFileRequiresUser(t *testing.T) {
	ingester := newTestIngester(newTestDB(t), t.TempDir())

	_, err := ingester.ProcessFile(context.Background(), 0, "missing.ndjson", Options{})
	assert.True(t, errors.Is(err, auth.ErrUnauthorized))
}

func TestProcessBatchCompletesTrades(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	ingester := newTestIngester(db, dir)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2024", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "01", "a.ndjson"), []byte(statement), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024", "01", "b.ndjson"), []byte("{bad\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	files, err := ingester.FindFiles("**/*.ndjson")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, strings.HasSuffix(files[0], "a.ndjson"))

	batch, err := ingester.ProcessBatch(ctx, 1, "**/*.ndjson", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.FilesFailed) // one partial, one broken
	assert.Equal(t, 2, batch.TotalRecordsProcessed)
	require.NotNil(t, batch.Completion)
	assert.Equal(t, 1, batch.Completion.CompletedTrades)

	_, err = ingester.ProcessBatch(ctx, 1, "*.csv", Options{})
	assert.True(t, errors.Is(err, ErrIngestion))
}

func TestStaticRoot(t *testing.T) {
	assert.Equal(t, "data/2024", staticRoot("data/2024/*/x.ndjson"))
	assert.Equal(t, ".", staticRoot("*.ndjson"))
	assert.Equal(t, "/", staticRoot("/**/x"))
	assert.Equal(t, filepath.FromSlash("/tmp/in"), staticRoot("/tmp/in/*.ndjson"))
}

const newestFirstStatement = `{"section":"Filled Orders","row_index":1,"raw":"r1","exec_time":"2024-01-16T10:00:00","side":"SELL","qty":-100,"pos_effect":"TO CLOSE","symbol":"AAPL","price":160,"net_price":160,"event_type":"fill","asset_type":"STOCK"}
{"section":"Filled Orders","row_index":2,"raw":"r2","exec_time":"2024-01-15T10:00:00","side":"BUY","qty":100,"pos_effect":"TO OPEN","symbol":"AAPL","price":150,"net_price":150,"event_type":"fill","asset_type":"STOCK"}
`

func TestProcessReaderAppliesFillsInTimeOrder(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	result, err := ingester.ProcessReader(ctx, 1, "newest-first.ndjson", strings.NewReader(newestFirstStatement), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExecutionsCreated)

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(0), pos.CurrentQty)
	assert.True(t, pos.RealizedPnl.Equal(decimal.NewFromInt(1000)), "realized %s", pos.RealizedPnl)
	assert.NotNil(t, pos.ClosedAt)
}

func TestProcessReaderRollsBackFillWhenPositionWriteFails(t *testing.T) {
	db := newTestDB(t)
	ingester := newTestIngester(db, t.TempDir())
	ctx := context.Background()

	failPositions := true
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_positions", func(tx *gorm.DB) {
		if failPositions && tx.Statement.Table == "positions" {
			failPositions = false
			tx.AddError(errors.New("positions storage down"))
		}
	}))

	_, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIngestion))
	assert.ErrorContains(t, err, "positions storage down")

	var count int64
	require.NoError(t, db.Model(&model.Execution{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	retry, err := ingester.ProcessReader(ctx, 1, "stmt.ndjson", strings.NewReader(statement), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, retry.ExecutionsCreated)

	pos, err := repository.NewPositionRepositoryWithDB(db).FindByIdentity(ctx, 1, "AAPL", model.InstrumentTypeEquity, "")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, int64(0), pos.CurrentQty)
	assert.True(t, pos.RealizedPnl.Equal(decimal.NewFromInt(1000)), "realized %s", pos.RealizedPnl)

	logs, err := repository.NewProcessingLogRepositoryWithDB(db).ListByUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	statuses := []string{logs[0].Status, logs[1].Status}
	assert.Contains(t, statuses, model.ProcessingStatusFailed)
}
