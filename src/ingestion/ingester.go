package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"tradejournal/src/auth"
	"tradejournal/src/completion"
	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/positions"
	"tradejournal/src/repository"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrIngestion wraps file level failures. Invalid rows are counted instead.
var ErrIngestion = errors.New("ingestion failed")

// Options tune one ingestion call.
type Options struct {
	DryRun  bool
	Verbose bool
}

// FileResult summarizes the ingestion of one file.
type FileResult struct {
	RunID             string   `json:"run_id"`
	FilePath          string   `json:"file_path"`
	RecordsProcessed  int      `json:"records_processed"`
	RecordsFailed     int      `json:"records_failed"`
	RecordsSkipped    int      `json:"records_skipped"`
	ExecutionsCreated int      `json:"executions_created"`
	ValidationErrors  []string `json:"validation_errors,omitempty"`
	Success           bool     `json:"success"`
	DryRun            bool     `json:"dry_run"`
	Error             string   `json:"error,omitempty"`
}

// Ingester loads converted statements into the journal of one user.
type Ingester struct {
	db      *gorm.DB
	tracker *positions.Tracker
	engine  *completion.Engine
	config  Config
	loc     *time.Location
}

func NewIngester() *Ingester {
	return NewIngesterWithDB(database.MainDB, GetConfig())
}

func NewIngesterWithDB(db *gorm.DB, config Config) *Ingester {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		logger.WithError(err).WithField("timezone", config.Timezone).Warn("unknown timezone, using UTC")
		loc = time.UTC
	}

	if config.MaxLineBytes <= 0 {
		config.MaxLineBytes = 1 << 20
	}

	return &Ingester{
		db:      db,
		tracker: positions.NewTrackerWithDB(db),
		engine:  completion.NewEngineWithDB(db),
		config:  config,
		loc:     loc,
	}
}

// ProcessFile ingests one NDJSON file.
func (i *Ingester) ProcessFile(ctx context.Context, userID uint, path string, opts Options) (*FileResult, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIngestion, path, err)
	}
	defer f.Close()

	return i.ProcessReader(ctx, userID, path, f, opts)
}

// ProcessReader ingests NDJSON read from r; name is recorded as the source.
// Valid fills are upserted and newly stored ones are applied to positions.
func (i *Ingester) ProcessReader(
	ctx context.Context,
	userID uint,
	name string,
	r io.Reader,
	opts Options,
) (*FileResult, error) {

	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	log := logger.WithFields(logger.Fields{
		"component": "Ingester",
		"user_id":   userID,
		"file":      name,
	})

	result := &FileResult{
		RunID:    uuid.NewString(),
		FilePath: name,
		DryRun:   opts.DryRun,
	}

	logs := repository.NewProcessingLogRepositoryWithDB(i.db)
	entry := &model.ProcessingLog{
		RunID:     result.RunID,
		UserID:    userID,
		FilePath:  name,
		StartedAt: time.Now().UTC(),
		Status:    model.ProcessingStatusProcessing,
	}

	if !opts.DryRun {
		if err := logs.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("create processing log: %w", err)
		}
	}

	err := i.process(ctx, userID, name, r, opts, result, log)

	now := time.Now().UTC()
	entry.CompletedAt = &now
	entry.RecordsProcessed = result.RecordsProcessed
	entry.RecordsFailed = result.RecordsFailed

	switch {
	case err != nil:
		entry.Status = model.ProcessingStatusFailed
		entry.ErrorMessage = err.Error()
	case result.RecordsFailed > 0:
		entry.Status = model.ProcessingStatusPartial
	default:
		entry.Status = model.ProcessingStatusCompleted
	}

	if !opts.DryRun {
		if finishErr := logs.Finish(ctx, entry); finishErr != nil {
			log.WithError(finishErr).Error("failed to finish processing log")
		}
	}

	if err != nil {
		log.WithError(err).Error("file processing failed")
		result.Error = err.Error()
		return result, fmt.Errorf("%w: %s: %v", ErrIngestion, name, err)
	}

	result.Success = result.RecordsFailed == 0

	log.WithFields(logger.Fields{
		"run_id":    result.RunID,
		"processed": result.RecordsProcessed,
		"failed":    result.RecordsFailed,
		"created":   result.ExecutionsCreated,
		"dry_run":   opts.DryRun,
	}).Info("file processed")

	return result, nil
}

func (i *Ingester) process(
	ctx context.Context,
	userID uint,
	name string,
	r io.Reader,
	opts Options,
	result *FileResult,
	log *logger.Entry,
) error {

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), i.config.MaxLineBytes)

	var fills []*model.Execution
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("invalid JSON on line %d: %w", lineNum, err)
		}

		if err := record.Validate(); err != nil {
			i.recordFailure(result, record, err, log)
			continue
		}

		if record.IsSectionHeader() {
			result.RecordsSkipped++
			if opts.Verbose {
				log.WithField("section", record.Section).Debug("section header skipped")
			}
			continue
		}

		if !record.IsFill() {
			result.RecordsSkipped++
			if opts.Verbose {
				log.WithField("event_type", record.EventType).Debug("non-fill record skipped")
			}
			continue
		}

		exec, err := record.ToExecution(userID, name, i.loc)
		if err != nil {
			i.recordFailure(result, record, err, log)
			continue
		}

		fills = append(fills, exec)
		result.RecordsProcessed++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	if opts.DryRun {
		return nil
	}

	// average cost only holds when fills are applied in time order
	sort.SliceStable(fills, func(a, b int) bool {
		if !fills[a].ExecTimestamp.Equal(fills[b].ExecTimestamp) {
			return fills[a].ExecTimestamp.Before(fills[b].ExecTimestamp)
		}
		return fills[a].SourceRow < fills[b].SourceRow
	})

	for _, exec := range fills {
		created, err := i.storeFill(ctx, userID, exec)
		if err != nil {
			return err
		}
		if created {
			result.ExecutionsCreated++
		}
	}

	return nil
}

// storeFill upserts one fill and, when it is new, applies it to its
// position in the same transaction. A failed position update leaves no
// stored row behind, so re-ingesting the file retries it.
func (i *Ingester) storeFill(ctx context.Context, userID uint, exec *model.Execution) (bool, error) {
	var created bool

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, isNew, err := repository.NewExecutionRepositoryWithDB(tx).Upsert(ctx, exec)
		if err != nil {
			return fmt.Errorf("store execution %s: %w", exec.UniqueKey, err)
		}

		// re-ingested fills are already reflected in the position
		if !isNew {
			return nil
		}

		if _, err := i.tracker.ApplyFillTx(ctx, tx, userID, stored); err != nil {
			return fmt.Errorf("apply fill %d: %w", stored.ID, err)
		}

		created = true
		return nil
	})

	return created, err
}

func (i *Ingester) recordFailure(result *FileResult, record Record, err error, log *logger.Entry) {
	result.RecordsFailed++
	msg := fmt.Sprintf("row %d: %v", record.RowIndex, err)
	result.ValidationErrors = append(result.ValidationErrors, msg)
	log.Warn("validation error: " + msg)
}
