package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"tradejournal/src/auth"
	"tradejournal/src/completion"

	"github.com/gobwas/glob"
	logger "github.com/sirupsen/logrus"
)

// BatchResult summarizes ProcessBatch.
type BatchResult struct {
	FilesProcessed        int                `json:"files_processed"`
	FilesFailed           int                `json:"files_failed"`
	TotalRecordsProcessed int                `json:"total_records_processed"`
	TotalRecordsFailed    int                `json:"total_records_failed"`
	Results               []FileResult       `json:"results"`
	DryRun                bool               `json:"dry_run"`
	Completion            *completion.Result `json:"completion,omitempty"`
}

// FindFiles expands pattern into a sorted list of files. "*" stays inside a
// directory, "**" crosses directories. Relative patterns start at DataDir.
func (i *Ingester) FindFiles(pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(i.config.DataDir, pattern)
	}
	pattern = filepath.ToSlash(filepath.Clean(pattern))

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	root := staticRoot(pattern)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if matcher.Match(filepath.ToSlash(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// staticRoot is the longest directory prefix of pattern without wildcards.
func staticRoot(pattern string) string {
	parts := strings.Split(pattern, "/")
	var static []string
	for _, part := range parts[:len(parts)-1] {
		if strings.ContainsAny(part, "*?[{") {
			break
		}
		static = append(static, part)
	}

	root := strings.Join(static, "/")
	switch {
	case root == "" && strings.HasPrefix(pattern, "/"):
		return "/"
	case root == "":
		return "."
	default:
		return filepath.FromSlash(root)
	}
}

// ProcessBatch ingests every file matching pattern in name order. A failing
// file does not stop the batch. With AutoComplete enabled the completion
// engine runs once at the end.
func (i *Ingester) ProcessBatch(ctx context.Context, userID uint, pattern string, opts Options) (*BatchResult, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	files, err := i.FindFiles(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIngestion, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files found matching pattern %s", ErrIngestion, pattern)
	}

	log := logger.WithFields(logger.Fields{
		"component": "Ingester",
		"user_id":   userID,
		"pattern":   pattern,
	})
	log.WithField("files", len(files)).Info("processing batch")

	batch := &BatchResult{DryRun: opts.DryRun}

	for _, path := range files {
		result, err := i.ProcessFile(ctx, userID, path, opts)
		if err != nil {
			if result == nil {
				result = &FileResult{FilePath: path, DryRun: opts.DryRun, Error: err.Error()}
			}
			batch.Results = append(batch.Results, *result)
			batch.FilesFailed++
			continue
		}

		batch.Results = append(batch.Results, *result)
		batch.TotalRecordsProcessed += result.RecordsProcessed
		batch.TotalRecordsFailed += result.RecordsFailed
		if result.Success {
			batch.FilesProcessed++
		} else {
			batch.FilesFailed++
		}
	}

	if i.config.AutoComplete && !opts.DryRun {
		completed, err := i.engine.Process(ctx, userID, nil)
		if err != nil {
			return batch, fmt.Errorf("complete trades after batch: %w", err)
		}
		batch.Completion = completed
	}

	log.WithFields(logger.Fields{
		"files_processed": batch.FilesProcessed,
		"files_failed":    batch.FilesFailed,
		"records":         batch.TotalRecordsProcessed,
	}).Info("batch complete")

	return batch, nil
}
