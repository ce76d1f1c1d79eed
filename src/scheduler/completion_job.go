package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"tradejournal/src/completion"
	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type userLister interface {
	ListActive(ctx context.Context) ([]model.User, error)
}

type tradeProcessor interface {
	Process(ctx context.Context, userID uint, symbol *string) (*completion.Result, error)
}

// CompletionJob scans every active user for newly closed trade cycles.
type CompletionJob struct {
	users       userLister
	processor   tradeProcessor
	concurrency int

	lastCreated atomic.Int64
}

func NewCompletionJob(users userLister, processor tradeProcessor, concurrency int) *CompletionJob {
	if concurrency < 1 {
		concurrency = 1
	}

	return &CompletionJob{
		users:       users,
		processor:   processor,
		concurrency: concurrency,
	}
}

func (j *CompletionJob) Name() string {
	return "completion_scan"
}

// LastCreated is the number of trades created by the most recent run.
func (j *CompletionJob) LastCreated() int64 {
	return j.lastCreated.Load()
}

// Run processes users concurrently. A failing user does not stop the others;
// all per-user errors are combined into the returned error.
func (j *CompletionJob) Run(ctx context.Context) error {
	users, err := j.users.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	var (
		created atomic.Int64
		mu      sync.Mutex
		failed  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for i := range users {
		userID := users[i].ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := j.processor.Process(gctx, userID, nil)
			if err != nil {
				logger.WithFields(logger.Fields{
					"component": "CompletionJob",
					"user_id":   userID,
				}).WithError(err).Error("completion scan failed")

				mu.Lock()
				failed = multierr.Append(failed, fmt.Errorf("user %d: %w", userID, err))
				mu.Unlock()
				return nil
			}

			created.Add(int64(result.CompletedTrades))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	j.lastCreated.Store(created.Load())
	logger.WithFields(logger.Fields{
		"component": "CompletionJob",
		"users":     len(users),
		"created":   created.Load(),
	}).Info("completion scan finished")

	return failed
}
