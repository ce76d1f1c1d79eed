package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

// Job is a unit of background work run on a cron schedule.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs jobs on cron schedules until stopped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.WithField("component", "Scheduler").Info("Scheduler started")
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.WithField("component", "Scheduler").Info("Scheduler stopped")
}

// AddJob registers job under a standard five-field or descriptor schedule,
// e.g. "*/5 * * * *" or "@every 5m".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"component": "Scheduler",
		"schedule":  schedule,
		"job":       job.Name(),
	}).Info("Job registered")

	return nil
}

// RunNow executes job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	logger.WithFields(logger.Fields{"component": "Scheduler", "job": job.Name()}).
		Info("Running job immediately")
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	log := logger.WithFields(logger.Fields{"component": "Scheduler", "job": job.Name()})
	log.Debug("Running job")

	if err := job.Run(s.ctx); err != nil {
		log.WithError(err).Error("Job failed")
		return
	}

	log.Debug("Job completed")
}
