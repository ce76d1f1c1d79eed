package journal

import (
	"tradejournal/src/auth"
	"tradejournal/src/completion"
	"tradejournal/src/dashboard"
	"tradejournal/src/positions"
	"tradejournal/src/repository"
	"tradejournal/src/scheduler"
	"tradejournal/src/server"

	logger "github.com/sirupsen/logrus"
)

// Serve runs the HTTP API and the periodic completion scan until a
// shutdown signal arrives. The databases must already be connected.
func Serve() error {
	users := repository.NewUserRepository()
	engine := completion.NewEngine()

	cfg := server.GetConfig()
	router := server.NewRouter(cfg, server.Services{
		Auth:      auth.NewAuthenticator(users),
		Positions: positions.NewTracker(),
		Trades:    engine,
		Dashboard: dashboard.NewEngine(),
	})

	schedCfg := scheduler.GetConfig()
	var sched *scheduler.Scheduler
	if schedCfg.Enabled {
		sched = scheduler.New()
		job := scheduler.NewCompletionJob(users, engine, schedCfg.Concurrency)
		if err := sched.AddJob(schedCfg.CompletionSchedule, job); err != nil {
			return err
		}
		sched.Start()
	} else {
		logger.Info("completion scheduler disabled")
	}

	server.StartServer(cfg, router, func() {
		if sched != nil {
			sched.Stop()
		}
	})

	return nil
}
