package main

import (
	"fmt"
	"os"

	"tradejournal/cmd/journal"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

var Version string

func main() {
	// optional; real environment variables win
	_ = godotenv.Load()
	journal.SetupLogger(journal.GetConfig())

	app := cli.NewApp()
	app.Name = "journal"
	app.Usage = "The trading journal command line interface"
	app.Version = Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "api-key",
			Usage:  "API key of the acting user",
			EnvVar: "TJ_API_KEY",
		},
		cli.StringFlag{
			Name:  "format",
			Usage: "output format: table, json, yaml (trades also csv)",
			Value: journal.FormatTable,
		},
	}

	app.Commands = []cli.Command{
		serveCMD,
		ingestCMD,
		processTradesCMD,
		rebuildPositionsCMD,
		positionsCMD,
		tradesCMD,
		annotateCMD,
		dashboardCMD,
		logsCMD,
		createUserCMD,
		rotateKeyCMD,
		purgeCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rangeFlag = cli.StringFlag{
	Name:  "range",
	Usage: "closing date range YYYY-MM-DD,YYYY-MM-DD (either side may be empty)",
}

var symbolFlag = cli.StringFlag{
	Name:  "symbol",
	Usage: "restrict to one underlying symbol",
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API",
		Action:      journal.ServeAction,
		Description: `Serve the journal API and run scheduled completion scans`,
	}
	ingestCMD = cli.Command{
		Name:      "ingest",
		Usage:     "load NDJSON statement files",
		Action:    journal.IngestAction,
		ArgsUsage: "<file or glob pattern>",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "dry-run", Usage: "validate without writing"},
			cli.BoolFlag{Name: "verbose", Usage: "log skipped records"},
		},
		Description: `Ingest converted statement files, update positions and detect completed trades`,
	}
	processTradesCMD = cli.Command{
		Name:        "process-trades",
		Usage:       "detect newly completed trades",
		Action:      journal.ProcessTradesAction,
		Flags:       []cli.Flag{symbolFlag},
		Description: `Group unlinked fills into completed round trips`,
	}
	rebuildPositionsCMD = cli.Command{
		Name:        "rebuild-positions",
		Usage:       "recompute positions from stored fills",
		Action:      journal.RebuildPositionsAction,
		Description: `Discard positions and replay every fill in time order`,
	}
	positionsCMD = cli.Command{
		Name:   "positions",
		Usage:  "list positions",
		Action: journal.PositionsAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "open", Usage: "only positions with exposure"},
		},
	}
	tradesCMD = cli.Command{
		Name:   "trades",
		Usage:  "list completed trades",
		Action: journal.TradesAction,
		Flags: []cli.Flag{
			symbolFlag,
			rangeFlag,
			cli.BoolFlag{Name: "winners", Usage: "only winning trades"},
			cli.BoolFlag{Name: "losers", Usage: "only losing trades"},
			cli.IntFlag{Name: "limit", Usage: "maximum number of trades"},
		},
	}
	annotateCMD = cli.Command{
		Name:   "annotate",
		Usage:  "set setup pattern and notes of a completed trade",
		Action: journal.AnnotateAction,
		Flags: []cli.Flag{
			cli.UintFlag{Name: "id", Usage: "completed trade id"},
			cli.StringFlag{Name: "pattern", Usage: "setup pattern"},
			cli.StringFlag{Name: "notes", Usage: "free-form notes"},
		},
	}
	dashboardCMD = cli.Command{
		Name:   "dashboard",
		Usage:  "show performance metrics",
		Action: journal.DashboardAction,
		Flags:  []cli.Flag{symbolFlag, rangeFlag},
	}
	logsCMD = cli.Command{
		Name:   "logs",
		Usage:  "show recent ingestion runs",
		Action: journal.LogsAction,
		Flags: []cli.Flag{
			cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs"},
		},
	}
	createUserCMD = cli.Command{
		Name:   "create-user",
		Usage:  "register a user and issue an API key",
		Action: journal.CreateUserAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "username"},
			cli.StringFlag{Name: "email"},
			cli.BoolFlag{Name: "admin"},
		},
	}
	rotateKeyCMD = cli.Command{
		Name:   "rotate-key",
		Usage:  "issue a new API key for a user",
		Action: journal.RotateKeyAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "username"},
		},
	}
	purgeCMD = cli.Command{
		Name:   "purge",
		Usage:  "delete all journal data of the acting user",
		Action: journal.PurgeAction,
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "yes", Usage: "confirm deletion"},
		},
	}
)
