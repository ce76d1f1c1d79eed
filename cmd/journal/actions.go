package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"tradejournal/src/auth"
	"tradejournal/src/completion"
	"tradejournal/src/dashboard"
	"tradejournal/src/ingestion"
	"tradejournal/src/model"
	"tradejournal/src/positions"
	"tradejournal/src/repository"
	"tradejournal/src/utils"

	"github.com/dustin/go-humanize"
	logger "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// session connects to the database and resolves the acting user.
func session(c *cli.Context) (context.Context, *model.User, error) {
	if err := Connect(); err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	user, err := ResolveUser(ctx, c.GlobalString("api-key"))
	if err != nil {
		return nil, nil, err
	}

	return auth.WithUser(ctx, user), user, nil
}

func optional(c *cli.Context, name string) *string {
	if v := strings.TrimSpace(c.String(name)); v != "" {
		return &v
	}
	return nil
}

func ServeAction(_ *cli.Context) error {
	logger.Info("Starting journal API")
	if err := Connect(); err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		return err
	}
	return Serve()
}

func IngestAction(c *cli.Context) error {
	pattern := c.Args().First()
	if pattern == "" {
		return cli.NewExitError("usage: ingest <file or glob pattern>", 2)
	}

	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	result, err := ingestion.NewIngester().ProcessBatch(ctx, user.ID, pattern, ingestion.Options{
		DryRun:  c.Bool("dry-run"),
		Verbose: c.Bool("verbose"),
	})
	if err != nil && result == nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		if rerr := Render(os.Stdout, format, result); rerr != nil {
			return rerr
		}
	} else {
		PrintIngestion(os.Stdout, result)
	}

	if err != nil {
		return err
	}
	if result.FilesFailed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d file(s) failed", result.FilesFailed), 1)
	}
	return nil
}

func ProcessTradesAction(c *cli.Context) error {
	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	result, err := completion.NewEngine().Process(ctx, user.ID, optional(c, "symbol"))
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, result)
	}
	fmt.Println(result.Message)
	return nil
}

func RebuildPositionsAction(c *cli.Context) error {
	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	result, err := positions.NewTracker().RebuildPositions(ctx, user.ID)
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, result)
	}
	fmt.Printf("Replayed %s fills into %d positions (%d open)\n",
		humanize.Comma(int64(result.FillsApplied)), result.Positions, result.OpenPositions)
	return nil
}

func PositionsAction(c *cli.Context) error {
	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	list, err := positions.NewTracker().ListPositions(ctx, user.ID, c.Bool("open"))
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, list)
	}
	if err := PrintPositions(os.Stdout, list); err != nil {
		return err
	}
	PrintPositionSummary(os.Stdout, positions.Summarize(list))
	return nil
}

func TradesAction(c *cli.Context) error {
	start, end, err := utils.ParseDateRange(c.String("range"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	if c.Bool("winners") && c.Bool("losers") {
		return cli.NewExitError("--winners and --losers are exclusive", 2)
	}

	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	trades, err := completion.NewEngine().ListTrades(ctx, user.ID, repository.CompletedTradeSearchOptions{
		Symbol:       optional(c, "symbol"),
		ClosedAfter:  start,
		ClosedBefore: end,
		WinnersOnly:  c.Bool("winners"),
		LosersOnly:   c.Bool("losers"),
		Limit:        c.Int("limit"),
	})
	if err != nil {
		return err
	}

	switch format := c.GlobalString("format"); format {
	case FormatTable:
		return PrintTrades(os.Stdout, trades)
	case FormatCSV:
		return PrintTradesCSV(os.Stdout, trades)
	default:
		return Render(os.Stdout, format, trades)
	}
}

func AnnotateAction(c *cli.Context) error {
	tradeID := c.Uint("id")
	if tradeID == 0 {
		return cli.NewExitError("--id is required", 2)
	}

	var pattern, notes *string
	if c.IsSet("pattern") {
		v := c.String("pattern")
		pattern = &v
	}
	if c.IsSet("notes") {
		v := c.String("notes")
		notes = &v
	}
	if pattern == nil && notes == nil {
		return cli.NewExitError("nothing to update: pass --pattern and/or --notes", 2)
	}

	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	trade, err := completion.NewEngine().Annotate(ctx, user.ID, tradeID, pattern, notes)
	if errors.Is(err, completion.ErrTradeNotFound) {
		return cli.NewExitError(fmt.Sprintf("trade %d not found", tradeID), 1)
	}
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, trade)
	}
	return PrintTrades(os.Stdout, []model.CompletedTrade{*trade})
}

func DashboardAction(c *cli.Context) error {
	start, end, err := utils.ParseDateRange(c.String("range"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	out, err := dashboard.NewEngine().Generate(ctx, user.ID, dashboard.Filter{
		Start:  start,
		End:    end,
		Symbol: optional(c, "symbol"),
	})
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, out)
	}
	PrintDashboard(os.Stdout, out)
	return nil
}

func LogsAction(c *cli.Context) error {
	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	entries, err := repository.NewProcessingLogRepository().ListByUser(ctx, user.ID, c.Int("limit"))
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, entries)
	}
	for _, e := range entries {
		fmt.Printf("%-10s %s  %s  processed=%d failed=%d %s\n",
			e.Status, humanize.Time(e.StartedAt), e.FilePath, e.RecordsProcessed, e.RecordsFailed, e.ErrorMessage)
	}
	return nil
}

// CreateUserAction registers a user and prints its API key once.
func CreateUserAction(c *cli.Context) error {
	username := strings.TrimSpace(c.String("username"))
	if username == "" {
		return cli.NewExitError("--username is required", 2)
	}

	if err := Connect(); err != nil {
		return err
	}
	ctx := context.Background()
	users := repository.NewUserRepository()

	existing, err := users.GetUserByUserName(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return cli.NewExitError(fmt.Sprintf("user %q already exists", username), 1)
	}

	apiKey, hash, err := newAPIKey()
	if err != nil {
		return err
	}

	user := &model.User{
		Username:   username,
		Email:      strings.TrimSpace(c.String("email")),
		APIKeyHash: hash,
		AuthMethod: model.AuthMethodAPIKey,
		IsActive:   true,
		IsAdmin:    c.Bool("admin"),
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
	fmt.Printf("API key (shown once): %s\n", apiKey)
	return nil
}

func RotateKeyAction(c *cli.Context) error {
	username := strings.TrimSpace(c.String("username"))
	if username == "" {
		return cli.NewExitError("--username is required", 2)
	}

	if err := Connect(); err != nil {
		return err
	}
	ctx := context.Background()
	users := repository.NewUserRepository()

	user, err := users.GetUserByUserName(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return cli.NewExitError(fmt.Sprintf("user %q not found", username), 1)
	}

	apiKey, hash, err := newAPIKey()
	if err != nil {
		return err
	}
	if err := users.SetAPIKeyHash(ctx, user.ID, hash); err != nil {
		return err
	}

	fmt.Printf("New API key for %s (shown once): %s\n", user.Username, apiKey)
	return nil
}

// PurgeAction deletes all journal data of the acting user. The account stays.
func PurgeAction(c *cli.Context) error {
	if !c.Bool("yes") {
		return cli.NewExitError("refusing to purge without --yes", 2)
	}

	ctx, user, err := session(c)
	if err != nil {
		return err
	}

	result, err := repository.NewUserRepository().PurgeUserData(ctx, user.ID)
	if err != nil {
		return err
	}

	if format := c.GlobalString("format"); format != FormatTable {
		return Render(os.Stdout, format, result)
	}
	fmt.Printf("Purged %s executions, %d positions, %d completed trades, %d processing logs, %d setup patterns\n",
		humanize.Comma(result.Executions), result.Positions, result.CompletedTrades, result.ProcessingLogs, result.SetupPatterns)
	return nil
}

func newAPIKey() (string, string, error) {
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return "", "", err
	}
	hash, err := auth.HashAPIKey(apiKey)
	if err != nil {
		return "", "", err
	}
	return apiKey, hash, nil
}
