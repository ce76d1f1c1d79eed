package dashboard

import (
	"context"
	"fmt"
	"time"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/positions"
	"tradejournal/src/repository"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Filter narrows the trades a dashboard is computed over.
type Filter struct {
	Start  *time.Time
	End    *time.Time
	Symbol *string
}

type Period struct {
	Start      *time.Time `json:"start_date"`
	End        *time.Time `json:"end_date"`
	Symbol     *string    `json:"symbol"`
	FirstTrade *time.Time `json:"first_trade,omitempty"`
	LastTrade  *time.Time `json:"last_trade,omitempty"`
}

// Dashboard is the full analytics payload for one user.
type Dashboard struct {
	Period          Period             `json:"period"`
	Message         string             `json:"message,omitempty"`
	CoreMetrics     *CoreMetrics       `json:"core_metrics,omitempty"`
	PatternAnalysis *PatternAnalysis   `json:"pattern_analysis,omitempty"`
	SessionAnalysis []SessionStats     `json:"session_analysis,omitempty"`
	EquityCurve     []EquityPoint      `json:"equity_curve,omitempty"`
	DailyPnl        []DailyPnl         `json:"daily_pnl,omitempty"`
	MaxDrawdown     *Drawdown          `json:"max_drawdown,omitempty"`
	Positions       *positions.Summary `json:"positions,omitempty"`
}

// Engine computes dashboards from completed trades and positions.
type Engine struct {
	db *gorm.DB
}

// NewEngine reads from the reporting replica when one is configured.
func NewEngine() *Engine {
	logger.WithField("component", "Dashboard").
		Info("Creating new dashboard engine with ReadOnlyDB")

	return &Engine{db: database.ReadOnlyDB}
}

func NewEngineWithDB(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Generate builds the dashboard of userID over filter.
func (e *Engine) Generate(ctx context.Context, userID uint, filter Filter) (*Dashboard, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	trades, err := repository.NewCompletedTradeRepositoryWithDB(e.db).Search(ctx, repository.CompletedTradeSearchOptions{
		UserID:       userID,
		Symbol:       filter.Symbol,
		ClosedAfter:  filter.Start,
		ClosedBefore: filter.End,
	})
	if err != nil {
		return nil, fmt.Errorf("load completed trades: %w", err)
	}

	out := &Dashboard{
		Period: Period{
			Start:  filter.Start,
			End:    filter.End,
			Symbol: filter.Symbol,
		},
	}

	if len(trades) == 0 {
		out.Message = "no completed trades found for the specified period"
		return out, nil
	}

	first := trades[0].ClosedAt
	last := trades[len(trades)-1].ClosedAt
	out.Period.FirstTrade = &first
	out.Period.LastTrade = &last

	out.CoreMetrics = CalculateCoreMetrics(trades)
	out.PatternAnalysis = CalculatePatternAnalysis(trades)
	out.SessionAnalysis = CalculateSessionAnalysis(trades)
	out.EquityCurve = CalculateEquityCurve(trades)
	out.DailyPnl = CalculateDailyPnl(trades)
	drawdown := CalculateMaxDrawdown(out.EquityCurve)
	out.MaxDrawdown = &drawdown

	list, err := repository.NewPositionRepositoryWithDB(e.db).Search(ctx, repository.PositionSearchOptions{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	out.Positions = positions.Summarize(list)

	logger.WithFields(logger.Fields{
		"component": "Dashboard",
		"user_id":   userID,
		"trades":    len(trades),
	}).Debug("dashboard generated")

	return out, nil
}
