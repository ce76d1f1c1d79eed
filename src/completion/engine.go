package completion

import (
	"context"
	"errors"
	"fmt"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/repository"
	"tradejournal/src/utils"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrTradeNotFound is returned when annotating a trade the user does not own.
var ErrTradeNotFound = errors.New("completed trade not found")

// Engine turns unlinked fills into completed trades.
type Engine struct {
	db *gorm.DB
}

// Result reports one completion scan.
type Result struct {
	CompletedTrades int    `json:"completed_trades"`
	TradeIDs        []uint `json:"trade_ids,omitempty"`
	Message         string `json:"message"`
}

func NewEngine() *Engine {
	logger.WithField("component", "TradeCompletion").
		Info("Creating new trade completion engine with MainDB")

	return &Engine{db: database.MainDB}
}

func NewEngineWithDB(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Process scans the user's unlinked fills, optionally for one symbol, and
// stores a completed trade for every closed cycle. The whole scan commits or
// rolls back as one unit.
func (e *Engine) Process(ctx context.Context, userID uint, symbol *string) (*Result, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	log := logger.WithFields(logger.Fields{
		"component": "TradeCompletion",
		"user_id":   userID,
	})
	if symbol != nil {
		log = log.WithField("symbol", *symbol)
	}

	result := &Result{}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		executions := repository.NewExecutionRepositoryWithDB(tx)
		trades := repository.NewCompletedTradeRepositoryWithDB(tx)

		fills, err := executions.FindUnlinkedFills(ctx, userID, symbol)
		if err != nil {
			return fmt.Errorf("load unlinked fills: %w", err)
		}

		for _, cycle := range DetectCycles(fills) {
			trade, err := BuildCompletedTrade(userID, cycle)
			if err != nil {
				log.WithError(err).
					WithField("symbol", cycle.Key.Symbol).
					WithField("fills", len(cycle.Fills)).
					Warn("malformed cycle skipped")
				continue
			}

			if err := trades.Create(ctx, trade); err != nil {
				return fmt.Errorf("store completed trade: %w", err)
			}

			ids := make([]uint, 0, len(cycle.Fills))
			for i := range cycle.Fills {
				ids = append(ids, cycle.Fills[i].ID)
			}

			if err := executions.LinkToCompletedTrade(ctx, userID, ids, trade.ID); err != nil {
				return fmt.Errorf("link fills to trade %d: %w", trade.ID, err)
			}

			result.CompletedTrades++
			result.TradeIDs = append(result.TradeIDs, trade.ID)
		}

		return nil
	})
	if err != nil {
		log.WithError(err).Error("completion scan rolled back")
		return nil, err
	}

	if result.CompletedTrades == 0 {
		result.Message = "no new completed trades"
	} else {
		result.Message = fmt.Sprintf("created %d completed trades", result.CompletedTrades)
	}

	log.WithField("completed_trades", result.CompletedTrades).Info(result.Message)

	return result, nil
}

// ListTrades returns the user's completed trades matching options. The user
// in options is always overridden by userID.
func (e *Engine) ListTrades(
	ctx context.Context,
	userID uint,
	options repository.CompletedTradeSearchOptions,
) ([]model.CompletedTrade, error) {

	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	options.UserID = userID
	return repository.NewCompletedTradeRepositoryWithDB(e.db).Search(ctx, options)
}

// GetTrade returns one completed trade with its fills.
func (e *Engine) GetTrade(ctx context.Context, userID, tradeID uint) (*model.CompletedTrade, error) {
	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	trade, err := repository.NewCompletedTradeRepositoryWithDB(e.db).FindByID(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, ErrTradeNotFound
	}

	return trade, nil
}

// Summary aggregates the user's completed trades, optionally for one symbol.
func (e *Engine) Summary(ctx context.Context, userID uint, symbol *string) (*Summary, error) {
	trades, err := e.ListTrades(ctx, userID, repository.CompletedTradeSearchOptions{Symbol: symbol})
	if err != nil {
		return nil, err
	}

	return Summarize(trades), nil
}

// Annotate sets the setup pattern and notes of a trade. Financial fields are
// never touched. A non-empty pattern is also registered for the user.
func (e *Engine) Annotate(
	ctx context.Context,
	userID uint,
	tradeID uint,
	setupPattern *string,
	notes *string,
) (*model.CompletedTrade, error) {

	if err := auth.CheckUserID(userID); err != nil {
		return nil, err
	}

	if setupPattern != nil {
		cleaned := utils.SanitizeText(*setupPattern)
		setupPattern = &cleaned
	}
	if notes != nil {
		cleaned := utils.SanitizeText(*notes)
		notes = &cleaned
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := repository.NewCompletedTradeRepositoryWithDB(tx).
			UpdateAnnotation(ctx, userID, tradeID, setupPattern, notes)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTradeNotFound
		}
		if err != nil {
			return err
		}

		if setupPattern != nil && *setupPattern != "" {
			if err := repository.NewSetupPatternRepositoryWithDB(tx).Ensure(ctx, userID, *setupPattern); err != nil {
				return fmt.Errorf("register setup pattern: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return e.GetTrade(ctx, userID, tradeID)
}
