package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tradejournal/src/completion"
	"tradejournal/src/model"
	"tradejournal/src/repository"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type TradeService interface {
	Process(ctx context.Context, userID uint, symbol *string) (*completion.Result, error)
	ListTrades(ctx context.Context, userID uint, options repository.CompletedTradeSearchOptions) ([]model.CompletedTrade, error)
	GetTrade(ctx context.Context, userID, tradeID uint) (*model.CompletedTrade, error)
	Annotate(ctx context.Context, userID, tradeID uint, setupPattern, notes *string) (*model.CompletedTrade, error)
}

type annotatePayload struct {
	SetupPattern *string `json:"setup_pattern"`
	TradeNotes   *string `json:"trade_notes"`
}

// ListTradesHandler lists completed trades with pagination and filters
// (symbol, closedFrom, closedTo, outcome=win|loss). format=csv streams CSV.
func ListTradesHandler(svc TradeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		closedFrom, ok := optionalTime(r, "closedFrom")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid closedFrom")
			return
		}
		closedTo, ok := optionalTime(r, "closedTo")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid closedTo")
			return
		}

		page, ok := positiveInt(r, "page", 1)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		pageSize, ok := positiveInt(r, "pageSize", 50)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid pageSize")
			return
		}

		options := repository.CompletedTradeSearchOptions{
			Symbol:       optionalString(r, "symbol"),
			ClosedAfter:  closedFrom,
			ClosedBefore: closedTo,
			Limit:        pageSize,
			Offset:       (page - 1) * pageSize,
		}

		switch r.URL.Query().Get("outcome") {
		case "":
		case "win":
			options.WinnersOnly = true
		case "loss":
			options.LosersOnly = true
		default:
			writeError(w, http.StatusBadRequest, "invalid outcome")
			return
		}

		trades, err := svc.ListTrades(r.Context(), uid, options)
		if err != nil {
			logger.WithError(err).WithField("user_id", uid).Error("failed to list completed trades")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="completed_trades.csv"`)
			if err := completion.WriteCSV(w, trades); err != nil {
				logger.WithError(err).Error("failed to write trades csv")
			}
			return
		}

		writeJSON(w, http.StatusOK, trades)
	}
}

func GetTradeHandler(svc TradeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		tradeID, ok := tradeIDParam(w, r)
		if !ok {
			return
		}

		trade, err := svc.GetTrade(r.Context(), uid, tradeID)
		if errors.Is(err, completion.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		if err != nil {
			logger.WithError(err).WithField("trade_id", tradeID).Error("failed to load trade")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, trade)
	}
}

// ProcessTradesHandler runs a completion scan, optionally for ?symbol=.
func ProcessTradesHandler(svc TradeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		result, err := svc.Process(r.Context(), uid, optionalString(r, "symbol"))
		if err != nil {
			logger.WithError(err).WithField("user_id", uid).Error("completion scan failed")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// AnnotateTradeHandler updates setup pattern and notes only.
func AnnotateTradeHandler(svc TradeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		tradeID, ok := tradeIDParam(w, r)
		if !ok {
			return
		}

		var payload annotatePayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid annotation payload")
			writeError(w, http.StatusBadRequest, "Invalid payload")
			return
		}

		trade, err := svc.Annotate(r.Context(), uid, tradeID, payload.SetupPattern, payload.TradeNotes)
		if errors.Is(err, completion.ErrTradeNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		if err != nil {
			logger.WithError(err).WithField("trade_id", tradeID).Error("failed to annotate trade")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, trade)
	}
}

func tradeIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return 0, false
	}
	return uint(id), true
}
