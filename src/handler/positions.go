package handler

import (
	"context"
	"net/http"

	"tradejournal/src/model"
	"tradejournal/src/positions"

	logger "github.com/sirupsen/logrus"
)

type PositionService interface {
	ListPositions(ctx context.Context, userID uint, openOnly bool) ([]model.Position, error)
	RebuildPositions(ctx context.Context, userID uint) (*positions.RebuildResult, error)
}

type positionsResponse struct {
	Positions []model.Position   `json:"positions"`
	Summary   *positions.Summary `json:"summary"`
}

// ListPositionsHandler lists the user's positions. Pass open=true to hide
// flat ones.
func ListPositionsHandler(svc PositionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		openOnly := r.URL.Query().Get("open") == "true"

		list, err := svc.ListPositions(r.Context(), uid, openOnly)
		if err != nil {
			logger.WithError(err).WithField("user_id", uid).Error("failed to list positions")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, positionsResponse{
			Positions: list,
			Summary:   positions.Summarize(list),
		})
	}
}

func RebuildPositionsHandler(svc PositionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		result, err := svc.RebuildPositions(r.Context(), uid)
		if err != nil {
			logger.WithError(err).WithField("user_id", uid).Error("failed to rebuild positions")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
