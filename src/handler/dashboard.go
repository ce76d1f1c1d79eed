package handler

import (
	"context"
	"net/http"

	"tradejournal/src/dashboard"
	"tradejournal/src/utils"

	logger "github.com/sirupsen/logrus"
)

type DashboardGenerator interface {
	Generate(ctx context.Context, userID uint, filter dashboard.Filter) (*dashboard.Dashboard, error)
}

// DashboardHandler accepts ?range=YYYY-MM-DD,YYYY-MM-DD and ?symbol=.
func DashboardHandler(gen DashboardGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := userID(w, r)
		if !ok {
			return
		}

		start, end, err := utils.ParseDateRange(r.URL.Query().Get("range"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		out, err := gen.Generate(r.Context(), uid, dashboard.Filter{
			Start:  start,
			End:    end,
			Symbol: optionalString(r, "symbol"),
		})
		if err != nil {
			logger.WithError(err).WithField("user_id", uid).Error("failed to generate dashboard")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}
