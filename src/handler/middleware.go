package handler

import (
	"context"
	"errors"
	"net/http"

	"tradejournal/src/auth"
	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
)

const APIKeyHeader = "X-API-Key"

type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*model.User, error)
}

// RequireAPIKey resolves the X-API-Key header to a user and stores it in the
// request context.
func RequireAPIKey(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
			switch {
			case errors.Is(err, auth.ErrInvalidAPIKey):
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			case errors.Is(err, auth.ErrUserInactive):
				writeError(w, http.StatusForbidden, "user account is inactive")
				return
			case err != nil:
				logger.WithError(err).Error("api key authentication failed")
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
