package auth

import (
	"context"
	"errors"

	"tradejournal/src/model"
)

type contextKey string

const UserKey contextKey = "user"

// ErrUnauthorized is returned when an operation scoped to a user runs
// without one.
var ErrUnauthorized = errors.New("no authenticated user")

func GetUserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// RequireUserID returns the id of the authenticated user or ErrUnauthorized.
func RequireUserID(ctx context.Context) (uint, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil || user.ID == 0 {
		return 0, ErrUnauthorized
	}
	return user.ID, nil
}

// CheckUserID guards operations that receive the acting user explicitly.
func CheckUserID(userID uint) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	return nil
}
