package journal

import (
	"context"
	"errors"
	"fmt"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/model"
	"tradejournal/src/repository"

	logger "github.com/sirupsen/logrus"
)

var ErrMissingAPIKey = errors.New("an API key is required: pass --api-key or set TJ_API_KEY")

// Connect opens the main and reporting connections.
func Connect() error {
	if err := database.InitMainDB(); err != nil {
		return err
	}
	if err := database.InitReadOnlyDB(); err != nil {
		return err
	}
	return nil
}

// ResolveUser authenticates apiKey, falling back to TJ_API_KEY.
func ResolveUser(ctx context.Context, apiKey string) (*model.User, error) {
	if apiKey == "" {
		apiKey = GetConfig().APIKey
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	user, err := auth.NewAuthenticator(repository.NewUserRepository()).Authenticate(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	logger.WithFields(logger.Fields{"user_id": user.ID, "user": user.Username}).Debug("cli user resolved")

	return user, nil
}
