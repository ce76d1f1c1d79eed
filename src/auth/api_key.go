package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradejournal/src/model"

	"github.com/patrickmn/go-cache"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "tj_"

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrUserInactive  = errors.New("user account is inactive")
)

// GenerateAPIKey returns a new random API key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashAPIKey hashes a raw API key for storage.
func HashAPIKey(apiKey string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hashed), nil
}

// VerifyAPIKey reports whether apiKey matches the stored hash.
func VerifyAPIKey(apiKey, hash string) bool {
	if apiKey == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil
}

type userStore interface {
	ListWithAPIKey(ctx context.Context) ([]model.User, error)
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// Authenticator resolves API keys to users. Verified keys are cached by
// their SHA-256 digest so repeated requests skip the bcrypt scan.
type Authenticator struct {
	users userStore
	cache *cache.Cache
}

func NewAuthenticator(users userStore) *Authenticator {
	return NewAuthenticatorWithTTL(users, GetConfig().CacheTTL)
}

func NewAuthenticatorWithTTL(users userStore, ttl time.Duration) *Authenticator {
	a := &Authenticator{users: users}
	if ttl > 0 {
		a.cache = cache.New(ttl, 2*ttl)
	}
	return a
}

// Forget drops every cached key, e.g. after a key rotation or deactivation.
func (a *Authenticator) Forget() {
	if a.cache != nil {
		a.cache.Flush()
	}
}

// Authenticate returns the active user owning apiKey.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (*model.User, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	digest := keyDigest(apiKey)
	if a.cache != nil {
		if cached, ok := a.cache.Get(digest); ok {
			user := cached.(model.User)
			return &user, nil
		}
	}

	users, err := a.users.ListWithAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for i := range users {
		user := &users[i]
		if !VerifyAPIKey(apiKey, user.APIKeyHash) {
			continue
		}

		if !user.IsActive {
			logger.WithField("user_id", user.ID).Warn("inactive user tried to authenticate")
			return nil, ErrUserInactive
		}

		now := time.Now().UTC()
		if err := a.users.TouchLastLogin(ctx, user.ID, now); err != nil {
			logger.WithError(err).WithField("user_id", user.ID).Warn("failed to update last login")
		}
		user.LastLoginAt = &now

		if a.cache != nil {
			a.cache.SetDefault(digest, *user)
		}

		return user, nil
	}

	return nil, ErrInvalidAPIKey
}

func keyDigest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
