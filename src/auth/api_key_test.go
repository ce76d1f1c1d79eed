package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradejournal/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	users   []model.User
	lists   int
	touched []uint
	err     error
}

func (f *fakeUsers) ListWithAPIKey(context.Context) ([]model.User, error) {
	f.lists++
	return f.users, f.err
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, userID uint, _ time.Time) error {
	f.touched = append(f.touched, userID)
	return nil
}

func hashKey(t *testing.T, key string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestGenerateAndVerifyAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, apiKeyPrefix))

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	hash, err := HashAPIKey(key)
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey(key, hash))
	assert.False(t, VerifyAPIKey(other, hash))
	assert.False(t, VerifyAPIKey("", hash))
	assert.False(t, VerifyAPIKey(key, ""))
}

func TestAuthenticate(t *testing.T) {
	store := &fakeUsers{users: []model.User{
		{ID: 1, Username: "alice", APIKeyHash: hashKey(t, "tj_alice"), IsActive: true},
		{ID: 2, Username: "bob", APIKeyHash: hashKey(t, "tj_bob"), IsActive: false},
	}}
	a := NewAuthenticatorWithTTL(store, 0)
	ctx := context.Background()

	user, err := a.Authenticate(ctx, " tj_alice ")
	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	assert.NotNil(t, user.LastLoginAt)
	assert.Equal(t, []uint{1}, store.touched)

	_, err = a.Authenticate(ctx, "tj_bob")
	assert.True(t, errors.Is(err, ErrUserInactive))

	_, err = a.Authenticate(ctx, "tj_nobody")
	assert.True(t, errors.Is(err, ErrInvalidAPIKey))

	_, err = a.Authenticate(ctx, "")
	assert.True(t, errors.Is(err, ErrInvalidAPIKey))
}

func TestAuthenticateCachesVerifiedKeys(t *testing.T) {
	store := &fakeUsers{users: []model.User{
		{ID: 7, APIKeyHash: hashKey(t, "tj_key"), IsActive: true},
	}}
	a := NewAuthenticatorWithTTL(store, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := a.Authenticate(ctx, "tj_key")
		require.NoError(t, err)
		assert.Equal(t, uint(7), user.ID)
	}
	assert.Equal(t, 1, store.lists)

	_, err := a.Authenticate(ctx, "tj_wrong")
	assert.Error(t, err)
	assert.Equal(t, 2, store.lists)

	a.Forget()
	_, err = a.Authenticate(ctx, "tj_key")
	require.NoError(t, err)
	assert.Equal(t, 3, store.lists)
}

func TestAuthenticateStoreError(t *testing.T) {
	a := NewAuthenticatorWithTTL(&fakeUsers{err: errors.New("db down")}, 0)

	_, err := a.Authenticate(context.Background(), "tj_key")
	assert.ErrorContains(t, err, "list users")
}

func TestRequireUserID(t *testing.T) {
	_, err := RequireUserID(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))

	ctx := WithUser(context.Background(), &model.User{ID: 3})
	id, err := RequireUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(3), id)

	assert.True(t, errors.Is(CheckUserID(0), ErrUnauthorized))
	assert.NoError(t, CheckUserID(3))
}
