package service

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ladleapp/ladle-server/internal/auth"
	"github.com/ladleapp/ladle-server/internal/media/images"
	"github.com/ladleapp/ladle-server/internal/store/sqlite"
)

// testEnv bundles the services wired against a temporary sqlite store.
type testEnv struct {
	store       *sqlite.Store
	tokens      *auth.TokenService
	sessions    *SessionService
	auth        *AuthService
	users       *UserService
	tags        *TagService
	ingredients *IngredientService
	recipes     *RecipeService
}

// setupTestEnv creates all services backed by a temporary database and
// image directory. Everything is cleaned up by t.TempDir.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	tokens, err := auth.NewTokenService(hex.EncodeToString(key), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	storage, err := images.NewStorage(tmpDir)
	require.NoError(t, err)
	processor := images.NewProcessor(storage, logger)

	sessions := NewSessionService(s, tokens, logger)

	return &testEnv{
		store:       s,
		tokens:      tokens,
		sessions:    sessions,
		auth:        NewAuthService(s, tokens, sessions, logger),
		users:       NewUserService(s, logger),
		tags:        NewTagService(s, logger),
		ingredients: NewIngredientService(s, logger),
		recipes:     NewRecipeService(s, processor, logger),
	}
}

// registerTestUser creates a user through the normal registration flow and
// returns its ID.
func registerTestUser(t *testing.T, env *testEnv, email string) string {
	t.Helper()

	user, err := env.auth.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "supersecret",
		Name:     "Test User",
	})
	require.NoError(t, err)
	return user.ID
}
