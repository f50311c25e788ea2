package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
		"name":     "Cook",
	})

	assert.Equal(t, http.StatusCreated, resp.Code)

	envelope := decodeEnvelope[UserResponse](t, resp.Body.Bytes())
	assert.Equal(t, EnvelopeVersion, envelope.V)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.ID)
	assert.Equal(t, "cook@example.com", envelope.Data.Email)
	assert.Equal(t, "Cook", envelope.Data.Name)

	// The password must never appear in the response.
	assert.NotContains(t, resp.Body.String(), "supersecret")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	// Same address with different case is still a duplicate.
	resp = ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "Cook@Example.com",
		"password": "othersecret",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "already exists")
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name: "missing email",
			body: map[string]any{
				"password": "supersecret",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid email format",
			body: map[string]any{
				"email":    "not-an-email",
				"password": "supersecret",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			body: map[string]any{
				"email":    "cook@example.com",
				"password": "abcd",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/register", tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
		})
	}
}

func TestLogin_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
		"name":     "Cook",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":       "cook@example.com",
		"password":    "supersecret",
		"client_name": "ladle-ios",
	})

	assert.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.NotEmpty(t, envelope.Data.SessionID)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Positive(t, envelope.Data.ExpiresIn)
	assert.Equal(t, "cook@example.com", envelope.Data.User.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	// Wrong password and unknown email produce the same opaque error.
	for _, body := range []map[string]any{
		{"email": "cook@example.com", "password": "wrongpassword"},
		{"email": "nobody@example.com", "password": "supersecret"},
	} {
		resp = ts.api.Post("/api/v1/auth/login", body)

		assert.Equal(t, http.StatusBadRequest, resp.Code)

		envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
		assert.False(t, envelope.Success)
		assert.Equal(t, "unable to authenticate with provided credentials", envelope.Error)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	for _, body := range []map[string]any{
		{"email": "cook@example.com"},
		{"password": "supersecret"},
		{},
	} {
		resp = ts.api.Post("/api/v1/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

		envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
		assert.False(t, envelope.Success)
		assert.Equal(t, "VALIDATION", envelope.Code)
	}
}

func TestRefresh_RotatesTokens(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	login := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": login.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	refreshed := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.NotEmpty(t, refreshed.Data.AccessToken)
	assert.NotEqual(t, login.Data.RefreshToken, refreshed.Data.RefreshToken)
	assert.Equal(t, login.Data.SessionID, refreshed.Data.SessionID)

	// The previous refresh token is spent.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": login.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	login := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+login.Data.AccessToken,
		map[string]any{"session_id": login.Data.SessionID},
	)
	assert.Equal(t, http.StatusOK, resp.Code)

	// The refresh token dies with the session.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": login.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)
	_, _ = ts.registerAndLogin(t, "cook@example.com")

	resp := ts.api.Post("/api/v1/auth/logout", map[string]any{
		"session_id": "sess-whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogout_OtherUsersSession(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "cook@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	login := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())

	otherToken, _ := ts.registerAndLogin(t, "other@example.com")

	resp = ts.api.Post("/api/v1/auth/logout",
		"Authorization: Bearer "+otherToken,
		map[string]any{"session_id": login.Data.SessionID},
	)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The session is untouched.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{
		"refresh_token": login.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		call func() int
	}{
		{"no header", func() int { return ts.api.Get("/api/v1/tags").Code }},
		{"malformed header", func() int {
			return ts.api.Get("/api/v1/tags", "Authorization: Token abc").Code
		}},
		{"garbage token", func() int {
			return ts.api.Get("/api/v1/tags", "Authorization: Bearer not-a-token").Code
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, tt.call())
		})
	}
}
