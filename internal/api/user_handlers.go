package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ladleapp/ladle-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCurrentUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/me",
		Summary:     "Update current user",
		Description: "Updates the authenticated user's profile. Omitted fields are unchanged.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/sessions",
		Summary:     "List sessions",
		Description: "Returns the authenticated user's active sessions",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "revokeAllSessions",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/me/sessions",
		Summary:     "Revoke all sessions",
		Description: "Logs the user out everywhere by revoking every session",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRevokeAllSessions)
}

// === DTOs ===

// GetCurrentUserInput contains parameters for fetching the current user.
type GetCurrentUserInput struct {
	Authorization string `header:"Authorization"`
}

// UpdateUserRequest is the request body for profile updates.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty" doc:"New email address"`
	Name     *string `json:"name,omitempty" doc:"New display name"`
	Password *string `json:"password,omitempty" doc:"New password (5 characters minimum)"`
}

// UpdateUserInput wraps the update request for Huma.
type UpdateUserInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateUserRequest
}

// SessionResponse describes an active session.
type SessionResponse struct {
	ID         string    `json:"id" doc:"Session ID"`
	ClientName string    `json:"client_name,omitempty" doc:"Client application name"`
	IPAddress  string    `json:"ip_address,omitempty" doc:"Client IP address"`
	CreatedAt  time.Time `json:"created_at" doc:"Session creation time"`
	LastSeenAt time.Time `json:"last_seen_at" doc:"Last activity time"`
	ExpiresAt  time.Time `json:"expires_at" doc:"Session expiry time"`
}

// ListSessionsResponse contains the user's active sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions" doc:"Active sessions, newest first"`
}

// ListSessionsOutput wraps the session list for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// === Handlers ===

func (s *Server) handleGetCurrentUser(ctx context.Context, input *GetCurrentUserInput) (*UserOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleUpdateCurrentUser(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	user, err := s.services.User.UpdateProfile(ctx, userID, service.UpdateProfileRequest{
		Email:    input.Body.Email,
		Name:     input.Body.Name,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleListSessions(ctx context.Context, input *GetCurrentUserInput) (*ListSessionsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	sessions, err := s.services.Session.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]SessionResponse, len(sessions))
	for i, sess := range sessions {
		resp[i] = SessionResponse{
			ID:         sess.ID,
			ClientName: sess.ClientName,
			IPAddress:  sess.IPAddress,
			CreatedAt:  sess.CreatedAt,
			LastSeenAt: sess.LastSeenAt,
			ExpiresAt:  sess.ExpiresAt,
		}
	}

	return &ListSessionsOutput{Body: ListSessionsResponse{Sessions: resp}}, nil
}

func (s *Server) handleRevokeAllSessions(ctx context.Context, input *GetCurrentUserInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Session.DeleteAllUserSessions(ctx, userID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "All sessions revoked"}}, nil
}
