package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/config"
	"github.com/coffeetech/transactions/internal/domain"
)

// UsersClient talks to the users service.
type UsersClient struct {
	baseClient
}

// NewUsersClient creates a users service client.
func NewUsersClient(cfg config.ServiceConfig, log zerolog.Logger) *UsersClient {
	return &UsersClient{baseClient: newBaseClient(cfg, log.With().Str("service", "users").Logger())}
}

// VerifySessionToken resolves a session token to its user, or nil when the token is not valid.
func (c *UsersClient) VerifySessionToken(ctx context.Context, token string) (*domain.UserInfo, error) {
	var body struct {
		Status string `json:"status"`
		Data   struct {
			User *domain.UserInfo `json:"user"`
		} `json:"data"`
	}
	status, err := c.do(ctx, http.MethodPost, "/users-service/session-token-verification",
		map[string]string{"session_token": token}, &body)
	if err != nil {
		return nil, fmt.Errorf("VerifySessionToken: %w", err)
	}
	if !isSuccess(status) || body.Status != "success" || body.Data.User == nil {
		return nil, nil
	}
	return body.Data.User, nil
}

// GetRolePermissions returns the permission names granted to a user role.
// A role unknown to the users service has no permissions.
func (c *UsersClient) GetRolePermissions(ctx context.Context, userRoleID int64) ([]string, error) {
	var body struct {
		Permissions []struct {
			Name string `json:"name"`
		} `json:"permissions"`
	}
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users-service/user-role/%d/permissions", userRoleID), nil, &body)
	if err != nil {
		return nil, fmt.Errorf("GetRolePermissions: %w", err)
	}
	if !isSuccess(status) {
		c.log.Warn().Int64("user_role_id", userRoleID).Int("status", status).Msg("Permissions lookup returned no data")
		return nil, nil
	}

	names := make([]string, 0, len(body.Permissions))
	for _, p := range body.Permissions {
		names = append(names, p.Name)
	}
	return names, nil
}

// GetUserByID returns a user, or nil when the users service does not know it.
func (c *UsersClient) GetUserByID(ctx context.Context, userID int64) (*domain.UserInfo, error) {
	var user domain.UserInfo
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users-service/user/%d", userID), nil, &user)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	if !isSuccess(status) {
		return nil, nil
	}
	return &user, nil
}
