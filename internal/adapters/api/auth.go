package api

import (
	"context"
	"net/http"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/ports"
)

// AuthAPI covers the /auth endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login exchanges credentials for a token. With the cookie transport the
// token is read from the backend's Set-Cookie when the body carries none.
func (a *AuthAPI) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	var out ports.LoginResponse
	resp, err := a.client.do(ctx, http.MethodPost, "/auth/login", req, &out)
	if err != nil {
		return nil, err
	}
	if out.Token == "" && a.client.UsesCookie() {
		out.Token = a.client.sessionCookie(resp)
	}
	return &out, nil
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the identity bound to the current credential.
func (a *AuthAPI) Me(ctx context.Context) (*entities.User, error) {
	var user entities.User
	if err := a.client.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
