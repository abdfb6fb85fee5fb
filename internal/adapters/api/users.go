package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/ports"
)

// UserAPI covers user administration.
type UserAPI struct {
	client *Client
}

func NewUserAPI(client *Client) *UserAPI {
	return &UserAPI{client: client}
}

func (a *UserAPI) List(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	if err := a.client.Do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *UserAPI) Create(ctx context.Context, req ports.CreateUserRequest) (*entities.User, error) {
	var user entities.User
	if err := a.client.Do(ctx, http.MethodPost, "/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *UserAPI) Update(ctx context.Context, id string, req ports.UpdateUserRequest) (*entities.User, error) {
	var user entities.User
	if err := a.client.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
