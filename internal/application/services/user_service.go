package services

import (
	"context"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

var usersKey = query.Key{"users"}

// UserService handles user administration for one session
type UserService struct {
	api    *api.UserAPI
	cache  *query.Cache
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userAPI *api.UserAPI, cache *query.Cache, logger *logger.Logger) *UserService {
	return &UserService{
		api:    userAPI,
		cache:  cache,
		logger: logger,
	}
}

// List returns every user
func (s *UserService) List(ctx context.Context) query.State[[]entities.User] {
	return query.Query(ctx, s.cache, usersKey, func(ctx context.Context) ([]entities.User, error) {
		users, err := s.api.List(ctx)
		for i := range users {
			normalizeUserRole(&users[i])
		}
		return users, err
	})
}

// Create creates a user
func (s *UserService) Create(ctx context.Context, req ports.CreateUserRequest) (*entities.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	normalizeUserRole(user)
	query.UpdateData(s.cache, usersKey, func(old []entities.User) []entities.User {
		return append([]entities.User{*user}, old...)
	})
	s.logger.Infow("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Update patches a user
func (s *UserService) Update(ctx context.Context, id string, req ports.UpdateUserRequest) (*entities.User, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.api.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	normalizeUserRole(user)
	query.UpdateData(s.cache, usersKey, func(old []entities.User) []entities.User {
		out := make([]entities.User, len(old))
		for i, u := range old {
			if u.ID == id {
				u = *user
			}
			out[i] = u
		}
		return out
	})
	return user, nil
}
