package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
	"github.com/taskmaster/console/internal/session"
)

// LoginPath is where signed-out users land.
const LoginPath = "/login"

// ErrNoToken means the backend accepted the credentials but issued nothing
// to authenticate later calls with.
var ErrNoToken = errors.New("login response carried no token")

// AuthState is the "who am I" answer for a view.
type AuthState struct {
	User            *entities.User
	Role            entities.Role
	IsLoading       bool
	IsAuthenticated bool
	Err             error
}

// LoginResult is a successful login and where to send the user next.
type LoginResult struct {
	User     *entities.User
	Redirect string
}

// AuthService handles identity for one session
type AuthService struct {
	api         *api.AuthAPI
	session     *session.Session
	cache       *query.Cache
	meStaleTime time.Duration
	logger      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(authAPI *api.AuthAPI, sess *session.Session, cache *query.Cache, meStaleTime time.Duration, logger *logger.Logger) *AuthService {
	return &AuthService{
		api:         authAPI,
		session:     sess,
		cache:       cache,
		meStaleTime: meStaleTime,
		logger:      logger,
	}
}

func meKey(token string) query.Key {
	return query.Key{"me", token}
}

// Current resolves the signed-in user. A 401 from the backend means
// "signed out": the stored token and everything cached for it are dropped
// and no error is reported.
//
// The fetch only records the rejection as a nil user. It may run on the
// background revalidation goroutine, so the credential is cleared here, on
// the caller's goroutine, where the session store may still write cookies.
func (s *AuthService) Current(ctx context.Context) AuthState {
	token := s.session.GetToken()
	if token == "" {
		return AuthState{}
	}

	state := query.Query(ctx, s.cache, meKey(token), func(ctx context.Context) (*entities.User, error) {
		user, err := s.api.Me(ctx)
		if api.IsUnauthorized(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		normalizeUserRole(user)
		return user, nil
	}, query.WithStaleTime(s.meStaleTime))

	if state.Err != nil {
		return AuthState{Err: state.Err, IsLoading: state.Loading}
	}
	if state.Data == nil {
		s.signOut("Session token rejected by backend, clearing it")
		return AuthState{}
	}
	return AuthState{
		User:            state.Data,
		Role:            state.Data.Role,
		IsLoading:       state.Loading,
		IsAuthenticated: true,
	}
}

// signOut forgets the token and every cached entry.
func (s *AuthService) signOut(reason string) {
	s.logger.Infow(reason)
	if err := s.session.RemoveToken(); err != nil {
		s.logger.Warnw("Failed to clear session token", "error", err)
	}
	s.cache.Clear()
}

// Login exchanges credentials for a token. The token is only persisted once
// the user's role maps onto a known landing route.
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*LoginResult, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		s.logger.Warnw("Login rejected", "email", req.Email, "error", err)
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("login response carried no user")
	}

	role, err := entities.NormalizeRole(string(resp.User.Role))
	if err != nil {
		s.logger.LogSecurityEvent("login_unknown_role", resp.User.ID, "", map[string]interface{}{
			"role": resp.User.Role,
		})
		return nil, err
	}
	redirect, _ := entities.RoleRedirect(role)

	if resp.Token == "" {
		return nil, ErrNoToken
	}

	// A previous account's lists must not be served to the new one.
	if prev := query.Peek[*entities.User](s.cache, meKey(s.session.GetToken())); prev.Data != nil && prev.Data.ID != resp.User.ID {
		s.logger.LogUserAction(prev.Data.ID, "account_switched", map[string]interface{}{"to": resp.User.ID})
	}
	s.cache.Clear()
	if err := s.session.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	user := *resp.User
	user.Role = role
	query.SetData(s.cache, meKey(resp.Token), func(*entities.User, bool) *entities.User { return &user })

	s.logger.LogUserAction(user.ID, "login", map[string]interface{}{"role": role})

	return &LoginResult{User: &user, Redirect: redirect}, nil
}

// Logout tells the backend, then forgets the token and every cached entry
// whatever the backend said. It returns the login route.
func (s *AuthService) Logout(ctx context.Context) string {
	if s.session.GetToken() != "" {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warnw("Backend logout failed", "error", err)
		}
	}
	s.signOut("Signed out")
	return LoginPath
}

func normalizeUserRole(u *entities.User) {
	if u == nil {
		return
	}
	if role, err := entities.NormalizeRole(string(u.Role)); err == nil {
		u.Role = role
	}
}
