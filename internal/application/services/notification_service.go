package services

import (
	"context"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

var (
	notificationsKey = query.Key{"notifications"}
	inboxKey         = query.Key{"notifications", "inbox"}
	receivedKey      = query.Key{"notifications", "received"}
)

// NotificationService handles the assignment inbox for one session
type NotificationService struct {
	api    *api.NotificationAPI
	cache  *query.Cache
	logger *logger.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(notificationAPI *api.NotificationAPI, cache *query.Cache, logger *logger.Logger) *NotificationService {
	return &NotificationService{
		api:    notificationAPI,
		cache:  cache,
		logger: logger,
	}
}

// Inbox returns the offers addressed to the caller. Employees only see the
// ones still pending.
func (s *NotificationService) Inbox(ctx context.Context, role entities.Role) query.State[[]entities.Notification] {
	fetch := s.api.List
	if role == entities.RoleEmployee {
		fetch = s.api.Pending
	}
	return query.Query(ctx, s.cache, inboxKey, fetch)
}

// Received returns the answers to offers the caller sent
func (s *NotificationService) Received(ctx context.Context) query.State[[]entities.Notification] {
	return query.Query(ctx, s.cache, receivedKey, s.api.Received)
}

// Refetch makes the next read of every notification view hit the backend
func (s *NotificationService) Refetch() {
	s.cache.Invalidate(notificationsKey)
}

// Accept accepts a pending offer
func (s *NotificationService) Accept(ctx context.Context, id string) error {
	return s.resolve(ctx, id, "accept", s.api.Accept)
}

// Refuse refuses a pending offer
func (s *NotificationService) Refuse(ctx context.Context, id string) error {
	return s.resolve(ctx, id, "refuse", s.api.Refuse)
}

// resolve leaves the cache untouched when the backend refuses the answer,
// e.g. for an offer that was already resolved.
func (s *NotificationService) resolve(ctx context.Context, id, action string, call func(context.Context, string) error) error {
	if err := call(ctx, id); err != nil {
		s.logger.Warnw("Notification answer rejected", "notification_id", id, "action", action, "error", err)
		return err
	}
	s.cache.Invalidate(notificationsKey)
	s.cache.Invalidate(projectsKey)
	s.logger.Infow("Notification answered", "notification_id", id, "action", action)
	return nil
}
