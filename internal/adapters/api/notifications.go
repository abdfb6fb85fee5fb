package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/taskmaster/console/internal/domain/entities"
)

// NotificationAPI covers assignment notifications.
type NotificationAPI struct {
	client *Client
}

func NewNotificationAPI(client *Client) *NotificationAPI {
	return &NotificationAPI{client: client}
}

func (a *NotificationAPI) list(ctx context.Context, path string) ([]entities.Notification, error) {
	var items []entities.Notification
	if err := a.client.Do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns every notification addressed to the caller.
func (a *NotificationAPI) List(ctx context.Context) ([]entities.Notification, error) {
	return a.list(ctx, "/notifications")
}

// Pending returns offers still awaiting an answer.
func (a *NotificationAPI) Pending(ctx context.Context) ([]entities.Notification, error) {
	return a.list(ctx, "/notifications/pending")
}

// Received returns answers to offers the caller sent.
func (a *NotificationAPI) Received(ctx context.Context) ([]entities.Notification, error) {
	return a.list(ctx, "/notifications/received")
}

func (a *NotificationAPI) Accept(ctx context.Context, id string) error {
	return a.client.Do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/accept", nil, nil)
}

func (a *NotificationAPI) Refuse(ctx context.Context, id string) error {
	return a.client.Do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/refuse", nil, nil)
}
