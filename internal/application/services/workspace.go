package services

import (
	"time"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/session"
)

// Workspace bundles everything one signed-in (or signing-in) user agent
// works with: its session, its cache and the services bound to both. The
// web console builds one per request around the browser's cache; the CLI
// builds one per invocation.
type Workspace struct {
	Session       *session.Session
	Cache         *query.Cache
	Signals       *Signals
	Auth          *AuthService
	Projects      *ProjectService
	Tasks         *TaskService
	Users         *UserService
	Notifications *NotificationService
}

// WorkspaceOptions tunes a Workspace.
type WorkspaceOptions struct {
	MeStaleTime time.Duration
	Logger      *logger.Logger
}

// NewWorkspace binds client to sess's token and wires the services.
func NewWorkspace(client *api.Client, sess *session.Session, cache *query.Cache, opts WorkspaceOptions) *Workspace {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	authed := client.WithTokenSource(sess)
	signals := NewSignals()

	tasks := NewTaskService(api.NewTaskAPI(authed), cache, signals, log.WithComponent("tasks"))
	ws := &Workspace{
		Session:       sess,
		Cache:         cache,
		Signals:       signals,
		Auth:          NewAuthService(api.NewAuthAPI(authed), sess, cache, opts.MeStaleTime, log.WithComponent("auth")),
		Projects:      NewProjectService(api.NewProjectAPI(authed), tasks, cache, log.WithComponent("projects")),
		Tasks:         tasks,
		Users:         NewUserService(api.NewUserAPI(authed), cache, log.WithComponent("users")),
		Notifications: NewNotificationService(api.NewNotificationAPI(authed), cache, log.WithComponent("notifications")),
	}

	signals.Subscribe(EventNotificationsChanged, func(Event) {
		ws.Notifications.Refetch()
	})
	return ws
}
