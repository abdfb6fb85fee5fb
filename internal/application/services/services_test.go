package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/adapters/devbackend"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/ports"
	"github.com/taskmaster/console/internal/session"
)

// requestLog counts requests per "METHOD path" on their way to the backend.
type requestLog struct {
	mu    sync.Mutex
	calls map[string]int
}

func (l *requestLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.calls[r.Method+" "+r.URL.Path]++
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (l *requestLog) count(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[call]
}

type fixture struct {
	srv *httptest.Server
	log *requestLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b, err := devbackend.New(config.DevBackendConfig{JWTSecret: "test-secret", Seed: true}, nil)
	if err != nil {
		t.Fatalf("devbackend: %v", err)
	}
	return newFixtureWith(t, b.Handler())
}

func newFixtureWith(t *testing.T, h http.Handler) *fixture {
	t.Helper()
	log := &requestLog{calls: make(map[string]int)}
	srv := httptest.NewServer(log.wrap(h))
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, log: log}
}

func (f *fixture) workspace(t *testing.T, token string) *Workspace {
	t.Helper()
	client := api.New(config.BackendConfig{BaseURL: f.srv.URL + "/api"}, api.WithHTTPClient(f.srv.Client()))
	sess := session.New(session.NewMemoryStore(token), nil)
	cache := query.NewCache(query.WithDefaultStaleTime(time.Hour))
	t.Cleanup(cache.Wait)
	return NewWorkspace(client, sess, cache, WorkspaceOptions{MeStaleTime: time.Minute})
}

func (f *fixture) signedIn(t *testing.T, email string) *Workspace {
	t.Helper()
	ws := f.workspace(t, "")
	if _, err := ws.Auth.Login(context.Background(), ports.LoginRequest{Email: email, Password: devbackend.DemoPassword}); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return ws
}

func TestAuthService_LoginRedirectsByRole(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		email    string
		role     entities.Role
		redirect string
	}{
		{"admin@taskmaster.local", entities.RoleAdmin, "/dashboard"},
		{"pm@taskmaster.local", entities.RoleProjectManager, "/dashboard"},
		{"employee@taskmaster.local", entities.RoleEmployee, "/projects"},
		{"client@taskmaster.local", entities.RoleClient, "/client"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			ctx := context.Background()
			ws := f.workspace(t, "")
			res, err := ws.Auth.Login(ctx, ports.LoginRequest{Email: tt.email, Password: devbackend.DemoPassword})
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if res.Redirect != tt.redirect {
				t.Errorf("redirect: got %q, want %q", res.Redirect, tt.redirect)
			}
			if ws.Session.GetToken() == "" {
				t.Error("token not persisted")
			}

			before := f.log.count("GET /api/auth/me")
			state := ws.Auth.Current(ctx)
			if !state.IsAuthenticated || state.Role != tt.role {
				t.Errorf("current: got %+v", state)
			}
			if f.log.count("GET /api/auth/me") != before {
				t.Error("login should seed the identity without a me call")
			}
		})
	}
}

func TestAuthService_LoginValidation(t *testing.T) {
	f := newFixture(t)
	ws := f.workspace(t, "")

	_, err := ws.Auth.Login(context.Background(), ports.LoginRequest{Email: "nope", Password: ""})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if verr.Fields["email"] == "" || verr.Fields["password"] == "" {
		t.Errorf("fields: got %v", verr.Fields)
	}
	if f.log.count("POST /api/auth/login") != 0 {
		t.Error("invalid input must not reach the backend")
	}
}

func loginHandler(role string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-x","user":{"id":"U1","name":"X","email":"x@y.z","role":"` + role + `"}}`))
	})
}

func TestAuthService_LoginNormalizesRoleAliases(t *testing.T) {
	f := newFixtureWith(t, loginHandler("Team Member"))
	ws := f.workspace(t, "")

	res, err := ws.Auth.Login(context.Background(), ports.LoginRequest{Email: "x@y.z", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.Role != entities.RoleEmployee || res.Redirect != "/projects" {
		t.Errorf("got role %s redirect %s", res.User.Role, res.Redirect)
	}
}

func TestAuthService_LoginUnknownRolePersistsNothing(t *testing.T) {
	f := newFixtureWith(t, loginHandler("GUEST"))
	ws := f.workspace(t, "")

	_, err := ws.Auth.Login(context.Background(), ports.LoginRequest{Email: "x@y.z", Password: "pw"})
	if !errors.Is(err, entities.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if tok := ws.Session.GetToken(); tok != "" {
		t.Errorf("token persisted: %q", tok)
	}
	if ws.Cache.Len() != 0 {
		t.Errorf("cache holds %d entries", ws.Cache.Len())
	}
}

func TestAuthService_RejectedTokenIsSignedOut(t *testing.T) {
	f := newFixture(t)
	ws := f.workspace(t, "stale-token")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		state := ws.Auth.Current(ctx)
		if state.IsAuthenticated || state.Err != nil {
			t.Fatalf("read %d: got %+v", i, state)
		}
		if tok := ws.Session.GetToken(); tok != "" {
			t.Fatalf("read %d: token kept: %q", i, tok)
		}
	}
	if n := f.log.count("GET /api/auth/me"); n != 1 {
		t.Errorf("me calls: got %d, want 1", n)
	}
}

func TestAuthService_LoginDropsPreviousAccountData(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "admin@taskmaster.local")
	ctx := context.Background()

	if names := projectNames(ws.Projects.List(ctx).Data); !strings.Contains(names, "Mobile App") {
		t.Fatalf("admin projects: %s", names)
	}
	ws.Users.List(ctx)

	if _, err := ws.Auth.Login(ctx, ports.LoginRequest{Email: "employee@taskmaster.local", Password: devbackend.DemoPassword}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if n := ws.Cache.Len(); n != 1 {
		t.Errorf("cache holds %d entries after switching account, want only the identity", n)
	}
	if names := projectNames(ws.Projects.List(ctx).Data); strings.Contains(names, "Mobile App") {
		t.Errorf("employee is served the admin's projects: %s", names)
	}
}

func projectNames(projects []entities.Project) string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// clearCounter records how often the session credential is cleared.
type clearCounter struct {
	session.Store
	clears atomic.Int32
}

func (c *clearCounter) Clear() error {
	c.clears.Add(1)
	return c.Store.Clear()
}

func TestAuthService_RevokedTokenClearedOnNextRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := query.NewFakeClock(time.Unix(0, 0))
	store := &clearCounter{Store: session.NewMemoryStore("")}
	client := api.New(config.BackendConfig{BaseURL: f.srv.URL + "/api"}, api.WithHTTPClient(f.srv.Client()))
	cache := query.NewCache(query.WithClock(clock), query.WithDefaultStaleTime(time.Hour))
	ws := NewWorkspace(client, session.New(store, nil), cache, WorkspaceOptions{MeStaleTime: time.Minute})

	if _, err := ws.Auth.Login(ctx, ports.LoginRequest{Email: "pm@taskmaster.local", Password: devbackend.DemoPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
	ws.Projects.List(ctx)

	// Revoke the token from another client sharing it.
	f.workspace(t, ws.Session.GetToken()).Auth.Logout(ctx)
	clock.Advance(2 * time.Minute)

	state := ws.Auth.Current(ctx)
	if !state.IsAuthenticated || !state.IsLoading {
		t.Fatalf("stale identity should be served while it refreshes: %+v", state)
	}
	cache.Wait()
	if n := store.clears.Load(); n != 0 {
		t.Fatalf("background refresh cleared the credential %d time(s)", n)
	}
	if ws.Session.GetToken() == "" {
		t.Fatal("background refresh dropped the token")
	}

	state = ws.Auth.Current(ctx)
	if state.IsAuthenticated || state.Err != nil {
		t.Fatalf("after revocation: %+v", state)
	}
	if n := store.clears.Load(); n != 1 {
		t.Errorf("clears: got %d, want 1", n)
	}
	if ws.Session.GetToken() != "" {
		t.Error("revoked token kept")
	}
	if n := cache.Len(); n != 0 {
		t.Errorf("cache holds %d entries after revocation", n)
	}
}

func TestAuthService_NoTokenSkipsBackend(t *testing.T) {
	f := newFixture(t)
	ws := f.workspace(t, "")

	if state := ws.Auth.Current(context.Background()); state.IsAuthenticated {
		t.Errorf("got %+v", state)
	}
	if n := f.log.count("GET /api/auth/me"); n != 0 {
		t.Errorf("me calls: got %d", n)
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")
	ctx := context.Background()
	ws.Projects.List(ctx)

	if got := ws.Auth.Logout(ctx); got != LoginPath {
		t.Errorf("redirect: got %q", got)
	}
	if ws.Session.GetToken() != "" {
		t.Error("token kept after logout")
	}
	if ws.Cache.Len() != 0 {
		t.Errorf("cache holds %d entries after logout", ws.Cache.Len())
	}
	if f.log.count("POST /api/auth/logout") != 1 {
		t.Error("backend logout not called")
	}

	// Signed out already: no backend call.
	ws.Auth.Logout(ctx)
	if f.log.count("POST /api/auth/logout") != 1 {
		t.Error("logout without a token should stay local")
	}
}

func TestTaskService_CreateAppearsOnceInList(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")
	ctx := context.Background()

	before := ws.Tasks.List(ctx, "PRJ-002")
	if before.Err != nil {
		t.Fatalf("List: %v", before.Err)
	}

	if _, err := ws.Tasks.Create(ctx, ports.CreateTaskRequest{
		ProjectID: "PRJ-002", Title: "X", Status: entities.TaskStatusTodo, Priority: entities.PriorityLow,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	after := ws.Tasks.List(ctx, "PRJ-002")
	if len(after.Data) != len(before.Data)+1 {
		t.Fatalf("tasks: got %d, want %d", len(after.Data), len(before.Data)+1)
	}
	n := 0
	for _, task := range after.Data {
		if task.Title == "X" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("task X appears %d times", n)
	}
	if after.Data[0].Title != "X" {
		t.Errorf("new task should lead the list, got %q", after.Data[0].Title)
	}
}

func TestTaskService_AdvanceDoneIsNoop(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")

	done := entities.Task{ID: "TSK-003", ProjectID: "PRJ-002", Status: entities.TaskStatusDone}
	got, err := ws.Tasks.Advance(context.Background(), done)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got.Status != entities.TaskStatusDone {
		t.Errorf("status: got %s", got.Status)
	}
	if n := f.log.count("PATCH /api/tasks/TSK-003"); n != 0 {
		t.Errorf("patch calls: got %d", n)
	}
}

func TestTaskService_AdvanceMovesRight(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")

	todo := entities.Task{ID: "TSK-001", ProjectID: "PRJ-001", Status: entities.TaskStatusTodo}
	got, err := ws.Tasks.Advance(context.Background(), todo)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if got.Status != entities.TaskStatusInProgress {
		t.Errorf("status: got %s", got.Status)
	}
}

func TestTaskService_AssignmentRefreshesNotifications(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")
	ctx := context.Background()

	wake, cancel := ws.Signals.Channel(EventNotificationsChanged)
	defer cancel()

	ws.Notifications.Inbox(ctx, entities.RoleProjectManager)
	reads := f.log.count("GET /api/notifications")

	assignee := "USR-003"
	if _, err := ws.Tasks.Create(ctx, ports.CreateTaskRequest{
		ProjectID: "PRJ-001", Title: "Relire", Status: entities.TaskStatusTodo,
		Priority: entities.PriorityMedium, AssigneeID: &assignee,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case <-wake:
	default:
		t.Fatal("no refetch signal published")
	}

	ws.Notifications.Inbox(ctx, entities.RoleProjectManager)
	if got := f.log.count("GET /api/notifications"); got != reads+1 {
		t.Errorf("inbox reads: got %d, want %d", got, reads+1)
	}
}

func TestNotificationService_AnswerTwice(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "employee@taskmaster.local")
	ctx := context.Background()

	inbox := ws.Notifications.Inbox(ctx, entities.RoleEmployee)
	if inbox.Err != nil || len(inbox.Data) != 1 {
		t.Fatalf("inbox: %+v", inbox)
	}
	id := inbox.Data[0].ID

	if err := ws.Notifications.Accept(ctx, id); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	inbox = ws.Notifications.Inbox(ctx, entities.RoleEmployee)
	if len(inbox.Data) != 0 {
		t.Fatalf("inbox after accept: %+v", inbox.Data)
	}
	reads := f.log.count("GET /api/notifications/pending")

	err := ws.Notifications.Accept(ctx, id)
	if !api.IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409, got %v", err)
	}
	ws.Notifications.Inbox(ctx, entities.RoleEmployee)
	if got := f.log.count("GET /api/notifications/pending"); got != reads {
		t.Errorf("a rejected answer must not invalidate the inbox: reads %d -> %d", reads, got)
	}
}

func TestProjectService_DetailBoard(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "employee@taskmaster.local")

	detail, err := ws.Projects.Detail(context.Background(), "PRJ-001")
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if detail.Project.Data == nil || detail.Project.Data.Name != "Docs Hub" {
		t.Fatalf("project: %+v", detail.Project)
	}
	board := detail.Board()
	if n := len(board.Column(entities.TaskStatusTodo).Tasks); n != 1 {
		t.Errorf("todo lane: %d tasks", n)
	}
	if n := len(board.Column(entities.TaskStatusInProgress).Tasks); n != 1 {
		t.Errorf("in-progress lane: %d tasks", n)
	}
}

func TestProjectService_CreateWithEmptyDocument(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")

	_, err := ws.Projects.CreateWithDocument(context.Background(), ports.CreateProjectRequest{
		Name: "Docs", Status: entities.ProjectStatusPlanned,
	}, ports.Document{Filename: "empty.txt"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["document"] == "" {
		t.Fatalf("expected a document validation error, got %v", err)
	}
	if f.log.count("POST /api/projects") != 0 {
		t.Error("empty document must not reach the backend")
	}
}

func TestProjectService_CreateUpdatesCachedList(t *testing.T) {
	f := newFixture(t)
	ws := f.signedIn(t, "pm@taskmaster.local")
	ctx := context.Background()

	ws.Projects.List(ctx)
	project, err := ws.Projects.Create(ctx, ports.CreateProjectRequest{Name: "Portail", Status: entities.ProjectStatusPlanned})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	list := ws.Projects.List(ctx)
	if len(list.Data) != 3 || list.Data[0].ID != project.ID {
		t.Errorf("list: %+v", list.Data)
	}
	if n := f.log.count("GET /api/projects"); n != 1 {
		t.Errorf("list fetches: got %d", n)
	}

	if err := ws.Projects.Delete(ctx, project.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list := ws.Projects.List(ctx); len(list.Data) != 2 {
		t.Errorf("list after delete: %d projects", len(list.Data))
	}
}

func TestSignals(t *testing.T) {
	s := NewSignals()
	var got []Event
	unsubscribe := s.Subscribe(EventNotificationsChanged, func(ev Event) { got = append(got, ev) })
	s.Subscribe("other", func(Event) { t.Error("unrelated handler ran") })

	s.Publish(EventNotificationsChanged)
	unsubscribe()
	s.Publish(EventNotificationsChanged)

	if len(got) != 1 || got[0] != EventNotificationsChanged {
		t.Errorf("got %v", got)
	}

	ch, cancel := s.Channel(EventNotificationsChanged)
	defer cancel()
	s.Publish(EventNotificationsChanged)
	s.Publish(EventNotificationsChanged)
	<-ch
	select {
	case <-ch:
		t.Error("publishes should coalesce")
	default:
	}
}

func TestPoller(t *testing.T) {
	clock := query.NewFakeClock(time.Unix(0, 0))
	trigger := make(chan struct{}, 1)
	p := NewPoller(clock, 10*time.Second, trigger, nil)

	pulls := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(context.Context) error {
			pulls <- struct{}{}
			return errors.New("backend down")
		})
	}()

	wait := func(what string) {
		t.Helper()
		select {
		case <-pulls:
		case <-time.After(2 * time.Second):
			t.Fatalf("no pull on %s", what)
		}
	}

	wait("start")
	clock.Advance(10 * time.Second)
	wait("tick")
	trigger <- struct{}{}
	wait("signal")
	p.PullNow()
	wait("manual")

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run: got %v", err)
	}
	if clock.Tickers() != 0 {
		t.Error("ticker not stopped")
	}
}
