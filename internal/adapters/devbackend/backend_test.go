package devbackend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/adapters/devbackend"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/ports"
)

const (
	adminEmail    = "admin@taskmaster.local"
	pmEmail       = "pm@taskmaster.local"
	employeeEmail = "employee@taskmaster.local"
	clientEmail   = "client@taskmaster.local"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	b, err := devbackend.New(config.DevBackendConfig{JWTSecret: "test-secret", Seed: true}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func anonymous(srv *httptest.Server, transport string) *api.Client {
	return api.New(config.BackendConfig{
		BaseURL:       srv.URL + "/api",
		AuthTransport: transport,
		CookieName:    devbackend.SessionCookie,
	}, api.WithHTTPClient(srv.Client()))
}

func loginAs(t *testing.T, srv *httptest.Server, email string) (*api.Client, string) {
	t.Helper()
	c := anonymous(srv, config.TransportBearer)
	resp, err := api.NewAuthAPI(c).Login(context.Background(), ports.LoginRequest{
		Email: email, Password: devbackend.DemoPassword,
	})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	token := resp.Token
	return c.WithTokenSource(api.TokenFunc(func() string { return token })), token
}

func TestLogin(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	tests := []struct {
		email    string
		password string
		status   int
		role     entities.Role
	}{
		{adminEmail, devbackend.DemoPassword, 0, entities.RoleAdmin},
		{pmEmail, devbackend.DemoPassword, 0, entities.RoleProjectManager},
		{employeeEmail, devbackend.DemoPassword, 0, entities.RoleEmployee},
		{clientEmail, devbackend.DemoPassword, 0, entities.RoleClient},
		{adminEmail, "wrong", http.StatusUnauthorized, ""},
		{"nobody@taskmaster.local", devbackend.DemoPassword, http.StatusUnauthorized, ""},
		{"not-an-email", devbackend.DemoPassword, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.email+"/"+tt.password, func(t *testing.T) {
			resp, err := api.NewAuthAPI(anonymous(srv, config.TransportBearer)).Login(ctx, ports.LoginRequest{
				Email: tt.email, Password: tt.password,
			})
			if tt.status != 0 {
				if !api.IsStatus(err, tt.status) {
					t.Fatalf("expected status %d, got %v", tt.status, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			if resp.User == nil || resp.User.Role != tt.role {
				t.Errorf("user: got %+v", resp.User)
			}
		})
	}
}

func TestLogin_InvalidCredentialsMessage(t *testing.T) {
	srv := newServer(t)
	_, err := api.NewAuthAPI(anonymous(srv, config.TransportBearer)).Login(context.Background(), ports.LoginRequest{
		Email: adminEmail, Password: "nope",
	})
	if got := api.Message(err, ""); got != "Invalid credentials" {
		t.Errorf("message: got %q", got)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, _ := loginAs(t, srv, pmEmail)
	auth := api.NewAuthAPI(c)

	me, err := auth.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Email != pmEmail {
		t.Errorf("me: got %+v", me)
	}

	if err := auth.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := auth.Me(ctx); !api.IsUnauthorized(err) {
		t.Errorf("expected 401 after logout, got %v", err)
	}
}

func TestCookieTransport(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	c := anonymous(srv, config.TransportCookie)
	resp, err := api.NewAuthAPI(c).Login(ctx, ports.LoginRequest{Email: clientEmail, Password: devbackend.DemoPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	token := resp.Token
	c = c.WithTokenSource(api.TokenFunc(func() string { return token }))

	me, err := api.NewAuthAPI(c).Me(ctx)
	if err != nil {
		t.Fatalf("Me over cookie: %v", err)
	}
	if me.Role != entities.RoleClient {
		t.Errorf("role: got %s", me.Role)
	}
}

func TestProjectVisibility(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	admin, _ := loginAs(t, srv, adminEmail)
	all, err := api.NewProjectAPI(admin).List(ctx)
	if err != nil {
		t.Fatalf("List as admin: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d projects, want 2", len(all))
	}
	if all[0].Name != "Mobile App" {
		t.Errorf("expected newest first, got %q", all[0].Name)
	}

	employee, _ := loginAs(t, srv, employeeEmail)
	projects := api.NewProjectAPI(employee)
	mine, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("List as employee: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "Docs Hub" {
		t.Fatalf("employee projects: got %+v", mine)
	}
	if mine[0].EndDate != nil || mine[0].Status != entities.ProjectStatusPaused {
		t.Errorf("Docs Hub: got %+v", mine[0])
	}

	if _, err := projects.Get(ctx, "PRJ-002"); !api.IsNotFound(err) {
		t.Errorf("expected 404 for a non-member, got %v", err)
	}
	if _, err := projects.Create(ctx, ports.CreateProjectRequest{Name: "Nope", Status: entities.ProjectStatusPlanned}); !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403 for an employee create, got %v", err)
	}
}

func TestTaskUpdatePermissions(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	employee, _ := loginAs(t, srv, employeeEmail)
	tasks := api.NewTaskAPI(employee)

	title := "Renamed"
	if _, err := tasks.Update(ctx, "TSK-001", ports.UpdateTaskRequest{Title: &title}); !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403 for a title change, got %v", err)
	}

	status := entities.TaskStatusInProgress
	if _, err := tasks.Update(ctx, "TSK-002", ports.UpdateTaskRequest{Status: &status}); !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403 on an unassigned task, got %v", err)
	}

	updated, err := tasks.Update(ctx, "TSK-001", ports.UpdateTaskRequest{Status: &status})
	if err != nil {
		t.Fatalf("Update own task: %v", err)
	}
	if updated.Status != entities.TaskStatusInProgress {
		t.Errorf("status: got %s", updated.Status)
	}
}

func TestAssignmentOfferLifecycle(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	pm, _ := loginAs(t, srv, pmEmail)
	employee, _ := loginAs(t, srv, employeeEmail)
	employeeInbox := api.NewNotificationAPI(employee)

	pending, err := employeeInbox.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "NTF-001" {
		t.Fatalf("pending: got %+v", pending)
	}
	if pending[0].TaskTitle == "" || pending[0].ProjectName != "Docs Hub" {
		t.Errorf("offer not enriched: %+v", pending[0])
	}

	if err := employeeInbox.Accept(ctx, "NTF-001"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := employeeInbox.Accept(ctx, "NTF-001"); !api.IsStatus(err, http.StatusConflict) {
		t.Errorf("expected 409 on a second answer, got %v", err)
	}
	if err := employeeInbox.Refuse(ctx, "NTF-001"); !api.IsStatus(err, http.StatusConflict) {
		t.Errorf("expected 409 on a late refusal, got %v", err)
	}

	pending, err = employeeInbox.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending offers, got %d", len(pending))
	}

	received, err := api.NewNotificationAPI(pm).Received(ctx)
	if err != nil {
		t.Fatalf("Received: %v", err)
	}
	if len(received) != 1 || received[0].Status != entities.NotificationAccepted || received[0].EmployeeName != "Emma Durand" {
		t.Errorf("received: got %+v", received)
	}

	// The manager cannot answer an offer addressed to someone else.
	if err := api.NewNotificationAPI(pm).Refuse(ctx, "NTF-001"); !api.IsNotFound(err) {
		t.Errorf("expected 404 for another receiver, got %v", err)
	}
}

func TestCreateTaskOffersAndRefusalUnassigns(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	pm, _ := loginAs(t, srv, pmEmail)
	employee, _ := loginAs(t, srv, employeeEmail)

	assignee := "USR-003"
	task, err := api.NewTaskAPI(pm).Create(ctx, ports.CreateTaskRequest{
		ProjectID: "PRJ-002", Title: "Écran paiement", Status: entities.TaskStatusTodo,
		Priority: entities.PriorityMedium, AssigneeID: &assignee,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := api.NewNotificationAPI(employee).Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	var offer *entities.Notification
	for i := range pending {
		if pending[i].TaskID == task.ID {
			offer = &pending[i]
		}
	}
	if offer == nil {
		t.Fatalf("no offer for %s in %+v", task.ID, pending)
	}
	if offer.ProjectName != "Mobile App" {
		t.Errorf("project name: got %q", offer.ProjectName)
	}

	if err := api.NewNotificationAPI(employee).Refuse(ctx, offer.ID); err != nil {
		t.Fatalf("Refuse: %v", err)
	}

	tasks, err := api.NewProjectAPI(pm).Tasks(ctx, "PRJ-002")
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	for _, tk := range tasks {
		if tk.ID == task.ID && tk.AssigneeID != nil {
			t.Errorf("refused task still assigned to %s", *tk.AssigneeID)
		}
	}

	received, err := api.NewNotificationAPI(pm).Received(ctx)
	if err != nil {
		t.Fatalf("Received: %v", err)
	}
	if len(received) != 1 || received[0].Status != entities.NotificationRejected {
		t.Errorf("received: got %+v", received)
	}
}

func TestCreateProjectWithDocument(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	pm, token := loginAs(t, srv, pmEmail)

	project, err := api.NewProjectAPI(pm).CreateWithDocument(ctx, ports.CreateProjectRequest{
		Name: "Intranet", Status: entities.ProjectStatusPlanned,
	}, ports.Document{Filename: "brief.txt", ContentType: "text/plain", Content: []byte("hello")})
	if err != nil {
		t.Fatalf("CreateWithDocument: %v", err)
	}
	if project.DocumentName == nil || *project.DocumentName != "brief.txt" {
		t.Errorf("document name: got %v", project.DocumentName)
	}
	if project.OwnerID != "USR-002" || !project.HasMember("USR-002") {
		t.Errorf("owner: got %+v", project)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/projects/"+project.ID+"/document", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Errorf("download: %d %q", resp.StatusCode, body)
	}
}

func TestUsersManagement(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	admin, _ := loginAs(t, srv, adminEmail)
	users := api.NewUserAPI(admin)

	created, err := users.Create(ctx, ports.CreateUserRequest{
		Name: "Nina Roy", Email: "nina@taskmaster.local", Role: entities.RoleEmployee, Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.IsActive {
		t.Error("new users default to active")
	}

	_, err = users.Create(ctx, ports.CreateUserRequest{
		Name: "Nina Bis", Email: "NINA@taskmaster.local", Role: entities.RoleClient, Password: "secret1",
	})
	if !api.IsStatus(err, http.StatusConflict) {
		t.Errorf("expected 409 on duplicate email, got %v", err)
	}

	inactive := false
	if _, err := users.Update(ctx, created.ID, ports.UpdateUserRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	_, err = api.NewAuthAPI(anonymous(srv, config.TransportBearer)).Login(ctx, ports.LoginRequest{
		Email: "nina@taskmaster.local", Password: "secret1",
	})
	if !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403 for an inactive account, got %v", err)
	}

	employee, _ := loginAs(t, srv, employeeEmail)
	if _, err := api.NewUserAPI(employee).List(ctx); !api.IsStatus(err, http.StatusForbidden) {
		t.Errorf("expected 403 listing users as employee, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	pm, _ := loginAs(t, srv, pmEmail)
	employee, _ := loginAs(t, srv, employeeEmail)

	if err := api.NewProjectAPI(pm).Delete(ctx, "PRJ-001"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := api.NewProjectAPI(pm).Tasks(ctx, "PRJ-001"); !api.IsNotFound(err) {
		t.Errorf("expected 404 for tasks of a deleted project, got %v", err)
	}
	pending, err := api.NewNotificationAPI(employee).Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending offers survived the project: %+v", pending)
	}
}
