package devbackend

import (
	"fmt"
	"time"

	"github.com/taskmaster/console/internal/domain/entities"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

// Seed loads the demo data set: one account per role, two projects, a few
// tasks and one pending assignment offer.
func (b *Backend) Seed() error {
	hash, err := hashPassword(DemoPassword)
	if err != nil {
		return err
	}

	accounts := []entities.User{
		{Name: "Alice Martin", Email: "admin@taskmaster.local", Role: entities.RoleAdmin, IsActive: true},
		{Name: "Paul Bernard", Email: "pm@taskmaster.local", Role: entities.RoleProjectManager, IsActive: true},
		{Name: "Emma Durand", Email: "employee@taskmaster.local", Role: entities.RoleEmployee, IsActive: true},
		{Name: "Claire Petit", Email: "client@taskmaster.local", Role: entities.RoleClient, IsActive: true},
	}
	ids := make([]string, 0, len(accounts))
	for _, u := range accounts {
		created, err := b.store.CreateUser(u, hash)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		ids = append(ids, created.ID)
	}
	pm, employee, client := ids[1], ids[2], ids[3]

	date := func(y int, m time.Month, d int) *entities.Date {
		return entities.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}

	docsHub := b.store.CreateProject(entities.Project{
		Name:        "Docs Hub",
		Description: "Base documentaire interne, en attente de budget.",
		Status:      entities.ProjectStatusPaused,
		StartDate:   date(2024, time.January, 15),
		OwnerID:     pm,
		Members: []entities.ProjectMember{
			{UserID: pm, RoleInProject: string(entities.RoleProjectManager)},
			{UserID: employee, RoleInProject: string(entities.RoleEmployee)},
		},
	}, nil)
	mobile := b.store.CreateProject(entities.Project{
		Name:        "Mobile App",
		Description: "Application **mobile** pour les clients.",
		Status:      entities.ProjectStatusInProgress,
		StartDate:   date(2024, time.March, 1),
		EndDate:     date(2024, time.December, 20),
		OwnerID:     pm,
		Members: []entities.ProjectMember{
			{UserID: pm, RoleInProject: string(entities.RoleProjectManager)},
			{UserID: client, RoleInProject: string(entities.RoleClient)},
		},
	}, nil)

	offered, err := b.store.CreateTask(entities.Task{
		ProjectID:  docsHub.ID,
		Title:      "Rédiger le guide d'accueil",
		Status:     entities.TaskStatusTodo,
		Priority:   entities.PriorityHigh,
		AssigneeID: &employee,
		DueDate:    date(2024, time.February, 28),
	})
	if err != nil {
		return fmt.Errorf("seed task: %w", err)
	}
	tasks := []entities.Task{
		{ProjectID: docsHub.ID, Title: "Choisir le moteur de recherche", Status: entities.TaskStatusInProgress, Priority: entities.PriorityMedium},
		{ProjectID: mobile.ID, Title: "Maquettes écran d'accueil", Status: entities.TaskStatusDone, Priority: entities.PriorityLow},
	}
	for _, t := range tasks {
		if _, err := b.store.CreateTask(t); err != nil {
			return fmt.Errorf("seed task: %w", err)
		}
	}

	b.store.CreateNotification(entities.Notification{
		TaskID:       offered.ID,
		ProjectID:    docsHub.ID,
		SenderID:     pm,
		ReceiverID:   employee,
		EmployeeID:   employee,
		Status:       entities.NotificationPending,
		TaskTitle:    offered.Title,
		ProjectName:  docsHub.Name,
		EmployeeName: accounts[2].Name,
	})

	b.logger.Infow("Seeded demo data", "users", len(ids), "projects", 2, "tasks", len(tasks)+1)
	return nil
}
