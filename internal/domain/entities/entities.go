package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrUnknownRole          = errors.New("unknown role")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrNotificationResolved = errors.New("notification already resolved")
	ErrProjectNotFound      = errors.New("project not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrUserNotFound         = errors.New("user not found")
)

// Enums and types
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleEmployee       Role = "EMPLOYEE"
	RoleClient         Role = "CLIENT"
)

// Roles lists the canonical roles in display order.
var Roles = []Role{RoleAdmin, RoleProjectManager, RoleEmployee, RoleClient}

type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "PLANNED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusDone       ProjectStatus = "DONE"
	ProjectStatusPaused     ProjectStatus = "PAUSED"
)

// ProjectStatuses lists project statuses in display order.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanned,
	ProjectStatusInProgress,
	ProjectStatusDone,
	ProjectStatusPaused,
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists task statuses in board order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "PENDING"
	NotificationAccepted NotificationStatus = "ACCEPTED"
	NotificationRejected NotificationStatus = "REJECTED"
)

// NotificationKind distinguishes the offer sent to an assignee from the
// answer routed back to the manager who issued it.
type NotificationKind string

const (
	NotificationKindAssignment NotificationKind = "assignment"
	NotificationKindResponse   NotificationKind = "response"
)

// User mirrors a backend user record
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProjectMember is a user reference plus the role held inside one project
type ProjectMember struct {
	UserID        string `json:"userId"`
	RoleInProject string `json:"roleInProject"`
}

// Project mirrors a backend project record
type Project struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Status       ProjectStatus   `json:"status"`
	StartDate    *Date           `json:"startDate,omitempty"`
	EndDate      *Date           `json:"endDate,omitempty"`
	OwnerID      string          `json:"ownerId,omitempty"`
	Members      []ProjectMember `json:"members"`
	DocumentName *string         `json:"documentName,omitempty"`
}

// Task mirrors a backend task record
type Task struct {
	ID                string     `json:"id"`
	ProjectID         string     `json:"projectId"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            TaskStatus `json:"status"`
	Priority          Priority   `json:"priority"`
	AssigneeID        *string    `json:"assigneeId,omitempty"`
	DueDate           *Date      `json:"dueDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	DocumentAvailable bool       `json:"documentAvailable,omitempty"`
	DocumentName      string     `json:"documentName,omitempty"`
}

// Notification covers both the assignment offer and the manager-facing response
type Notification struct {
	ID           string             `json:"id"`
	TaskID       string             `json:"taskId,omitempty"`
	ProjectID    string             `json:"projectId,omitempty"`
	SenderID     string             `json:"senderId,omitempty"`
	ReceiverID   string             `json:"receiverId,omitempty"`
	EmployeeID   string             `json:"employeeId,omitempty"`
	Status       NotificationStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
	TaskTitle    string             `json:"taskTitle,omitempty"`
	TaskName     string             `json:"taskName,omitempty"`
	ProjectName  string             `json:"projectName,omitempty"`
	EmployeeName string             `json:"employeeName,omitempty"`
	Response     bool               `json:"response,omitempty"`
}

// Business logic methods for User
func (u *User) IsManager() bool {
	return u != nil && u.Role.IsManager()
}

// Business logic methods for Project
func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (p *Project) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}

// Business logic methods for Task

// NextStatus returns the column to the right of the one the board shows the
// task in. DONE stays DONE; unknown statuses sit in TODO.
func (t *Task) NextStatus() TaskStatus {
	switch t.Status {
	case TaskStatusInProgress, TaskStatusDone:
		return TaskStatusDone
	default:
		return TaskStatusInProgress
	}
}

func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && userID != "" && *t.AssigneeID == userID
}

// IsOverdue is true past the due date until the task is done.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return now.After(t.DueDate.Time) && t.Status != TaskStatusDone
}

// Business logic methods for Notification
func (n *Notification) IsPending() bool {
	return n.Status == NotificationPending
}

// IsProjectInvite reports a membership offer rather than a task assignment.
func (n *Notification) IsProjectInvite() bool {
	return n.ProjectID != "" && n.TaskID == ""
}

func (n *Notification) Kind() NotificationKind {
	if n.Response {
		return NotificationKindResponse
	}
	return NotificationKindAssignment
}

// CanTransition enforces pending -> accepted|rejected, never back.
func (n *Notification) CanTransition(to NotificationStatus) error {
	if !to.IsValid() || to == NotificationPending {
		return ErrInvalidStatus
	}
	if n.Status != NotificationPending {
		return ErrNotificationResolved
	}
	return nil
}

func (n *Notification) TaskLabel() string {
	if s := strings.TrimSpace(n.TaskTitle); s != "" {
		return n.TaskTitle
	}
	if s := strings.TrimSpace(n.TaskName); s != "" {
		return n.TaskName
	}
	return n.TaskID
}

func (n *Notification) ProjectLabel() string {
	if s := strings.TrimSpace(n.ProjectName); s != "" {
		return n.ProjectName
	}
	return n.ProjectID
}

// Utility methods
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleEmployee, RoleClient:
		return true
	default:
		return false
	}
}

func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleProjectManager
}

func (ps ProjectStatus) IsValid() bool {
	switch ps {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusDone, ProjectStatusPaused:
		return true
	default:
		return false
	}
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func (ns NotificationStatus) IsValid() bool {
	switch ns {
	case NotificationPending, NotificationAccepted, NotificationRejected:
		return true
	default:
		return false
	}
}
