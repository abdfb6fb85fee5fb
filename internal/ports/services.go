package ports

import (
	"github.com/taskmaster/console/internal/domain/entities"
)

// Request/Response Types

// Auth related types
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  *entities.User `json:"user"`
}

// User related types
type CreateUserRequest struct {
	Name     string        `json:"name" form:"name" validate:"required,min=3,max=100"`
	Email    string        `json:"email" form:"email" validate:"required,email"`
	Role     entities.Role `json:"role" form:"role" validate:"required,oneof=ADMIN PROJECT_MANAGER EMPLOYEE CLIENT"`
	Password string        `json:"password" form:"password" validate:"required,min=6"`
	IsActive *bool         `json:"isActive,omitempty" form:"isActive"`
}

type UpdateUserRequest struct {
	Name     *string        `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Email    *string        `json:"email,omitempty" validate:"omitempty,email"`
	Role     *entities.Role `json:"role,omitempty" validate:"omitempty,oneof=ADMIN PROJECT_MANAGER EMPLOYEE CLIENT"`
	Password *string        `json:"password,omitempty" validate:"omitempty,min=6"`
	IsActive *bool          `json:"isActive,omitempty"`
}

// Project related types
type CreateProjectRequest struct {
	Name        string                 `json:"name" form:"name" validate:"required,min=2,max=200"`
	Description string                 `json:"description" form:"description" validate:"max=5000"`
	Status      entities.ProjectStatus `json:"status" form:"status" validate:"required,oneof=PLANNED IN_PROGRESS DONE PAUSED"`
	StartDate   *entities.Date         `json:"startDate,omitempty"`
	EndDate     *entities.Date         `json:"endDate,omitempty"`
	OwnerID     string                 `json:"ownerId,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string                 `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string                 `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *entities.ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=PLANNED IN_PROGRESS DONE PAUSED"`
	StartDate   *entities.Date          `json:"startDate,omitempty"`
	EndDate     *entities.Date          `json:"endDate,omitempty"`
}

type AddMemberRequest struct {
	UserID        string `json:"userId" form:"userId" validate:"required"`
	RoleInProject string `json:"roleInProject" form:"roleInProject" validate:"required,oneof=EMPLOYEE CLIENT"`
}

// Document is a file attached to a project on creation.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Task related types
type CreateTaskRequest struct {
	ProjectID   string              `json:"projectId" form:"projectId" validate:"required"`
	Title       string              `json:"title" form:"title" validate:"required,max=500"`
	Description string              `json:"description" form:"description" validate:"max=5000"`
	Status      entities.TaskStatus `json:"status" form:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
	Priority    entities.Priority   `json:"priority" form:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *string             `json:"assigneeId,omitempty"`
	DueDate     *entities.Date      `json:"dueDate,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string              `json:"title,omitempty" validate:"omitempty,max=500"`
	Description *string              `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *entities.TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    *entities.Priority   `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *string              `json:"assigneeId,omitempty"`
	DueDate     *entities.Date       `json:"dueDate,omitempty"`
}

// Response types for common structures
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
