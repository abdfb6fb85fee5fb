package services

import (
	"context"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

func tasksKey(projectID string) query.Key {
	return query.Key{"tasks", projectID}
}

// TaskService handles task reads and mutations for one session
type TaskService struct {
	api     *api.TaskAPI
	cache   *query.Cache
	signals *Signals
	logger  *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(taskAPI *api.TaskAPI, cache *query.Cache, signals *Signals, logger *logger.Logger) *TaskService {
	return &TaskService{
		api:     taskAPI,
		cache:   cache,
		signals: signals,
		logger:  logger,
	}
}

// List returns the tasks of a project
func (s *TaskService) List(ctx context.Context, projectID string) query.State[[]entities.Task] {
	return query.Query(ctx, s.cache, tasksKey(projectID), func(ctx context.Context) ([]entities.Task, error) {
		return s.api.ListByProject(ctx, projectID)
	})
}

// Create creates a task. Assigning it sends the assignee an offer, so
// membership and notification views are refreshed too.
func (s *TaskService) Create(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	task, err := s.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	query.UpdateData(s.cache, tasksKey(task.ProjectID), func(old []entities.Task) []entities.Task {
		return append([]entities.Task{*task}, old...)
	})
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		s.assignmentChanged()
	}

	s.logger.Infow("Task created", "task_id", task.ID, "project_id", task.ProjectID)
	return task, nil
}

// Update patches a task
func (s *TaskService) Update(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	task, err := s.api.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	query.UpdateData(s.cache, tasksKey(task.ProjectID), func(old []entities.Task) []entities.Task {
		out := make([]entities.Task, len(old))
		for i, t := range old {
			if t.ID == id {
				t = *task
			}
			out[i] = t
		}
		return out
	})
	if req.AssigneeID != nil {
		s.assignmentChanged()
	}
	return task, nil
}

// Delete deletes a task from a project
func (s *TaskService) Delete(ctx context.Context, projectID, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	query.UpdateData(s.cache, tasksKey(projectID), func(old []entities.Task) []entities.Task {
		out := make([]entities.Task, 0, len(old))
		for _, t := range old {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	})
	return nil
}

// Advance moves a task one column to the right. A DONE task is returned
// unchanged without calling the backend.
func (s *TaskService) Advance(ctx context.Context, task entities.Task) (*entities.Task, error) {
	next := task.NextStatus()
	if next == task.Status {
		return &task, nil
	}
	return s.Update(ctx, task.ID, ports.UpdateTaskRequest{Status: &next})
}

func (s *TaskService) assignmentChanged() {
	s.cache.Invalidate(projectsKey)
	if s.signals != nil {
		s.signals.Publish(EventNotificationsChanged)
	}
}
