package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

var projectsKey = query.Key{"projects"}

func projectKey(id string) query.Key {
	return query.Key{"projects", id}
}

// ProjectDetail is a project with its task list, read side by side.
type ProjectDetail struct {
	Project query.State[*entities.Project]
	Tasks   query.State[[]entities.Task]
}

// Board partitions the detail's tasks into Kanban lanes.
func (d ProjectDetail) Board() entities.Board {
	return entities.BuildBoard(d.Tasks.Data)
}

// ProjectService handles project reads and mutations for one session
type ProjectService struct {
	api    *api.ProjectAPI
	tasks  *TaskService
	cache  *query.Cache
	logger *logger.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projectAPI *api.ProjectAPI, tasks *TaskService, cache *query.Cache, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		api:    projectAPI,
		tasks:  tasks,
		cache:  cache,
		logger: logger,
	}
}

// List returns every project visible to the caller
func (s *ProjectService) List(ctx context.Context) query.State[[]entities.Project] {
	return query.Query(ctx, s.cache, projectsKey, s.api.List)
}

// Get returns one project
func (s *ProjectService) Get(ctx context.Context, id string) query.State[*entities.Project] {
	return query.Query(ctx, s.cache, projectKey(id), func(ctx context.Context) (*entities.Project, error) {
		return s.api.Get(ctx, id)
	})
}

// Detail reads a project and its tasks concurrently. The error is the first
// failure of either read; both states are filled in regardless.
func (s *ProjectService) Detail(ctx context.Context, id string) (ProjectDetail, error) {
	var detail ProjectDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detail.Project = s.Get(gctx, id)
		return detail.Project.Err
	})
	g.Go(func() error {
		detail.Tasks = s.tasks.List(gctx, id)
		return detail.Tasks.Err
	})
	err := g.Wait()
	return detail, err
}

// ForMember returns the projects userID belongs to
func (s *ProjectService) ForMember(ctx context.Context, userID string) query.State[[]entities.Project] {
	state := s.List(ctx)
	state.Data = entities.ProjectsWithMember(state.Data, userID)
	return state
}

// Create creates a project and puts it at the top of the cached list
func (s *ProjectService) Create(ctx context.Context, req ports.CreateProjectRequest) (*entities.Project, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	project, err := s.api.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.afterCreate(project)
	return project, nil
}

// CreateWithDocument creates a project with an attached document
func (s *ProjectService) CreateWithDocument(ctx context.Context, req ports.CreateProjectRequest, doc ports.Document) (*entities.Project, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	if doc.Filename == "" || len(doc.Content) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"document": "is empty"}}
	}
	project, err := s.api.CreateWithDocument(ctx, req, doc)
	if err != nil {
		return nil, err
	}
	s.afterCreate(project)
	return project, nil
}

func (s *ProjectService) afterCreate(project *entities.Project) {
	query.UpdateData(s.cache, projectsKey, func(old []entities.Project) []entities.Project {
		return append([]entities.Project{*project}, old...)
	})
	query.SetData(s.cache, projectKey(project.ID), func(*entities.Project, bool) *entities.Project { return project })
	s.logger.Infow("Project created", "project_id", project.ID, "name", project.Name)
}

// Update patches a project
func (s *ProjectService) Update(ctx context.Context, id string, req ports.UpdateProjectRequest) (*entities.Project, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	project, err := s.api.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	query.UpdateData(s.cache, projectsKey, func(old []entities.Project) []entities.Project {
		out := make([]entities.Project, len(old))
		for i, p := range old {
			if p.ID == id {
				p = *project
			}
			out[i] = p
		}
		return out
	})
	s.cache.Invalidate(projectKey(id))
	return project, nil
}

// Delete deletes a project and forgets its detail and tasks
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	query.UpdateData(s.cache, projectsKey, func(old []entities.Project) []entities.Project {
		out := make([]entities.Project, 0, len(old))
		for _, p := range old {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return out
	})
	s.cache.Remove(projectKey(id))
	s.cache.Remove(tasksKey(id))
	s.logger.Infow("Project deleted", "project_id", id)
	return nil
}

// AddMember adds an employee or client to a project
func (s *ProjectService) AddMember(ctx context.Context, id string, req ports.AddMemberRequest) error {
	if err := ValidateStruct(req); err != nil {
		return err
	}
	if _, err := s.api.AddMember(ctx, id, req); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	s.cache.Invalidate(projectsKey)
	return nil
}
