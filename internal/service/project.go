package service

import (
	"context"
	"fmt"

	"github.com/waycms/waycms/internal/domain/project"
	"github.com/waycms/waycms/internal/domain/user"
	"github.com/waycms/waycms/internal/port/database"
)

// ProjectService manages projects and user assignments. Each project owns one
// site directory named after its slug.
type ProjectService struct {
	store database.Store
	sites *Sites
}

// NewProjectService creates a ProjectService.
func NewProjectService(store database.Store, sites *Sites) *ProjectService {
	return &ProjectService{store: store, sites: sites}
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]project.Project, error) {
	return s.store.ListProjects(ctx)
}

// ListFor returns the projects visible to a user. Admins see everything.
func (s *ProjectService) ListFor(ctx context.Context, u *user.User) ([]project.Project, error) {
	if u.IsAdmin {
		return s.store.ListProjects(ctx)
	}
	return s.store.ListProjectsForUser(ctx, u.ID)
}

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*project.Project, error) {
	return s.store.GetProject(ctx, id)
}

// GetBySlug returns a project by slug.
func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return s.store.GetProjectBySlug(ctx, slug)
}

// Create validates the request, stores the project and creates its site
// directory.
func (s *ProjectService) Create(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	if err := project.ValidateCreateRequest(req); err != nil {
		return nil, err
	}
	p, err := s.store.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.sites.Ensure(p.Slug); err != nil {
		return nil, fmt.Errorf("project %s created but site dir failed: %w", p.Slug, err)
	}
	return p, nil
}

// Update changes a project's mutable fields. The slug is immutable because it
// names the site directory on disk.
func (s *ProjectService) Update(ctx context.Context, id string, req project.UpdateRequest) (*project.Project, error) {
	if err := project.ValidateUpdateRequest(req); err != nil {
		return nil, err
	}
	return s.store.UpdateProject(ctx, id, req)
}

// Delete removes the project record and its assignments. The site directory
// and its backups stay on disk until removed out of band.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteProject(ctx, id)
}

// Assign grants a user access to a project.
func (s *ProjectService) Assign(ctx context.Context, userID, projectID string) error {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	return s.store.AssignUser(ctx, userID, projectID)
}

// Unassign revokes a user's access to a project.
func (s *ProjectService) Unassign(ctx context.Context, userID, projectID string) error {
	return s.store.UnassignUser(ctx, userID, projectID)
}

// Assignments returns every user-project assignment.
func (s *ProjectService) Assignments(ctx context.Context) ([]project.Assignment, error) {
	return s.store.ListAssignments(ctx)
}

// CanAccess reports whether a user may work on a project. Admins always may.
func (s *ProjectService) CanAccess(ctx context.Context, u *user.User, projectID string) (bool, error) {
	if u.IsAdmin {
		return true, nil
	}
	return s.store.UserHasProject(ctx, u.ID, projectID)
}
