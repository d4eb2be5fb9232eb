// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/waycms/waycms/internal/domain/project"
	"github.com/waycms/waycms/internal/domain/user"
)

// Store is the port interface for database operations.
type Store interface {
	// Projects
	ListProjects(ctx context.Context) ([]project.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	GetProjectBySlug(ctx context.Context, slug string) (*project.Project, error)
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	UpdateProject(ctx context.Context, id string, req project.UpdateRequest) (*project.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Users
	ListUsers(ctx context.Context) ([]user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	CreateUser(ctx context.Context, req user.CreateRequest, passwordHash string) (*user.User, error)
	UpdateUser(ctx context.Context, id string, req user.UpdateRequest) (*user.User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error

	// Assignments
	ListAssignments(ctx context.Context) ([]project.Assignment, error)
	AssignUser(ctx context.Context, userID, projectID string) error
	UnassignUser(ctx context.Context, userID, projectID string) error
	UserHasProject(ctx context.Context, userID, projectID string) (bool, error)

	// Magic links
	CreateMagicLink(ctx context.Context, link user.MagicLink) error
	GetMagicLinkByToken(ctx context.Context, token string) (*user.MagicLink, error)
	MarkMagicLinkUsed(ctx context.Context, id string) error
	DeleteExpiredMagicLinks(ctx context.Context, before time.Time) (int64, error)

	// Sessions
	CreateSession(ctx context.Context, s user.Session) error
	GetSessionByTokenHash(ctx context.Context, hash string) (*user.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}
