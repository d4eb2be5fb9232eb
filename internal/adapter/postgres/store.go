package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/project"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type scannable interface {
	Scan(dest ...any) error
}

// uniqueViolation is the postgres error code for unique constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// --- Projects ---

const projectColumns = `id, name, slug, website_url, created_at, updated_at`

func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.name, p.slug, p.website_url, p.created_at, p.updated_at
		 FROM projects p
		 JOIN user_projects up ON p.id = up.project_id
		 WHERE up.user_id = $1 ORDER BY p.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects for user: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE slug = $1`, slug)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get project by slug %s: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project by slug %s: %w", slug, err)
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO projects (name, slug, website_url)
		 VALUES ($1, $2, $3)
		 RETURNING `+projectColumns,
		req.Name, req.Slug, req.WebsiteURL)

	p, err := scanProject(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create project: slug %s taken: %w", req.Slug, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, req project.UpdateRequest) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE projects SET
		   name = COALESCE($2, name),
		   website_url = COALESCE($3, website_url),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+projectColumns,
		id, req.Name, req.WebsiteURL)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// --- Assignments ---

func (s *Store) ListAssignments(ctx context.Context) ([]project.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT up.user_id, up.project_id, u.email, u.name, p.name, p.slug
		 FROM user_projects up
		 JOIN users u ON up.user_id = u.id
		 JOIN projects p ON up.project_id = p.id
		 ORDER BY u.email ASC, p.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []project.Assignment
	for rows.Next() {
		var a project.Assignment
		if err := rows.Scan(&a.UserID, &a.ProjectID, &a.UserEmail, &a.UserName, &a.ProjectName, &a.ProjectSlug); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AssignUser(ctx context.Context, userID, projectID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_projects (user_id, project_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, userID, projectID)
	if err != nil {
		return fmt.Errorf("assign user %s to project %s: %w", userID, projectID, err)
	}
	return nil
}

func (s *Store) UnassignUser(ctx context.Context, userID, projectID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_projects WHERE user_id = $1 AND project_id = $2`, userID, projectID)
	if err != nil {
		return fmt.Errorf("unassign user %s from project %s: %w", userID, projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unassign user %s from project %s: %w", userID, projectID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) UserHasProject(ctx context.Context, userID, projectID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_projects WHERE user_id = $1 AND project_id = $2)`,
		userID, projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project access: %w", err)
	}
	return exists, nil
}

// --- Scanners ---

func scanProject(row scannable) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.WebsiteURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProjects(rows pgx.Rows) ([]project.Project, error) {
	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
