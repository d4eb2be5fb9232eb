package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/project"
	"github.com/waycms/waycms/internal/domain/user"
)

// mockStore is an in-memory database.Store for service tests.
type mockStore struct {
	mu          sync.Mutex
	projects    map[string]project.Project
	users       map[string]user.User
	assignments map[string]bool // userID + "\x00" + projectID
	magicLinks  map[string]user.MagicLink
	sessions    map[string]user.Session
}

func newMockStore() *mockStore {
	return &mockStore{
		projects:    make(map[string]project.Project),
		users:       make(map[string]user.User),
		assignments: make(map[string]bool),
		magicLinks:  make(map[string]user.MagicLink),
		sessions:    make(map[string]user.Session),
	}
}

func (m *mockStore) ListProjects(context.Context) ([]project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockStore) ListProjectsForUser(_ context.Context, userID string) ([]project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Project
	for _, p := range m.projects {
		if m.assignments[userID+"\x00"+p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) GetProject(_ context.Context, id string) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) GetProjectBySlug(_ context.Context, slug string) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateProject(_ context.Context, req project.CreateRequest) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.Slug == req.Slug {
			return nil, fmt.Errorf("slug taken: %w", domain.ErrConflict)
		}
	}
	p := project.Project{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Slug:       req.Slug,
		WebsiteURL: req.WebsiteURL,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.projects[p.ID] = p
	return &p, nil
}

func (m *mockStore) UpdateProject(_ context.Context, id string, req project.UpdateRequest) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.WebsiteURL != nil {
		p.WebsiteURL = *req.WebsiteURL
	}
	p.UpdatedAt = time.Now()
	m.projects[id] = p
	return &p, nil
}

func (m *mockStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockStore) ListUsers(context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) CreateUser(_ context.Context, req user.CreateRequest, passwordHash string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == req.NormalizedEmail() {
			return nil, fmt.Errorf("email taken: %w", domain.ErrConflict)
		}
	}
	u := user.User{
		ID:           uuid.NewString(),
		Email:        req.NormalizedEmail(),
		Name:         req.Name,
		PasswordHash: passwordHash,
		IsAdmin:      req.IsAdmin,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *mockStore) UpdateUser(_ context.Context, id string, req user.UpdateRequest) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.IsAdmin != nil {
		u.IsAdmin = *req.IsAdmin
	}
	m.users[id] = u
	return &u, nil
}

func (m *mockStore) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *mockStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *mockStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockStore) ListAssignments(context.Context) ([]project.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Assignment
	for key := range m.assignments {
		userID, projectID, _ := strings.Cut(key, "\x00")
		a := project.Assignment{UserID: userID, ProjectID: projectID}
		if u, ok := m.users[userID]; ok {
			a.UserEmail = u.Email
			a.UserName = u.Name
		}
		if p, ok := m.projects[projectID]; ok {
			a.ProjectName = p.Name
			a.ProjectSlug = p.Slug
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) AssignUser(_ context.Context, userID, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[userID+"\x00"+projectID] = true
	return nil
}

func (m *mockStore) UnassignUser(_ context.Context, userID, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "\x00" + projectID
	if !m.assignments[key] {
		return domain.ErrNotFound
	}
	delete(m.assignments, key)
	return nil
}

func (m *mockStore) UserHasProject(_ context.Context, userID, projectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[userID+"\x00"+projectID], nil
}

func (m *mockStore) CreateMagicLink(_ context.Context, link user.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.magicLinks[link.ID] = link
	return nil
}

func (m *mockStore) GetMagicLinkByToken(_ context.Context, token string) (*user.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.magicLinks {
		if l.Token == token {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) MarkMagicLinkUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.magicLinks[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Used {
		return domain.ErrConflict
	}
	l.Used = true
	m.magicLinks[id] = l
	return nil
}

func (m *mockStore) DeleteExpiredMagicLinks(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, l := range m.magicLinks {
		if l.Used || l.ExpiresAt.Before(before) {
			delete(m.magicLinks, id)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CreateSession(_ context.Context, s user.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockStore) GetSessionByTokenHash(_ context.Context, hash string) (*user.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenHash == hash {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockStore) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
