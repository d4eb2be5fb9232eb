// Package service implements business logic on top of ports.
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/project"
	"github.com/waycms/waycms/internal/sandbox"
)

// Sites maps project slugs to sandboxed content roots under the sites
// directory. Roots are created lazily and cached; the sandbox canonicalizes
// the directory once, so each slug pays the symlink resolution a single time.
type Sites struct {
	dir string

	mu    sync.Mutex
	roots map[string]*sandbox.Root
}

// NewSites creates a resolver rooted at the sites directory.
func NewSites(dir string) *Sites {
	return &Sites{dir: dir, roots: make(map[string]*sandbox.Root)}
}

// Dir returns the sites directory.
func (s *Sites) Dir() string {
	return s.dir
}

// Root returns the sandboxed root for a slug. The site directory must exist.
func (s *Sites) Root(slug string) (*sandbox.Root, error) {
	if !project.ValidSlug(slug) {
		return nil, fmt.Errorf("site %q: %w", slug, domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.roots[slug]; ok {
		return r, nil
	}

	path := filepath.Join(s.dir, slug)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("site %q: %w", slug, domain.ErrNotFound)
	}

	r, err := sandbox.New(path)
	if err != nil {
		return nil, fmt.Errorf("site %q: %w", slug, err)
	}
	s.roots[slug] = r
	return r, nil
}

// Ensure creates the site directory if needed and returns its root.
func (s *Sites) Ensure(slug string) (*sandbox.Root, error) {
	if !project.ValidSlug(slug) {
		return nil, fmt.Errorf("site %q: %w", slug, domain.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, slug), 0o755); err != nil {
		return nil, fmt.Errorf("create site dir %q: %w", slug, err)
	}
	return s.Root(slug)
}
