package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/backup"
	"github.com/waycms/waycms/internal/domain/content"
	"github.com/waycms/waycms/internal/filelock"
	"github.com/waycms/waycms/internal/port/cache"
)

// cacheTTL bounds staleness for file content changed outside the CMS.
const cacheTTL = time.Minute

// ContentService implements the file API: listing, reading, saving and
// deleting files inside a site's sandboxed tree.
type ContentService struct {
	sites        *Sites
	backups      *BackupService
	cache        cache.Cache
	maxFileBytes int64
}

// NewContentService creates a ContentService. readCache may be nil to disable
// read caching.
func NewContentService(sites *Sites, backups *BackupService, readCache cache.Cache, maxFileBytes int64) *ContentService {
	return &ContentService{sites: sites, backups: backups, cache: readCache, maxFileBytes: maxFileBytes}
}

// InvalidateAll drops all cached file content. Called after bulk rewrites.
func (s *ContentService) InvalidateAll() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// List returns one directory level: subdirectories first, then editable
// files, both name-sorted.
func (s *ContentService) List(_ context.Context, slug, rel string) (*content.Listing, error) {
	root, err := s.sites.Root(slug)
	if err != nil {
		return nil, err
	}
	abs, err := root.Resolve(rel)
	if err != nil {
		return nil, err
	}
	rel, err = root.Rel(abs)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", rel, domain.ErrNotFound)
	}

	listing := &content.Listing{Path: rel}
	for _, e := range entries {
		name := e.Name()
		if name[0] == '.' && name != ".htaccess" {
			continue
		}
		child := path.Join(rel, name)
		if e.IsDir() {
			listing.Directories = append(listing.Directories, content.FileEntry{
				Path: child, Name: name, IsDir: true,
			})
			continue
		}
		if !content.Editable(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		listing.Files = append(listing.Files, content.FileEntry{
			Path: child,
			Name: name,
			Size: info.Size(),
			Type: content.MIMEType(name),
		})
	}

	sort.Slice(listing.Directories, func(i, j int) bool { return listing.Directories[i].Name < listing.Directories[j].Name })
	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].Name < listing.Files[j].Name })
	return listing, nil
}

// Read returns the content and MIME type of one editable file.
func (s *ContentService) Read(ctx context.Context, slug, rel string) ([]byte, string, error) {
	root, err := s.sites.Root(slug)
	if err != nil {
		return nil, "", err
	}
	abs, err := root.Resolve(rel)
	if err != nil {
		return nil, "", err
	}
	rel, err = root.Rel(abs)
	if err != nil {
		return nil, "", err
	}
	name := path.Base(rel)
	if !content.Editable(name) {
		return nil, "", fmt.Errorf("read %s: not an editable file type: %w", rel, domain.ErrValidation)
	}

	key := slug + "\x00" + rel
	if s.cache != nil {
		if data, ok, _ := s.cache.Get(ctx, key); ok {
			return data, content.MIMEType(name), nil
		}
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, "", fmt.Errorf("read %s: %w", rel, domain.ErrNotFound)
	}
	if info.Size() > s.maxFileBytes {
		return nil, "", fmt.Errorf("read %s: file exceeds %d bytes: %w", rel, s.maxFileBytes, domain.ErrValidation)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // G304: path came through the sandbox
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rel, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, data, cacheTTL)
	}
	return data, content.MIMEType(name), nil
}

// Save writes an editable file atomically, backing up the previous content
// first. Parent directories are created as needed.
func (s *ContentService) Save(ctx context.Context, slug, rel string, data []byte) error {
	root, err := s.sites.Root(slug)
	if err != nil {
		return err
	}
	abs, err := root.Resolve(rel)
	if err != nil {
		return err
	}
	rel, err = root.Rel(abs)
	if err != nil {
		return err
	}
	if rel == "" {
		return fmt.Errorf("save: path is required: %w", domain.ErrValidation)
	}
	name := path.Base(rel)
	if !content.Editable(name) {
		return fmt.Errorf("save %s: not an editable file type: %w", rel, domain.ErrValidation)
	}
	if int64(len(data)) > s.maxFileBytes {
		return fmt.Errorf("save %s: content exceeds %d bytes: %w", rel, s.maxFileBytes, domain.ErrValidation)
	}

	err = filelock.WithLock(abs, func() error {
		if _, statErr := os.Stat(abs); statErr == nil {
			if _, err := s.backups.Create(ctx, slug, root, rel, backup.AutoLabel); err != nil {
				return fmt.Errorf("backup before save: %w", err)
			}
		}
		return filelock.AtomicWrite(abs, data, 0o644)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", rel, err)
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, slug+"\x00"+rel)
	}
	return nil
}

// Delete removes a file or an entire subdirectory. The site root itself
// cannot be deleted.
func (s *ContentService) Delete(ctx context.Context, slug, rel string) error {
	root, err := s.sites.Root(slug)
	if err != nil {
		return err
	}
	abs, err := root.Resolve(rel)
	if err != nil {
		return err
	}
	rel, err = root.Rel(abs)
	if err != nil {
		return err
	}
	if rel == "" {
		return fmt.Errorf("delete: refusing to remove the site root: %w", domain.ErrValidation)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("delete %s: %w", rel, domain.ErrNotFound)
	}

	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", rel, err)
	}

	if s.cache != nil {
		if info.IsDir() {
			s.cache.Clear()
		} else {
			_ = s.cache.Delete(ctx, slug+"\x00"+rel)
		}
	}
	return nil
}
