package service

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/waycms/waycms/internal/adapter/otel"
	"github.com/waycms/waycms/internal/adapter/ws"
	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/backup"
	"github.com/waycms/waycms/internal/filelock"
	"github.com/waycms/waycms/internal/port/broadcast"
	"github.com/waycms/waycms/internal/sandbox"
)

// BackupService creates, lists, restores, deletes and prunes tar.gz archives.
// Archives live outside the sites directory, one subdirectory per site.
type BackupService struct {
	dir       string
	retention backup.RetentionPolicy
	hub       broadcast.Broadcaster
	metrics   *otel.Metrics
	now       func() time.Time
}

// NewBackupService creates a BackupService writing archives under dir.
func NewBackupService(dir string, retention backup.RetentionPolicy) *BackupService {
	return &BackupService{dir: dir, retention: retention, now: time.Now}
}

// SetBroadcaster wires the optional event hub.
func (s *BackupService) SetBroadcaster(h broadcast.Broadcaster) { s.hub = h }

// SetMetrics wires the optional metric instruments.
func (s *BackupService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// siteDir returns the archive directory for a site, creating it on demand.
func (s *BackupService) siteDir(site string) (string, error) {
	dir := filepath.Join(s.dir, site)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir for %s: %w", site, err)
	}
	return dir, nil
}

// Create archives the file or subtree at rel inside the site root. An empty
// rel archives the whole tree. The archive becomes visible under its final
// name only after it is fully written.
func (s *BackupService) Create(ctx context.Context, site string, root *sandbox.Root, rel, label string) (*backup.Backup, error) {
	abs, err := root.Resolve(rel)
	if err != nil {
		return nil, err
	}
	rel, err = root.Rel(abs)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("backup target %s: %w", rel, domain.ErrNotFound)
	}
	scope := backup.ScopeFile
	if info.IsDir() {
		scope = backup.ScopeFolder
	}

	dir, err := s.siteDir(site)
	if err != nil {
		return nil, err
	}

	id := backup.ArchiveID(rel, label, scope, s.now())
	final := filepath.Join(dir, id)

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeArchive(tmp, root, abs, info); err != nil {
		return nil, fmt.Errorf("write archive %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return nil, fmt.Errorf("publish archive: %w", err)
	}
	tmp = nil

	b, err := backup.ParseID(id)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(final); err == nil {
		b.SizeBytes = st.Size()
	}
	b.StoragePath = final

	if s.metrics != nil {
		s.metrics.BackupsCreated.Add(ctx, 1)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventBackupCreated, ws.BackupEvent{
			Site:      site,
			BackupID:  b.ID,
			Scope:     string(b.Scope),
			ScopePath: b.ScopePath,
			CreatedAt: b.CreatedAt,
		})
	}
	return &b, nil
}

// writeArchive streams a gzip tar of the target into w. Entry names are
// slash-relative to the site root so restore maps them back through the
// sandbox.
func writeArchive(w io.Writer, root *sandbox.Root, abs string, info os.FileInfo) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	add := func(path string, fi os.FileInfo) error {
		rel, err := root.Rel(path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return fmt.Errorf("header %s: %w", rel, err)
		}
		hdr.Name = rel
		if fi.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", rel, err)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path) //nolint:gosec // G304: path came through the sandbox
		if err != nil {
			return fmt.Errorf("open %s: %w", rel, err)
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		return nil
	}

	if info.IsDir() {
		err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == abs {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if !fi.IsDir() && !fi.Mode().IsRegular() {
				return nil
			}
			return add(path, fi)
		})
		if err != nil {
			return err
		}
	} else if err := add(abs, info); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

// List returns the archives for a site, newest first. A non-empty rel limits
// the listing to backups of that scope path.
func (s *BackupService) List(_ context.Context, site, rel string) ([]backup.Backup, error) {
	dir := filepath.Join(s.dir, site)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups for %s: %w", site, err)
	}

	var filterKey string
	if rel != "" {
		clean, err := sandbox.Clean(rel)
		if err != nil {
			return nil, err
		}
		filterKey = backup.ScopeKey(clean)
	}

	var out []backup.Backup
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		b, err := backup.ParseID(e.Name())
		if err != nil {
			continue // foreign file in the backup dir
		}
		if filterKey != "" && b.ScopePath != filterKey {
			continue
		}
		if info, err := e.Info(); err == nil {
			b.SizeBytes = info.Size()
		}
		b.StoragePath = filepath.Join(dir, e.Name())
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Restore extracts an archive back into the site root. Every entry path is
// resolved through the sandbox, so a crafted archive cannot write outside it.
func (s *BackupService) Restore(ctx context.Context, site string, root *sandbox.Root, id string) error {
	b, err := backup.ParseID(id)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(s.dir, site, id)) //nolint:gosec // G304: id validated by ParseID
	if err != nil {
		return fmt.Errorf("backup %s: %w", id, domain.ErrNotFound)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", id, err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read archive %s: %w", id, err)
		}

		abs, err := root.Resolve(hdr.Name)
		if err != nil {
			return fmt.Errorf("archive entry %q: %w", hdr.Name, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("restore dir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("restore %s: %w", hdr.Name, err)
			}
			perm := fs.FileMode(hdr.Mode) & fs.ModePerm
			if perm == 0 {
				perm = 0o644
			}
			if err := filelock.AtomicWrite(abs, data, perm); err != nil {
				return fmt.Errorf("restore %s: %w", hdr.Name, err)
			}
		default:
			// symlinks and specials are never archived
		}
	}

	if s.metrics != nil {
		s.metrics.BackupsRestored.Add(ctx, 1)
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventBackupRestored, ws.BackupEvent{
			Site:      site,
			BackupID:  id,
			Scope:     string(b.Scope),
			ScopePath: b.ScopePath,
			CreatedAt: b.CreatedAt,
		})
	}
	return nil
}

// Delete removes an archive. Deleting an archive that is already gone is not
// an error.
func (s *BackupService) Delete(_ context.Context, site, id string) error {
	if _, err := backup.ParseID(id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, site, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	return nil
}

// Prune applies the retention policy to the automatic lineages of a site and
// deletes the expired archives. User-named backups are never pruned.
func (s *BackupService) Prune(ctx context.Context, site string) ([]backup.Backup, error) {
	all, err := s.List(ctx, site, "")
	if err != nil {
		return nil, err
	}

	// One lineage per scope identity.
	lineages := make(map[string][]backup.Backup)
	for _, b := range all {
		if b.Label != backup.AutoLabel {
			continue
		}
		key := string(b.Scope) + "\x00" + b.ScopePath
		lineages[key] = append(lineages[key], b)
	}

	var removed []backup.Backup
	for _, lineage := range lineages {
		for _, b := range s.retention.Expired(lineage) {
			if err := os.Remove(b.StoragePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("prune failed", "site", site, "backup", b.ID, "error", err)
				continue
			}
			removed = append(removed, b)
		}
	}

	if s.metrics != nil && len(removed) > 0 {
		s.metrics.BackupsPruned.Add(ctx, int64(len(removed)))
	}
	return removed, nil
}
