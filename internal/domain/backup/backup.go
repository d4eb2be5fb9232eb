// Package backup defines the backup domain: archive descriptors, the naming
// scheme and the retention policy.
package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/waycms/waycms/internal/domain"
)

// Scope is what a backup covers: a single file or a directory subtree.
type Scope string

const (
	ScopeFile   Scope = "file"
	ScopeFolder Scope = "folder"
)

// AutoLabel marks archives created by the scheduler. Only this lineage is
// subject to retention pruning; user-named backups are kept until deleted.
const AutoLabel = "auto"

// ArchiveSuffix is the file extension of every backup archive.
const ArchiveSuffix = ".tar.gz"

// Backup describes one immutable archive on disk.
type Backup struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Scope       Scope     `json:"scope"`
	ScopePath   string    `json:"scope_path"`
	CreatedAt   time.Time `json:"created_at"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"-"`
}

// tsLayout orders lexicographically the same as chronologically.
const tsLayout = "20060102T150405Z"

// ArchiveID builds the deterministic archive file name for a backup.
// Fields are joined with "~", which the sanitizer never emits, so the name
// parses unambiguously.
func ArchiveID(scopePath, label string, scope Scope, at time.Time) string {
	if label == "" {
		label = "manual"
	}
	return strings.Join([]string{
		ScopeKey(scopePath),
		at.UTC().Format(tsLayout),
		sanitize(label),
		string(scope),
	}, "~") + ArchiveSuffix
}

// ParseID decodes an archive file name produced by ArchiveID.
func ParseID(id string) (Backup, error) {
	base, ok := strings.CutSuffix(id, ArchiveSuffix)
	if !ok {
		return Backup{}, fmt.Errorf("parse backup id %q: %w", id, domain.ErrValidation)
	}
	parts := strings.Split(base, "~")
	if len(parts) != 4 {
		return Backup{}, fmt.Errorf("parse backup id %q: %w", id, domain.ErrValidation)
	}
	at, err := time.Parse(tsLayout, parts[1])
	if err != nil {
		return Backup{}, fmt.Errorf("parse backup id %q: %w", id, domain.ErrValidation)
	}
	scope := Scope(parts[3])
	if scope != ScopeFile && scope != ScopeFolder {
		return Backup{}, fmt.Errorf("parse backup id %q: %w", id, domain.ErrValidation)
	}
	return Backup{
		ID:        id,
		Label:     parts[2],
		Scope:     scope,
		ScopePath: parts[0],
		CreatedAt: at,
	}, nil
}

// ScopeKey flattens a slash-relative scope path into a single name-safe
// token. The root scope maps to "_root".
func ScopeKey(scopePath string) string {
	if scopePath == "" {
		return "_root"
	}
	return sanitize(strings.ReplaceAll(scopePath, "/", "__"))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
