// Package sandbox enforces the content-root boundary for client-supplied paths.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/waycms/waycms/internal/domain"
)

// Root is a canonicalized directory that all resolved paths must stay under.
// Immutable once created.
type Root struct {
	dir string
}

// New creates a Root for the given directory. The directory must exist;
// symlinks in its path are resolved so that later prefix checks compare
// canonical paths.
func New(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %s: %w", dir, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox root %s: %w", dir, err)
	}
	return &Root{dir: canon}, nil
}

// Dir returns the canonical absolute root directory.
func (r *Root) Dir() string {
	return r.dir
}

// Resolve maps a client-supplied relative path to an absolute path under the
// root. An empty or "." input resolves to the root itself. Any traversal that
// would pop above the root, and any symlink that points outside it, fails
// with domain.ErrPathEscape.
func (r *Root) Resolve(rel string) (string, error) {
	clean, err := Clean(rel)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return r.dir, nil
	}

	abs := filepath.Join(r.dir, filepath.FromSlash(clean))

	real, err := evalExisting(abs)
	if err != nil {
		return "", fmt.Errorf("resolve: %w", err)
	}
	if real != r.dir && !strings.HasPrefix(real, r.dir+string(filepath.Separator)) {
		return "", domain.ErrPathEscape
	}
	return abs, nil
}

// Rel converts an absolute path under the root back to the slash-separated
// relative form used in API responses and reports.
func (r *Root) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPathEscape
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Clean normalizes a client-supplied path to a slash-separated relative path
// with no empty, "." or ".." segments. Leading slashes and Windows separators
// are tolerated. Traversal above the root fails with domain.ErrPathEscape.
func Clean(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, `\`, "/")

	var segs []string
	for _, seg := range strings.Split(rel, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return "", domain.ErrPathEscape
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}
	return strings.Join(segs, "/"), nil
}

// evalExisting resolves symlinks in the deepest existing ancestor of abs and
// rejoins the not-yet-existing remainder. This keeps the escape check valid
// for targets that will be created by the caller (new files, restore targets).
func evalExisting(abs string) (string, error) {
	p := abs
	var tail []string
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			if len(tail) == 0 {
				return real, nil
			}
			return filepath.Join(append([]string{real}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		tail = append([]string{filepath.Base(p)}, tail...)
		p = parent
	}
}
