package content

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/sandbox"
)

// DefaultGlob matches every file name.
const DefaultGlob = "*"

// ValidateGlob checks that pattern is a well-formed glob. An empty pattern is
// valid and means DefaultGlob.
func ValidateGlob(pattern string) error {
	if pattern == "" {
		return nil
	}
	if _, err := path.Match(pattern, "probe"); err != nil {
		return fmt.Errorf("invalid file glob %q: %w", pattern, domain.ErrValidation)
	}
	return nil
}

// Walk traverses all regular files under root whose base name matches the
// glob pattern and calls fn for each. Hidden directories and hidden files are
// skipped (.htaccess excepted, matching directory listings), as are symlinks
// (a symlinked directory could escape the sandbox). The walk is performed
// fresh on every call; staleness between calls is acceptable since results
// are advisory and authoritative reads happen at access time.
//
// fn returning an error aborts the walk; unreadable directories do not.
func Walk(root *sandbox.Root, pattern string, fn func(FileEntry) error) error {
	if pattern == "" {
		pattern = DefaultGlob
	}
	if err := ValidateGlob(pattern); err != nil {
		return err
	}

	return filepath.WalkDir(root.Dir(), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries never abort the walk.
			return nil //nolint:nilerr
		}
		name := d.Name()

		if d.IsDir() {
			if p != root.Dir() && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") && name != ".htaccess" {
			return nil
		}

		if ok, _ := path.Match(pattern, name); !ok {
			return nil
		}

		rel, err := root.Rel(p)
		if err != nil {
			return nil //nolint:nilerr
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}

		return fn(FileEntry{
			Path: rel,
			Name: name,
			Size: info.Size(),
		})
	})
}
