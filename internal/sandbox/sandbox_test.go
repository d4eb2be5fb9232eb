package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/waycms/waycms/internal/domain"
)

func newTestRoot(t *testing.T) *Root {
	t.Helper()
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new root: %v", err)
	}
	return r
}

func TestResolve_WithinRoot(t *testing.T) {
	r := newTestRoot(t)

	tests := []struct {
		rel  string
		want string
	}{
		{"", r.Dir()},
		{".", r.Dir()},
		{"/", r.Dir()},
		{"index.html", filepath.Join(r.Dir(), "index.html")},
		{"/index.html", filepath.Join(r.Dir(), "index.html")},
		{"css/./style.css", filepath.Join(r.Dir(), "css", "style.css")},
		{"a/b/../c.txt", filepath.Join(r.Dir(), "a", "c.txt")},
		{`css\style.css`, filepath.Join(r.Dir(), "css", "style.css")},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.rel)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error %v", tt.rel, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestResolve_Escape(t *testing.T) {
	r := newTestRoot(t)

	escapes := []string{
		"..",
		"../",
		"../../etc/passwd",
		"a/../../etc/passwd",
		"a/b/../../../x",
		`..\..\etc\passwd`,
	}
	for _, rel := range escapes {
		if _, err := r.Resolve(rel); !errors.Is(err, domain.ErrPathEscape) {
			t.Errorf("Resolve(%q): got %v, want ErrPathEscape", rel, err)
		}
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}

	outside := t.TempDir()
	r := newTestRoot(t)

	if err := os.Symlink(outside, filepath.Join(r.Dir(), "out")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	if _, err := r.Resolve("out/secret.txt"); !errors.Is(err, domain.ErrPathEscape) {
		t.Errorf("Resolve through escaping symlink: got %v, want ErrPathEscape", err)
	}
}

func TestResolve_NonexistentTarget(t *testing.T) {
	r := newTestRoot(t)

	// Save targets may not exist yet; they still resolve inside the root.
	got, err := r.Resolve("new/dir/file.html")
	if err != nil {
		t.Fatalf("resolve nonexistent: %v", err)
	}
	if !strings.HasPrefix(got, r.Dir()) {
		t.Errorf("resolved path %q not under root %q", got, r.Dir())
	}
}

func TestRel_RoundTrip(t *testing.T) {
	r := newTestRoot(t)

	abs, err := r.Resolve("css/style.css")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	rel, err := r.Rel(abs)
	if err != nil {
		t.Fatalf("rel: %v", err)
	}
	if rel != "css/style.css" {
		t.Errorf("rel = %q, want css/style.css", rel)
	}

	root, err := r.Rel(r.Dir())
	if err != nil || root != "" {
		t.Errorf("Rel(root) = %q, %v, want empty", root, err)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"//a//b//", "a/b"},
		{"a/./b", "a/b"},
		{"a/b/../c", "a/c"},
	}
	for _, tt := range tests {
		got, err := Clean(tt.in)
		if err != nil {
			t.Errorf("Clean(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := Clean("../x"); !errors.Is(err, domain.ErrPathEscape) {
		t.Errorf("Clean(../x): got %v, want ErrPathEscape", err)
	}
}
