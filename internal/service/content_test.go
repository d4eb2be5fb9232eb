package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/backup"
)

func newTestContent(t *testing.T) (*ContentService, string) {
	t.Helper()
	sitesDir := t.TempDir()
	siteDir := filepath.Join(sitesDir, "acme")
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		t.Fatal(err)
	}
	sites := NewSites(sitesDir)
	backups := NewBackupService(t.TempDir(), backup.DefaultRetentionPolicy())
	return NewContentService(sites, backups, nil, 1<<20), siteDir
}

func writeFile(t *testing.T, dir, rel, data string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestContentList(t *testing.T) {
	svc, siteDir := newTestContent(t)
	writeFile(t, siteDir, "index.html", "<html></html>")
	writeFile(t, siteDir, "style.css", "body{}")
	writeFile(t, siteDir, "logo.png", "notreallyapng")
	writeFile(t, siteDir, ".htaccess", "RewriteEngine On")
	writeFile(t, siteDir, ".git/config", "hidden")
	writeFile(t, siteDir, "blog/post.html", "<p>hi</p>")

	listing, err := svc.List(context.Background(), "acme", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var dirs []string
	for _, d := range listing.Directories {
		dirs = append(dirs, d.Name)
	}
	if len(dirs) != 1 || dirs[0] != "blog" {
		t.Fatalf("directories = %v, want [blog]", dirs)
	}

	var files []string
	for _, f := range listing.Files {
		files = append(files, f.Name)
	}
	want := []string{".htaccess", "index.html", "style.css"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}

func TestContentListSubdir(t *testing.T) {
	svc, siteDir := newTestContent(t)
	writeFile(t, siteDir, "blog/post.html", "<p>hi</p>")

	listing, err := svc.List(context.Background(), "acme", "blog")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listing.Path != "blog" {
		t.Errorf("Path = %q, want blog", listing.Path)
	}
	if len(listing.Files) != 1 || listing.Files[0].Path != "blog/post.html" {
		t.Fatalf("files = %+v", listing.Files)
	}
}

func TestContentListEscape(t *testing.T) {
	svc, _ := newTestContent(t)
	_, err := svc.List(context.Background(), "acme", "../..")
	if !errors.Is(err, domain.ErrPathEscape) {
		t.Fatalf("err = %v, want ErrPathEscape", err)
	}
}

func TestContentRead(t *testing.T) {
	svc, siteDir := newTestContent(t)
	writeFile(t, siteDir, "index.html", "<html></html>")

	data, mimeType, err := svc.Read(context.Background(), "acme", "index.html")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("data = %q", data)
	}
	if !strings.HasPrefix(mimeType, "text/html") {
		t.Errorf("mime = %q, want text/html", mimeType)
	}
}

func TestContentReadErrors(t *testing.T) {
	svc, siteDir := newTestContent(t)
	writeFile(t, siteDir, "logo.png", "png")

	if _, _, err := svc.Read(context.Background(), "acme", "missing.html"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.Read(context.Background(), "acme", "logo.png"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("binary file: err = %v, want ErrValidation", err)
	}
	if _, _, err := svc.Read(context.Background(), "nosuchsite", "index.html"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown site: err = %v, want ErrNotFound", err)
	}
}

func TestContentSave(t *testing.T) {
	svc, siteDir := newTestContent(t)

	if err := svc.Save(context.Background(), "acme", "pages/about.html", []byte("<h1>about</h1>")); err != nil {
		t.Fatalf("Save new: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(siteDir, "pages", "about.html"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "<h1>about</h1>" {
		t.Errorf("data = %q", data)
	}

	// Overwriting must leave a backup of the previous content.
	if err := svc.Save(context.Background(), "acme", "pages/about.html", []byte("v2")); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	backups, err := svc.backups.List(context.Background(), "acme", "pages/about.html")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups))
	}
	if backups[0].Label != backup.AutoLabel {
		t.Errorf("label = %q, want %q", backups[0].Label, backup.AutoLabel)
	}
}

func TestContentSaveRejects(t *testing.T) {
	svc, _ := newTestContent(t)
	ctx := context.Background()

	if err := svc.Save(ctx, "acme", "shell.php", []byte("x")); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("non-editable: err = %v, want ErrValidation", err)
	}
	if err := svc.Save(ctx, "acme", "", []byte("x")); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty path: err = %v, want ErrValidation", err)
	}
	if err := svc.Save(ctx, "acme", "../evil.html", []byte("x")); !errors.Is(err, domain.ErrPathEscape) {
		t.Errorf("escape: err = %v, want ErrPathEscape", err)
	}

	big := make([]byte, 1<<20+1)
	if err := svc.Save(ctx, "acme", "big.html", big); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversize: err = %v, want ErrValidation", err)
	}
}

func TestContentDelete(t *testing.T) {
	svc, siteDir := newTestContent(t)
	writeFile(t, siteDir, "old.html", "x")
	writeFile(t, siteDir, "archive/a.html", "x")
	ctx := context.Background()

	if err := svc.Delete(ctx, "acme", "old.html"); err != nil {
		t.Fatalf("Delete file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(siteDir, "old.html")); !errors.Is(err, os.ErrNotExist) {
		t.Error("file still exists after delete")
	}

	if err := svc.Delete(ctx, "acme", "archive"); err != nil {
		t.Fatalf("Delete dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(siteDir, "archive")); !errors.Is(err, os.ErrNotExist) {
		t.Error("directory still exists after delete")
	}

	if err := svc.Delete(ctx, "acme", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("root delete: err = %v, want ErrValidation", err)
	}
	if err := svc.Delete(ctx, "acme", "gone.html"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}
