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
	"github.com/waycms/waycms/internal/domain/search"
	"github.com/waycms/waycms/internal/sandbox"
)

func newTestSearch(t *testing.T) (*SearchService, *BackupService, *sandbox.Root, string) {
	t.Helper()
	siteDir := t.TempDir()
	root, err := sandbox.New(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	backups := NewBackupService(t.TempDir(), backup.DefaultRetentionPolicy())
	svc := NewSearchService(1<<20, 4, backups)
	return svc, backups, root, siteDir
}

func TestSearchDryRunDoesNotWrite(t *testing.T) {
	svc, backups, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "index.html", "Contact us at old@example.com today")
	writeFile(t, siteDir, "about.html", "old@example.com and old@example.com")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "old@example.com",
		ReplaceText: "new@example.com",
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.DryRun {
		t.Error("report not marked dry-run")
	}
	if report.FilesScanned != 2 {
		t.Errorf("scanned = %d, want 2", report.FilesScanned)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}

	total := 0
	for _, r := range report.Results {
		if r.Saved != nil {
			t.Errorf("%s: Saved set on dry-run", r.File)
		}
		if r.Preview == "" {
			t.Errorf("%s: empty preview", r.File)
		}
		total += r.MatchCount
	}
	if total != 3 {
		t.Errorf("total matches = %d, want 3", total)
	}

	// Files untouched, no backups taken.
	data, _ := os.ReadFile(filepath.Join(siteDir, "index.html"))
	if !strings.Contains(string(data), "old@example.com") {
		t.Error("dry-run modified a file")
	}
	if got, _ := backups.List(ctx, "acme", ""); len(got) != 0 {
		t.Errorf("dry-run created %d backups", len(got))
	}
}

func TestSearchCommitRewritesAndBacksUp(t *testing.T) {
	svc, backups, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "index.html", "call 555-0100 now")
	writeFile(t, siteDir, "plain.html", "nothing to see")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "555-0100",
		ReplaceText: "555-0199",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(report.Results))
	}
	r := report.Results[0]
	if r.File != "index.html" || r.Saved == nil || !*r.Saved {
		t.Fatalf("result = %+v", r)
	}

	data, _ := os.ReadFile(filepath.Join(siteDir, "index.html"))
	if string(data) != "call 555-0199 now" {
		t.Errorf("content = %q", data)
	}

	// The pre-rewrite state is in the automatic lineage.
	got, err := backups.List(ctx, "acme", "index.html")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Label != backup.AutoLabel {
		t.Fatalf("backups = %+v", got)
	}

	// The untouched file got no backup.
	if got, _ := backups.List(ctx, "acme", "plain.html"); len(got) != 0 {
		t.Error("zero-match file was backed up")
	}
}

func TestSearchRegexCapture(t *testing.T) {
	svc, _, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "links.html", `<a href="http://a.test">a</a> <a href="http://b.test">b</a>`)
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:    `http://([a-z]+\.test)`,
		ReplaceText:   "https://$1",
		UseRegex:      true,
		CaseSensitive: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].MatchCount != 2 {
		t.Fatalf("report = %+v", report)
	}

	data, _ := os.ReadFile(filepath.Join(siteDir, "links.html"))
	want := `<a href="https://a.test">a</a> <a href="https://b.test">b</a>`
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestSearchCaseInsensitiveByDefault(t *testing.T) {
	svc, _, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "a.html", "Widget, WIDGET, widget")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "widget",
		ReplaceText: "gadget",
		DryRun:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 1 || report.Results[0].MatchCount != 3 {
		t.Fatalf("report = %+v", report)
	}
}

func TestSearchGlobFilter(t *testing.T) {
	svc, _, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "a.html", "target")
	writeFile(t, siteDir, "b.css", "target")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "target",
		ReplaceText: "x",
		FileGlob:    "*.css",
		DryRun:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesScanned != 1 {
		t.Errorf("scanned = %d, want 1", report.FilesScanned)
	}
	if len(report.Results) != 1 || report.Results[0].File != "b.css" {
		t.Fatalf("report = %+v", report)
	}
}

func TestSearchSkipsBinaryAndNonEditable(t *testing.T) {
	svc, _, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "page.html", "target here")
	writeFile(t, siteDir, "raw.html", "target\xff\xfe")
	writeFile(t, siteDir, "logo.png", "target")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "target",
		ReplaceText: "x",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byFile := map[string]search.FileResult{}
	for _, r := range report.Results {
		byFile[r.File] = r
	}
	if r := byFile["raw.html"]; r.Error == "" {
		t.Error("non-UTF-8 file not reported as error")
	}
	if r := byFile["logo.png"]; r.Error == "" {
		t.Error("non-editable file not reported as error")
	}
	if r := byFile["page.html"]; r.Saved == nil || !*r.Saved {
		t.Error("editable file not rewritten despite per-file errors elsewhere")
	}
	if report.Errored() != 2 {
		t.Errorf("errored = %d, want 2", report.Errored())
	}
}

func TestSearchLeavesHiddenFilesAlone(t *testing.T) {
	svc, _, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "index.html", "target")
	writeFile(t, siteDir, ".env", "target=1")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText:  "target",
		ReplaceText: "x",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.FilesScanned != 1 {
		t.Errorf("scanned = %d, want 1 (hidden file walked)", report.FilesScanned)
	}
	data, err := os.ReadFile(filepath.Join(siteDir, ".env"))
	if err != nil {
		t.Fatalf("read .env: %v", err)
	}
	if string(data) != "target=1" {
		t.Errorf(".env rewritten to %q", data)
	}
}

func TestSearchOversizeFile(t *testing.T) {
	siteDir := t.TempDir()
	root, err := sandbox.New(siteDir)
	if err != nil {
		t.Fatal(err)
	}
	backups := NewBackupService(t.TempDir(), backup.DefaultRetentionPolicy())
	svc := NewSearchService(8, 2, backups)
	writeFile(t, siteDir, "big.html", "target target")

	report, err := svc.Run(context.Background(), "acme", root, search.Spec{
		SearchText: "target", ReplaceText: "x", DryRun: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 1 || report.Results[0].Error == "" {
		t.Fatalf("report = %+v", report)
	}
}

func TestSearchInvalidSpecFailsFast(t *testing.T) {
	svc, _, root, _ := newTestSearch(t)
	ctx := context.Background()

	if _, err := svc.Run(ctx, "acme", root, search.Spec{SearchText: ""}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty search: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Run(ctx, "acme", root, search.Spec{SearchText: "[", UseRegex: true}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad regex: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Run(ctx, "acme", root, search.Spec{SearchText: "x", FileGlob: "[", DryRun: true}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad glob: err = %v, want ErrValidation", err)
	}
}

func TestSearchZeroMatches(t *testing.T) {
	svc, backups, root, siteDir := newTestSearch(t)
	writeFile(t, siteDir, "a.html", "hello world")
	ctx := context.Background()

	report, err := svc.Run(ctx, "acme", root, search.Spec{
		SearchText: "absent", ReplaceText: "x",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesScanned != 1 || len(report.Results) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if got, _ := backups.List(ctx, "acme", ""); len(got) != 0 {
		t.Error("zero-match run created backups")
	}
}
