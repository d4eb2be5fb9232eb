// Package search defines the search-replace domain: request specs, compiled
// patterns and change reports.
package search

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/content"
)

// Spec is one search-replace request. Constructed per request, never persisted.
type Spec struct {
	SearchText    string `json:"search_text"`
	ReplaceText   string `json:"replace_text"`
	FileGlob      string `json:"file_glob"`
	UseRegex      bool   `json:"use_regex"`
	CaseSensitive bool   `json:"case_sensitive"`
	DryRun        bool   `json:"dry_run"`
}

// Pattern is a validated, compiled Spec. Compilation happens once at request
// entry so that an invalid pattern fails the whole request before any file is
// touched.
type Pattern struct {
	spec    Spec
	re      *regexp.Regexp // nil only in case-sensitive literal mode
	literal bool
}

// Compile validates the spec and compiles its pattern.
// Case-insensitive literal searches are compiled as quoted regexes so that
// counting and substitution stay correct for multi-byte case folds.
func (s Spec) Compile() (*Pattern, error) {
	if s.SearchText == "" {
		return nil, fmt.Errorf("search text is required: %w", domain.ErrValidation)
	}
	if err := content.ValidateGlob(s.FileGlob); err != nil {
		return nil, err
	}

	p := &Pattern{spec: s, literal: !s.UseRegex}

	expr := s.SearchText
	if !s.UseRegex {
		if s.CaseSensitive {
			return p, nil
		}
		expr = regexp.QuoteMeta(expr)
	}
	if !s.CaseSensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %v: %w", err, domain.ErrValidation)
	}
	p.re = re
	return p, nil
}

// Glob returns the file glob for this pattern, defaulting to "*".
func (p *Pattern) Glob() string {
	if p.spec.FileGlob == "" {
		return content.DefaultGlob
	}
	return p.spec.FileGlob
}

// DryRun reports whether the request asked for a report-only pass.
func (p *Pattern) DryRun() bool {
	return p.spec.DryRun
}

// Count returns the number of leftmost-non-overlapping matches in content.
func (p *Pattern) Count(text string) int {
	if p.re == nil {
		return strings.Count(text, p.spec.SearchText)
	}
	return len(p.re.FindAllStringIndex(text, -1))
}

// Sample returns the line containing the first match, trimmed and truncated,
// for use as a report preview. Empty when there is no match.
func (p *Pattern) Sample(text string) string {
	var start int
	if p.re == nil {
		start = strings.Index(text, p.spec.SearchText)
	} else {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			return ""
		}
		start = loc[0]
	}
	if start < 0 {
		return ""
	}

	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := strings.IndexByte(text[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += start
	}

	line := strings.TrimSpace(text[lineStart:lineEnd])
	const maxPreview = 200
	if len(line) > maxPreview {
		// Back off to a rune boundary so the preview stays valid UTF-8.
		cut := maxPreview
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return line
}

// Apply returns content with all matches replaced. In regex mode the
// replacement may reference capture groups with $1 syntax; in literal mode it
// is inserted verbatim.
func (p *Pattern) Apply(text string) string {
	if p.re == nil {
		return strings.ReplaceAll(text, p.spec.SearchText, p.spec.ReplaceText)
	}
	if p.literal {
		return p.re.ReplaceAllLiteralString(text, p.spec.ReplaceText)
	}
	return p.re.ReplaceAllString(text, p.spec.ReplaceText)
}
