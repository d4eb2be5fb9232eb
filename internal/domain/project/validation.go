package project

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/waycms/waycms/internal/domain"
)

// slugPattern matches lowercase DNS-label style slugs: single alphanumeric,
// or alphanumerics with interior hyphens. The slug doubles as the site
// directory name, so the alphabet is deliberately narrow.
var slugPattern = regexp.MustCompile(`^[a-z0-9]$|^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidateCreateRequest validates the fields of a project creation request.
func ValidateCreateRequest(req CreateRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if err := validateName(req.Name); err != nil {
		return err
	}
	if req.Slug == "" {
		return fmt.Errorf("slug is required: %w", domain.ErrValidation)
	}
	if !ValidSlug(req.Slug) {
		return fmt.Errorf("slug must be lowercase letters, digits and hyphens: %w", domain.ErrValidation)
	}
	if len(req.WebsiteURL) > 2000 {
		return fmt.Errorf("website_url exceeds 2000 characters: %w", domain.ErrValidation)
	}
	return nil
}

// ValidateUpdateRequest validates the fields of a project update request.
func ValidateUpdateRequest(req UpdateRequest) error {
	if req.Name != nil {
		if *req.Name == "" {
			return fmt.Errorf("name cannot be empty: %w", domain.ErrValidation)
		}
		if err := validateName(*req.Name); err != nil {
			return err
		}
	}
	if req.WebsiteURL != nil && len(*req.WebsiteURL) > 2000 {
		return fmt.Errorf("website_url exceeds 2000 characters: %w", domain.ErrValidation)
	}
	return nil
}

// ValidSlug reports whether s is an acceptable project slug.
func ValidSlug(s string) bool {
	return len(s) <= 64 && slugPattern.MatchString(s)
}

func validateName(name string) error {
	if len(name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}
	return nil
}
