package project

import (
	"errors"
	"strings"
	"testing"

	"github.com/waycms/waycms/internal/domain"
)

func TestValidateCreateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			req:     CreateRequest{Name: "Acme Site", Slug: "acme-site"},
			wantErr: false,
		},
		{
			name: "valid request with all fields",
			req: CreateRequest{
				Name:       "Acme Site",
				Slug:       "acme",
				WebsiteURL: "https://acme.example.com",
			},
			wantErr: false,
		},
		{
			name:    "single-character slug",
			req:     CreateRequest{Name: "X", Slug: "x"},
			wantErr: false,
		},
		{
			name:    "empty name",
			req:     CreateRequest{Slug: "acme"},
			wantErr: true,
			errMsg:  "name is required",
		},
		{
			name:    "empty slug",
			req:     CreateRequest{Name: "Acme"},
			wantErr: true,
			errMsg:  "slug is required",
		},
		{
			name:    "name too long",
			req:     CreateRequest{Name: strings.Repeat("a", 256), Slug: "acme"},
			wantErr: true,
			errMsg:  "name exceeds 255 characters",
		},
		{
			name:    "name at max length is valid",
			req:     CreateRequest{Name: strings.Repeat("a", 255), Slug: "acme"},
			wantErr: false,
		},
		{
			name:    "name with control characters",
			req:     CreateRequest{Name: "acme\x00", Slug: "acme"},
			wantErr: true,
			errMsg:  "control characters",
		},
		{
			name:    "uppercase slug",
			req:     CreateRequest{Name: "Acme", Slug: "Acme"},
			wantErr: true,
			errMsg:  "slug must be",
		},
		{
			name:    "slug with leading hyphen",
			req:     CreateRequest{Name: "Acme", Slug: "-acme"},
			wantErr: true,
		},
		{
			name:    "slug with trailing hyphen",
			req:     CreateRequest{Name: "Acme", Slug: "acme-"},
			wantErr: true,
		},
		{
			name:    "slug with path separator",
			req:     CreateRequest{Name: "Acme", Slug: "acme/evil"},
			wantErr: true,
		},
		{
			name:    "slug with dots",
			req:     CreateRequest{Name: "Acme", Slug: ".."},
			wantErr: true,
		},
		{
			name:    "website url too long",
			req:     CreateRequest{Name: "Acme", Slug: "acme", WebsiteURL: strings.Repeat("x", 2001)},
			wantErr: true,
			errMsg:  "website_url exceeds 2000 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateRequest(tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("expected ErrValidation, got: %v", err)
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error to contain %q, got: %v", tt.errMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateUpdateRequest(t *testing.T) {
	name := "updated"
	empty := ""
	longName := strings.Repeat("a", 256)
	ctrlName := "test\x00"
	longURL := strings.Repeat("x", 2001)
	goodURL := "https://acme.example.com"

	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{name: "empty update is valid", req: UpdateRequest{}, wantErr: false},
		{name: "valid name update", req: UpdateRequest{Name: &name}, wantErr: false},
		{name: "empty name", req: UpdateRequest{Name: &empty}, wantErr: true},
		{name: "too long name", req: UpdateRequest{Name: &longName}, wantErr: true},
		{name: "control char name", req: UpdateRequest{Name: &ctrlName}, wantErr: true},
		{name: "too long URL", req: UpdateRequest{WebsiteURL: &longURL}, wantErr: true},
		{name: "valid URL", req: UpdateRequest{WebsiteURL: &goodURL}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpdateRequest(tt.req)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidSlug(t *testing.T) {
	valid := []string{"a", "a1", "my-site", "site-2-staging", "0x0"}
	invalid := []string{"", "-a", "a-", "A", "my_site", "my site", strings.Repeat("a", 65)}

	for _, s := range valid {
		if !ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = true, want false", s)
		}
	}
}
