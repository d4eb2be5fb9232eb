// Package project defines the Project domain entity. A project maps a URL
// slug to one site directory under the sites root.
package project

import "time"

// Project represents one managed website tree.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	WebsiteURL string    `json:"website_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a new project.
type CreateRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	WebsiteURL string `json:"website_url"`
}

// UpdateRequest holds the fields of a project update. The slug is fixed at
// creation because it names the site directory on disk.
type UpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	WebsiteURL *string `json:"website_url,omitempty"`
}

// Assignment links a user to a project, with denormalized display fields
// for the admin listing.
type Assignment struct {
	UserID      string `json:"user_id"`
	ProjectID   string `json:"project_id"`
	UserEmail   string `json:"user_email,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	ProjectSlug string `json:"project_slug,omitempty"`
}
