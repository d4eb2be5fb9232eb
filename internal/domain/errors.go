// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed input, rejected before any filesystem or
// database access.
var ErrValidation = errors.New("validation failed")

// ErrPathEscape indicates a client-supplied path that would resolve outside
// the content root.
var ErrPathEscape = errors.New("path escapes content root")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates valid credentials without sufficient rights.
var ErrForbidden = errors.New("forbidden")
