// Package content defines the file-tree domain: entries, listings and the
// glob-filtered tree walker.
package content

import (
	"mime"
	"path"
	"strings"
)

// FileEntry describes a single file or directory under a content root.
// Relative paths always use forward slashes, regardless of host OS.
type FileEntry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
	Type  string `json:"type,omitempty"`
}

// Listing is a directory listing: directories first, both halves name-sorted.
type Listing struct {
	Path        string      `json:"path"`
	Directories []FileEntry `json:"directories"`
	Files       []FileEntry `json:"files"`
}

// editableExtensions is the set of file types the editor (and the
// search-replace engine) treats as text.
var editableExtensions = map[string]bool{
	".html": true,
	".htm":  true,
	".css":  true,
	".js":   true,
	".txt":  true,
	".xml":  true,
	".json": true,
	".md":   true,
}

// Editable reports whether a file name is treated as editable text.
// Hidden files are not, with the same .htaccess exception listings make.
func Editable(name string) bool {
	if strings.HasPrefix(name, ".") {
		return name == ".htaccess"
	}
	return editableExtensions[strings.ToLower(path.Ext(name))]
}

// MIMEType guesses the content type for a file name.
func MIMEType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
