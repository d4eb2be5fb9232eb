package http

import (
	"net/http"
)

// fileBody is the payload for saving a file.
type fileBody struct {
	Content string `json:"content"`
}

// ListFiles returns one directory level of a site tree. ?path= selects the
// directory, defaulting to the site root.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := h.Content.List(r.Context(), urlParam(r, "slug"), r.URL.Query().Get("path"))
	if err != nil {
		writeDomainError(w, err, "directory not found")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// ReadFile returns the content of one editable file.
func (h *Handlers) ReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	data, mimeType, err := h.Content.Read(r.Context(), urlParam(r, "slug"), path)
	if err != nil {
		writeDomainError(w, err, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    path,
		"type":    mimeType,
		"content": string(data),
	})
}

// SaveFile writes one editable file, backing up the previous content first.
func (h *Handlers) SaveFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	body, ok := readJSONLimit[fileBody](w, r, h.saveBodyLimit())
	if !ok {
		return
	}

	if err := h.Content.Save(r.Context(), urlParam(r, "slug"), path, []byte(body.Content)); err != nil {
		writeDomainError(w, err, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path, "status": "saved"})
}

// DeleteFile removes a file or a subdirectory.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.Content.Delete(r.Context(), urlParam(r, "slug"), path); err != nil {
		writeDomainError(w, err, "file not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
