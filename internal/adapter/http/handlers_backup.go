package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/domain/backup"
)

// createBackupBody is the payload for a manual backup.
type createBackupBody struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

// ListBackups returns the archives for a site, newest first. ?path= narrows
// the listing to backups of that file or folder.
func (h *Handlers) ListBackups(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	backups, err := h.Backups.List(r.Context(), slug, r.URL.Query().Get("path"))
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}
	if backups == nil {
		backups = []backup.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// CreateBackup archives a file or subtree on demand. An empty path archives
// the whole site.
func (h *Handlers) CreateBackup(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[createBackupBody](w, r)
	if !ok {
		return
	}

	slug := urlParam(r, "slug")
	root, err := h.Sites.Root(slug)
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}

	b, err := h.Backups.Create(r.Context(), slug, root, body.Path, body.Label)
	if err != nil {
		writeDomainError(w, err, "backup target not found")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// RestoreBackup extracts an archive back into the site tree.
func (h *Handlers) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	slug := urlParam(r, "slug")
	root, err := h.Sites.Root(slug)
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}

	id := urlParam(r, "backupID")
	if err := h.Backups.Restore(r.Context(), slug, root, id); err != nil {
		writeDomainError(w, err, "backup not found")
		return
	}

	// Restored files bypass the save path, so cached reads are stale.
	h.Content.InvalidateAll()

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "restored"})
}

// DeleteBackup removes one archive.
func (h *Handlers) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.Backups.Delete(r.Context(), urlParam(r, "slug"), urlParam(r, "backupID")); err != nil {
		writeDomainError(w, err, "backup not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PruneBackups applies the retention policy to the site's automatic backups.
func (h *Handlers) PruneBackups(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Backups.Prune(r.Context(), urlParam(r, "slug"))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if removed == nil {
		removed = []backup.Backup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pruned": len(removed), "backups": removed})
}
