// Package http implements the REST API for the CMS.
package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/adapter/email"
	"github.com/waycms/waycms/internal/adapter/ws"
	"github.com/waycms/waycms/internal/middleware"
	"github.com/waycms/waycms/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Content  *service.ContentService
	Search   *service.SearchService
	Backups  *service.BackupService
	Sites    *service.Sites
	Mailer   *email.Mailer
	Hub      *ws.Hub

	// MaxFileBytes matches the content service's file size limit and sizes
	// the request body cap on the save path.
	MaxFileBytes int64
}

// saveBodyLimit is the request body cap for file saves. JSON string escaping
// can double the encoded size of the content, plus a little framing.
func (h *Handlers) saveBodyLimit() int64 {
	if h.MaxFileBytes <= 0 {
		return maxRequestBodySize
	}
	return 2*h.MaxFileBytes + 1024
}

// requireSite authorizes the {slug} route group: the project must exist and
// the signed-in user must be assigned to it (admins always are). The site
// directory itself may lag behind the project record, so only the record is
// checked here.
func (h *Handlers) requireSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := middleware.UserFromContext(r.Context())
		if u == nil {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		p, err := h.Projects.GetBySlug(r.Context(), urlParam(r, "slug"))
		if err != nil {
			writeDomainError(w, err, "site not found")
			return
		}
		ok, err := h.Projects.CanAccess(r.Context(), u, p.ID)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "no access to this site")
			return
		}
		next.ServeHTTP(w, r)
	})
}
