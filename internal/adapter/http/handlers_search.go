package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/domain/search"
)

// Replace runs a search-replace request over the site tree. With dry_run set
// the report describes what a commit would change without writing anything.
func (h *Handlers) Replace(w http.ResponseWriter, r *http.Request) {
	spec, ok := readJSON[search.Spec](w, r)
	if !ok {
		return
	}

	slug := urlParam(r, "slug")
	root, err := h.Sites.Root(slug)
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}

	report, err := h.Search.Run(r.Context(), slug, root, spec)
	if err != nil {
		writeDomainError(w, err, "site not found")
		return
	}
	if report.Results == nil {
		report.Results = []search.FileResult{}
	}
	writeJSON(w, http.StatusOK, report)
}
