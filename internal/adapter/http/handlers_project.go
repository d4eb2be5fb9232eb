package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/domain/project"
	"github.com/waycms/waycms/internal/middleware"
)

// ListProjects returns the projects the signed-in user may work on.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	projects, err := h.Projects.ListFor(r.Context(), u)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject returns one project the user has access to.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	id := urlParam(r, "id")

	p, err := h.Projects.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	ok, err := h.Projects.CanAccess(r.Context(), u, p.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if !ok {
		// Hidden, not forbidden: unassigned users cannot probe for slugs.
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject creates a project and its site directory.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.CreateRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Projects.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject updates a project's name or website URL.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.UpdateRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Projects.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject removes the project record. Site content stays on disk.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssignments returns every user-project assignment.
func (h *Handlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Projects.Assignments(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if assignments == nil {
		assignments = []project.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// AssignUser grants a user access to a project.
func (h *Handlers) AssignUser(w http.ResponseWriter, r *http.Request) {
	err := h.Projects.Assign(r.Context(), urlParam(r, "userID"), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "user or project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignUser revokes a user's access to a project.
func (h *Handlers) UnassignUser(w http.ResponseWriter, r *http.Request) {
	err := h.Projects.Unassign(r.Context(), urlParam(r, "userID"), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "assignment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
