package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/domain/user"
	"github.com/waycms/waycms/internal/middleware"
)

// ListUsers returns every registered user.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser registers a user and mails a welcome link when SMTP is set up.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Auth.CreateUser(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser changes a user's name or admin flag.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Auth.UpdateUser(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser removes a user. The signed-in user cannot delete themselves.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	if err := h.Auth.DeleteUser(r.Context(), actor, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword sets a new password for a user.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[struct {
		Password string `json:"password"`
	}](w, r)
	if !ok {
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), urlParam(r, "id"), body.Password); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// SendUserMagicLink mails a fresh sign-in link to a specific user.
func (h *Handlers) SendUserMagicLink(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.GetUser(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	if !h.Mailer.Configured() {
		writeError(w, http.StatusConflict, "smtp is not configured")
		return
	}
	if err := h.Auth.SendLinkToUser(r.Context(), u); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "link sent"})
}

// Stats returns user, project and assignment counts for the admin panel.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	projects, err := h.Projects.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	assignments, err := h.Projects.Assignments(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"users":       len(users),
		"projects":    len(projects),
		"assignments": len(assignments),
	})
}

// EmailSettings returns the SMTP settings with the password redacted.
func (h *Handlers) EmailSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": h.Mailer.Configured(),
		"degraded":   h.Mailer.Degraded(),
		"smtp":       h.Mailer.MaskedConfig(),
	})
}

// TestEmail verifies that the SMTP host is reachable.
func (h *Handlers) TestEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.Mailer.TestConnection(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "smtp reachable"})
}
