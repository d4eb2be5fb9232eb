package http

import (
	"net/http"

	"github.com/waycms/waycms/internal/domain/user"
	"github.com/waycms/waycms/internal/middleware"
)

// Login authenticates email and password and returns a session token. The
// token is also set as a cookie for the browser UI.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}

	setSessionCookie(w, r, resp)
	writeJSON(w, http.StatusOK, resp)
}

// RequestMagicLink mails a sign-in link. Always returns 202 so the endpoint
// does not reveal which addresses are registered.
func (h *Handlers) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.MagicLinkRequest](w, r)
	if !ok {
		return
	}

	if err := h.Auth.RequestMagicLink(r.Context(), req); err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "if the address is registered, a sign-in link is on its way",
	})
}

// RedeemMagicLink exchanges a mailed token for a session.
func (h *Handlers) RedeemMagicLink(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Token string `json:"token"`
	}](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.RedeemMagicLink(r.Context(), req.Token)
	if err != nil {
		writeDomainError(w, err, "login link not found")
		return
	}

	setSessionCookie(w, r, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Logout ends the current session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token != "" {
		if err := h.Auth.Logout(r.Context(), token); err != nil {
			writeInternalError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// CurrentUser returns the signed-in user.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, resp *user.LoginResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	if c, err := r.Cookie(middleware.SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
