package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/waycms/waycms/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. The /health
// endpoints and the auth entry points are public; everything else sits behind
// the session middleware mounted by the caller.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"1.0.0"}`))
		})

		// Auth
		r.Post("/auth/login", h.Login)
		r.Post("/auth/magic-link", h.RequestMagicLink)
		r.Post("/auth/redeem", h.RedeemMagicLink)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.CurrentUser)

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Get("/projects/{id}", h.GetProject)
		r.With(middleware.RequireAdmin).Post("/projects", h.CreateProject)
		r.With(middleware.RequireAdmin).Put("/projects/{id}", h.UpdateProject)
		r.With(middleware.RequireAdmin).Delete("/projects/{id}", h.DeleteProject)

		// Assignments (admin only)
		r.Route("/assignments", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.ListAssignments)
		})
		r.With(middleware.RequireAdmin).
			Post("/projects/{id}/users/{userID}", h.AssignUser)
		r.With(middleware.RequireAdmin).
			Delete("/projects/{id}/users/{userID}", h.UnassignUser)

		// Site content, search-replace and backups
		r.Route("/sites/{slug}", func(r chi.Router) {
			r.Use(h.requireSite)

			r.Get("/files", h.ListFiles)
			r.Get("/file", h.ReadFile)
			r.Put("/file", h.SaveFile)
			r.Delete("/file", h.DeleteFile)

			r.Post("/replace", h.Replace)

			r.Get("/backups", h.ListBackups)
			r.Post("/backups", h.CreateBackup)
			r.Post("/backups/prune", h.PruneBackups)
			r.Post("/backups/{backupID}/restore", h.RestoreBackup)
			r.Delete("/backups/{backupID}", h.DeleteBackup)
		})

		// Users (admin only)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
			r.Post("/{id}/reset-password", h.ResetPassword)
			r.Post("/{id}/magic-link", h.SendUserMagicLink)
		})

		r.With(middleware.RequireAdmin).Get("/stats", h.Stats)

		// Mail settings (admin only)
		r.Route("/settings/email", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.EmailSettings)
			r.Post("/test", h.TestEmail)
		})
	})
}
