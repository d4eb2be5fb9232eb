package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waycms/waycms/internal/adapter/email"
	wayhttp "github.com/waycms/waycms/internal/adapter/http"
	"github.com/waycms/waycms/internal/adapter/otel"
	"github.com/waycms/waycms/internal/adapter/postgres"
	"github.com/waycms/waycms/internal/adapter/ristretto"
	"github.com/waycms/waycms/internal/adapter/ws"
	"github.com/waycms/waycms/internal/config"
	"github.com/waycms/waycms/internal/logger"
	"github.com/waycms/waycms/internal/middleware"
	"github.com/waycms/waycms/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			slog.Error("admin command failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"file", cfgPath,
		"port", cfg.Server.Port,
		"sites_dir", cfg.Content.SitesDir,
		"backup_dir", cfg.Backup.Dir,
		"auth_enabled", cfg.Auth.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	hub := ws.NewHub()
	store := postgres.NewStore(pool)
	mailer := email.NewMailer(cfg.Email)

	// --- Services ---

	sites := service.NewSites(cfg.Content.SitesDir)

	backupSvc := service.NewBackupService(cfg.Backup.Dir, cfg.Backup.Retention)
	backupSvc.SetBroadcaster(hub)
	backupSvc.SetMetrics(metrics)

	contentSvc := service.NewContentService(sites, backupSvc, cache, cfg.Content.MaxFileBytes)

	searchSvc := service.NewSearchService(cfg.Content.MaxFileBytes, cfg.Content.ScanWorkers, backupSvc)
	searchSvc.SetBroadcaster(hub)
	searchSvc.SetMetrics(metrics)
	searchSvc.SetCacheInvalidator(contentSvc.InvalidateAll)

	projectSvc := service.NewProjectService(store, sites)
	authSvc := service.NewAuthService(store, mailer, cfg.Auth, cfg.Server.BaseURL, log)

	scheduler := service.NewScheduler(store, sites, backupSvc, cfg.Backup.ScheduleHour, log)
	scheduler.SetBroadcaster(hub)
	go scheduler.Run(ctx)

	// Expired sessions and magic links accumulate between logins, so purge
	// them hourly in the background.
	go func() {
		authSvc.CleanupExpired(ctx)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				authSvc.CleanupExpired(ctx)
			}
		}
	}()

	// --- HTTP ---

	handlers := &wayhttp.Handlers{
		Auth:     authSvc,
		Projects: projectSvc,
		Content:  contentSvc,
		Search:   searchSvc,
		Backups:  backupSvc,
		Sites:    sites,
		Mailer:   mailer,
		Hub:      hub,

		MaxFileBytes: cfg.Content.MaxFileBytes,
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()

	r.Use(wayhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(wayhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))

	r.Get("/health", healthHandler())
	r.Get("/health/ready", readyHandler(pool))

	wayhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")
	cancel()
	hub.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports process liveness.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// readyHandler reports readiness by pinging the database.
func readyHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "postgres": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "postgres": "up"})
	}
}
