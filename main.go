package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Xczer/docsee-gui/internal/config"
	"github.com/Xczer/docsee-gui/internal/db"
	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/handlers"
	"github.com/Xczer/docsee-gui/internal/logging"
	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

// version is set at build time via -ldflags="-X main.version=..."
var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "docsee",
		Short:        "Docker daemon backend for the docsee GUI",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, cfg)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "healthcheck",
		Short: "Probe /healthz of a running server and exit non-zero when unhealthy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
			if err != nil {
				return err
			}
			return healthcheck(cmd.Context(), cfg.Port)
		},
	})
	return root
}

func healthcheck(ctx context.Context, port int) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/healthz", port), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if _, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	slog.Info("starting docsee",
		"version", version,
		"port", cfg.Port,
		"dataDir", cfg.DataDir,
		"config", cfg.File,
		"logLevel", cfg.LogLevel,
		"noAuth", cfg.NoAuth,
		"dockerHost", cfg.DockerHost,
	)

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()

	users := models.NewUserStore(database)
	settings := models.NewSettingStore(database)

	// JWT secret (auto-generated on first run)
	jwtSecret, err := settings.EnsureJWTSecret()
	if err != nil {
		return fmt.Errorf("jwt secret: %w", err)
	}

	mgr := docker.NewManager(cfg.ProbeTimeout)
	defer mgr.Close()

	wss := ws.NewServer()
	app := &handlers.App{
		Docker:       docker.NewService(mgr),
		Users:        users,
		Settings:     settings,
		WS:           wss,
		JWTSecret:    jwtSecret,
		Version:      version,
		NoAuth:       cfg.NoAuth,
		FollowWindow: cfg.FollowWindow,
		LogCapLimit:  cfg.LogCap,
		ConfigHost:   cfg.DockerHost,
	}
	handlers.RegisterAll(app)

	if err := app.Reconfigure(cfg.DockerHost, cfg.LogCap); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	if cfg.NoAuth {
		slog.Warn("authentication disabled (--no-auth)")
	}

	if cfg.AutoConnect {
		if err := mgr.Connect(ctx); err != nil {
			slog.Warn("docker daemon not reachable, starting disconnected", "err", err)
		}
	}

	watchPath := cfg.File
	if watchPath == "" {
		watchPath = filepath.Join(cfg.DataDir, config.DefaultFileName)
	}
	if err := config.Watch(ctx, watchPath, func() { reload(cmd, app) }); err != nil {
		slog.Warn("config watcher failed to start", "err", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wss.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown", "err", err)
	}
	return nil
}

// reload re-reads the configuration after the YAML file changes. Only the
// log level, daemon host and log cap apply live; other keys need a restart.
func reload(cmd *cobra.Command, app *handlers.App) {
	cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
	if err != nil {
		slog.Warn("config reload failed, keeping current settings", "err", err)
		return
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("config reload", "err", err)
	}
	if err := app.Reconfigure(cfg.DockerHost, cfg.LogCap); err != nil {
		slog.Warn("config reload", "err", err)
		return
	}
	slog.Info("config reloaded", "file", cfg.File)
}
