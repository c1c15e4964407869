// Command mock-daemon runs a standalone fake Docker daemon on a Unix socket,
// for developing the GUI without a real daemon.
//
// Usage:
//
//	mock-daemon --socket /tmp/docsee-mock/docker.sock --world world.yaml
//
// Point the backend at it with --docker-host unix://<socket>.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/logging"
)

func main() {
	var (
		socketPath string
		worldPath  string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:          "mock-daemon",
		Short:        "Serve a fake Docker Engine API on a Unix socket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := logging.New(os.Stderr, logLevel, logFormat); err != nil {
				return err
			}

			if socketPath == "" {
				dir := fmt.Sprintf("/tmp/docsee-mock-%d", os.Getpid())
				socketPath = filepath.Join(dir, "docker.sock")
			}
			if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
				return fmt.Errorf("create socket dir: %w", err)
			}

			world := docker.DefaultWorld()
			if worldPath != "" {
				w, err := docker.LoadWorld(worldPath)
				if err != nil {
					return err
				}
				world = w
			}

			fd, err := docker.StartFakeDaemonAt(world, socketPath)
			if err != nil {
				return fmt.Errorf("start fake daemon: %w", err)
			}
			defer fd.Close()

			// stdout carries only the host so parent processes can discover it
			fmt.Println(fd.Host())
			slog.Info("mock daemon started", "host", fd.Host(), "world", worldPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			slog.Info("mock daemon shutting down")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&socketPath, "socket", "", "Unix socket path (default /tmp/docsee-mock-<pid>/docker.sock)")
	fs.StringVar(&worldPath, "world", "", "YAML file seeding containers, images, networks and volumes")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&logFormat, "log-format", "text", "log format (text, json, logfmt)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
