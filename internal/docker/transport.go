package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/docker/docker/client"
)

// Candidate names for each tier of the probe order.
const (
	CandidateConfigured   = "configured"
	CandidateNativeSocket = "native-socket"
	CandidateEnvironment  = "environment"
	CandidateLocalHTTP    = "local-http"
	CandidateAltSocket    = "alt-socket"
	CandidateTCP          = "tcp"
)

// DefaultProbeTimeout bounds the handshake with a single candidate.
const DefaultProbeTimeout = 5 * time.Second

// Candidate is one transport endpoint tried when connecting. An empty Host
// means "resolve from the environment" (DOCKER_HOST and friends).
type Candidate struct {
	Name string
	Host string
}

func (c Candidate) String() string {
	if c.Host == "" {
		return c.Name
	}
	return c.Name + "(" + c.Host + ")"
}

// DefaultCandidates returns the fixed probe order for this platform.
func DefaultCandidates() []Candidate {
	home, _ := os.UserHomeDir()
	return candidatesFor(runtime.GOOS, os.Getenv, home, os.Getuid())
}

func candidatesFor(goos string, getenv func(string) string, home string, uid int) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	add := func(name, host string) {
		if host != "" {
			if seen[host] {
				return
			}
			seen[host] = true
		}
		out = append(out, Candidate{Name: name, Host: host})
	}

	if goos == "windows" {
		add(CandidateNativeSocket, "npipe:////./pipe/docker_engine")
	} else {
		add(CandidateNativeSocket, "unix:///var/run/docker.sock")
	}

	// the environment tier only adds something when DOCKER_HOST names a
	// daemon not already in the list; FromEnv falls back to the native socket
	if h := getenv("DOCKER_HOST"); h != "" && !seen[h] {
		add(CandidateEnvironment, "")
		seen[h] = true
	}
	add(CandidateLocalHTTP, "tcp://localhost:2375")

	for _, p := range altSocketPaths(goos, getenv, home, uid) {
		add(CandidateAltSocket, p)
	}

	for _, addr := range []string{"127.0.0.1:2375", "[::1]:2375", "127.0.0.1:4243"} {
		add(CandidateTCP, "tcp://"+addr)
	}
	return out
}

// altSocketPaths lists rootless, desktop and podman sockets in probe order.
func altSocketPaths(goos string, getenv func(string) string, home string, uid int) []string {
	if goos == "windows" {
		return []string{"npipe:////./pipe/dockerDesktopLinuxEngine"}
	}

	var paths []string
	runtimeDir := getenv("XDG_RUNTIME_DIR")
	if runtimeDir != "" {
		paths = append(paths, filepath.Join(runtimeDir, "docker.sock"))
	}
	if uid > 0 {
		paths = append(paths, "/run/user/"+strconv.Itoa(uid)+"/docker.sock")
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".docker", "run", "docker.sock"),
			filepath.Join(home, ".docker", "desktop", "docker.sock"),
			filepath.Join(home, ".colima", "default", "docker.sock"),
			filepath.Join(home, ".rd", "docker.sock"),
			filepath.Join(home, ".orbstack", "run", "docker.sock"),
		)
	}
	if runtimeDir != "" {
		paths = append(paths, filepath.Join(runtimeDir, "podman", "podman.sock"))
	}
	paths = append(paths, "/run/podman/podman.sock")

	hosts := make([]string, 0, len(paths))
	for _, p := range paths {
		hosts = append(hosts, "unix://"+p)
	}
	return hosts
}

// Probe walks candidates once, in order, and returns a handle for the first
// daemon that completes the version handshake within timeout. Failed
// candidates are skipped, never retried. Exhausting the list yields
// DaemonNotAvailable.
func Probe(ctx context.Context, candidates []Candidate, timeout time.Duration) (*Handle, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var last error
	tried := 0
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		tried++

		h, err := openCandidate(ctx, c, timeout)
		if err != nil {
			slog.Debug("docker candidate failed", "candidate", c.Name, "host", c.Host, "err", err)
			last = err
			continue
		}
		return h, nil
	}

	msg := fmt.Sprintf("no daemon answered on %d transport candidates", tried)
	if err := ctx.Err(); err != nil {
		msg = "connect cancelled after " + strconv.Itoa(tried) + " transport candidates"
		last = err
	}
	return nil, notAvailable(msg, last)
}

func openCandidate(ctx context.Context, c Candidate, timeout time.Duration) (*Handle, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if c.Host == "" {
		opts = append([]client.Opt{client.FromEnv}, opts...)
	} else {
		opts = append(opts, client.WithHost(c.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker sdk: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := cli.ServerVersion(hctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	return &Handle{
		cli:        cli,
		candidate:  c,
		version:    v.Version,
		apiVersion: v.APIVersion,
	}, nil
}
