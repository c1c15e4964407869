package docker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hosts(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Host)
	}
	return out
}

func TestCandidatesLinux(t *testing.T) {
	t.Parallel()

	env := map[string]string{"XDG_RUNTIME_DIR": "/run/user/1000"}
	got := candidatesFor("linux", func(k string) string { return env[k] }, "/home/u", 1000)

	assert.Equal(t, []string{
		"unix:///var/run/docker.sock",
		"tcp://localhost:2375",
		"unix:///run/user/1000/docker.sock",
		"unix:///home/u/.docker/run/docker.sock",
		"unix:///home/u/.docker/desktop/docker.sock",
		"unix:///home/u/.colima/default/docker.sock",
		"unix:///home/u/.rd/docker.sock",
		"unix:///home/u/.orbstack/run/docker.sock",
		"unix:///run/user/1000/podman/podman.sock",
		"unix:///run/podman/podman.sock",
		"tcp://127.0.0.1:2375",
		"tcp://[::1]:2375",
		"tcp://127.0.0.1:4243",
	}, hosts(got))

	assert.Equal(t, CandidateNativeSocket, got[0].Name)
	assert.Equal(t, CandidateLocalHTTP, got[1].Name)
	assert.Equal(t, CandidateAltSocket, got[2].Name)
	assert.Equal(t, CandidateTCP, got[len(got)-1].Name)
}

func TestCandidatesEnvironmentTier(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		dockerHost string
		want       []string
	}{
		"unset": {
			want: []string{"unix:///var/run/docker.sock", "tcp://localhost:2375"},
		},
		"same as native socket": {
			dockerHost: "unix:///var/run/docker.sock",
			want:       []string{"unix:///var/run/docker.sock", "tcp://localhost:2375"},
		},
		"remote daemon": {
			dockerHost: "tcp://10.0.0.5:2376",
			want:       []string{"unix:///var/run/docker.sock", "", "tcp://localhost:2375"},
		},
		"same as a later tier": {
			dockerHost: "tcp://127.0.0.1:4243",
			want:       []string{"unix:///var/run/docker.sock", "", "tcp://localhost:2375"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			env := map[string]string{"DOCKER_HOST": tt.dockerHost}
			got := hosts(candidatesFor("linux", func(k string) string { return env[k] }, "", -1))
			assert.Equal(t, tt.want, got[:len(tt.want)])
			assert.NotContains(t, got[len(tt.want):], "")
			if tt.dockerHost != "" {
				assert.Equal(t, 1, countOf(got, tt.dockerHost)+countOf(got, ""), "DOCKER_HOST is handshaken once")
			}
		})
	}
}

func countOf(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}

func TestCandidatesWindows(t *testing.T) {
	t.Parallel()

	got := candidatesFor("windows", func(string) string { return "" }, `C:\Users\u`, -1)
	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, "npipe:////./pipe/docker_engine", got[0].Host)
	assert.Equal(t, CandidateLocalHTTP, got[1].Name)
	assert.Equal(t, "npipe:////./pipe/dockerDesktopLinuxEngine", got[2].Host)
}

func TestCandidatesAreStable(t *testing.T) {
	t.Parallel()

	getenv := func(string) string { return "" }
	a := candidatesFor("linux", getenv, "/home/u", 0)
	b := candidatesFor("linux", getenv, "/home/u", 0)
	assert.Equal(t, a, b)
}

func TestProbeExhaustion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cands := []Candidate{
		{Name: CandidateNativeSocket, Host: "unix://" + filepath.Join(dir, "a.sock")},
		{Name: CandidateAltSocket, Host: "unix://" + filepath.Join(dir, "b.sock")},
	}
	h, err := Probe(context.Background(), cands, time.Second)
	assert.Nil(t, h)
	require.ErrorIs(t, err, ErrDaemonNotAvailable)
	assert.Contains(t, err.Error(), "2 transport candidates")
}

func TestProbeFirstWorkingCandidateWins(t *testing.T) {
	t.Parallel()

	first, err := StartFakeDaemon(DefaultWorld())
	require.NoError(t, err)
	t.Cleanup(first.Close)
	second, err := StartFakeDaemon(DefaultWorld())
	require.NoError(t, err)
	t.Cleanup(second.Close)

	cands := []Candidate{
		{Name: CandidateNativeSocket, Host: "unix://" + filepath.Join(t.TempDir(), "missing.sock")},
		{Name: CandidateAltSocket, Host: first.Host()},
		{Name: CandidateTCP, Host: second.Host()},
	}
	h, err := Probe(context.Background(), cands, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	assert.Equal(t, CandidateAltSocket, h.Candidate().Name)
	assert.Equal(t, first.Host(), h.Host())
	assert.Equal(t, fakeEngineVersion, h.version)
	assert.Equal(t, fakeAPIVersion, h.apiVersion)
}

func TestProbeCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Probe(ctx, []Candidate{{Name: CandidateTCP, Host: "tcp://127.0.0.1:1"}}, time.Second)
	require.ErrorIs(t, err, ErrDaemonNotAvailable)
	assert.Contains(t, err.Error(), "cancelled")
}
