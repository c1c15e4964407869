package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupService starts a FakeDaemon over DefaultWorld and returns a Service
// connected to it.
func setupService(t *testing.T) (*Service, *FakeDaemon) {
	t.Helper()
	return setupServiceWith(t, DefaultWorld())
}

func setupServiceWith(t *testing.T, world *World) (*Service, *FakeDaemon) {
	t.Helper()

	fd, err := StartFakeDaemon(world)
	require.NoError(t, err)
	t.Cleanup(fd.Close)

	m := NewManagerWithCandidates(2*time.Second, Candidate{Name: CandidateConfigured, Host: fd.Host()})
	require.NoError(t, m.Connect(context.Background()))
	t.Cleanup(m.Close)

	return NewService(m), fd
}

func TestLoadWorld(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
images:
  - tags: ["nginx:latest"]
    size: 1000
networks:
  - name: front
volumes:
  - name: data
containers:
  - name: web
    image: nginx
    state: running
    ports: ["8080:80"]
    networks: [front]
    binds: ["data:/srv"]
    logs: ["hello"]
  - name: job
    image: alpine:3.20
    state: exited
    exitCode: 3
`), 0o644))

	w, err := LoadWorld(path)
	require.NoError(t, err)

	web, ok := w.Container("web")
	require.True(t, ok)
	assert.Equal(t, "running", web.State)
	assert.Equal(t, []string{"front"}, web.Networks)
	assert.Len(t, web.bindings, 1)

	job, ok := w.Container("job")
	require.True(t, ok)
	assert.Equal(t, 3, job.ExitCode)

	// alpine was not seeded, so it is added on demand
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.NotNil(t, w.findImageLocked("alpine:3.20"))
	assert.NotNil(t, w.findNetworkLocked("bridge"))
}

func TestLoadWorldRejectsDuplicates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
containers:
  - name: a
    image: busybox
  - name: a
    image: busybox
`), 0o644))

	_, err := LoadWorld(path)
	assert.Error(t, err)
}

func TestWorldContainerLookup(t *testing.T) {
	t.Parallel()

	w := DefaultWorld()
	web, ok := w.Container("web")
	require.True(t, ok)

	byID, ok := w.Container(web.ID)
	require.True(t, ok)
	assert.Equal(t, "web", byID.Name)

	byPrefix, ok := w.Container(web.ID[:12])
	require.True(t, ok)
	assert.Equal(t, "web", byPrefix.Name)

	bySlash, ok := w.Container("/web")
	require.True(t, ok)
	assert.Equal(t, web.ID, bySlash.ID)

	_, ok = w.Container("nope")
	assert.False(t, ok)
}

func TestFakeDaemonClose(t *testing.T) {
	t.Parallel()

	fd, err := StartFakeDaemon(DefaultWorld())
	require.NoError(t, err)

	sock := fd.sockPath
	_, err = os.Stat(sock)
	require.NoError(t, err)

	fd.Close()
	fd.Close()
	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))
}
