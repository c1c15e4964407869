package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containerNames(items []ContainerListItem) []string {
	names := make([]string, 0, len(items))
	for _, c := range items {
		names = append(names, c.Name)
	}
	return names
}

func TestListContainers(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	running, err := svc.ListContainers(ctx, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "cache", "sidecar"}, containerNames(running))

	all, err := svc.ListContainers(ctx, true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "cache", "db", "sidecar"}, containerNames(all))

	web := all[0]
	assert.Equal(t, []string{"/web"}, web.Names)
	assert.Equal(t, "running", web.State)
	assert.Equal(t, []string{"app-net", "bridge"}, web.Networks)
	assert.Positive(t, web.SizeRootFs)
	require.Len(t, web.Ports, 1)
	assert.Equal(t, ContainerPort{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Type: "tcp", Port: "80/tcp"}, web.Ports[0])

	db := all[2]
	assert.Equal(t, "exited", db.State)
	assert.NotNil(t, db.Labels)
	assert.NotNil(t, db.Ports)
}

func TestContainerDetails(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	ctx := context.Background()

	d, err := svc.ContainerDetails(ctx, "web")
	require.NoError(t, err)

	live, _ := fd.World().Container("web")
	assert.Equal(t, live.ID, d.ID)
	assert.Equal(t, "web", d.Name)
	assert.True(t, d.State.Running)
	assert.Equal(t, "running", d.State.Status)
	assert.Equal(t, []string{"80/tcp"}, d.Config.ExposedPorts)
	assert.Equal(t, "unless-stopped", d.HostConfig.RestartPolicy)
	assert.Equal(t, []PortBinding{{ContainerPort: "80/tcp", HostPort: "8080"}}, d.HostConfig.PortBindings)
	assert.Equal(t, []PortBinding{{ContainerPort: "80/tcp", HostPort: "8080"}}, d.Ports)

	require.Len(t, d.Networks, 2)
	assert.Equal(t, "app-net", d.Networks[0].Network)
	assert.Equal(t, "bridge", d.Networks[1].Network)
	assert.NotEmpty(t, d.Networks[0].IPAddress)

	cache, err := svc.ContainerDetails(ctx, "cache")
	require.NoError(t, err)
	require.Len(t, cache.Mounts, 1)
	assert.Equal(t, "volume", cache.Mounts[0].Type)
	assert.Equal(t, "cache-data", cache.Mounts[0].Name)
	assert.Equal(t, "/data", cache.Mounts[0].Destination)
}

func TestContainerDetailsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	_, err := svc.ContainerDetails(context.Background(), "missing")
	require.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceContainer, ID: "missing"})
	assert.Equal(t, "container not found: missing", err.Error())

	_, err = svc.ContainerDetails(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStopAndRestartUseDefaultTimeout(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.StopContainer(ctx, "web", nil))
	require.NotNil(t, fd.World().LastStopTimeout())
	assert.Equal(t, DefaultStopTimeout, *fd.World().LastStopTimeout())

	d, err := svc.ContainerDetails(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "exited", d.State.Status)

	// stopping a stopped container is not an error
	require.NoError(t, svc.StopContainer(ctx, "web", nil))

	three := 3
	require.NoError(t, svc.RestartContainer(ctx, "web", &three))
	assert.Equal(t, 3, *fd.World().LastStopTimeout())

	d, err = svc.ContainerDetails(ctx, "web")
	require.NoError(t, err)
	assert.True(t, d.State.Running)
}

func TestStartContainer(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.StartContainer(ctx, "db"))
	require.NoError(t, svc.StartContainer(ctx, "db"), "already running is a no-op")

	d, err := svc.ContainerDetails(ctx, "db")
	require.NoError(t, err)
	assert.True(t, d.State.Running)

	err = svc.StartContainer(ctx, "sidecar")
	assert.ErrorIs(t, err, ErrOperationFailed)

	err = svc.StartContainer(ctx, "ghost")
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceContainer, ID: "ghost"})
}

func TestKillContainer(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.KillContainer(ctx, "web", ""))
	assert.Equal(t, DefaultKillSignal, fd.World().LastKillSignal())

	d, err := svc.ContainerDetails(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 137, d.State.ExitCode)

	err = svc.KillContainer(ctx, "web", "SIGTERM")
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Equal(t, "SIGTERM", fd.World().LastKillSignal())
}

func TestPauseUnpause(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.PauseContainer(ctx, "web"))
	d, err := svc.ContainerDetails(ctx, "web")
	require.NoError(t, err)
	assert.True(t, d.State.Paused)

	assert.ErrorIs(t, svc.PauseContainer(ctx, "web"), ErrOperationFailed)
	require.NoError(t, svc.UnpauseContainer(ctx, "web"))
	assert.ErrorIs(t, svc.UnpauseContainer(ctx, "web"), ErrOperationFailed)
}

func TestRenameContainer(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.RenameContainer(ctx, "web", "/frontend"))
	d, err := svc.ContainerDetails(ctx, "frontend")
	require.NoError(t, err)
	assert.Equal(t, "frontend", d.Name)

	assert.ErrorIs(t, svc.RenameContainer(ctx, "frontend", "cache"), ErrOperationFailed)
	assert.ErrorIs(t, svc.RenameContainer(ctx, "frontend", ""), ErrInvalidInput)
}

func TestRemoveContainer(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	err := svc.RemoveContainer(ctx, "web", false, false)
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "container is running")

	_, err = svc.ContainerDetails(ctx, "web")
	require.NoError(t, err, "a refused removal leaves the container in place")

	require.NoError(t, svc.RemoveContainer(ctx, "web", true, false))
	_, err = svc.ContainerDetails(ctx, "web")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveContainerVolumes(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	ctx := context.Background()

	anon := fakeID("volume", "anon")[:32]
	_, err := fd.World().AddContainer(LiveContainer{
		Name: "job", Image: "busybox", State: "exited",
		Binds: []string{anon + ":/scratch"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveContainer(ctx, "job", false, true))

	_, err = svc.VolumeDetails(ctx, anon)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.VolumeDetails(ctx, "pgdata")
	assert.NoError(t, err, "named volumes survive")
}

func TestCreateContainer(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	id, err := svc.CreateContainer(ctx, CreateContainerRequest{
		Name:          "api",
		Image:         "nginx",
		Env:           []string{"MODE=test"},
		Ports:         []string{"9090:80/tcp"},
		RestartPolicy: "always",
		Labels:        map[string]string{"tier": "api"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	d, err := svc.ContainerDetails(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "api", d.Name)
	assert.Equal(t, "created", d.State.Status)
	assert.Equal(t, "always", d.HostConfig.RestartPolicy)
	assert.Equal(t, []string{"MODE=test"}, d.Config.Env)
	assert.Equal(t, "api", d.Config.Labels["tier"])
	assert.Equal(t, []PortBinding{{ContainerPort: "80/tcp", HostPort: "9090"}}, d.HostConfig.PortBindings)
	assert.Empty(t, d.Ports, "ports are published only while running")
}

func TestCreateContainerValidation(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateContainerRequest
		want *Error
	}{
		{"no image", CreateContainerRequest{}, ErrInvalidInput},
		{"bad reference", CreateContainerRequest{Image: "UPPER"}, ErrInvalidInput},
		{"bad port", CreateContainerRequest{Image: "nginx", Ports: []string{"abc:xyz"}}, ErrInvalidInput},
		{"bad restart policy", CreateContainerRequest{Image: "nginx", RestartPolicy: "sometimes"}, ErrInvalidInput},
		{"unknown image", CreateContainerRequest{Image: "ghost:1"}, &Error{Kind: KindNotFound, Resource: ResourceImage, ID: "ghost:1"}},
		{"name in use", CreateContainerRequest{Name: "web", Image: "nginx"}, ErrOperationFailed},
		{"unknown network", CreateContainerRequest{Image: "nginx", NetworkMode: "nope"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateContainer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestContainerStats(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	st, err := svc.ContainerStats(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "web", st.Name)
	assert.InDelta(t, 20.0, st.CPUPercent, 0.001)
	assert.EqualValues(t, 2, st.OnlineCPUs)
	assert.EqualValues(t, 80<<20, st.MemoryUsage)
	assert.EqualValues(t, 1<<30, st.MemoryLimit)
	assert.InDelta(t, 7.8125, st.MemoryPercent, 0.0001)
	assert.EqualValues(t, 2048, st.NetworkRx)
	assert.EqualValues(t, 1024, st.NetworkTx)
	assert.EqualValues(t, 4<<20, st.BlockRead)
	assert.EqualValues(t, 1<<20, st.BlockWrite)
	assert.EqualValues(t, 3, st.Pids)
	assert.Equal(t, StatsDisplay{
		CPUPerc:  "20.00%",
		MemPerc:  formatPercent(st.MemoryPercent),
		MemUsage: "80.0MiB / 1.0GiB",
		NetIO:    "2.0KiB / 1.0KiB",
		BlockIO:  "4.0MiB / 1.0MiB",
	}, st.Display)

	stopped, err := svc.ContainerStats(ctx, "db")
	require.NoError(t, err)
	assert.Zero(t, stopped.CPUPercent)
	assert.Zero(t, stopped.MemoryUsage)
	assert.NotNil(t, stopped.Networks)
}

func TestContainerStatsEmptySample(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	fd.World().SetEmptyStats(true)

	_, err := svc.ContainerStats(context.Background(), "web")
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "no stats sample")
}

func TestContainerProcesses(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	top, err := svc.ContainerProcesses(ctx, "web")
	require.NoError(t, err)
	require.Len(t, top.Titles, 11)
	assert.Equal(t, "PID", top.Titles[1])
	require.Len(t, top.Processes, 1)
	assert.Equal(t, "nginx -g daemon off;", top.Processes[0][10])

	_, err = svc.ContainerProcesses(ctx, "db")
	assert.ErrorIs(t, err, ErrOperationFailed)
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.0KiB", formatBytes(1024))
	assert.Equal(t, "1.5MiB", formatBytes(3<<19))
	assert.Equal(t, "0.00%", formatPercent(0))
	assert.Equal(t, "99.99%", formatPercent(99.99))
}
