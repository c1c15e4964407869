package docker

import (
	"context"
	"testing"

	"github.com/docker/docker/api/types/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListVolumes(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	vols, err := svc.ListVolumes(context.Background())
	require.NoError(t, err)
	require.Len(t, vols, 3)

	pg := vols[0]
	assert.Equal(t, "pgdata", pg.Name)
	assert.Equal(t, "local", pg.Driver)
	assert.EqualValues(t, 48_000_000, pg.Size)
	assert.EqualValues(t, 1, pg.RefCount)
	assert.NotNil(t, pg.Labels)
	assert.NotNil(t, pg.Status)

	anon := vols[2]
	assert.Contains(t, anon.Labels, anonymousVolumeLabel)
	assert.Zero(t, anon.RefCount)
}

func TestVolumeDetails(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	d, err := svc.VolumeDetails(context.Background(), "pgdata")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/docker/volumes/pgdata/_data", d.Mountpoint)
	assert.Equal(t, "local", d.Scope)

	_, err = svc.VolumeDetails(context.Background(), "nope")
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceVolume, ID: "nope"})
}

func TestVolumeSummaryWithoutUsage(t *testing.T) {
	t.Parallel()

	v := volumeSummary(volume.Volume{Name: "remote", Driver: "nfs", Status: map[string]any{"replicas": 3}})
	assert.EqualValues(t, -1, v.Size)
	assert.EqualValues(t, -1, v.RefCount)
	assert.Equal(t, map[string]string{"replicas": "3"}, v.Status)
}

func TestCreateVolume(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	v, err := svc.CreateVolume(ctx, CreateVolumeRequest{Name: "logs", Labels: map[string]string{"a": "b"}})
	require.NoError(t, err)
	assert.Equal(t, "logs", v.Name)
	assert.Equal(t, "local", v.Driver)
	assert.Equal(t, "b", v.Labels["a"])

	again, err := svc.CreateVolume(ctx, CreateVolumeRequest{Name: "logs"})
	require.NoError(t, err, "creating an existing volume is idempotent")
	assert.Equal(t, v.CreatedAt, again.CreatedAt)

	anon, err := svc.CreateVolume(ctx, CreateVolumeRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, anon.Name)
	assert.Contains(t, anon.Labels, anonymousVolumeLabel)

	_, err = svc.CreateVolume(ctx, CreateVolumeRequest{Name: "bad/name"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRemoveVolume(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	err := svc.RemoveVolume(ctx, "pgdata", true)
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "volume is in use")

	_, err = svc.CreateVolume(ctx, CreateVolumeRequest{Name: "tmp"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveVolume(ctx, "tmp", false))

	assert.ErrorIs(t, svc.RemoveVolume(ctx, "tmp", false), &Error{Kind: KindNotFound, Resource: ResourceVolume, ID: "tmp"})
	assert.NoError(t, svc.RemoveVolume(ctx, "tmp", true))
	assert.ErrorIs(t, svc.RemoveVolume(ctx, "", false), ErrInvalidInput)
}

func TestPruneVolumes(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateVolume(ctx, CreateVolumeRequest{Name: "unused-named"})
	require.NoError(t, err)

	report, err := svc.PruneVolumes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{fakeID("volume", "anon")[:32]}, report.Deleted)
	assert.EqualValues(t, 1<<20, report.SpaceReclaimed)
	assert.Equal(t, "1.0MiB", report.SpaceReclaimedHuman)

	_, err = svc.VolumeDetails(ctx, "unused-named")
	assert.NoError(t, err, "named volumes are kept by the default prune")
}
