package docker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findImage(items []ImageListItem, tag string) *ImageListItem {
	for i := range items {
		for _, t := range items[i].RepoTags {
			if t == tag {
				return &items[i]
			}
		}
	}
	return nil
}

func TestListImages(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	images, err := svc.ListImages(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, images, 5)

	nginx := findImage(images, "nginx:latest")
	require.NotNil(t, nginx)
	assert.Equal(t, []string{"nginx:latest", "nginx:1.27"}, nginx.RepoTags)
	assert.EqualValues(t, 1, nginx.Containers)
	assert.False(t, nginx.Dangling)
	assert.NotEmpty(t, nginx.RepoDigests)

	dangling := images[len(images)-1]
	assert.True(t, dangling.Dangling)
	assert.NotNil(t, dangling.RepoTags)
	assert.Empty(t, dangling.RepoTags)
	assert.Equal(t, "sha256:"+fakeID("image", "dangling"), dangling.ID)
}

func TestImageDetails(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	d, err := svc.ImageDetails(context.Background(), "nginx")
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx:latest", "nginx:1.27"}, d.RepoTags)
	assert.Equal(t, []string{"80/tcp"}, d.Config.ExposedPorts)
	assert.Equal(t, []string{"nginx", "-g", "daemon off;"}, d.Config.Cmd)
	assert.Equal(t, "amd64", d.Architecture)
	assert.Equal(t, "linux", d.Os)
	assert.Equal(t, "overlay2", d.GraphDriver.Name)
	assert.Len(t, d.RootFS.Layers, 1)
	assert.Equal(t, formatBytes(192_000_000), d.SizeHuman)
	assert.NotNil(t, d.Config.Volumes)
	assert.NotNil(t, d.Labels)

	_, err = svc.ImageDetails(context.Background(), "ghost:9")
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceImage, ID: "ghost:9"})
}

func TestRemoveImage(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	items, err := svc.RemoveImage(ctx, "nginx:1.27", false, false)
	require.NoError(t, err)
	assert.Equal(t, []ImageDeleteItem{{Untagged: "nginx:1.27"}}, items)

	_, err = svc.RemoveImage(ctx, "redis:7-alpine", false, false)
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.Contains(t, err.Error(), "being used by container")

	items, err = svc.RemoveImage(ctx, "redis:7-alpine", true, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "redis:7-alpine", items[0].Untagged)
	assert.NotEmpty(t, items[1].Deleted)

	_, err = svc.RemoveImage(ctx, "redis:7-alpine", false, false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RemoveImage(ctx, "", false, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPullImage(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	res, err := svc.PullImage(ctx, "alpine", "3.20")
	require.NoError(t, err)
	assert.Equal(t, "alpine:3.20", res.Image)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, res.Digest)
	assert.Equal(t, "Status: Downloaded newer image for alpine:3.20", res.Status)

	images, err := svc.ListImages(ctx, false)
	require.NoError(t, err)
	assert.NotNil(t, findImage(images, "alpine:3.20"))

	again, err := svc.PullImage(ctx, "alpine:3.20", "")
	require.NoError(t, err)
	assert.Equal(t, res.Digest, again.Digest)
	assert.Contains(t, again.Status, "Image is up to date")
}

func TestPullImageDefaultsToLatest(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	res, err := svc.PullImage(context.Background(), "busybox", "")
	require.NoError(t, err)
	assert.Equal(t, "busybox:latest", res.Image)
	assert.Contains(t, res.Status, "up to date")
}

func TestPullImageStreamError(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	_, err := svc.PullImage(context.Background(), "nonexistent-image", "")
	require.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, &Error{Kind: KindOperationFailed, Resource: ResourceImage, ID: "nonexistent-image:latest"})
	assert.Contains(t, err.Error(), "pull access denied")
}

func TestNormalizeImageRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, tag string
		want      string
		invalid   bool
	}{
		{name: "nginx", want: "docker.io/library/nginx:latest"},
		{name: "nginx", tag: "1.27", want: "docker.io/library/nginx:1.27"},
		{name: "ghcr.io/acme/tool:v2", want: "ghcr.io/acme/tool:v2"},
		{name: "nginx:1.27", tag: "1.28", invalid: true},
		{name: "nginx@sha256:" + fakeID("d", "x"), tag: "1", invalid: true},
		{name: "  ", invalid: true},
		{name: "Bad/Name", invalid: true},
		{name: "nginx", tag: "bad tag", invalid: true},
	}
	for _, tt := range tests {
		ref, err := normalizeImageRef(tt.name, tt.tag)
		if tt.invalid {
			assert.ErrorIs(t, err, ErrInvalidInput, "%q %q", tt.name, tt.tag)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, ref.String())
	}
}

func TestPruneImages(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)
	ctx := context.Background()

	report, err := svc.PruneImages(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha256:" + fakeID("image", "dangling")}, report.Deleted)
	assert.EqualValues(t, 12_000_000, report.SpaceReclaimed)
	assert.Equal(t, formatBytes(12_000_000), report.SpaceReclaimedHuman)

	// every tagged image is in use by a container
	report, err = svc.PruneImages(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.NotNil(t, report.Deleted)
	assert.Equal(t, "0B", report.SpaceReclaimedHuman)
}
