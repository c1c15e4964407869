package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerLogs(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)
	ctx := context.Background()

	entries, err := svc.ContainerLogs(ctx, "web", LogOptions{})
	require.NoError(t, err)

	live, _ := fd.World().Container("web")
	require.Len(t, entries, len(live.LogLines))
	for i, e := range entries {
		assert.Equal(t, "stdout", e.Stream)
		assert.Equal(t, live.LogLines[i], e.Content)
		_, perr := time.Parse(time.RFC3339Nano, e.Timestamp)
		assert.NoError(t, perr)
	}
}

func TestContainerLogsSeparatesStderr(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	entries, err := svc.ContainerLogs(context.Background(), "cache", LogOptions{Tail: "all"})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	streams := make([]string, 0, len(entries))
	for _, e := range entries {
		streams = append(streams, e.Stream)
	}
	assert.Equal(t, []string{"stdout", "stderr", "stdout", "stderr"}, streams)
	assert.Equal(t, "WARNING Memory overcommit must be enabled!", entries[1].Content)
}

func TestContainerLogsTail(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	entries, err := svc.ContainerLogs(context.Background(), "cache", LogOptions{Tail: "2"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ready to accept connections tcp", entries[0].Content)
}

func TestContainerLogsTTY(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	entries, err := svc.ContainerLogs(context.Background(), "sidecar", LogOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, LogEntry{Timestamp: entries[0].Timestamp, Stream: "stdout", Content: "sidecar up"}, entries[0])
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestContainerLogsIgnoresInvalidBounds(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	entries, err := svc.ContainerLogs(context.Background(), "web", LogOptions{Since: "yesterday", Until: "-"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestContainerLogsCap(t *testing.T) {
	t.Parallel()
	svc, fd := setupService(t)

	lines := make([]string, 1500)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %04d", i)
	}
	_, err := fd.World().AddContainer(LiveContainer{Name: "chatty", Image: "busybox", State: "running", LogLines: lines})
	require.NoError(t, err)

	entries, err := svc.ContainerLogs(context.Background(), "chatty", LogOptions{Tail: "all"})
	require.NoError(t, err)
	require.Len(t, entries, MaxLogEntries)
	assert.Equal(t, "line 0000", entries[0].Content)
	assert.Equal(t, "line 0999", entries[MaxLogEntries-1].Content)

	svc.SetLogCap(10)
	assert.Equal(t, 10, svc.LogCap())
	entries, err = svc.ContainerLogs(context.Background(), "chatty", LogOptions{Tail: "all"})
	require.NoError(t, err)
	assert.Len(t, entries, 10)

	svc.SetLogCap(0)
	assert.Equal(t, MaxLogEntries, svc.LogCap())
}

func TestContainerLogsFollow(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	entries, err := svc.ContainerLogs(ctx, "web", LogOptions{Follow: true})
	require.NoError(t, err, "the follow window closing is not a failure")
	assert.Len(t, entries, 3)
}

func TestContainerLogsFollowWindowClosedBeforeHeaders(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := svc.ContainerLogs(ctx, "web", LogOptions{Follow: true})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.True(t, svc.Manager().IsConnected())
}

func TestContainerLogsNotFound(t *testing.T) {
	t.Parallel()
	svc, _ := setupService(t)

	_, err := svc.ContainerLogs(context.Background(), "nope", LogOptions{})
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceContainer, ID: "nope"})
}

func TestParseLogLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want LogEntry
	}{
		{
			"2026-02-18T00:00:01.5Z hello world",
			LogEntry{Timestamp: "2026-02-18T00:00:01.5Z", Stream: "stdout", Content: "hello world"},
		},
		{
			"2026-02-18T00:00:01Z",
			LogEntry{Timestamp: "2026-02-18T00:00:01Z", Stream: "stdout"},
		},
		{
			"no timestamp here",
			LogEntry{Stream: "stdout", Content: "no timestamp here"},
		},
		{
			"2026-02-18T00:00:01Z windows line\r",
			LogEntry{Timestamp: "2026-02-18T00:00:01Z", Stream: "stdout", Content: "windows line"},
		},
		{"", LogEntry{Stream: "stdout"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLine("stdout", tt.line), tt.line)
	}
}

func TestCollectJoinsLinesAcrossFrames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	errw := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	_, _ = out.Write([]byte("2026-02-18T00:00:01Z par"))
	_, _ = errw.Write([]byte("2026-02-18T00:00:02Z oops\n"))
	_, _ = out.Write([]byte("tial\n2026-02-18T00:00:03Z tail without newline"))

	c := &logCollector{}
	require.NoError(t, c.collect(&buf))
	assert.Equal(t, []LogEntry{
		{Timestamp: "2026-02-18T00:00:02Z", Stream: "stderr", Content: "oops"},
		{Timestamp: "2026-02-18T00:00:01Z", Stream: "stdout", Content: "partial"},
		{Timestamp: "2026-02-18T00:00:03Z", Stream: "stdout", Content: "tail without newline"},
	}, c.entries)
}

func TestCollectRawStream(t *testing.T) {
	t.Parallel()

	c := &logCollector{limit: 2}
	err := c.collect(strings.NewReader("one\ntwo\nthree\n"))
	assert.ErrorIs(t, err, errLogCapReached)
	require.Len(t, c.entries, 2)
	assert.Equal(t, "two", c.entries[1].Content)

	empty := &logCollector{}
	require.NoError(t, empty.collect(strings.NewReader("")))
	assert.NotNil(t, empty.entries)
	assert.Empty(t, empty.entries)
}

func TestCollectKeepsTrailingLineWhenStreamBreaks(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	errw := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	_, _ = out.Write([]byte("2026-02-18T00:00:01Z one\n2026-02-18T00:00:02Z half"))
	_, _ = errw.Write([]byte("2026-02-18T00:00:03Z err half"))

	c := &logCollector{}
	err := c.collect(io.MultiReader(&buf, iotest.ErrReader(context.Canceled)))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []LogEntry{
		{Timestamp: "2026-02-18T00:00:01Z", Stream: "stdout", Content: "one"},
		{Timestamp: "2026-02-18T00:00:02Z", Stream: "stdout", Content: "half"},
		{Timestamp: "2026-02-18T00:00:03Z", Stream: "stderr", Content: "err half"},
	}, c.entries)

	raw := &logCollector{}
	err = raw.collect(io.MultiReader(strings.NewReader("first\nsecond"), iotest.ErrReader(context.Canceled)))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, raw.entries, 2)
	assert.Equal(t, "second", raw.entries[1].Content)
}

func TestIsMultiplexed(t *testing.T) {
	t.Parallel()

	assert.True(t, isMultiplexed([]byte{1, 0, 0, 0, 0, 0, 0, 5}))
	assert.True(t, isMultiplexed([]byte{2, 0, 0, 0, 0, 0, 1, 0}))
	assert.False(t, isMultiplexed([]byte("2026-02-")))
	assert.False(t, isMultiplexed([]byte{1, 0}))
}
