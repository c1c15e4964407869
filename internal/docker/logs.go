package docker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// DefaultLogTail is the number of trailing lines requested when the caller
// names none.
const DefaultLogTail = "100"

// errLogCapReached stops collection once the entry cap is hit.
var errLogCapReached = errors.New("log entry cap reached")

// ContainerLogs collects container output as timestamped entries in stream
// order. Without Follow the result holds at most LogCap entries. With Follow
// it keeps reading until ctx ends, then returns what was collected.
func (s *Service) ContainerLogs(ctx context.Context, id string, opts LogOptions) ([]LogEntry, error) {
	if err := requireID(ResourceContainer, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	tail := strings.TrimSpace(opts.Tail)
	if tail == "" {
		tail = DefaultLogTail
	}

	rc, err := cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Follow:     opts.Follow,
		Tail:       tail,
		Since:      unixSeconds(opts.Since),
		Until:      unixSeconds(opts.Until),
	})
	if err != nil {
		if opts.Follow && ctx.Err() != nil {
			// window closed before the daemon answered
			return []LogEntry{}, nil
		}
		return nil, Classify(err, ResourceContainer, id)
	}
	defer rc.Close()

	c := &logCollector{}
	if !opts.Follow {
		c.limit = s.LogCap()
	}

	err = c.collect(rc)
	switch {
	case err == nil, errors.Is(err, errLogCapReached):
	case opts.Follow && ctx.Err() != nil:
		// follow window closed
	default:
		return nil, Classify(err, ResourceContainer, id)
	}
	return c.entries, nil
}

// unixSeconds passes a valid unix timestamp through and drops anything else,
// which the daemon treats as unbounded.
func unixSeconds(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return ""
	}
	return v
}

type logCollector struct {
	limit   int // 0 means unbounded
	entries []LogEntry
	capped  bool
}

// collect reads the whole log body. Bodies of containers without a TTY are
// multiplexed with 8-byte frame headers; TTY output is a raw stdout stream.
func (c *logCollector) collect(r io.Reader) error {
	c.entries = make([]LogEntry, 0)
	br := bufio.NewReader(r)
	stdout := &lineWriter{c: c, stream: "stdout"}
	stderr := &lineWriter{c: c, stream: "stderr"}

	hdr, err := br.Peek(8)
	if len(hdr) == 0 {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if isMultiplexed(hdr) {
		_, err = stdcopy.StdCopy(stdout, stderr, br)
	} else {
		_, err = io.Copy(stdout, br)
	}

	// keep an unterminated trailing line even when the stream broke off
	stdout.flush()
	stderr.flush()
	return err
}

func isMultiplexed(hdr []byte) bool {
	if len(hdr) < 8 {
		return false
	}
	return hdr[0] <= byte(stdcopy.Stderr) && hdr[1] == 0 && hdr[2] == 0 && hdr[3] == 0
}

func (c *logCollector) add(stream, line string) error {
	if c.capped {
		return errLogCapReached
	}
	c.entries = append(c.entries, parseLogLine(stream, line))
	if c.limit > 0 && len(c.entries) >= c.limit {
		c.capped = true
		return errLogCapReached
	}
	return nil
}

// parseLogLine splits "<RFC3339Nano timestamp> <content>". A line without a
// parseable timestamp is kept whole with an empty timestamp.
func parseLogLine(stream, line string) LogEntry {
	line = strings.TrimSuffix(line, "\r")
	ts, rest, ok := strings.Cut(line, " ")
	if !ok {
		ts, rest = line, ""
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		return LogEntry{Stream: stream, Content: line}
	}
	return LogEntry{Timestamp: ts, Stream: stream, Content: rest}
}

// lineWriter splits one stream into lines. Frames do not align with line
// boundaries, so the unterminated tail is carried to the next write.
type lineWriter struct {
	c       *logCollector
	stream  string
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		line := string(w.partial[:i])
		w.partial = w.partial[i+1:]
		if err := w.c.add(w.stream, line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.partial) == 0 || w.c.capped {
		return
	}
	_ = w.c.add(w.stream, string(w.partial))
	w.partial = nil
}
