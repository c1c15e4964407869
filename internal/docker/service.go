package docker

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/docker/docker/client"
)

// MaxLogEntries is the hard ceiling on entries returned by a non-follow log
// request.
const MaxLogEntries = 1000

// Service exposes the resource operations. It holds no daemon state of its
// own: every call borrows the current handle from the Manager.
type Service struct {
	conns  *Manager
	logCap atomic.Int32
}

// NewService returns a Service backed by conns.
func NewService(conns *Manager) *Service {
	s := &Service{conns: conns}
	s.logCap.Store(MaxLogEntries)
	return s
}

// Manager returns the connection manager behind this service.
func (s *Service) Manager() *Manager {
	return s.conns
}

// SetLogCap lowers the entry cap for non-follow log requests. Values are
// clamped to [1, MaxLogEntries].
func (s *Service) SetLogCap(n int) {
	if n <= 0 || n > MaxLogEntries {
		n = MaxLogEntries
	}
	s.logCap.Store(int32(n))
}

// LogCap returns the current entry cap for non-follow log requests.
func (s *Service) LogCap() int {
	return int(s.logCap.Load())
}

// client borrows the SDK client of the current handle.
func (s *Service) client() (*client.Client, error) {
	h, err := s.conns.Handle()
	if err != nil {
		return nil, err
	}
	return h.cli, nil
}

func requireID(resource Resource, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalidInput(string(resource) + " id is required")
	}
	return nil
}

// nonNil* helpers resolve optional collections to empty values.

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatUint(b, 10) + "B"
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + string("KMGTPE"[exp]) + "iB"
}

// formatBytesPair formats two byte values as "a / b".
func formatBytesPair(a, b uint64) string {
	var sb strings.Builder
	sb.Grow(32)
	sb.WriteString(formatBytes(a))
	sb.WriteString(" / ")
	sb.WriteString(formatBytes(b))
	return sb.String()
}

func formatPercent(p float64) string {
	buf := make([]byte, 0, 16)
	buf = strconv.AppendFloat(buf, p, 'f', 2, 64)
	return string(append(buf, '%'))
}
