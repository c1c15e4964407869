package docker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/client"
)

// notConnectedMessage is what Status reports when no handle was ever opened.
const notConnectedMessage = "Docker daemon not connected"

// Handle is an open daemon session. Operations borrow it for one call and
// must not keep it.
type Handle struct {
	cli        *client.Client
	candidate  Candidate
	version    string
	apiVersion string
}

// Client returns the SDK client bound to this session.
func (h *Handle) Client() *client.Client { return h.cli }

// Candidate returns the transport the session was opened on.
func (h *Handle) Candidate() Candidate { return h.candidate }

// Host returns the daemon address the SDK resolved for this session.
func (h *Handle) Host() string {
	if h.candidate.Host != "" {
		return h.candidate.Host
	}
	return h.cli.DaemonHost()
}

// Close releases the underlying transport.
func (h *Handle) Close() error { return h.cli.Close() }

// Manager owns the single daemon connection slot. Connect, Disconnect,
// Reconnect, Handle and Test serialize on mu; a handle obtained from Handle
// is used for its daemon round trip without holding the lock.
type Manager struct {
	mu         sync.Mutex
	handle     *Handle
	preferred  string
	timeout    time.Duration
	candidates func() []Candidate
}

// NewManager returns a disconnected manager that probes DefaultCandidates.
func NewManager(probeTimeout time.Duration) *Manager {
	return &Manager{timeout: probeTimeout, candidates: DefaultCandidates}
}

// NewManagerWithCandidates returns a disconnected manager restricted to the
// given candidates, in order.
func NewManagerWithCandidates(probeTimeout time.Duration, candidates ...Candidate) *Manager {
	fixed := append([]Candidate(nil), candidates...)
	return &Manager{
		timeout:    probeTimeout,
		candidates: func() []Candidate { return fixed },
	}
}

// SetPreferredHost makes host the first candidate of every later connect.
// An empty host restores the default order.
func (m *Manager) SetPreferredHost(host string) {
	m.mu.Lock()
	m.preferred = host
	m.mu.Unlock()
}

// PreferredHost returns the host set by SetPreferredHost.
func (m *Manager) PreferredHost() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preferred
}

func (m *Manager) candidateListLocked() []Candidate {
	list := m.candidates()
	if m.preferred == "" {
		return list
	}
	out := make([]Candidate, 0, len(list)+1)
	out = append(out, Candidate{Name: CandidateConfigured, Host: m.preferred})
	for _, c := range list {
		if c.Host != m.preferred {
			out = append(out, c)
		}
	}
	return out
}

// Connect probes the candidates and installs the first accepted handle.
// Any previous handle is released first, so a failed connect always leaves
// the manager disconnected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *Manager) connectLocked(ctx context.Context) error {
	m.closeLocked()

	h, err := Probe(ctx, m.candidateListLocked(), m.timeout)
	if err != nil {
		slog.Warn("docker connect failed", "err", err)
		return err
	}

	m.handle = h
	slog.Info("docker connected",
		"transport", h.candidate.Name,
		"host", h.Host(),
		"version", h.version,
		"apiVersion", h.apiVersion,
	)
	return nil
}

// Disconnect drops the handle. It is idempotent and never fails.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil {
		slog.Info("docker disconnected", "host", m.handle.Host())
	}
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.handle == nil {
		return
	}
	if err := m.handle.Close(); err != nil {
		slog.Debug("docker close", "err", err)
	}
	m.handle = nil
}

// Reconnect drops the current handle and connects again without releasing
// the slot in between.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

// IsConnected reports whether a handle is installed. It does not contact the
// daemon.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil
}

// Handle returns the installed handle or DaemonNotAvailable.
func (m *Manager) Handle() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return nil, notAvailable(notConnectedMessage, nil)
	}
	return m.handle, nil
}

// Test runs a handshake on the installed handle. With no handle it returns
// false and no error. The handshake is bounded by the probe timeout. A failed
// handshake tears the handle down before returning, so concurrent callers
// see the manager disconnected; a cancelled ctx leaves the handle installed.
func (m *Manager) Test(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.testLocked(ctx)
}

func (m *Manager) testLocked(ctx context.Context) (bool, error) {
	if m.handle == nil {
		return false, nil
	}

	timeout := m.timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := m.handle.cli.ServerVersion(hctx)
	if err != nil {
		// the caller went away; that says nothing about the daemon
		if ctx.Err() != nil {
			return false, Classify(err, "", "")
		}
		cerr := Classify(err, "", "")
		if KindOf(cerr) == KindOperationFailed {
			cerr = &Error{Kind: KindConnectionLost, Message: err.Error(), Err: err}
		}
		slog.Warn("docker connection test failed", "host", m.handle.Host(), "err", err)
		m.closeLocked()
		return false, cerr
	}

	m.handle.version = v.Version
	m.handle.apiVersion = v.APIVersion
	return true, nil
}

// Status tests the connection and reports the derived state.
func (m *Manager) Status(ctx context.Context) ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.testLocked(ctx)
	switch {
	case err != nil:
		return ConnectionStatus{Error: err.Error()}
	case !ok:
		return ConnectionStatus{Error: notConnectedMessage}
	}

	return ConnectionStatus{
		Connected:  true,
		Version:    m.handle.version,
		APIVersion: m.handle.apiVersion,
		Host:       m.handle.Host(),
		Transport:  m.handle.candidate.Name,
	}
}

// Close releases the handle on shutdown.
func (m *Manager) Close() {
	m.Disconnect()
}
