package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// HandlerFunc processes a client message. ctx is the connection's context.
// Each message runs on its own goroutine, so handlers may block.
type HandlerFunc func(ctx context.Context, c *Conn, msg *ClientMessage)

// Server manages websocket connections and message dispatch.
type Server struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}

	handlers     map[string]HandlerFunc
	connectFn    func(c *Conn)
	disconnectFn func(c *Conn)
}

func NewServer() *Server {
	return &Server{
		conns:    make(map[*Conn]struct{}),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for a named event. Register everything before
// serving; the handler table is not locked.
func (s *Server) Handle(event string, fn HandlerFunc) {
	s.handlers[event] = fn
}

// Events lists the registered event names.
func (s *Server) Events() []string {
	out := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		out = append(out, name)
	}
	return out
}

// HandleConnect registers a callback that runs for each new connection
// before its first message is read.
func (s *Server) HandleConnect(fn func(c *Conn)) {
	s.connectFn = fn
}

// OnDisconnect registers a callback that fires when a connection is removed.
func (s *Server) OnDisconnect(fn func(c *Conn)) {
	s.disconnectFn = fn
}

// ServeHTTP upgrades the request to a websocket and blocks on its read pump.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// the GUI shell loads its pages from a custom scheme
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("ws accept", "err", err)
		return
	}

	c := newConn(r.Context(), wsConn, s)
	s.add(c)
	slog.Debug("ws connected", "remote", r.RemoteAddr, "conn", c.id)

	if s.connectFn != nil {
		s.connectFn(c)
	}

	c.readPump()
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// DisconnectOthers closes all connections except keep.
func (s *Server) DisconnectOthers(keep *Conn) {
	for _, c := range s.snapshot() {
		if c != keep {
			c.Close()
		}
	}
}

// CloseAll closes every connection. Used on shutdown, since hijacked
// websocket connections outlive http.Server.Shutdown.
func (s *Server) CloseAll() {
	for _, c := range s.snapshot() {
		c.Close()
	}
}

func (s *Server) snapshot() []*Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) add(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) remove(c *Conn) {
	s.mu.Lock()
	_, ok := s.conns[c]
	delete(s.conns, c)
	s.mu.Unlock()

	if ok && s.disconnectFn != nil {
		s.disconnectFn(c)
	}
	slog.Debug("ws disconnected", "conn", c.id, "remaining", s.ConnectionCount())
}

func (s *Server) dispatch(c *Conn, msg *ClientMessage) {
	// one goroutine per message so a slow daemon call (pull, follow logs)
	// does not hold up the rest of the connection
	go s.Dispatch(c, msg)
}

// Dispatch looks up and invokes the handler for msg. Unknown events and
// handler panics are answered with an OperationFailed ack.
func (s *Server) Dispatch(c *Conn, msg *ClientMessage) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ws handler panic", "event", msg.Event, "panic", r, "conn", c.id)
			if msg.ID != nil {
				SendAck(c, *msg.ID, Fail(Failure{Kind: KindOperationFailed, Message: fmt.Sprintf("internal error handling %s", msg.Event)}))
			}
		}
	}()

	h, ok := s.handlers[msg.Event]
	if !ok {
		slog.Warn("ws unknown event", "event", msg.Event, "conn", c.id)
		if msg.ID != nil {
			SendAck(c, *msg.ID, Fail(Failure{Kind: KindOperationFailed, Message: "unknown event: " + msg.Event}))
		}
		return
	}
	h(c.ctx, c, msg)
}
