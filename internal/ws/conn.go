package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 1 << 20 // 1 MB
)

var connIDCounter atomic.Uint64

// Conn wraps a single GUI websocket connection.
type Conn struct {
	ws     *websocket.Conn
	server *Server
	id     string

	// ctx is cancelled when the connection goes away, which aborts any
	// daemon calls still running on its behalf.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	userID int // 0 = unauthenticated
	closed bool
}

func newConn(parent context.Context, ws *websocket.Conn, server *Server) *Conn {
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		id:     "c" + strconv.FormatUint(connIDCounter.Add(1), 10),
		ws:     ws,
		server: server,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns a unique identifier for this connection.
func (c *Conn) ID() string { return c.id }

// Context is cancelled once the connection closes.
func (c *Conn) Context() context.Context { return c.ctx }

// SetUser marks this connection as authenticated. Zero logs it out.
func (c *Conn) SetUser(userID int) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// UserID returns the authenticated user ID (0 if not authenticated).
func (c *Conn) UserID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// SendAck sends an ack for a client request.
func SendAck[T any](c *Conn, id int64, data T) {
	writeJSON(c, AckMessage[T]{ID: id, Data: data})
}

// SendEvent sends a server push event with a single payload.
func SendEvent[T any](c *Conn, event string, data T) {
	writeJSON(c, ServerMessage[T]{Event: event, Data: data})
}

func writeJSON[T any](c *Conn, v T) {
	// marshal outside the lock
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("ws marshal", "err", err, "conn", c.id)
		return
	}
	c.writeRaw(data)
}

func (c *Conn) writeRaw(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("ws write", "err", err, "conn", c.id)
		c.closeLocked()
	}
}

// readPump reads messages until the socket fails and dispatches each one.
func (c *Conn) readPump() {
	defer func() {
		c.server.remove(c)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			slog.Debug("ws read", "err", err, "conn", c.id)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("ws unmarshal", "err", err, "conn", c.id)
			continue
		}

		c.server.dispatch(c, &msg)
	}
}

// Close shuts down the connection.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.ws.Close(websocket.StatusNormalClosure, "")
}
