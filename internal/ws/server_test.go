package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.CloseAll()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, id int64, event string, args string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg := `{"id":` + jsonInt(id) + `,"event":"` + event + `","args":` + args + `}`
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(msg)))
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type rawAck struct {
	ID   int64 `json:"id"`
	Data struct {
		OK    bool            `json:"ok"`
		Data  json.RawMessage `json:"data"`
		Error *Failure        `json:"error"`
	} `json:"data"`
}

func readAck(t *testing.T, conn *websocket.Conn) rawAck {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var probe map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &probe))
		if _, ok := probe["id"]; !ok {
			continue // push message
		}
		var ack rawAck
		require.NoError(t, json.Unmarshal(data, &ack))
		return ack
	}
}

func TestDispatchAck(t *testing.T) {
	t.Parallel()
	s := NewServer()
	s.Handle("echo", func(_ context.Context, c *Conn, msg *ClientMessage) {
		var args []string
		_ = json.Unmarshal(msg.Args, &args)
		SendAck(c, *msg.ID, Ok(strings.Join(args, ",")))
	})
	conn := dial(t, startServer(t, s))

	send(t, conn, 7, "echo", `["a","b"]`)
	ack := readAck(t, conn)
	assert.EqualValues(t, 7, ack.ID)
	assert.True(t, ack.Data.OK)
	assert.JSONEq(t, `"a,b"`, string(ack.Data.Data))
	assert.Nil(t, ack.Data.Error)
}

func TestDispatchUnknownEvent(t *testing.T) {
	t.Parallel()
	conn := dial(t, startServer(t, NewServer()))

	send(t, conn, 1, "frobnicate", `[]`)
	ack := readAck(t, conn)
	assert.False(t, ack.Data.OK)
	require.NotNil(t, ack.Data.Error)
	assert.Equal(t, Failure{Kind: KindOperationFailed, Message: "unknown event: frobnicate"}, *ack.Data.Error)
}

func TestDispatchRecoversPanics(t *testing.T) {
	t.Parallel()
	s := NewServer()
	s.Handle("boom", func(context.Context, *Conn, *ClientMessage) { panic("kaboom") })
	s.Handle("ping", func(_ context.Context, c *Conn, msg *ClientMessage) { SendAck(c, *msg.ID, Ok(true)) })
	conn := dial(t, startServer(t, s))

	send(t, conn, 1, "boom", `[]`)
	ack := readAck(t, conn)
	require.NotNil(t, ack.Data.Error)
	assert.Equal(t, KindOperationFailed, ack.Data.Error.Kind)

	// the connection survives
	send(t, conn, 2, "ping", `[]`)
	ack = readAck(t, conn)
	assert.EqualValues(t, 2, ack.ID)
	assert.True(t, ack.Data.OK)
}

func TestDispatchIsConcurrent(t *testing.T) {
	t.Parallel()
	s := NewServer()
	release := make(chan struct{})
	s.Handle("slow", func(ctx context.Context, c *Conn, msg *ClientMessage) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		SendAck(c, *msg.ID, Ok("slow"))
	})
	s.Handle("fast", func(_ context.Context, c *Conn, msg *ClientMessage) {
		SendAck(c, *msg.ID, Ok("fast"))
		close(release)
	})
	conn := dial(t, startServer(t, s))

	send(t, conn, 1, "slow", `[]`)
	send(t, conn, 2, "fast", `[]`)
	assert.EqualValues(t, 2, readAck(t, conn).ID, "fast answers while slow is blocked")
	assert.EqualValues(t, 1, readAck(t, conn).ID)
}

func TestConnectAndDisconnectHooks(t *testing.T) {
	t.Parallel()
	s := NewServer()

	connected := make(chan *Conn, 1)
	var disconnected atomic.Int32
	s.HandleConnect(func(c *Conn) {
		c.SetUser(1)
		SendEvent(c, "info", map[string]string{"version": "test"})
		connected <- c
	})
	s.OnDisconnect(func(*Conn) { disconnected.Add(1) })
	s.Handle("whoami", func(_ context.Context, c *Conn, msg *ClientMessage) { SendAck(c, *msg.ID, Ok(c.UserID())) })

	conn := dial(t, startServer(t, s))
	server := <-connected
	assert.NotEmpty(t, server.ID())

	send(t, conn, 1, "whoami", `[]`)
	ack := readAck(t, conn)
	assert.JSONEq(t, `1`, string(ack.Data.Data))
	assert.Equal(t, 1, s.ConnectionCount())

	conn.Close(websocket.StatusNormalClosure, "")
	select {
	case <-server.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection context not cancelled after close")
	}
	assert.Eventually(t, func() bool { return disconnected.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return s.ConnectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDisconnectOthers(t *testing.T) {
	t.Parallel()
	s := NewServer()
	conns := make(chan *Conn, 2)
	s.HandleConnect(func(c *Conn) { conns <- c })
	url := startServer(t, s)

	dial(t, url)
	dial(t, url)
	keep := <-conns
	other := <-conns

	s.DisconnectOthers(keep)
	select {
	case <-other.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("other connection still open")
	}
	assert.NoError(t, keep.Context().Err())
}
