package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Xczer/docsee-gui/internal/db"
	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/handlers"
	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

const (
	AdminUser     = "admin"
	AdminPassword = "testpass123"
)

var msgIDCounter atomic.Int64

// TestEnv holds a fully wired application backed by a temp bbolt file and a
// FakeDaemon.
type TestEnv struct {
	App     *handlers.App
	Server  *httptest.Server
	Daemon  *docker.FakeDaemon
	Manager *docker.Manager
	DataDir string
}

// Options tweak Setup.
type Options struct {
	World        *docker.World // nil uses docker.DefaultWorld
	NoAuth       bool
	Disconnected bool // skip the initial daemon connect
	FollowWindow time.Duration
}

// Setup starts a FakeDaemon over the default world and an httptest server
// with every handler registered. The manager is connected.
func Setup(t testing.TB) *TestEnv {
	return SetupWith(t, Options{})
}

func SetupWith(t testing.TB, opts Options) *TestEnv {
	t.Helper()

	world := opts.World
	if world == nil {
		world = docker.DefaultWorld()
	}
	fd, err := docker.StartFakeDaemon(world)
	require.NoError(t, err, "start fake daemon")
	t.Cleanup(fd.Close)

	dataDir := t.TempDir()
	database, err := db.Open(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	users := models.NewUserStore(database)
	settings := models.NewSettingStore(database)
	jwtSecret, err := settings.EnsureJWTSecret()
	require.NoError(t, err)

	mgr := docker.NewManagerWithCandidates(2*time.Second, docker.Candidate{Name: docker.CandidateConfigured, Host: fd.Host()})
	t.Cleanup(mgr.Close)
	if !opts.Disconnected {
		require.NoError(t, mgr.Connect(context.Background()))
	}

	follow := opts.FollowWindow
	if follow == 0 {
		follow = 500 * time.Millisecond
	}

	app := &handlers.App{
		Docker:       docker.NewService(mgr),
		Users:        users,
		Settings:     settings,
		WS:           ws.NewServer(),
		JWTSecret:    jwtSecret,
		Version:      "test",
		NoAuth:       opts.NoAuth,
		FollowWindow: follow,
		LogCapLimit:  docker.MaxLogEntries,
	}
	handlers.RegisterAll(app)

	server := httptest.NewServer(app.Routes())
	t.Cleanup(func() {
		app.WS.CloseAll()
		server.Close()
	})

	return &TestEnv{
		App:     app,
		Server:  server,
		Daemon:  fd,
		Manager: mgr,
		DataDir: dataDir,
	}
}

// SeedAdmin creates the local user for tests that need authentication.
func (e *TestEnv) SeedAdmin(t testing.TB) {
	t.Helper()
	_, err := e.App.Users.CreateOwner(AdminUser, AdminPassword)
	require.NoError(t, err, "seed admin")
}

// DialWS opens a websocket to the test server. Pushes sent on connect are
// not drained here; SendAndReceive skips anything that is not its ack.
func (e *TestEnv) DialWS(t testing.TB) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.Server.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err, "dial ws")
	conn.SetReadLimit(4 << 20)

	t.Cleanup(func() {
		conn.Close(websocket.StatusNormalClosure, "")
	})
	return conn
}

// Login authenticates conn as the seeded admin and returns the token.
func (e *TestEnv) Login(t testing.TB, conn *websocket.Conn) string {
	t.Helper()
	ack := e.SendAndReceive(t, conn, "login", AdminUser, AdminPassword)
	require.True(t, ack.OK, "login failed: %+v", ack.Error)

	var resp handlers.TokenResponse
	ack.Decode(t, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// Failure mirrors the error object of a failed ack.
type Failure struct {
	Kind         string `json:"kind"`
	ResourceKind string `json:"resourceKind"`
	ID           string `json:"id"`
	Message      string `json:"message"`
}

// Ack is a decoded operation result.
type Ack struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *Failure        `json:"error"`
}

// Decode unmarshals the ack's data into dst.
func (a Ack) Decode(t testing.TB, dst any) {
	t.Helper()
	require.NotEmpty(t, a.Data, "ack has no data")
	require.NoError(t, json.Unmarshal(a.Data, dst))
}

// SendAndReceive sends an event with an ack id and waits for that ack.
func (e *TestEnv) SendAndReceive(t testing.TB, conn *websocket.Conn, event string, args ...any) Ack {
	t.Helper()
	return e.SendAndReceiveTimeout(t, conn, 10*time.Second, event, args...)
}

func (e *TestEnv) SendAndReceiveTimeout(t testing.TB, conn *websocket.Conn, timeout time.Duration, event string, args ...any) Ack {
	t.Helper()

	id := msgIDCounter.Add(1)
	if args == nil {
		args = []any{}
	}
	argsJSON, err := json.Marshal(args)
	require.NoError(t, err, "marshal args")

	data, err := json.Marshal(ws.ClientMessage{ID: &id, Event: event, Args: argsJSON})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data), "write")

	for {
		_, respData, err := conn.Read(ctx)
		require.NoError(t, err, "read ack for %s", event)

		var envelope struct {
			ID   *int64          `json:"id"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(respData, &envelope))
		if envelope.ID == nil || *envelope.ID != id {
			continue // a push or someone else's ack
		}

		var ack Ack
		require.NoError(t, json.Unmarshal(envelope.Data, &ack))
		return ack
	}
}

// ReadEvent waits for the next push with the given event name and returns
// its payload.
func ReadEvent(t testing.TB, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		_, raw, err := conn.Read(ctx)
		require.NoError(t, err, "read event %s", event)

		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		if msg.Event == event {
			return msg.Data
		}
	}
}
