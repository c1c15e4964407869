package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

// App holds shared dependencies for all handlers.
type App struct {
	Docker   *docker.Service
	Users    *models.UserStore
	Settings *models.SettingStore
	WS       *ws.Server

	JWTSecret string
	Version   string
	NoAuth    bool // every connection is treated as logged in

	// FollowWindow bounds follow-mode log requests.
	FollowWindow time.Duration
	// LogCapLimit is the configured log cap; saved settings may only lower it.
	LogCapLimit int
	// ConfigHost is the daemon address from configuration, used when the
	// saved settings do not name one.
	ConfigHost string

	mu sync.Mutex // guards LogCapLimit and ConfigHost after startup
}

// RegisterAll installs every event handler on app.WS.
func RegisterAll(app *App) {
	RegisterAuthHandlers(app)
	RegisterConnectionHandlers(app)
	RegisterSystemHandlers(app)
	RegisterContainerHandlers(app)
	RegisterImageHandlers(app)
	RegisterNetworkHandlers(app)
	RegisterVolumeHandlers(app)
	RegisterSettingsHandlers(app)
}

// Routes returns the HTTP surface: the websocket endpoint and a liveness
// probe.
func (app *App) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", app.WS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

type access int

const (
	public access = iota
	loggedIn
)

// operation is the body of one named event. The returned value becomes the
// ack's data; a nil value with a nil error acks {ok:true}.
type operation func(ctx context.Context, c *ws.Conn, a *args) (any, error)

// handle registers op under event. It checks access, parses args, logs one
// line per call with a request id, and acks a typed result.
func (app *App) handle(event string, acc access, op operation) {
	app.WS.Handle(event, func(ctx context.Context, c *ws.Conn, msg *ws.ClientMessage) {
		reqID := uuid.NewString()
		start := time.Now()

		if acc == loggedIn && !app.authorized(c) {
			slog.Warn("unauthorized", "event", event, "request", reqID, "conn", c.ID())
			reply(c, msg, ws.Fail(ws.Failure{Kind: ws.KindUnauthorized, Message: "not logged in"}))
			return
		}

		data, err := op(ctx, c, parseArgs(msg))
		elapsed := time.Since(start).Round(time.Microsecond)
		if err != nil {
			fail := failureOf(err)
			slog.Warn("operation failed", "event", event, "request", reqID, "duration", elapsed, "kind", failureKind(fail), "err", err)
			reply(c, msg, ws.Fail(fail))
			return
		}

		slog.Debug("operation", "event", event, "request", reqID, "duration", elapsed)
		reply(c, msg, ws.Ok(data))
	})
}

func (app *App) authorized(c *ws.Conn) bool {
	return app.NoAuth || c.UserID() != 0
}

func reply(c *ws.Conn, msg *ws.ClientMessage, res ws.Result) {
	if msg.ID != nil {
		ws.SendAck(c, *msg.ID, res)
	}
}

// failureOf turns any handler error into a typed failure payload.
func failureOf(err error) any {
	switch {
	case errors.Is(err, models.ErrBadCredentials), errors.Is(err, models.ErrInvalidToken):
		return ws.Failure{Kind: ws.KindUnauthorized, Message: rootMessage(err)}
	case errors.Is(err, models.ErrInvalidSettings), errors.Is(err, models.ErrWeakPassword):
		return &docker.Error{Kind: docker.KindInvalidInput, Message: err.Error(), Err: err}
	case errors.Is(err, models.ErrAlreadySetUp):
		return &docker.Error{Kind: docker.KindOperationFailed, Message: err.Error(), Err: err}
	}
	return docker.Classify(err, "", "")
}

// rootMessage hides jwt parser detail behind the sentinel text.
func rootMessage(err error) string {
	for _, sentinel := range []error{models.ErrInvalidToken, models.ErrBadCredentials} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func failureKind(f any) string {
	switch v := f.(type) {
	case ws.Failure:
		return v.Kind
	case *docker.Error:
		return string(v.Kind)
	}
	return ""
}

// args reads positional event arguments. The first problem sticks and is
// reported by Err as an InvalidInput failure; later reads return zero values.
type args struct {
	raw []json.RawMessage
	err error
}

func parseArgs(msg *ws.ClientMessage) *args {
	a := &args{}
	if msg == nil || len(bytes.TrimSpace(msg.Args)) == 0 || string(bytes.TrimSpace(msg.Args)) == "null" {
		return a
	}
	if err := json.Unmarshal(msg.Args, &a.raw); err != nil {
		a.fail("arguments must be a JSON array")
	}
	return a
}

func (a *args) Err() error { return a.err }

func (a *args) fail(format string, v ...any) {
	if a.err == nil {
		a.err = &docker.Error{Kind: docker.KindInvalidInput, Message: fmt.Sprintf(format, v...)}
	}
}

// present reports whether index holds a non-null value.
func (a *args) present(i int) bool {
	return a.err == nil && i < len(a.raw) && string(bytes.TrimSpace(a.raw[i])) != "null"
}

func (a *args) decode(i int, name, want string, dst any) bool {
	if err := json.Unmarshal(a.raw[i], dst); err != nil {
		a.fail("argument %s must be %s", name, want)
		return false
	}
	return true
}

// String reads a required string argument.
func (a *args) String(i int, name string) string {
	if !a.present(i) {
		a.fail("missing argument %s", name)
		return ""
	}
	var s string
	a.decode(i, name, "a string", &s)
	return s
}

func (a *args) OptString(i int, name string) string {
	if !a.present(i) {
		return ""
	}
	var s string
	a.decode(i, name, "a string", &s)
	return s
}

func (a *args) OptBool(i int, name string) bool {
	if !a.present(i) {
		return false
	}
	var b bool
	a.decode(i, name, "a boolean", &b)
	return b
}

// OptInt returns nil when the argument is absent.
func (a *args) OptInt(i int, name string) *int {
	if !a.present(i) {
		return nil
	}
	var n int
	if !a.decode(i, name, "an integer", &n) {
		return nil
	}
	return &n
}

// OptText accepts a string or a number and returns its text form. Used for
// log bounds, which GUIs send either way.
func (a *args) OptText(i int, name string) string {
	if !a.present(i) {
		return ""
	}
	var s string
	if json.Unmarshal(a.raw[i], &s) == nil {
		return s
	}
	var n json.Number
	if a.decode(i, name, "a string or number", &n) {
		return n.String()
	}
	return ""
}

// Object decodes a required object argument into dst, which may carry
// defaults for fields the client leaves out.
func (a *args) Object(i int, name string, dst any) {
	if !a.present(i) {
		a.fail("missing argument %s", name)
		return
	}
	if raw := bytes.TrimSpace(a.raw[i]); len(raw) == 0 || raw[0] != '{' {
		a.fail("argument %s must be an object", name)
		return
	}
	a.decode(i, name, "a valid object", dst)
}
