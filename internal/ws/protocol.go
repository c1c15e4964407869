package ws

import "encoding/json"

// ClientMessage is sent from the GUI to the server. Args is a JSON array of
// positional arguments. If ID is non-nil the client expects an ack with the
// same ID.
type ClientMessage struct {
	ID    *int64          `json:"id,omitempty"`
	Event string          `json:"event"`
	Args  json.RawMessage `json:"args,omitempty"`
}

// AckMessage answers a client request.
type AckMessage[T any] struct {
	ID   int64 `json:"id"`
	Data T     `json:"data"`
}

// ServerMessage is a server-initiated push (no ack expected).
type ServerMessage[T any] struct {
	Event string `json:"event"`
	Data  T      `json:"data"`
}

// Result is the ack payload for every operation: {ok:true, data} on success,
// {ok:false, error} on failure.
type Result struct {
	OK    bool `json:"ok"`
	Data  any  `json:"data,omitempty"`
	Error any  `json:"error,omitempty"`
}

func Ok(data any) Result { return Result{OK: true, Data: data} }

// Fail wraps a typed failure. err should marshal to {kind, message, ...}.
func Fail(err any) Result { return Result{Error: err} }

// Failure is a typed failure payload for errors raised by the boundary
// itself rather than by an operation.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Failure kinds raised by the boundary.
const (
	KindUnauthorized    = "Unauthorized"
	KindOperationFailed = "OperationFailed"
)
