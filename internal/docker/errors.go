package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net"
	"syscall"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/client"
)

// Kind is the closed set of failure categories surfaced to the GUI.
type Kind string

const (
	KindDaemonNotAvailable Kind = "DaemonNotAvailable"
	KindConnectionLost     Kind = "ConnectionLost"
	KindNotFound           Kind = "NotFound"
	KindOperationFailed    Kind = "OperationFailed"
	KindInvalidInput       Kind = "InvalidInput"
	KindSerialization      Kind = "Serialization"
	KindIo                 Kind = "Io"
)

// Resource names the kind of daemon entity an operation targets.
type Resource string

const (
	ResourceContainer Resource = "container"
	ResourceImage     Resource = "image"
	ResourceNetwork   Resource = "network"
	ResourceVolume    Resource = "volume"
)

// Error is the typed failure returned by every Manager and Service operation.
type Error struct {
	Kind     Kind
	Resource Resource // set for NotFound, optional otherwise
	ID       string   // identifier the caller asked about, if known
	Message  string
	Err      error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrDaemonNotAvailable = &Error{Kind: KindDaemonNotAvailable}
	ErrConnectionLost     = &Error{Kind: KindConnectionLost}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrOperationFailed    = &Error{Kind: KindOperationFailed}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrSerialization      = &Error{Kind: KindSerialization}
	ErrIo                 = &Error{Kind: KindIo}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindDaemonNotAvailable:
		if e.Message != "" {
			return "Docker daemon not available: " + e.Message
		}
		return "Docker daemon not available"
	case KindConnectionLost:
		if e.Message != "" {
			return "connection to Docker daemon lost: " + e.Message
		}
		return "connection to Docker daemon lost"
	case KindNotFound:
		kind := string(e.Resource)
		if kind == "" {
			kind = "resource"
		}
		return kind + " not found: " + e.ID
	case KindInvalidInput:
		return "invalid input: " + e.Message
	case KindSerialization:
		return "serialization error: " + e.Message
	case KindIo:
		return "I/O error: " + e.Message
	default:
		return "operation failed: " + e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target that
// carries a resource or id must match those too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

// MarshalJSON renders the failure the way the GUI expects it.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     Kind     `json:"kind"`
		Resource Resource `json:"resourceKind,omitempty"`
		ID       string   `json:"id,omitempty"`
		Message  string   `json:"message"`
	}{e.Kind, e.Resource, e.ID, e.Error()})
}

// KindOf returns the kind of err, or "" when err is not a classified failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func notAvailable(msg string, cause error) *Error {
	return &Error{Kind: KindDaemonNotAvailable, Message: msg, Err: cause}
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

// Classify maps a raw daemon or transport failure onto the Kind taxonomy.
// Not-found is decided from the structured status the SDK attaches to the
// error, never from its text. The result is nil for a nil err and an *Error
// otherwise.
func Classify(err error, resource Resource, id string) error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		if de.Kind == KindNotFound && (de.Resource == "" || de.ID == "") {
			cp := *de
			if cp.Resource == "" {
				cp.Resource = resource
			}
			if cp.ID == "" {
				cp.ID = id
			}
			return &cp
		}
		return de
	}

	switch {
	case cerrdefs.IsNotFound(err):
		return &Error{Kind: KindNotFound, Resource: resource, ID: id, Message: err.Error(), Err: err}
	case cerrdefs.IsInvalidArgument(err):
		return &Error{Kind: KindInvalidInput, Resource: resource, ID: id, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindOperationFailed, Resource: resource, ID: id, Message: "request cancelled", Err: err}
	case isConnectionFailure(err):
		return &Error{Kind: KindConnectionLost, Message: err.Error(), Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindSerialization, Resource: resource, ID: id, Message: err.Error(), Err: err}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: KindIo, Resource: resource, ID: id, Message: err.Error(), Err: err}
	}

	return &Error{Kind: KindOperationFailed, Resource: resource, ID: id, Message: err.Error(), Err: err}
}

func isConnectionFailure(err error) bool {
	if client.IsErrConnectionFailed(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
