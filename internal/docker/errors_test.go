package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"syscall"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	var syntaxErr error
	{
		var v map[string]any
		syntaxErr = json.Unmarshal([]byte("{"), &v)
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", fmt.Errorf("inspect: %w", cerrdefs.ErrNotFound), KindNotFound},
		{"invalid argument", cerrdefs.ErrInvalidArgument, KindInvalidInput},
		{"conflict", cerrdefs.ErrConflict, KindOperationFailed},
		{"404 in text only", errors.New("Error response from daemon: 404 page"), KindOperationFailed},
		{"connection refused", &net.OpError{Op: "dial", Net: "unix", Err: syscall.ECONNREFUSED}, KindConnectionLost},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindConnectionLost},
		{"deadline", context.DeadlineExceeded, KindConnectionLost},
		{"eof", io.EOF, KindConnectionLost},
		{"cancelled", context.Canceled, KindOperationFailed},
		{"json syntax", syntaxErr, KindSerialization},
		{"path error", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, KindIo},
		{"unexpected eof", io.ErrUnexpectedEOF, KindIo},
		{"other", errors.New("boom"), KindOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.err, ResourceContainer, "abc")
			require.Error(t, got)
			assert.Equal(t, tt.want, KindOf(got))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Classify(nil, ResourceImage, "x"))
}

func TestClassifyNotFoundCarriesResource(t *testing.T) {
	t.Parallel()

	err := Classify(cerrdefs.ErrNotFound, ResourceVolume, "pgdata")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceVolume, ID: "pgdata"})
	assert.NotErrorIs(t, err, &Error{Kind: KindNotFound, Resource: ResourceVolume, ID: "other"})
	assert.Equal(t, "volume not found: pgdata", err.Error())
}

func TestClassifyPassesTypedErrorsThrough(t *testing.T) {
	t.Parallel()

	orig := notAvailable("gone", nil)
	assert.Same(t, orig, Classify(orig, ResourceContainer, "x"))

	bare := &Error{Kind: KindNotFound}
	got := Classify(fmt.Errorf("wrapped: %w", bare), ResourceImage, "nginx")
	var e *Error
	require.ErrorAs(t, got, &e)
	assert.Equal(t, ResourceImage, e.Resource)
	assert.Equal(t, "nginx", e.ID)
	assert.Empty(t, bare.Resource, "original must not be mutated")
}

func TestErrorJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&Error{Kind: KindNotFound, Resource: ResourceContainer, ID: "web"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"NotFound","resourceKind":"container","id":"web","message":"container not found: web"}`, string(data))

	data, err = json.Marshal(invalidInput("name is required"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"InvalidInput","message":"invalid input: name is required"}`, string(data))
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, KindDaemonNotAvailable, KindOf(fmt.Errorf("x: %w", notAvailable("", nil))))
}
