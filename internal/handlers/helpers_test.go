package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

func msgWith(args string) *ws.ClientMessage {
	return &ws.ClientMessage{Event: "test", Args: json.RawMessage(args)}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	t.Run("nil message", func(t *testing.T) {
		t.Parallel()
		a := parseArgs(nil)
		require.NoError(t, a.Err())
		assert.Empty(t, a.raw)
	})

	t.Run("null args", func(t *testing.T) {
		t.Parallel()
		a := parseArgs(msgWith("null"))
		require.NoError(t, a.Err())
		assert.Empty(t, a.OptString(0, "x"))
	})

	t.Run("valid array", func(t *testing.T) {
		t.Parallel()
		a := parseArgs(msgWith(`["hello", 42, true]`))
		require.NoError(t, a.Err())
		assert.Len(t, a.raw, 3)
	})

	t.Run("not an array", func(t *testing.T) {
		t.Parallel()
		a := parseArgs(msgWith(`{"id": "x"}`))
		require.ErrorIs(t, a.Err(), docker.ErrInvalidInput)
		assert.Contains(t, a.Err().Error(), "JSON array")
	})
}

func TestArgsReaders(t *testing.T) {
	t.Parallel()
	a := parseArgs(msgWith(`["web", true, 7, null, "100", 1700000000]`))

	assert.Equal(t, "web", a.String(0, "id"))
	assert.True(t, a.OptBool(1, "force"))
	require.NotNil(t, a.OptInt(2, "timeout"))
	assert.Equal(t, 7, *a.OptInt(2, "timeout"))
	assert.Nil(t, a.OptInt(3, "absent"), "null counts as absent")
	assert.Nil(t, a.OptInt(9, "out of range"))
	assert.False(t, a.OptBool(9, "out of range"))
	assert.Equal(t, "100", a.OptText(4, "tail"))
	assert.Equal(t, "1700000000", a.OptText(5, "since"))
	assert.Empty(t, a.OptText(3, "until"))
	require.NoError(t, a.Err())
}

func TestArgsErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args string
		read func(a *args)
		msg  string
	}{
		"missing required": {
			args: `[]`,
			read: func(a *args) { a.String(0, "id") },
			msg:  "missing argument id",
		},
		"null required": {
			args: `[null]`,
			read: func(a *args) { a.String(0, "id") },
			msg:  "missing argument id",
		},
		"wrong type": {
			args: `[42]`,
			read: func(a *args) { a.String(0, "id") },
			msg:  "argument id must be a string",
		},
		"bool as string": {
			args: `["web", "yes"]`,
			read: func(a *args) { a.String(0, "id"); a.OptBool(1, "force") },
			msg:  "argument force must be a boolean",
		},
		"fractional timeout": {
			args: `["web", 1.5]`,
			read: func(a *args) { a.String(0, "id"); a.OptInt(1, "timeout") },
			msg:  "argument timeout must be an integer",
		},
		"object expected": {
			args: `["nginx"]`,
			read: func(a *args) { a.Object(0, "request", &docker.CreateContainerRequest{}) },
			msg:  "argument request must be an object",
		},
		"first error sticks": {
			args: `[1, 2]`,
			read: func(a *args) { a.String(0, "first"); a.String(1, "second") },
			msg:  "argument first must be a string",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := parseArgs(msgWith(tt.args))
			tt.read(a)
			require.ErrorIs(t, a.Err(), docker.ErrInvalidInput)
			assert.Equal(t, "invalid input: "+tt.msg, a.Err().Error())
		})
	}
}

func TestArgsObjectKeepsDefaults(t *testing.T) {
	t.Parallel()
	settings := models.DefaultAppSettings()
	a := parseArgs(msgWith(`[{"application": {"theme": "dark"}}]`))
	a.Object(0, "settings", &settings)
	require.NoError(t, a.Err())
	assert.Equal(t, "dark", settings.Application.Theme)
	assert.Equal(t, 5000, settings.Application.AutoRefreshInterval)
	assert.Equal(t, 1000, settings.Resources.MaxContainerLogs)
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	u, p := credentials(parseArgs(msgWith(`["admin", "secret1"]`)))
	assert.Equal(t, "admin", u)
	assert.Equal(t, "secret1", p)

	u, p = credentials(parseArgs(msgWith(`[{"username": "admin", "password": "secret2"}]`)))
	assert.Equal(t, "admin", u)
	assert.Equal(t, "secret2", p)

	a := parseArgs(msgWith(`["admin"]`))
	credentials(a)
	assert.ErrorContains(t, a.Err(), "missing argument password")
}

func TestFailureOf(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		kind string
	}{
		"bad credentials":  {err: models.ErrBadCredentials, kind: ws.KindUnauthorized},
		"invalid token":    {err: fmt.Errorf("%w: %w", models.ErrInvalidToken, errors.New("token is expired")), kind: ws.KindUnauthorized},
		"invalid settings": {err: fmt.Errorf("%w: theme", models.ErrInvalidSettings), kind: string(docker.KindInvalidInput)},
		"weak password":    {err: models.ErrWeakPassword, kind: string(docker.KindInvalidInput)},
		"already set up":   {err: fmt.Errorf("create user: %w", models.ErrAlreadySetUp), kind: string(docker.KindOperationFailed)},
		"docker error":     {err: &docker.Error{Kind: docker.KindNotFound, Resource: docker.ResourceImage, ID: "x"}, kind: string(docker.KindNotFound)},
		"plain error":      {err: errors.New("boom"), kind: string(docker.KindOperationFailed)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, failureKind(failureOf(tt.err)))
		})
	}
}

func TestFailureOfHidesTokenDetail(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("%w: %w", models.ErrInvalidToken, errors.New("signature is invalid"))
	f, ok := failureOf(err).(ws.Failure)
	require.True(t, ok)
	assert.Equal(t, models.ErrInvalidToken.Error(), f.Message)
}
