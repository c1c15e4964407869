package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

// TokenResponse is the data of a successful login.
type TokenResponse struct {
	Token string `json:"token"`
}

// ServerInfo is pushed as the "info" event on every new connection.
type ServerInfo struct {
	Version   string `json:"version"`
	NeedSetup bool   `json:"needSetup"`
	NoAuth    bool   `json:"noAuth"`
}

func RegisterAuthHandlers(app *App) {
	app.handle("needSetup", public, app.needSetupOp)
	app.handle("setup", public, app.setup)
	app.handle("login", public, app.login)
	app.handle("loginByToken", public, app.loginByToken)
	app.handle("logout", public, app.logout)
	app.handle("changePassword", loggedIn, app.changePassword)

	app.WS.HandleConnect(func(c *ws.Conn) {
		needSetup, err := app.needSetup()
		if err != nil {
			slog.Error("user count", "err", err)
		}
		ws.SendEvent(c, "info", ServerInfo{
			Version:   app.Version,
			NeedSetup: needSetup,
			NoAuth:    app.NoAuth,
		})
		if needSetup && !app.NoAuth {
			ws.SendEvent(c, "setup", struct{}{})
		}
	})
}

func (app *App) needSetup() (bool, error) {
	n, err := app.Users.Count()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (app *App) needSetupOp(_ context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.needSetup()
}

func (app *App) setup(_ context.Context, _ *ws.Conn, a *args) (any, error) {
	username, password := credentials(a)
	if err := a.Err(); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, &docker.Error{Kind: docker.KindInvalidInput, Message: "username must not be empty"}
	}

	u, err := app.Users.CreateOwner(username, password)
	if err != nil {
		return nil, err
	}
	slog.Info("initial user created", "username", u.Username)
	return nil, nil
}

func (app *App) login(_ context.Context, c *ws.Conn, a *args) (any, error) {
	username, password := credentials(a)
	if err := a.Err(); err != nil {
		return nil, err
	}

	u, err := app.Users.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	token, err := models.CreateJWT(u, app.JWTSecret)
	if err != nil {
		return nil, err
	}

	c.SetUser(u.ID)
	slog.Info("user logged in", "username", u.Username, "conn", c.ID())
	return TokenResponse{Token: token}, nil
}

func (app *App) loginByToken(_ context.Context, c *ws.Conn, a *args) (any, error) {
	token := a.String(0, "token")
	if err := a.Err(); err != nil {
		return nil, err
	}

	u, err := app.Users.UserForToken(token, app.JWTSecret)
	if err != nil {
		return nil, err
	}

	c.SetUser(u.ID)
	slog.Debug("token login", "username", u.Username, "conn", c.ID())
	return nil, nil
}

func (app *App) logout(_ context.Context, c *ws.Conn, _ *args) (any, error) {
	c.SetUser(0)
	return nil, nil
}

// changePassword stores a new password and closes every other connection.
// Older tokens stop working, so the caller receives a fresh one.
func (app *App) changePassword(_ context.Context, c *ws.Conn, a *args) (any, error) {
	current := a.String(0, "currentPassword")
	next := a.String(1, "newPassword")
	if err := a.Err(); err != nil {
		return nil, err
	}

	userID := c.UserID()
	if userID == 0 {
		// no-auth connections have no account to change
		return nil, &docker.Error{Kind: docker.KindOperationFailed, Message: "no user is logged in on this connection"}
	}
	if err := app.Users.ChangePassword(userID, current, next); err != nil {
		return nil, err
	}

	u, err := app.Users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	token, err := models.CreateJWT(u, app.JWTSecret)
	if err != nil {
		return nil, err
	}

	app.WS.DisconnectOthers(c)
	slog.Info("password changed", "username", u.Username)
	return TokenResponse{Token: token}, nil
}

// credentials reads a login pair, given either positionally or as one
// {username, password} object.
func credentials(a *args) (string, string) {
	if a.present(0) && len(a.raw[0]) > 0 && a.raw[0][0] == '{' {
		var obj struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(a.raw[0], &obj); err != nil {
			a.fail("argument credentials must be a valid object")
		}
		return obj.Username, obj.Password
	}
	return a.String(0, "username"), a.String(1, "password")
}
