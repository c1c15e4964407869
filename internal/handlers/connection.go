package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterConnectionHandlers(app *App) {
	app.handle("connect", loggedIn, app.connect)
	app.handle("disconnect", loggedIn, app.disconnect)
	app.handle("reconnect", loggedIn, app.reconnect)
	app.handle("isConnected", loggedIn, app.isConnected)
	app.handle("testConnection", loggedIn, app.testConnection)
	app.handle("connectionStatus", loggedIn, app.connectionStatus)
}

func (app *App) connect(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	if err := app.Docker.Manager().Connect(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (app *App) disconnect(_ context.Context, _ *ws.Conn, _ *args) (any, error) {
	app.Docker.Manager().Disconnect()
	return nil, nil
}

func (app *App) reconnect(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	if err := app.Docker.Manager().Reconnect(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (app *App) isConnected(_ context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.Manager().IsConnected(), nil
}

func (app *App) testConnection(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.Manager().Test(ctx)
}

func (app *App) connectionStatus(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.Manager().Status(ctx), nil
}
