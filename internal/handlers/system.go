package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterSystemHandlers(app *App) {
	app.handle("systemInfo", loggedIn, app.systemInfo)
	app.handle("dockerVersion", loggedIn, app.dockerVersion)
	app.handle("systemStats", loggedIn, app.systemStats)
}

func (app *App) systemInfo(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.SystemInfo(ctx)
}

func (app *App) dockerVersion(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.Version(ctx)
}

func (app *App) systemStats(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.SystemStats(ctx)
}
