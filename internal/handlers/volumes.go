package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterVolumeHandlers(app *App) {
	app.handle("listVolumes", loggedIn, app.listVolumes)
	app.handle("volumeDetails", loggedIn, app.volumeDetails)
	app.handle("createVolume", loggedIn, app.createVolume)
	app.handle("removeVolume", loggedIn, app.removeVolume)
	app.handle("pruneVolumes", loggedIn, app.pruneVolumes)
}

func (app *App) listVolumes(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.ListVolumes(ctx)
}

func (app *App) volumeDetails(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	name := a.String(0, "name")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.VolumeDetails(ctx, name)
}

func (app *App) createVolume(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	var req docker.CreateVolumeRequest
	a.Object(0, "request", &req)
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.CreateVolume(ctx, req)
}

func (app *App) removeVolume(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	name := a.String(0, "name")
	force := a.OptBool(1, "force")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.RemoveVolume(ctx, name, force)
}

func (app *App) pruneVolumes(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.PruneVolumes(ctx)
}
