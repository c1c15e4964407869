package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterImageHandlers(app *App) {
	app.handle("listImages", loggedIn, app.listImages)
	app.handle("imageDetails", loggedIn, app.imageDetails)
	app.handle("removeImage", loggedIn, app.removeImage)
	app.handle("pullImage", loggedIn, app.pullImage)
	app.handle("pruneImages", loggedIn, app.pruneImages)
}

func (app *App) listImages(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	all := a.OptBool(0, "all")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ListImages(ctx, all)
}

func (app *App) imageDetails(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ImageDetails(ctx, id)
}

func (app *App) removeImage(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	force := a.OptBool(1, "force")
	noPrune := a.OptBool(2, "noPrune")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.RemoveImage(ctx, id, force, noPrune)
}

// pullImage blocks until the daemon finishes the pull. The tag defaults to
// latest when neither the name nor the tag argument carries one.
func (app *App) pullImage(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	name := a.String(0, "name")
	tag := a.OptString(1, "tag")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.PullImage(ctx, name, tag)
}

func (app *App) pruneImages(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	danglingOnly := a.OptBool(0, "danglingOnly")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.PruneImages(ctx, danglingOnly)
}
