package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterNetworkHandlers(app *App) {
	app.handle("listNetworks", loggedIn, app.listNetworks)
	app.handle("networkDetails", loggedIn, app.networkDetails)
	app.handle("createNetwork", loggedIn, app.createNetwork)
	app.handle("removeNetwork", loggedIn, app.removeNetwork)
	app.handle("pruneNetworks", loggedIn, app.pruneNetworks)
	app.handle("connectNetwork", loggedIn, app.connectNetwork)
	app.handle("disconnectNetwork", loggedIn, app.disconnectNetwork)
}

func (app *App) listNetworks(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.ListNetworks(ctx)
}

func (app *App) networkDetails(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.NetworkDetails(ctx, id)
}

func (app *App) createNetwork(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	var req docker.CreateNetworkRequest
	a.Object(0, "request", &req)
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.CreateNetwork(ctx, req)
}

func (app *App) removeNetwork(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.RemoveNetwork(ctx, id)
}

func (app *App) pruneNetworks(ctx context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Docker.PruneNetworks(ctx)
}

func (app *App) connectNetwork(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	networkID := a.String(0, "networkId")
	containerID := a.String(1, "containerId")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.ConnectNetwork(ctx, networkID, containerID)
}

func (app *App) disconnectNetwork(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	networkID := a.String(0, "networkId")
	containerID := a.String(1, "containerId")
	force := a.OptBool(2, "force")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.DisconnectNetwork(ctx, networkID, containerID, force)
}
