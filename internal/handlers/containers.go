package handlers

import (
	"context"

	"github.com/Xczer/docsee-gui/internal/docker"
	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterContainerHandlers(app *App) {
	app.handle("listContainers", loggedIn, app.listContainers)
	app.handle("containerDetails", loggedIn, app.containerDetails)
	app.handle("createContainer", loggedIn, app.createContainer)
	app.handle("startContainer", loggedIn, app.containerByID(app.Docker.StartContainer))
	app.handle("pauseContainer", loggedIn, app.containerByID(app.Docker.PauseContainer))
	app.handle("unpauseContainer", loggedIn, app.containerByID(app.Docker.UnpauseContainer))
	app.handle("stopContainer", loggedIn, app.containerWithTimeout(app.Docker.StopContainer))
	app.handle("restartContainer", loggedIn, app.containerWithTimeout(app.Docker.RestartContainer))
	app.handle("killContainer", loggedIn, app.killContainer)
	app.handle("renameContainer", loggedIn, app.renameContainer)
	app.handle("removeContainer", loggedIn, app.removeContainer)
	app.handle("containerStats", loggedIn, app.containerStats)
	app.handle("containerProcesses", loggedIn, app.containerProcesses)
	app.handle("containerLogs", loggedIn, app.containerLogs)
}

func (app *App) listContainers(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	all := a.OptBool(0, "all")
	size := a.OptBool(1, "size")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ListContainers(ctx, all, size)
}

func (app *App) containerDetails(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ContainerDetails(ctx, id)
}

func (app *App) createContainer(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	var req docker.CreateContainerRequest
	a.Object(0, "request", &req)
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.CreateContainer(ctx, req)
}

// containerByID adapts a lifecycle call that takes only the container id.
func (app *App) containerByID(call func(context.Context, string) error) operation {
	return func(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
		id := a.String(0, "id")
		if err := a.Err(); err != nil {
			return nil, err
		}
		return nil, call(ctx, id)
	}
}

func (app *App) containerWithTimeout(call func(context.Context, string, *int) error) operation {
	return func(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
		id := a.String(0, "id")
		timeout := a.OptInt(1, "timeout")
		if err := a.Err(); err != nil {
			return nil, err
		}
		return nil, call(ctx, id, timeout)
	}
}

func (app *App) killContainer(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	signal := a.OptString(1, "signal")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.KillContainer(ctx, id, signal)
}

func (app *App) renameContainer(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	name := a.String(1, "newName")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.RenameContainer(ctx, id, name)
}

func (app *App) removeContainer(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	force := a.OptBool(1, "force")
	removeVolumes := a.OptBool(2, "removeVolumes")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return nil, app.Docker.RemoveContainer(ctx, id, force, removeVolumes)
}

func (app *App) containerStats(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ContainerStats(ctx, id)
}

func (app *App) containerProcesses(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	if err := a.Err(); err != nil {
		return nil, err
	}
	return app.Docker.ContainerProcesses(ctx, id)
}

// containerLogs returns a snapshot of recent output. In follow mode it keeps
// collecting for the follow window, or until the connection goes away.
func (app *App) containerLogs(ctx context.Context, _ *ws.Conn, a *args) (any, error) {
	id := a.String(0, "id")
	opts := docker.LogOptions{
		Follow: a.OptBool(1, "follow"),
		Tail:   a.OptText(2, "tail"),
		Since:  a.OptText(3, "since"),
		Until:  a.OptText(4, "until"),
	}
	if err := a.Err(); err != nil {
		return nil, err
	}

	if opts.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.FollowWindow)
		defer cancel()
	}
	return app.Docker.ContainerLogs(ctx, id, opts)
}
