package handlers

import (
	"context"
	"log/slog"

	"github.com/Xczer/docsee-gui/internal/models"
	"github.com/Xczer/docsee-gui/internal/ws"
)

func RegisterSettingsHandlers(app *App) {
	app.handle("getSettings", loggedIn, app.getSettings)
	app.handle("saveSettings", loggedIn, app.saveSettings)
	app.handle("resetSettings", loggedIn, app.resetSettings)
}

func (app *App) getSettings(_ context.Context, _ *ws.Conn, _ *args) (any, error) {
	return app.Settings.App()
}

// saveSettings stores a full or partial settings object. Fields the client
// leaves out take their default values.
func (app *App) saveSettings(_ context.Context, _ *ws.Conn, a *args) (any, error) {
	settings := models.DefaultAppSettings()
	a.Object(0, "settings", &settings)
	if err := a.Err(); err != nil {
		return nil, err
	}

	saved, err := app.Settings.SaveApp(settings)
	if err != nil {
		return nil, err
	}
	app.ApplySettings(saved)
	slog.Info("settings saved", "lastModified", saved.LastModified)
	return saved, nil
}

func (app *App) resetSettings(_ context.Context, _ *ws.Conn, _ *args) (any, error) {
	saved, err := app.Settings.ResetApp()
	if err != nil {
		return nil, err
	}
	app.ApplySettings(saved)
	slog.Info("settings reset")
	return saved, nil
}

// ApplySettings pushes the daemon-related settings into the connection
// manager and service. A saved host takes effect on the next connect.
func (app *App) ApplySettings(s models.AppSettings) {
	app.mu.Lock()
	host, limit := app.ConfigHost, app.LogCapLimit
	app.mu.Unlock()

	if s.Docker.Host != "" {
		host = s.Docker.Host
	}
	app.Docker.Manager().SetPreferredHost(host)

	logCap := limit
	if n := s.Resources.MaxContainerLogs; n > 0 && n < logCap {
		logCap = n
	}
	app.Docker.SetLogCap(logCap)
	slog.Debug("settings applied", "host", host, "logCap", logCap)
}

// Reconfigure replaces the configuration values settings are layered on and
// applies the stored settings again.
func (app *App) Reconfigure(configHost string, logCapLimit int) error {
	app.mu.Lock()
	app.ConfigHost = configHost
	app.LogCapLimit = logCapLimit
	app.mu.Unlock()

	s, err := app.Settings.App()
	if err != nil {
		return err
	}
	app.ApplySettings(s)
	return nil
}
