// Package logging installs the process-wide slog handler. Records are
// rendered by charmbracelet/log; the level can be changed while running.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	current *log.Logger
)

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (log.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "fatal" {
		return 0, fmt.Errorf("%w: %q", log.ErrInvalidLevel, s)
	}
	return log.ParseLevel(s)
}

// ParseFormat maps text, json and logfmt onto the charm formatters.
func ParseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("unknown log format %q", s)
}

// New builds a logger writing to w and makes it the slog default.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           lvl,
		Formatter:       f,
	})
	logger := slog.New(handler)

	mu.Lock()
	current = handler
	mu.Unlock()

	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel changes the level of the logger installed by New.
func SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return fmt.Errorf("logging not initialised")
	}
	if current.GetLevel() != lvl {
		current.SetLevel(lvl)
		slog.Info("log level changed", "level", lvl.String())
	}
	return nil
}
