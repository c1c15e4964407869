package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Xczer/docsee-gui/internal/logging"
)

// EnvPrefix is prepended to the upper-cased, underscored key name to form the
// environment variable for each setting (data-dir → DOCSEE_DATA_DIR).
const EnvPrefix = "DOCSEE_"

// DefaultFileName is looked up inside the data directory when --config is
// not given.
const DefaultFileName = "docsee.yaml"

type Config struct {
	Port         int           `yaml:"port"`
	DataDir      string        `yaml:"data-dir"`
	LogLevel     string        `yaml:"log-level"`
	LogFormat    string        `yaml:"log-format"`
	NoAuth       bool          `yaml:"no-auth"`
	DockerHost   string        `yaml:"docker-host"`
	ProbeTimeout time.Duration `yaml:"probe-timeout"`
	LogCap       int           `yaml:"log-cap"`
	FollowWindow time.Duration `yaml:"follow-window"`
	AutoConnect  bool          `yaml:"auto-connect"`

	// File is the YAML file the values were read from, "" if none.
	File string `yaml:"-"`
}

func Defaults() Config {
	return Config{
		Port:         5002,
		DataDir:      "./data",
		LogLevel:     "info",
		LogFormat:    "text",
		ProbeTimeout: 5 * time.Second,
		LogCap:       1000,
		FollowWindow: 30 * time.Second,
		AutoConnect:  true,
	}
}

// Flag names double as YAML keys.
const (
	flagConfig       = "config"
	flagEnvFile      = "env-file"
	flagPort         = "port"
	flagDataDir      = "data-dir"
	flagLogLevel     = "log-level"
	flagLogFormat    = "log-format"
	flagNoAuth       = "no-auth"
	flagDockerHost   = "docker-host"
	flagProbeTimeout = "probe-timeout"
	flagLogCap       = "log-cap"
	flagFollowWindow = "follow-window"
	flagAutoConnect  = "auto-connect"
)

// RegisterFlags adds every setting to fs with its built-in default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String(flagConfig, "", "YAML config file (default <data-dir>/"+DefaultFileName+" if present)")
	fs.String(flagEnvFile, ".env", "dotenv file with "+EnvPrefix+"* variables (ignored if missing)")
	fs.Int(flagPort, d.Port, "HTTP server port")
	fs.String(flagDataDir, d.DataDir, "data directory (database, config)")
	fs.String(flagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(flagLogFormat, d.LogFormat, "log format (text, json, logfmt)")
	fs.Bool(flagNoAuth, d.NoAuth, "disable authentication (every connection is logged in)")
	fs.String(flagDockerHost, d.DockerHost, "daemon address tried before the platform defaults")
	fs.Duration(flagProbeTimeout, d.ProbeTimeout, "handshake timeout per transport candidate")
	fs.Int(flagLogCap, d.LogCap, "maximum log entries returned per request (1-1000)")
	fs.Duration(flagFollowWindow, d.FollowWindow, "how long a follow-mode log request collects output")
	fs.Bool(flagAutoConnect, d.AutoConnect, "connect to the daemon at startup")
}

// LookupFunc reads an environment variable; os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load resolves the configuration. Later layers win: built-in defaults,
// YAML file, dotenv file, process environment, then flags set explicitly
// on fs. fs must have been prepared with RegisterFlags.
func Load(fs *pflag.FlagSet, lookup LookupFunc) (*Config, error) {
	cfg := Defaults()

	envFile, _ := fs.GetString(flagEnvFile)
	dotenv, err := readDotenv(envFile)
	if err != nil {
		return nil, err
	}
	env := func(key string) (string, bool) {
		name := EnvPrefix + envName(key)
		if v, ok := lookup(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}

	path, explicit := configPath(fs, env)
	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		} else {
			cfg.File = path
		}
	}

	if err := applyEnv(&cfg, env); err != nil {
		return nil, err
	}
	if err := applyFlags(&cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// configPath picks the YAML file: --config, DOCSEE_CONFIG, then the default
// name inside the data directory (which is not an error when missing).
func configPath(fs *pflag.FlagSet, env LookupFunc) (string, bool) {
	if fs.Changed(flagConfig) {
		p, _ := fs.GetString(flagConfig)
		return p, true
	}
	if p, ok := env(flagConfig); ok && p != "" {
		return p, true
	}

	dataDir := Defaults().DataDir
	if v, ok := env(flagDataDir); ok && v != "" {
		dataDir = v
	}
	if fs.Changed(flagDataDir) {
		dataDir, _ = fs.GetString(flagDataDir)
	}
	return filepath.Join(dataDir, DefaultFileName), false
}

func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return vals, nil
}

func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env LookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := env(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, envName(key), err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := env(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, envName(key), err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := env(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, envName(key), err))
				return
			}
			*dst = d
		}
	}

	num(flagPort, &cfg.Port)
	str(flagDataDir, &cfg.DataDir)
	str(flagLogLevel, &cfg.LogLevel)
	str(flagLogFormat, &cfg.LogFormat)
	boolean(flagNoAuth, &cfg.NoAuth)
	str(flagDockerHost, &cfg.DockerHost)
	duration(flagProbeTimeout, &cfg.ProbeTimeout)
	num(flagLogCap, &cfg.LogCap)
	duration(flagFollowWindow, &cfg.FollowWindow)
	boolean(flagAutoConnect, &cfg.AutoConnect)
	return errors.Join(errs...)
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case flagPort:
			cfg.Port, err = fs.GetInt(f.Name)
		case flagDataDir:
			cfg.DataDir, err = fs.GetString(f.Name)
		case flagLogLevel:
			cfg.LogLevel, err = fs.GetString(f.Name)
		case flagLogFormat:
			cfg.LogFormat, err = fs.GetString(f.Name)
		case flagNoAuth:
			cfg.NoAuth, err = fs.GetBool(f.Name)
		case flagDockerHost:
			cfg.DockerHost, err = fs.GetString(f.Name)
		case flagProbeTimeout:
			cfg.ProbeTimeout, err = fs.GetDuration(f.Name)
		case flagLogCap:
			cfg.LogCap, err = fs.GetInt(f.Name)
		case flagFollowWindow:
			cfg.FollowWindow, err = fs.GetDuration(f.Name)
		case flagAutoConnect:
			cfg.AutoConnect, err = fs.GetBool(f.Name)
		}
	})
	return err
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data-dir must not be empty"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("log-format: %w", err))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe-timeout must be positive"))
	}
	if c.LogCap < 1 || c.LogCap > 1000 {
		errs = append(errs, fmt.Errorf("log-cap %d must be between 1 and 1000", c.LogCap))
	}
	if c.FollowWindow <= 0 {
		errs = append(errs, errors.New("follow-window must be positive"))
	}
	return errors.Join(errs...)
}
