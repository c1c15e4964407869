package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// SettingsVersion is the schema version stamped on stored settings.
const SettingsVersion = "1.0.0"

// ErrInvalidSettings wraps every validation failure from AppSettings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// AppSettings are the GUI preferences persisted between runs.
type AppSettings struct {
	Docker       DockerSettings      `json:"docker"`
	Application  ApplicationSettings `json:"application"`
	Resources    ResourceSettings    `json:"resources"`
	Security     SecuritySettings    `json:"security"`
	Version      string              `json:"version"`
	LastModified int64               `json:"lastModified"` // unix ms
}

type DockerSettings struct {
	Host              string `json:"host"` // empty probes the platform candidates
	ConnectionTimeout int    `json:"connectionTimeout"`
	AutoReconnect     bool   `json:"autoReconnect"`
	RetryAttempts     int    `json:"retryAttempts"`
	RetryDelay        int    `json:"retryDelay"` // ms
}

type ApplicationSettings struct {
	Theme                    string `json:"theme"`
	AutoRefreshInterval      int    `json:"autoRefreshInterval"`
	ContainerRefreshInterval int    `json:"containerRefreshInterval"`
	ImageRefreshInterval     int    `json:"imageRefreshInterval"`
	VolumeRefreshInterval    int    `json:"volumeRefreshInterval"`
	NetworkRefreshInterval   int    `json:"networkRefreshInterval"`
	DefaultContainerView     string `json:"defaultContainerView"`
	Language                 string `json:"language"`
	EnableNotifications      bool   `json:"enableNotifications"`
	CompactView              bool   `json:"compactView"`
}

type ResourceSettings struct {
	AutoRemoveContainers    bool   `json:"autoRemoveContainers"`
	DefaultImagePullPolicy  string `json:"defaultImagePullPolicy"`
	EnableImageAutoCleanup  bool   `json:"enableImageAutoCleanup"`
	ImageCleanupDays        int    `json:"imageCleanupDays"`
	EnableVolumeAutoCleanup bool   `json:"enableVolumeAutoCleanup"`
	VolumeCleanupDays       int    `json:"volumeCleanupDays"`
	MaxContainerLogs        int    `json:"maxContainerLogs"`
	EnableResourceWarnings  bool   `json:"enableResourceWarnings"`
	CPUWarningThreshold     int    `json:"cpuWarningThreshold"`
	MemoryWarningThreshold  int    `json:"memoryWarningThreshold"`
	DiskWarningThreshold    int    `json:"diskWarningThreshold"`
}

type SecuritySettings struct {
	EnableAuditLogging          bool `json:"enableAuditLogging"`
	AuditLogRetentionDays       int  `json:"auditLogRetentionDays"`
	EnableOperationConfirmation bool `json:"enableOperationConfirmation"`
	AllowDangerousOperations    bool `json:"allowDangerousOperations"`
	EnableTelemetry             bool `json:"enableTelemetry"`
	DataRetentionDays           int  `json:"dataRetentionDays"`
	ExportIncludeCredentials    bool `json:"exportIncludeCredentials"`
}

// DefaultAppSettings returns a fresh copy of the built-in defaults.
// LastModified is left zero until the settings are saved.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Docker: DockerSettings{
			ConnectionTimeout: 30,
			AutoReconnect:     true,
			RetryAttempts:     3,
			RetryDelay:        2000,
		},
		Application: ApplicationSettings{
			Theme:                    "auto",
			AutoRefreshInterval:      5000,
			ContainerRefreshInterval: 5000,
			ImageRefreshInterval:     10000,
			VolumeRefreshInterval:    15000,
			NetworkRefreshInterval:   15000,
			DefaultContainerView:     "all",
			Language:                 "en",
			EnableNotifications:      true,
		},
		Resources: ResourceSettings{
			DefaultImagePullPolicy: "missing",
			ImageCleanupDays:       30,
			VolumeCleanupDays:      30,
			MaxContainerLogs:       1000,
			EnableResourceWarnings: true,
			CPUWarningThreshold:    80,
			MemoryWarningThreshold: 80,
			DiskWarningThreshold:   80,
		},
		Security: SecuritySettings{
			AuditLogRetentionDays:       90,
			EnableOperationConfirmation: true,
			EnableTelemetry:             true,
			DataRetentionDays:           365,
		},
		Version: SettingsVersion,
	}
}

var (
	unixHostPattern = regexp.MustCompile(`^unix:///.+$`)
	tcpHostPattern  = regexp.MustCompile(`^tcp://.+:\d+$`)
	httpHostPattern = regexp.MustCompile(`^https?://.+$`)
	pipeHostPattern = regexp.MustCompile(`^npipe:////.+$`)
)

// ValidDockerHost reports whether host is empty (auto-detect) or uses one of
// the daemon address schemes the SDK understands.
func ValidDockerHost(host string) bool {
	if host == "" {
		return true
	}
	for _, p := range []*regexp.Regexp{unixHostPattern, tcpHostPattern, httpHostPattern, pipeHostPattern} {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

// Validate checks enums and numeric ranges. The returned error wraps
// ErrInvalidSettings and lists every offending field.
func (s *AppSettings) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	between := func(v, lo, hi int) bool { return v >= lo && v <= hi }

	d := s.Docker
	check(ValidDockerHost(d.Host), "docker.host %q must use unix://, tcp://, http://, https:// or npipe://", d.Host)
	check(between(d.ConnectionTimeout, 1, 300), "docker.connectionTimeout must be between 1 and 300 seconds")
	check(between(d.RetryAttempts, 0, 10), "docker.retryAttempts must be between 0 and 10")
	check(between(d.RetryDelay, 0, 60000), "docker.retryDelay must be between 0 and 60000 ms")

	a := s.Application
	check(oneOf(a.Theme, "light", "dark", "auto"), "application.theme must be light, dark or auto")
	for name, v := range map[string]int{
		"autoRefreshInterval":      a.AutoRefreshInterval,
		"containerRefreshInterval": a.ContainerRefreshInterval,
		"imageRefreshInterval":     a.ImageRefreshInterval,
		"volumeRefreshInterval":    a.VolumeRefreshInterval,
		"networkRefreshInterval":   a.NetworkRefreshInterval,
	} {
		check(between(v, 1000, 300000), "application.%s must be between 1000 and 300000 ms", name)
	}
	check(oneOf(a.DefaultContainerView, "all", "running"), "application.defaultContainerView must be all or running")
	check(strings.TrimSpace(a.Language) != "", "application.language must not be empty")

	r := s.Resources
	check(oneOf(r.DefaultImagePullPolicy, "always", "missing", "never"), "resources.defaultImagePullPolicy must be always, missing or never")
	check(r.ImageCleanupDays >= 1, "resources.imageCleanupDays must be positive")
	check(r.VolumeCleanupDays >= 1, "resources.volumeCleanupDays must be positive")
	check(between(r.MaxContainerLogs, 1, 1000), "resources.maxContainerLogs must be between 1 and 1000")
	check(between(r.CPUWarningThreshold, 1, 100), "resources.cpuWarningThreshold must be between 1 and 100")
	check(between(r.MemoryWarningThreshold, 1, 100), "resources.memoryWarningThreshold must be between 1 and 100")
	check(between(r.DiskWarningThreshold, 1, 100), "resources.diskWarningThreshold must be between 1 and 100")

	sec := s.Security
	check(sec.AuditLogRetentionDays >= 1, "security.auditLogRetentionDays must be positive")
	check(sec.DataRetentionDays >= 1, "security.dataRetentionDays must be positive")

	if len(problems) == 0 {
		return nil
	}
	// map iteration above is unordered
	slices.Sort(problems)
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
