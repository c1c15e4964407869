package docker

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"
)

const (
	fakeAPIVersion    = "1.47"
	fakeEngineVersion = "28.5.2"
)

// FakeDaemon is an HTTP server on a Unix socket that implements the subset of
// the Docker Engine API used by Service, backed by a World. The real SDK
// client talks to it exactly as it would to a real daemon.
type FakeDaemon struct {
	world    *World
	dir      string
	sockPath string
	listener net.Listener
	server   *http.Server
	once     sync.Once
}

// StartFakeDaemon serves world on a fresh socket in a temp directory.
func StartFakeDaemon(world *World) (*FakeDaemon, error) {
	dir, err := os.MkdirTemp("", "docsee-mock-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	sockPath := filepath.Join(dir, "docker.sock")
	return serveFakeDaemon(world, dir, sockPath)
}

// StartFakeDaemonAt serves world on sockPath, replacing a stale socket file.
func StartFakeDaemonAt(world *World, sockPath string) (*FakeDaemon, error) {
	if err := os.Remove(sockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	return serveFakeDaemon(world, "", sockPath)
}

func serveFakeDaemon(world *World, dir, sockPath string) (*FakeDaemon, error) {
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		if dir != "" {
			os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("listen unix: %w", err)
	}

	fd := &FakeDaemon{
		world:    world,
		dir:      dir,
		sockPath: sockPath,
		listener: listener,
	}

	mux := http.NewServeMux()
	fd.registerRoutes(mux)
	fd.server = &http.Server{Handler: fd.stripVersionPrefix(mux)}

	go func() {
		if err := fd.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("fake daemon serve", "err", err)
		}
	}()
	return fd, nil
}

// Host is the DOCKER_HOST style address of the daemon.
func (fd *FakeDaemon) Host() string { return "unix://" + fd.sockPath }

// World returns the state behind the daemon.
func (fd *FakeDaemon) World() *World { return fd.world }

// Close stops serving and drops open connections, as if the daemon died.
func (fd *FakeDaemon) Close() {
	fd.once.Do(func() {
		fd.server.Close()
		fd.listener.Close()
		if fd.dir != "" {
			os.RemoveAll(fd.dir)
		} else {
			os.Remove(fd.sockPath)
		}
	})
}

// stripVersionPrefix returns middleware that strips /v{version}/ prefix from requests.
// Docker SDK sends requests like /v1.47/containers/json.
func (fd *FakeDaemon) stripVersionPrefix(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if len(path) > 2 && path[0] == '/' && path[1] == 'v' {
			if idx := strings.IndexByte(path[2:], '/'); idx >= 0 {
				r.URL.Path = path[2+idx:]
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (fd *FakeDaemon) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("HEAD /_ping", fd.handlePing)
	mux.HandleFunc("GET /_ping", fd.handlePing)
	mux.HandleFunc("GET /version", fd.handleVersion)
	mux.HandleFunc("GET /info", fd.handleInfo)

	// Containers
	mux.HandleFunc("GET /containers/json", fd.handleContainerList)
	mux.HandleFunc("POST /containers/create", fd.handleContainerCreate)
	mux.HandleFunc("GET /containers/{id}/json", fd.handleContainerInspect)
	mux.HandleFunc("POST /containers/{id}/{action}", fd.handleContainerAction)
	mux.HandleFunc("DELETE /containers/{id}", fd.handleContainerRemove)
	mux.HandleFunc("GET /containers/{id}/stats", fd.handleContainerStats)
	mux.HandleFunc("GET /containers/{id}/logs", fd.handleContainerLogs)
	mux.HandleFunc("GET /containers/{id}/top", fd.handleContainerTop)

	// Images: names can contain slashes, so inspect and delete use
	// prefix-based routing.
	mux.HandleFunc("GET /images/json", fd.handleImageList)
	mux.HandleFunc("POST /images/create", fd.handleImagePull)
	mux.HandleFunc("POST /images/prune", fd.handleImagePrune)
	mux.HandleFunc("GET /images/", fd.handleImageRoute)
	mux.HandleFunc("DELETE /images/", fd.handleImageRemove)

	// Networks
	mux.HandleFunc("GET /networks", fd.handleNetworkList)
	mux.HandleFunc("GET /networks/{id}", fd.handleNetworkInspect)
	mux.HandleFunc("POST /networks/create", fd.handleNetworkCreate)
	mux.HandleFunc("POST /networks/prune", fd.handleNetworkPrune)
	mux.HandleFunc("DELETE /networks/{id}", fd.handleNetworkRemove)
	mux.HandleFunc("POST /networks/{id}/connect", fd.handleNetworkConnect)
	mux.HandleFunc("POST /networks/{id}/disconnect", fd.handleNetworkConnect)

	// Volumes
	mux.HandleFunc("GET /volumes", fd.handleVolumeList)
	mux.HandleFunc("GET /volumes/{name}", fd.handleVolumeInspect)
	mux.HandleFunc("POST /volumes/create", fd.handleVolumeCreate)
	mux.HandleFunc("POST /volumes/prune", fd.handleVolumePrune)
	mux.HandleFunc("DELETE /volumes/{name}", fd.handleVolumeRemove)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, err *apiError) {
	writeJSON(w, err.status, map[string]string{"message": err.msg})
}

func queryBool(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "1" || v == "true" || v == "True"
}

// --- System ---

func (fd *FakeDaemon) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Api-Version", fakeAPIVersion)
	w.Header().Set("Docker-Experimental", "false")
	w.Header().Set("Ostype", "linux")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte("OK"))
	}
}

type versionJSON struct {
	Platform      struct{ Name string } `json:"Platform"`
	Components    []componentJSON       `json:"Components"`
	Version       string                `json:"Version"`
	APIVersion    string                `json:"ApiVersion"`
	MinAPIVersion string                `json:"MinAPIVersion"`
	GitCommit     string                `json:"GitCommit"`
	GoVersion     string                `json:"GoVersion"`
	Os            string                `json:"Os"`
	Arch          string                `json:"Arch"`
	KernelVersion string                `json:"KernelVersion"`
	BuildTime     string                `json:"BuildTime"`
}

type componentJSON struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

func (fd *FakeDaemon) handleVersion(w http.ResponseWriter, r *http.Request) {
	v := versionJSON{
		Components: []componentJSON{
			{Name: "Engine", Version: fakeEngineVersion},
			{Name: "containerd", Version: "1.7.27"},
			{Name: "runc", Version: "1.2.5"},
		},
		Version:       fakeEngineVersion,
		APIVersion:    fakeAPIVersion,
		MinAPIVersion: "1.24",
		GitCommit:     "fake000",
		GoVersion:     runtime.Version(),
		Os:            "linux",
		Arch:          "amd64",
		KernelVersion: "6.8.0-fake",
		BuildTime:     worldEpoch.Format(time.RFC3339),
	}
	v.Platform.Name = "Docker Engine - Fake"
	writeJSON(w, http.StatusOK, v)
}

type commitJSON struct {
	ID string `json:"ID"`
}

type infoJSON struct {
	ID                 string                       `json:"ID"`
	Name               string                       `json:"Name"`
	ServerVersion      string                       `json:"ServerVersion"`
	Containers         int                          `json:"Containers"`
	ContainersRunning  int                          `json:"ContainersRunning"`
	ContainersPaused   int                          `json:"ContainersPaused"`
	ContainersStopped  int                          `json:"ContainersStopped"`
	Images             int                          `json:"Images"`
	Driver             string                       `json:"Driver"`
	DriverStatus       [][2]string                  `json:"DriverStatus"`
	Plugins            map[string][]string          `json:"Plugins"`
	MemoryLimit        bool                         `json:"MemoryLimit"`
	SwapLimit          bool                         `json:"SwapLimit"`
	CPUCfsPeriod       bool                         `json:"CpuCfsPeriod"`
	CPUCfsQuota        bool                         `json:"CpuCfsQuota"`
	CPUShares          bool                         `json:"CPUShares"`
	CPUSet             bool                         `json:"CPUSet"`
	PidsLimit          bool                         `json:"PidsLimit"`
	IPv4Forwarding     bool                         `json:"IPv4Forwarding"`
	NFd                int                          `json:"NFd"`
	NGoroutines        int                          `json:"NGoroutines"`
	SystemTime         string                       `json:"SystemTime"`
	LoggingDriver      string                       `json:"LoggingDriver"`
	CgroupDriver       string                       `json:"CgroupDriver"`
	KernelVersion      string                       `json:"KernelVersion"`
	OperatingSystem    string                       `json:"OperatingSystem"`
	OSType             string                       `json:"OSType"`
	Architecture       string                       `json:"Architecture"`
	NCPU               int                          `json:"NCPU"`
	MemTotal           int64                        `json:"MemTotal"`
	DockerRootDir      string                       `json:"DockerRootDir"`
	Labels             []string                     `json:"Labels"`
	Runtimes           map[string]map[string]string `json:"Runtimes"`
	DefaultRuntime     string                       `json:"DefaultRuntime"`
	Swarm              map[string]any               `json:"Swarm"`
	LiveRestoreEnabled bool                         `json:"LiveRestoreEnabled"`
	Isolation          string                       `json:"Isolation"`
	InitBinary         string                       `json:"InitBinary"`
	ContainerdCommit   commitJSON                   `json:"ContainerdCommit"`
	RuncCommit         commitJSON                   `json:"RuncCommit"`
	InitCommit         commitJSON                   `json:"InitCommit"`
	SecurityOptions    []string                     `json:"SecurityOptions"`
}

func (fd *FakeDaemon) handleInfo(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	info := infoJSON{
		ID:            "FAKE:DAEMON:0001",
		Name:          "fake-docker",
		ServerVersion: fakeEngineVersion,
		Containers:    len(wd.containers),
		Images:        len(wd.images),
		Driver:        "overlay2",
		DriverStatus:  [][2]string{{"Backing Filesystem", "extfs"}, {"Supports d_type", "true"}},
		Plugins: map[string][]string{
			"Volume":  {"local"},
			"Network": {"bridge", "host", "null", "overlay"},
			"Log":     {"json-file", "local"},
		},
		MemoryLimit:     true,
		SwapLimit:       true,
		CPUCfsPeriod:    true,
		CPUCfsQuota:     true,
		CPUShares:       true,
		CPUSet:          true,
		PidsLimit:       true,
		IPv4Forwarding:  true,
		NFd:             42,
		NGoroutines:     64,
		SystemTime:      time.Now().UTC().Format(time.RFC3339Nano),
		LoggingDriver:   "json-file",
		CgroupDriver:    "systemd",
		KernelVersion:   "6.8.0-fake",
		OperatingSystem: "Fake Linux",
		OSType:          "linux",
		Architecture:    "x86_64",
		NCPU:            4,
		MemTotal:        8 << 30,
		DockerRootDir:   "/var/lib/docker",
		Labels:          []string{},
		Runtimes:        map[string]map[string]string{"runc": {"path": "runc"}},
		DefaultRuntime:  "runc",
		Swarm:           map[string]any{"NodeID": "", "NodeAddr": "", "LocalNodeState": "inactive", "ControlAvailable": false, "Error": ""},
		InitBinary:      "docker-init",
		SecurityOptions: []string{"name=seccomp,profile=builtin", "name=cgroupns"},
	}
	info.ContainerdCommit.ID = "fakecontainerd"
	info.RuncCommit.ID = "fakerunc"
	info.InitCommit.ID = "fakeinit"
	for _, c := range wd.containers {
		switch c.State {
		case "running":
			info.ContainersRunning++
		case "paused":
			info.ContainersPaused++
		default:
			info.ContainersStopped++
		}
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, info)
}

// --- Containers ---

// containerJSON matches the Docker SDK container.Summary type fields.
type containerJSON struct {
	ID              string               `json:"Id"`
	Names           []string             `json:"Names"`
	Image           string               `json:"Image"`
	ImageID         string               `json:"ImageID"`
	Command         string               `json:"Command"`
	Created         int64                `json:"Created"`
	Ports           []portJSON           `json:"Ports"`
	SizeRw          int64                `json:"SizeRw,omitempty"`
	SizeRootFs      int64                `json:"SizeRootFs,omitempty"`
	Labels          map[string]string    `json:"Labels"`
	State           string               `json:"State"`
	Status          string               `json:"Status"`
	HostConfig      map[string]string    `json:"HostConfig"`
	NetworkSettings *networkSettingsJSON `json:"NetworkSettings"`
	Mounts          []mountJSON          `json:"Mounts"`
}

type portJSON struct {
	IP          string `json:"IP,omitempty"`
	PrivatePort uint16 `json:"PrivatePort"`
	PublicPort  uint16 `json:"PublicPort,omitempty"`
	Type        string `json:"Type"`
}

type mountJSON struct {
	Type        string `json:"Type"`
	Name        string `json:"Name,omitempty"`
	Source      string `json:"Source"`
	Destination string `json:"Destination"`
	Driver      string `json:"Driver,omitempty"`
	Mode        string `json:"Mode"`
	RW          bool   `json:"RW"`
	Propagation string `json:"Propagation"`
}

type networkSettingsJSON struct {
	Ports    map[string][]portBindingJSON `json:"Ports,omitempty"`
	Networks map[string]endpointJSON      `json:"Networks"`
}

type endpointJSON struct {
	NetworkID         string   `json:"NetworkID"`
	EndpointID        string   `json:"EndpointID"`
	Gateway           string   `json:"Gateway"`
	IPAddress         string   `json:"IPAddress"`
	IPPrefixLen       int      `json:"IPPrefixLen"`
	GlobalIPv6Address string   `json:"GlobalIPv6Address"`
	MacAddress        string   `json:"MacAddress"`
	Aliases           []string `json:"Aliases"`
}

type portBindingJSON struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

func buildStatusString(c *LiveContainer) string {
	switch c.State {
	case "running":
		return "Up 2 hours"
	case "paused":
		return "Up 2 hours (Paused)"
	case "exited":
		return fmt.Sprintf("Exited (%d) 2 hours ago", c.ExitCode)
	default:
		return "Created"
	}
}

func (fd *FakeDaemon) handleContainerList(w http.ResponseWriter, r *http.Request) {
	all := queryBool(r, "all")
	size := queryBool(r, "size")

	wd := fd.world
	wd.mu.Lock()
	result := make([]containerJSON, 0, len(wd.containers))
	for _, c := range wd.containers {
		if !all && !c.running() {
			continue
		}
		item := containerJSON{
			ID:              c.ID,
			Names:           []string{"/" + c.Name},
			Image:           c.Image,
			ImageID:         c.ImageID,
			Command:         strings.Join(c.Cmd, " "),
			Created:         c.Created.Unix(),
			Ports:           listPorts(c),
			Labels:          c.Labels,
			State:           c.State,
			Status:          buildStatusString(c),
			HostConfig:      map[string]string{"NetworkMode": c.Networks[0]},
			NetworkSettings: &networkSettingsJSON{Networks: wd.endpointsLocked(c)},
			Mounts:          wd.mountsLocked(c),
		}
		if size {
			item.SizeRw, item.SizeRootFs = 4096, 4096+wd.imageSizeLocked(c)
		}
		result = append(result, item)
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func listPorts(c *LiveContainer) []portJSON {
	ports := make([]portJSON, 0, len(c.exposed))
	keys := make([]string, 0, len(c.exposed))
	for p := range c.exposed {
		keys = append(keys, string(p))
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := nat.Port(k)
		priv := uint16(p.Int())
		bindings := c.bindings[p]
		if len(bindings) == 0 || !c.running() {
			ports = append(ports, portJSON{PrivatePort: priv, Type: p.Proto()})
			continue
		}
		for _, b := range bindings {
			pub, _ := strconv.Atoi(b.HostPort)
			ip := b.HostIP
			if ip == "" {
				ip = "0.0.0.0"
			}
			ports = append(ports, portJSON{IP: ip, PrivatePort: priv, PublicPort: uint16(pub), Type: p.Proto()})
		}
	}
	return ports
}

func (wd *World) imageSizeLocked(c *LiveContainer) int64 {
	if img := wd.findImageLocked(c.ImageID); img != nil {
		return img.Size
	}
	return 0
}

func (wd *World) endpointsLocked(c *LiveContainer) map[string]endpointJSON {
	out := make(map[string]endpointJSON, len(c.Networks))
	for _, name := range c.Networks {
		n := wd.findNetworkLocked(name)
		if n == nil {
			continue
		}
		ep := endpointJSON{NetworkID: n.ID, Aliases: []string{}}
		if c.running() {
			ip, gw, prefix := wd.endpointAddrLocked(n, c)
			ep.EndpointID = fakeID("endpoint", n.ID+c.ID)
			ep.IPAddress, ep.Gateway, ep.IPPrefixLen = ip, gw, prefix
			ep.MacAddress = macFor(ip)
			if !n.Predefined {
				ep.Aliases = []string{c.Name, shortID(c.ID)}
			}
		}
		out[n.Name] = ep
	}
	return out
}

func (wd *World) mountsLocked(c *LiveContainer) []mountJSON {
	mounts := make([]mountJSON, 0, len(c.Binds))
	for _, b := range c.Binds {
		parts := strings.Split(b, ":")
		if len(parts) < 2 {
			continue
		}
		mode := ""
		if len(parts) > 2 {
			mode = parts[2]
		}
		rw := !strings.Contains(mode, "ro")
		if strings.HasPrefix(parts[0], "/") {
			mounts = append(mounts, mountJSON{Type: "bind", Source: parts[0], Destination: parts[1], Mode: mode, RW: rw, Propagation: "rprivate"})
			continue
		}
		m := mountJSON{Type: "volume", Name: parts[0], Destination: parts[1], Driver: "local", Mode: mode, RW: rw}
		if v := wd.findVolumeLocked(parts[0]); v != nil {
			m.Source = v.mountpoint()
			m.Driver = v.Driver
		}
		mounts = append(mounts, m)
	}
	return mounts
}

type containerStateJSON struct {
	Status     string `json:"Status"`
	Running    bool   `json:"Running"`
	Paused     bool   `json:"Paused"`
	Restarting bool   `json:"Restarting"`
	OOMKilled  bool   `json:"OOMKilled"`
	Dead       bool   `json:"Dead"`
	Pid        int    `json:"Pid"`
	ExitCode   int    `json:"ExitCode"`
	Error      string `json:"Error"`
	StartedAt  string `json:"StartedAt"`
	FinishedAt string `json:"FinishedAt"`
}

type restartPolicyJSON struct {
	Name              string `json:"Name"`
	MaximumRetryCount int    `json:"MaximumRetryCount"`
}

type hostConfigJSON struct {
	Binds         []string                     `json:"Binds"`
	NetworkMode   string                       `json:"NetworkMode"`
	PortBindings  map[string][]portBindingJSON `json:"PortBindings"`
	RestartPolicy restartPolicyJSON            `json:"RestartPolicy"`
	AutoRemove    bool                         `json:"AutoRemove"`
	Privileged    bool                         `json:"Privileged"`
	Memory        int64                        `json:"Memory"`
	NanoCPUs      int64                        `json:"NanoCpus"`
	CPUShares     int64                        `json:"CpuShares"`
}

type containerConfigJSON struct {
	Hostname     string              `json:"Hostname"`
	User         string              `json:"User"`
	Env          []string            `json:"Env"`
	Cmd          []string            `json:"Cmd"`
	Image        string              `json:"Image"`
	WorkingDir   string              `json:"WorkingDir"`
	Entrypoint   []string            `json:"Entrypoint"`
	Labels       map[string]string   `json:"Labels"`
	ExposedPorts map[string]struct{} `json:"ExposedPorts,omitempty"`
	Tty          bool                `json:"Tty"`
}

type containerInspectJSON struct {
	ID              string              `json:"Id"`
	Created         string              `json:"Created"`
	Path            string              `json:"Path"`
	Args            []string            `json:"Args"`
	State           containerStateJSON  `json:"State"`
	Image           string              `json:"Image"`
	Name            string              `json:"Name"`
	RestartCount    int                 `json:"RestartCount"`
	Driver          string              `json:"Driver"`
	Platform        string              `json:"Platform"`
	MountLabel      string              `json:"MountLabel"`
	ProcessLabel    string              `json:"ProcessLabel"`
	AppArmorProfile string              `json:"AppArmorProfile"`
	ExecIDs         []string            `json:"ExecIDs"`
	HostConfig      hostConfigJSON      `json:"HostConfig"`
	SizeRw          *int64              `json:"SizeRw,omitempty"`
	SizeRootFs      *int64              `json:"SizeRootFs,omitempty"`
	Mounts          []mountJSON         `json:"Mounts"`
	Config          containerConfigJSON `json:"Config"`
	NetworkSettings networkSettingsJSON `json:"NetworkSettings"`
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return "0001-01-01T00:00:00Z"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func bindingsJSON(pm nat.PortMap) map[string][]portBindingJSON {
	out := make(map[string][]portBindingJSON, len(pm))
	for p, bs := range pm {
		list := make([]portBindingJSON, 0, len(bs))
		for _, b := range bs {
			list = append(list, portBindingJSON{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		out[string(p)] = list
	}
	return out
}

func (fd *FakeDaemon) handleContainerInspect(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	size := queryBool(r, "size")

	wd := fd.world
	wd.mu.Lock()
	c, apiErr := wd.containerLocked(ref)
	if apiErr != nil {
		wd.mu.Unlock()
		writeAPIError(w, apiErr)
		return
	}

	path, args := "", []string{}
	if len(c.Cmd) > 0 {
		path, args = c.Cmd[0], c.Cmd[1:]
	}
	exposed := make(map[string]struct{}, len(c.exposed))
	for p := range c.exposed {
		exposed[string(p)] = struct{}{}
	}

	// Published ports appear in NetworkSettings only while running.
	runtimePorts := map[string][]portBindingJSON{}
	if c.running() {
		for p := range c.exposed {
			runtimePorts[string(p)] = nil
		}
		for p, bs := range bindingsJSON(c.bindings) {
			runtimePorts[p] = bs
		}
	}

	resp := containerInspectJSON{
		ID:      c.ID,
		Created: rfc3339(c.Created),
		Path:    path,
		Args:    args,
		State: containerStateJSON{
			Status:     c.State,
			Running:    c.running(),
			Paused:     c.State == "paused",
			Pid:        c.Pid,
			ExitCode:   c.ExitCode,
			StartedAt:  rfc3339(c.StartedAt),
			FinishedAt: rfc3339(c.FinishedAt),
		},
		Image:    c.ImageID,
		Name:     "/" + c.Name,
		Driver:   "overlay2",
		Platform: "linux",
		HostConfig: hostConfigJSON{
			Binds:         c.Binds,
			NetworkMode:   c.Networks[0],
			PortBindings:  bindingsJSON(c.bindings),
			RestartPolicy: restartPolicyJSON{Name: c.RestartPolicy},
			AutoRemove:    c.AutoRemove,
		},
		Mounts: wd.mountsLocked(c),
		Config: containerConfigJSON{
			Hostname:     shortID(c.ID),
			Env:          c.Env,
			Cmd:          c.Cmd,
			Image:        c.Image,
			WorkingDir:   c.WorkingDir,
			Labels:       c.Labels,
			ExposedPorts: exposed,
			Tty:          c.Tty,
		},
		NetworkSettings: networkSettingsJSON{Ports: runtimePorts, Networks: wd.endpointsLocked(c)},
	}
	if size {
		rw, rootfs := int64(4096), 4096+wd.imageSizeLocked(c)
		resp.SizeRw, resp.SizeRootFs = &rw, &rootfs
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type containerCreateJSON struct {
	Image        string              `json:"Image"`
	Cmd          []string            `json:"Cmd"`
	Env          []string            `json:"Env"`
	WorkingDir   string              `json:"WorkingDir"`
	Labels       map[string]string   `json:"Labels"`
	ExposedPorts map[string]struct{} `json:"ExposedPorts"`
	Tty          bool                `json:"Tty"`
	HostConfig   struct {
		Binds         []string                     `json:"Binds"`
		PortBindings  map[string][]portBindingJSON `json:"PortBindings"`
		NetworkMode   string                       `json:"NetworkMode"`
		RestartPolicy restartPolicyJSON            `json:"RestartPolicy"`
		AutoRemove    bool                         `json:"AutoRemove"`
	} `json:"HostConfig"`
}

func (fd *FakeDaemon) handleContainerCreate(w http.ResponseWriter, r *http.Request) {
	var req containerCreateJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, badRequestf("invalid JSON: %v", err))
		return
	}
	if req.Image == "" {
		writeAPIError(w, badRequestf("config cannot be empty in order to create a container"))
		return
	}

	c := LiveContainer{
		Name:          r.URL.Query().Get("name"),
		Image:         req.Image,
		Cmd:           req.Cmd,
		Env:           req.Env,
		WorkingDir:    req.WorkingDir,
		Labels:        req.Labels,
		Tty:           req.Tty,
		Binds:         req.HostConfig.Binds,
		RestartPolicy: req.HostConfig.RestartPolicy.Name,
		AutoRemove:    req.HostConfig.AutoRemove,
		exposed:       nat.PortSet{},
		bindings:      nat.PortMap{},
	}
	for p := range req.ExposedPorts {
		c.exposed[nat.Port(p)] = struct{}{}
	}
	for p, bs := range req.HostConfig.PortBindings {
		c.exposed[nat.Port(p)] = struct{}{}
		for _, b := range bs {
			c.bindings[nat.Port(p)] = append(c.bindings[nat.Port(p)], nat.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
	}
	if mode := req.HostConfig.NetworkMode; mode != "" && mode != "default" {
		c.Networks = []string{mode}
	}

	id, apiErr := fd.world.createContainer(c)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"Id": id, "Warnings": []string{}})
}

func (fd *FakeDaemon) handleContainerAction(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	q := r.URL.Query()

	var timeout *int
	if t := q.Get("t"); t != "" {
		if n, err := strconv.Atoi(t); err == nil {
			timeout = &n
		}
	}

	var (
		changed = true
		apiErr  *apiError
	)
	switch r.PathValue("action") {
	case "start":
		changed, apiErr = fd.world.startContainer(ref)
	case "stop":
		changed, apiErr = fd.world.stopContainer(ref, timeout, false)
	case "restart":
		_, apiErr = fd.world.stopContainer(ref, timeout, true)
	case "kill":
		signal := q.Get("signal")
		if signal == "" {
			signal = "SIGKILL"
		}
		apiErr = fd.world.killContainer(ref, signal)
	case "pause":
		apiErr = fd.world.pauseContainer(ref, true)
	case "unpause":
		apiErr = fd.world.pauseContainer(ref, false)
	case "rename":
		apiErr = fd.world.renameContainer(ref, q.Get("name"))
	default:
		http.NotFound(w, r)
		return
	}

	switch {
	case apiErr != nil:
		writeAPIError(w, apiErr)
	case !changed:
		w.WriteHeader(http.StatusNotModified)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (fd *FakeDaemon) handleContainerRemove(w http.ResponseWriter, r *http.Request) {
	if apiErr := fd.world.removeContainer(r.PathValue("id"), queryBool(r, "force"), queryBool(r, "v")); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cpuStatsJSON struct {
	CPUUsage struct {
		TotalUsage  uint64   `json:"total_usage"`
		PercpuUsage []uint64 `json:"percpu_usage,omitempty"`
	} `json:"cpu_usage"`
	SystemUsage uint64 `json:"system_cpu_usage"`
	OnlineCPUs  uint32 `json:"online_cpus"`
}

type blkioEntryJSON struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Op    string `json:"op"`
	Value uint64 `json:"value"`
}

type netStatsJSON struct {
	RxBytes   uint64 `json:"rx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	TxBytes   uint64 `json:"tx_bytes"`
	TxPackets uint64 `json:"tx_packets"`
}

type statsJSON struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Read      string `json:"read"`
	PreRead   string `json:"preread"`
	NumProcs  uint32 `json:"num_procs"`
	PidsStats struct {
		Current uint64 `json:"current"`
	} `json:"pids_stats"`
	CPUStats    cpuStatsJSON `json:"cpu_stats"`
	PreCPUStats cpuStatsJSON `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64            `json:"usage"`
		Limit uint64            `json:"limit"`
		Stats map[string]uint64 `json:"stats"`
	} `json:"memory_stats"`
	BlkioStats struct {
		IoServiceBytesRecursive []blkioEntryJSON `json:"io_service_bytes_recursive"`
	} `json:"blkio_stats"`
	Networks map[string]netStatsJSON `json:"networks,omitempty"`
}

// handleContainerStats answers one sample. A running container reports 20%
// CPU on 2 CPUs and 80MiB of a 1GiB limit after page cache.
func (fd *FakeDaemon) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	c, apiErr := wd.containerLocked(r.PathValue("id"))
	if apiErr != nil {
		wd.mu.Unlock()
		writeAPIError(w, apiErr)
		return
	}
	if wd.emptyStats {
		wd.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	now := time.Now().UTC()
	st := statsJSON{Name: "/" + c.Name, ID: c.ID, Read: rfc3339(now), PreRead: rfc3339(now.Add(-time.Second))}
	st.MemoryStats.Stats = map[string]uint64{}
	if c.running() {
		st.PidsStats.Current = 3
		st.CPUStats.CPUUsage.TotalUsage = 400_000_000
		st.CPUStats.SystemUsage = 4_000_000_000
		st.CPUStats.OnlineCPUs = 2
		st.PreCPUStats.CPUUsage.TotalUsage = 300_000_000
		st.PreCPUStats.SystemUsage = 3_000_000_000
		st.PreCPUStats.OnlineCPUs = 2
		st.MemoryStats.Usage = 100 << 20
		st.MemoryStats.Limit = 1 << 30
		st.MemoryStats.Stats["inactive_file"] = 20 << 20
		st.BlkioStats.IoServiceBytesRecursive = []blkioEntryJSON{
			{Major: 8, Op: "read", Value: 4 << 20},
			{Major: 8, Op: "write", Value: 1 << 20},
		}
		st.Networks = map[string]netStatsJSON{
			"eth0": {RxBytes: 2048, RxPackets: 20, TxBytes: 1024, TxPackets: 10},
		}
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, st)
}

func (fd *FakeDaemon) handleContainerTop(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	c, apiErr := wd.containerLocked(r.PathValue("id"))
	if apiErr == nil && !c.running() {
		apiErr = conflictf("Container %s is not running", c.ID)
	}
	if apiErr != nil {
		wd.mu.Unlock()
		writeAPIError(w, apiErr)
		return
	}
	cmd := strings.Join(c.Cmd, " ")
	pid := strconv.Itoa(c.Pid)
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"Titles": []string{"USER", "PID", "%CPU", "%MEM", "VSZ", "RSS", "TTY", "STAT", "START", "TIME", "COMMAND"},
		"Processes": [][]string{
			{"root", pid, "0.1", "0.4", "12345", "6789", "?", "Ss", "00:00", "0:00", cmd},
		},
	})
}

// logLine is one line of a container's output.
type logLine struct {
	at     time.Time
	stderr bool
	text   string
}

func (fd *FakeDaemon) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	showStdout := queryBool(r, "stdout")
	showStderr := queryBool(r, "stderr")
	timestamps := queryBool(r, "timestamps")
	follow := queryBool(r, "follow")

	wd := fd.world
	wd.mu.Lock()
	c, apiErr := wd.containerLocked(r.PathValue("id"))
	if apiErr != nil {
		wd.mu.Unlock()
		writeAPIError(w, apiErr)
		return
	}
	tty := c.Tty
	lines := make([]logLine, 0, len(c.LogLines))
	for i, text := range c.LogLines {
		lines = append(lines, logLine{
			at:     c.Created.Add(time.Duration(i+1) * time.Second),
			stderr: !tty && c.StderrEvery > 0 && (i+1)%c.StderrEvery == 0,
			text:   text,
		})
	}
	wd.mu.Unlock()

	if since, err := strconv.ParseInt(q.Get("since"), 10, 64); err == nil && since > 0 {
		lines = filterLines(lines, func(l logLine) bool { return l.at.Unix() >= since })
	}
	if until, err := strconv.ParseInt(q.Get("until"), 10, 64); err == nil && until > 0 {
		lines = filterLines(lines, func(l logLine) bool { return l.at.Unix() < until })
	}
	lines = filterLines(lines, func(l logLine) bool {
		return (l.stderr && showStderr) || (!l.stderr && showStdout)
	})
	if tail := q.Get("tail"); tail != "" && tail != "all" {
		if n, err := strconv.Atoi(tail); err == nil && n >= 0 && n < len(lines) {
			lines = lines[len(lines)-n:]
		}
	}

	if tty {
		w.Header().Set("Content-Type", "application/vnd.docker.raw-stream")
	} else {
		w.Header().Set("Content-Type", "application/vnd.docker.multiplexed-stream")
	}
	w.WriteHeader(http.StatusOK)

	for _, l := range lines {
		payload := l.text + "\n"
		if timestamps {
			payload = l.at.UTC().Format(time.RFC3339Nano) + " " + payload
		}
		var err error
		switch {
		case tty:
			_, err = io.WriteString(w, payload)
		case l.stderr:
			err = writeStdcopyFrame(w, 2, payload)
		default:
			err = writeStdcopyFrame(w, 1, payload)
		}
		if err != nil {
			return
		}
	}

	if follow {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}
}

func filterLines(lines []logLine, keep func(logLine) bool) []logLine {
	out := lines[:0]
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// writeStdcopyFrame writes a payload with Docker stdcopy multiplexing header.
// Format: [stream_type(1 byte)][0 0 0][size(4 bytes big-endian)][payload]
func writeStdcopyFrame(w io.Writer, stream byte, payload string) error {
	header := make([]byte, 8)
	header[0] = stream
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := io.WriteString(w, payload)
	return err
}

// --- Images ---

type imageSummaryJSON struct {
	ID          string            `json:"Id"`
	ParentID    string            `json:"ParentId"`
	RepoTags    []string          `json:"RepoTags"`
	RepoDigests []string          `json:"RepoDigests"`
	Created     int64             `json:"Created"`
	Size        int64             `json:"Size"`
	SharedSize  int64             `json:"SharedSize"`
	Labels      map[string]string `json:"Labels"`
	Containers  int64             `json:"Containers"`
}

func repoDigests(img *LiveImage) []string {
	out := make([]string, 0, len(img.Tags))
	seen := map[string]bool{}
	for _, t := range img.Tags {
		repo := t
		if i := strings.LastIndex(t, ":"); i > strings.LastIndex(t, "/") {
			repo = t[:i]
		}
		if !seen[repo] {
			seen[repo] = true
			out = append(out, repo+"@"+img.Digest)
		}
	}
	return out
}

func (fd *FakeDaemon) handleImageList(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	result := make([]imageSummaryJSON, 0, len(wd.images))
	for _, img := range wd.images {
		result = append(result, imageSummaryJSON{
			ID:          "sha256:" + img.ID,
			RepoTags:    append([]string{}, img.Tags...),
			RepoDigests: repoDigests(img),
			Created:     img.Created.Unix(),
			Size:        img.Size,
			SharedSize:  -1,
			Labels:      img.Labels,
			Containers:  int64(len(wd.imageUsersLocked(img))),
		})
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

type imageInspectJSON struct {
	ID            string   `json:"Id"`
	RepoTags      []string `json:"RepoTags"`
	RepoDigests   []string `json:"RepoDigests"`
	Parent        string   `json:"Parent"`
	Comment       string   `json:"Comment"`
	Created       string   `json:"Created"`
	DockerVersion string   `json:"DockerVersion"`
	Author        string   `json:"Author"`
	Config        struct {
		User         string              `json:"User"`
		Env          []string            `json:"Env"`
		Cmd          []string            `json:"Cmd"`
		WorkingDir   string              `json:"WorkingDir"`
		ExposedPorts map[string]struct{} `json:"ExposedPorts,omitempty"`
		Labels       map[string]string   `json:"Labels"`
		StopSignal   string              `json:"StopSignal,omitempty"`
	} `json:"Config"`
	Architecture string `json:"Architecture"`
	Os           string `json:"Os"`
	Size         int64  `json:"Size"`
	GraphDriver  struct {
		Name string            `json:"Name"`
		Data map[string]string `json:"Data"`
	} `json:"GraphDriver"`
	RootFS struct {
		Type   string   `json:"Type"`
		Layers []string `json:"Layers"`
	} `json:"RootFS"`
	Metadata struct {
		LastTagTime string `json:"LastTagTime,omitempty"`
	} `json:"Metadata"`
}

// handleImageRoute routes GET /images/{name}/json where name may contain
// slashes (e.g. "library/nginx:latest").
func (fd *FakeDaemon) handleImageRoute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/images/")
	name, ok := strings.CutSuffix(path, "/json")
	if !ok {
		http.NotFound(w, r)
		return
	}

	wd := fd.world
	wd.mu.Lock()
	img := wd.findImageLocked(name)
	if img == nil {
		wd.mu.Unlock()
		writeAPIError(w, notFoundf("No such image: %s", name))
		return
	}

	var resp imageInspectJSON
	resp.ID = "sha256:" + img.ID
	resp.RepoTags = append([]string{}, img.Tags...)
	resp.RepoDigests = repoDigests(img)
	resp.Created = rfc3339(img.Created)
	resp.Architecture = img.Architecture
	resp.Os = "linux"
	resp.Size = img.Size
	resp.Config.Env = img.Env
	resp.Config.Cmd = img.Cmd
	resp.Config.Labels = img.Labels
	if len(img.ExposedPorts) > 0 {
		resp.Config.ExposedPorts = make(map[string]struct{}, len(img.ExposedPorts))
		for _, p := range img.ExposedPorts {
			resp.Config.ExposedPorts[p] = struct{}{}
		}
	}
	resp.GraphDriver.Name = "overlay2"
	resp.GraphDriver.Data = map[string]string{"MergedDir": "/var/lib/docker/overlay2/" + shortID(img.ID) + "/merged"}
	resp.RootFS.Type = "layers"
	resp.RootFS.Layers = []string{"sha256:" + fakeID("layer", img.ID)}
	resp.Metadata.LastTagTime = rfc3339(img.Created)
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (fd *FakeDaemon) handleImageRemove(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/images/")
	items, apiErr := fd.world.removeImage(name, queryBool(r, "force"))
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type pullMessage struct {
	Status      string            `json:"status,omitempty"`
	ID          string            `json:"id,omitempty"`
	ErrorDetail map[string]string `json:"errorDetail,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// handleImagePull streams progress messages the way the daemon does; pull
// failures arrive inside the stream after a 200.
func (fd *FakeDaemon) handleImagePull(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("fromImage")
	tag := q.Get("tag")
	if from == "" {
		writeAPIError(w, badRequestf("fromImage is required"))
		return
	}
	ref := from
	switch {
	case strings.HasPrefix(tag, "sha256:"):
		ref += "@" + tag
	case tag != "":
		ref += ":" + tag
	}
	ref = familiarTag(ref)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.Encode(pullMessage{Status: "Pulling from " + from, ID: tag})

	img, existed, apiErr := fd.world.pullImage(ref)
	if apiErr != nil {
		enc.Encode(pullMessage{ErrorDetail: map[string]string{"message": apiErr.msg}, Error: apiErr.msg})
		return
	}
	if !existed {
		enc.Encode(pullMessage{Status: "Pull complete", ID: shortID(img.ID)})
	}
	enc.Encode(pullMessage{Status: "Digest: " + img.Digest})
	if existed {
		enc.Encode(pullMessage{Status: "Status: Image is up to date for " + ref})
	} else {
		enc.Encode(pullMessage{Status: "Status: Downloaded newer image for " + ref})
	}
}

func (fd *FakeDaemon) handleImagePrune(w http.ResponseWriter, r *http.Request) {
	args, err := filters.FromJSON(r.URL.Query().Get("filters"))
	if err != nil {
		writeAPIError(w, badRequestf("invalid filter: %v", err))
		return
	}
	danglingOnly := true
	for _, v := range args.Get("dangling") {
		if v == "false" || v == "0" {
			danglingOnly = false
		}
	}

	deleted, reclaimed := fd.world.pruneImages(danglingOnly)
	if deleted == nil {
		deleted = []imageDelete{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ImagesDeleted": deleted, "SpaceReclaimed": reclaimed})
}

// --- Networks ---

type networkJSON struct {
	Name       string                          `json:"Name"`
	ID         string                          `json:"Id"`
	Created    string                          `json:"Created"`
	Scope      string                          `json:"Scope"`
	Driver     string                          `json:"Driver"`
	EnableIPv6 bool                            `json:"EnableIPv6"`
	IPAM       ipamJSON                        `json:"IPAM"`
	Internal   bool                            `json:"Internal"`
	Attachable bool                            `json:"Attachable"`
	Ingress    bool                            `json:"Ingress"`
	Containers map[string]networkContainerJSON `json:"Containers"`
	Options    map[string]string               `json:"Options"`
	Labels     map[string]string               `json:"Labels"`
}

type ipamJSON struct {
	Driver  string              `json:"Driver"`
	Options map[string]string   `json:"Options"`
	Config  []map[string]string `json:"Config"`
}

type networkContainerJSON struct {
	Name        string `json:"Name"`
	EndpointID  string `json:"EndpointID"`
	MacAddress  string `json:"MacAddress"`
	IPv4Address string `json:"IPv4Address"`
	IPv6Address string `json:"IPv6Address"`
}

func (wd *World) networkJSONLocked(n *LiveNetwork) networkJSON {
	out := networkJSON{
		Name:       n.Name,
		ID:         n.ID,
		Created:    rfc3339(n.Created),
		Scope:      n.Scope,
		Driver:     n.Driver,
		EnableIPv6: n.EnableIPv6,
		IPAM:       ipamJSON{Driver: "default", Options: map[string]string{}, Config: []map[string]string{}},
		Internal:   n.Internal,
		Attachable: n.Attachable,
		Containers: map[string]networkContainerJSON{},
		Options:    n.Options,
		Labels:     n.Labels,
	}
	if n.Subnet != "" {
		cfg := map[string]string{"Subnet": n.Subnet}
		if n.Gateway != "" {
			cfg["Gateway"] = n.Gateway
		}
		out.IPAM.Config = append(out.IPAM.Config, cfg)
	}
	for _, c := range wd.containersOnLocked(n) {
		if !c.running() {
			continue
		}
		ip, _, prefix := wd.endpointAddrLocked(n, c)
		ep := networkContainerJSON{
			Name:       c.Name,
			EndpointID: fakeID("endpoint", n.ID+c.ID),
		}
		if ip != "" {
			ep.IPv4Address = ip + "/" + strconv.Itoa(prefix)
			ep.MacAddress = macFor(ip)
		}
		out.Containers[c.ID] = ep
	}
	return out
}

func (fd *FakeDaemon) handleNetworkList(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	result := make([]networkJSON, 0, len(wd.networks))
	for _, n := range wd.networks {
		result = append(result, wd.networkJSONLocked(n))
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (fd *FakeDaemon) handleNetworkInspect(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	wd := fd.world
	wd.mu.Lock()
	n := wd.findNetworkLocked(ref)
	if n == nil {
		wd.mu.Unlock()
		writeAPIError(w, notFoundf("network %s not found", ref))
		return
	}
	resp := wd.networkJSONLocked(n)
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (fd *FakeDaemon) handleNetworkCreate(w http.ResponseWriter, r *http.Request) {
	var req networkCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, badRequestf("invalid JSON: %v", err))
		return
	}
	id, apiErr := fd.world.createNetwork(req)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"Id": id, "Warning": ""})
}

func (fd *FakeDaemon) handleNetworkRemove(w http.ResponseWriter, r *http.Request) {
	if apiErr := fd.world.removeNetwork(r.PathValue("id")); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fd *FakeDaemon) handleNetworkPrune(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"NetworksDeleted": fd.world.pruneNetworks()})
}

// handleNetworkConnect serves both connect and disconnect.
func (fd *FakeDaemon) handleNetworkConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Container string `json:"Container"`
		Force     bool   `json:"Force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, badRequestf("invalid JSON: %v", err))
		return
	}
	connect := strings.HasSuffix(r.URL.Path, "/connect")
	if apiErr := fd.world.connectNetwork(r.PathValue("id"), req.Container, connect, req.Force); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// --- Volumes ---

type volumeJSON struct {
	Name       string            `json:"Name"`
	Driver     string            `json:"Driver"`
	Mountpoint string            `json:"Mountpoint"`
	CreatedAt  string            `json:"CreatedAt"`
	Labels     map[string]string `json:"Labels"`
	Scope      string            `json:"Scope"`
	Options    map[string]string `json:"Options"`
	Status     map[string]any    `json:"Status,omitempty"`
	UsageData  *volumeUsageJSON  `json:"UsageData,omitempty"`
}

type volumeUsageJSON struct {
	Size     int64 `json:"Size"`
	RefCount int64 `json:"RefCount"`
}

func (wd *World) volumeJSONLocked(v *LiveVolume) volumeJSON {
	return volumeJSON{
		Name:       v.Name,
		Driver:     v.Driver,
		Mountpoint: v.mountpoint(),
		CreatedAt:  v.Created.Format(time.RFC3339),
		Labels:     v.Labels,
		Scope:      "local",
		Options:    v.Options,
		UsageData:  &volumeUsageJSON{Size: v.Size, RefCount: int64(len(wd.volumeUsersLocked(v.Name)))},
	}
}

func (fd *FakeDaemon) handleVolumeList(w http.ResponseWriter, r *http.Request) {
	wd := fd.world
	wd.mu.Lock()
	vols := make([]volumeJSON, 0, len(wd.volumes))
	for _, v := range wd.volumes {
		vols = append(vols, wd.volumeJSONLocked(v))
	}
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"Volumes": vols, "Warnings": []string{}})
}

func (fd *FakeDaemon) handleVolumeInspect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	wd := fd.world
	wd.mu.Lock()
	v := wd.findVolumeLocked(name)
	if v == nil {
		wd.mu.Unlock()
		writeAPIError(w, notFoundf("get %s: no such volume", name))
		return
	}
	resp := wd.volumeJSONLocked(v)
	wd.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (fd *FakeDaemon) handleVolumeCreate(w http.ResponseWriter, r *http.Request) {
	var req volumeCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, badRequestf("invalid JSON: %v", err))
		return
	}
	v := fd.world.createVolume(req)

	wd := fd.world
	wd.mu.Lock()
	resp := wd.volumeJSONLocked(&v)
	wd.mu.Unlock()

	writeJSON(w, http.StatusCreated, resp)
}

func (fd *FakeDaemon) handleVolumeRemove(w http.ResponseWriter, r *http.Request) {
	if apiErr := fd.world.removeVolume(r.PathValue("name"), queryBool(r, "force")); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fd *FakeDaemon) handleVolumePrune(w http.ResponseWriter, r *http.Request) {
	args, err := filters.FromJSON(r.URL.Query().Get("filters"))
	if err != nil {
		writeAPIError(w, badRequestf("invalid filter: %v", err))
		return
	}
	all := false
	for _, v := range args.Get("all") {
		if v == "true" || v == "1" {
			all = true
		}
	}

	deleted, reclaimed := fd.world.pruneVolumes(all)
	writeJSON(w, http.StatusOK, map[string]any{"VolumesDeleted": deleted, "SpaceReclaimed": reclaimed})
}
