package docker

// Records returned to the GUI. Every optional daemon field is resolved to a
// concrete value: "" for strings, 0 for numbers, and empty (never nil) slices
// and maps, so the front end never sees null.

// ConnectionStatus is the derived connection state.
type ConnectionStatus struct {
	Connected  bool   `json:"connected"`
	Error      string `json:"error"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	Host       string `json:"host"`
	Transport  string `json:"transport"`
}

// --- Containers ---

// ContainerListItem is one row of a container listing.
type ContainerListItem struct {
	ID         string            `json:"id"`
	Names      []string          `json:"names"`
	Name       string            `json:"name"` // first name without the leading slash
	Image      string            `json:"image"`
	ImageID    string            `json:"imageId"`
	Command    string            `json:"command"`
	Created    int64             `json:"created"`
	State      string            `json:"state"`
	Status     string            `json:"status"`
	Ports      []ContainerPort   `json:"ports"`
	Labels     map[string]string `json:"labels"`
	Networks   []string          `json:"networks"`
	SizeRw     int64             `json:"sizeRw"`
	SizeRootFs int64             `json:"sizeRootFs"`
}

// ContainerPort is a published or exposed port of a listed container.
type ContainerPort struct {
	IP          string `json:"ip"`
	PrivatePort uint16 `json:"privatePort"`
	PublicPort  uint16 `json:"publicPort"`
	Type        string `json:"type"`
	Port        string `json:"port"` // "80/tcp"
}

// ContainerDetails is the single-container inspect record.
type ContainerDetails struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Created         string          `json:"created"`
	Path            string          `json:"path"`
	Args            []string        `json:"args"`
	State           ContainerState  `json:"state"`
	Image           string          `json:"image"`
	RestartCount    int             `json:"restartCount"`
	Driver          string          `json:"driver"`
	Platform        string          `json:"platform"`
	MountLabel      string          `json:"mountLabel"`
	ProcessLabel    string          `json:"processLabel"`
	AppArmorProfile string          `json:"appArmorProfile"`
	ExecIDs         []string        `json:"execIds"`
	SizeRw          int64           `json:"sizeRw"`
	SizeRootFs      int64           `json:"sizeRootFs"`
	Config          ContainerConfig `json:"config"`
	HostConfig      ContainerHost   `json:"hostConfig"`
	Mounts          []MountPoint    `json:"mounts"`
	Networks        []EndpointInfo  `json:"networks"`
	Ports           []PortBinding   `json:"ports"`
}

// ContainerState mirrors the daemon's container state block.
type ContainerState struct {
	Status        string `json:"status"`
	Running       bool   `json:"running"`
	Paused        bool   `json:"paused"`
	Restarting    bool   `json:"restarting"`
	OOMKilled     bool   `json:"oomKilled"`
	Dead          bool   `json:"dead"`
	Pid           int    `json:"pid"`
	ExitCode      int    `json:"exitCode"`
	Error         string `json:"error"`
	StartedAt     string `json:"startedAt"`
	FinishedAt    string `json:"finishedAt"`
	Health        string `json:"health"` // "" when no healthcheck is configured
	FailingStreak int    `json:"failingStreak"`
}

// ContainerConfig is the portable part of a container's configuration.
type ContainerConfig struct {
	Image        string            `json:"image"`
	Hostname     string            `json:"hostname"`
	User         string            `json:"user"`
	Env          []string          `json:"env"`
	Cmd          []string          `json:"cmd"`
	Entrypoint   []string          `json:"entrypoint"`
	WorkingDir   string            `json:"workingDir"`
	Labels       map[string]string `json:"labels"`
	ExposedPorts []string          `json:"exposedPorts"`
	Tty          bool              `json:"tty"`
}

// ContainerHost is the host-dependent configuration of a container.
type ContainerHost struct {
	NetworkMode       string        `json:"networkMode"`
	RestartPolicy     string        `json:"restartPolicy"`
	MaximumRetryCount int           `json:"maximumRetryCount"`
	Privileged        bool          `json:"privileged"`
	AutoRemove        bool          `json:"autoRemove"`
	Binds             []string      `json:"binds"`
	PortBindings      []PortBinding `json:"portBindings"`
	Memory            int64         `json:"memory"`
	NanoCPUs          int64         `json:"nanoCpus"`
	CPUShares         int64         `json:"cpuShares"`
}

// PortBinding maps a container port to a host address.
type PortBinding struct {
	ContainerPort string `json:"containerPort"` // "80/tcp"
	HostIP        string `json:"hostIp"`
	HostPort      string `json:"hostPort"`
}

// MountPoint is one mount of a container.
type MountPoint struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Driver      string `json:"driver"`
	Mode        string `json:"mode"`
	RW          bool   `json:"rw"`
	Propagation string `json:"propagation"`
}

// EndpointInfo is a container's attachment to one network.
type EndpointInfo struct {
	Network     string   `json:"network"`
	NetworkID   string   `json:"networkId"`
	EndpointID  string   `json:"endpointId"`
	Gateway     string   `json:"gateway"`
	IPAddress   string   `json:"ipAddress"`
	IPPrefixLen int      `json:"ipPrefixLen"`
	IPv6Address string   `json:"ipv6Address"`
	MacAddress  string   `json:"macAddress"`
	Aliases     []string `json:"aliases"`
}

// CreateContainerRequest describes a container to create.
type CreateContainerRequest struct {
	Name          string            `json:"name"`
	Image         string            `json:"image"`
	Cmd           []string          `json:"cmd"`
	Env           []string          `json:"env"`
	WorkingDir    string            `json:"workingDir"`
	Labels        map[string]string `json:"labels"`
	Ports         []string          `json:"ports"` // "8080:80/tcp", "127.0.0.1::53/udp", "9000"
	Binds         []string          `json:"binds"`
	NetworkMode   string            `json:"networkMode"`
	RestartPolicy string            `json:"restartPolicy"`
	AutoRemove    bool              `json:"autoRemove"`
	Tty           bool              `json:"tty"`
}

// ContainerStats is one resource-usage sample plus derived figures.
type ContainerStats struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Read          string                  `json:"read"`
	PreRead       string                  `json:"preread"`
	NumProcs      uint32                  `json:"numProcs"`
	CPUPercent    float64                 `json:"cpuPercent"`
	OnlineCPUs    uint32                  `json:"onlineCpus"`
	MemoryUsage   uint64                  `json:"memoryUsage"`
	MemoryLimit   uint64                  `json:"memoryLimit"`
	MemoryPercent float64                 `json:"memoryPercent"`
	NetworkRx     uint64                  `json:"networkRx"`
	NetworkTx     uint64                  `json:"networkTx"`
	BlockRead     uint64                  `json:"blockRead"`
	BlockWrite    uint64                  `json:"blockWrite"`
	Pids          uint64                  `json:"pids"`
	Networks      map[string]NetworkUsage `json:"networks"`
	Display       StatsDisplay            `json:"display"`
}

// NetworkUsage is per-interface traffic of a container.
type NetworkUsage struct {
	RxBytes   uint64 `json:"rxBytes"`
	RxPackets uint64 `json:"rxPackets"`
	TxBytes   uint64 `json:"txBytes"`
	TxPackets uint64 `json:"txPackets"`
}

// StatsDisplay holds preformatted strings in the `docker stats` layout.
type StatsDisplay struct {
	CPUPerc  string `json:"cpuPerc"`
	MemPerc  string `json:"memPerc"`
	MemUsage string `json:"memUsage"`
	NetIO    string `json:"netIo"`
	BlockIO  string `json:"blockIo"`
}

// ProcessList is the output of `top` inside a container.
type ProcessList struct {
	Titles    []string   `json:"titles"`
	Processes [][]string `json:"processes"`
}

// LogOptions selects container log output.
type LogOptions struct {
	Follow bool
	Tail   string // line count or "all"; "" means 100
	Since  string // unix seconds; invalid or empty means unbounded
	Until  string
}

// LogEntry is one line of container output.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Stream    string `json:"stream"` // stdout or stderr
	Content   string `json:"content"`
}

// --- Images ---

// ImageListItem is one row of an image listing.
type ImageListItem struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parentId"`
	RepoTags    []string          `json:"repoTags"`
	RepoDigests []string          `json:"repoDigests"`
	Created     int64             `json:"created"`
	Size        int64             `json:"size"`
	SharedSize  int64             `json:"sharedSize"`
	Labels      map[string]string `json:"labels"`
	Containers  int64             `json:"containers"`
	Dangling    bool              `json:"dangling"`
}

// ImageDetails is the single-image inspect record.
type ImageDetails struct {
	ID            string            `json:"id"`
	RepoTags      []string          `json:"repoTags"`
	RepoDigests   []string          `json:"repoDigests"`
	Parent        string            `json:"parent"`
	Comment       string            `json:"comment"`
	Created       string            `json:"created"`
	DockerVersion string            `json:"dockerVersion"`
	Author        string            `json:"author"`
	Config        ImageConfig       `json:"config"`
	Architecture  string            `json:"architecture"`
	Variant       string            `json:"variant"`
	Os            string            `json:"os"`
	Size          int64             `json:"size"`
	SizeHuman     string            `json:"sizeHuman"`
	GraphDriver   GraphDriver       `json:"graphDriver"`
	RootFS        RootFS            `json:"rootFs"`
	LastTagTime   string            `json:"lastTagTime"`
	Labels        map[string]string `json:"labels"`
}

// ImageConfig is the runtime configuration baked into an image.
type ImageConfig struct {
	User         string   `json:"user"`
	Env          []string `json:"env"`
	Cmd          []string `json:"cmd"`
	Entrypoint   []string `json:"entrypoint"`
	WorkingDir   string   `json:"workingDir"`
	ExposedPorts []string `json:"exposedPorts"`
	Volumes      []string `json:"volumes"`
	StopSignal   string   `json:"stopSignal"`
}

// GraphDriver names the storage driver and its data.
type GraphDriver struct {
	Name string            `json:"name"`
	Data map[string]string `json:"data"`
}

// RootFS lists the layers of an image.
type RootFS struct {
	Type   string   `json:"type"`
	Layers []string `json:"layers"`
}

// ImageDeleteItem is one untag or delete performed by an image removal.
type ImageDeleteItem struct {
	Untagged string `json:"untagged"`
	Deleted  string `json:"deleted"`
}

// PullResult reports a completed pull.
type PullResult struct {
	Image  string `json:"image"`
	Digest string `json:"digest"`
	Status string `json:"status"`
}

// --- Networks ---

// NetworkSummary is one row of a network listing.
type NetworkSummary struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	Scope      string            `json:"scope"`
	Created    string            `json:"created"`
	Internal   bool              `json:"internal"`
	Attachable bool              `json:"attachable"`
	Ingress    bool              `json:"ingress"`
	EnableIPv6 bool              `json:"enableIpv6"`
	IPAM       NetworkIPAM       `json:"ipam"`
	Containers int               `json:"containers"`
	Labels     map[string]string `json:"labels"`
	Options    map[string]string `json:"options"`
}

// NetworkIPAM is the address management block of a network.
type NetworkIPAM struct {
	Driver string              `json:"driver"`
	Config []NetworkIPAMConfig `json:"config"`
}

// NetworkIPAMConfig is one subnet of a network.
type NetworkIPAMConfig struct {
	Subnet  string `json:"subnet"`
	Gateway string `json:"gateway"`
	IPRange string `json:"ipRange"`
}

// NetworkDetails is the single-network inspect record.
type NetworkDetails struct {
	NetworkSummary
	Endpoints []NetworkEndpoint `json:"endpoints"`
}

// NetworkEndpoint is a container attached to a network.
type NetworkEndpoint struct {
	ContainerID string `json:"containerId"`
	Name        string `json:"name"`
	EndpointID  string `json:"endpointId"`
	MacAddress  string `json:"macAddress"`
	IPv4Address string `json:"ipv4Address"`
	IPv6Address string `json:"ipv6Address"`
}

// CreateNetworkRequest describes a network to create.
type CreateNetworkRequest struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	Internal   bool              `json:"internal"`
	Attachable bool              `json:"attachable"`
	EnableIPv6 bool              `json:"enableIpv6"`
	Subnet     string            `json:"subnet"`
	Gateway    string            `json:"gateway"`
	Labels     map[string]string `json:"labels"`
	Options    map[string]string `json:"options"`
}

// --- Volumes ---

// VolumeSummary describes one volume. Listing and inspect share the shape.
type VolumeSummary struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	Mountpoint string            `json:"mountpoint"`
	CreatedAt  string            `json:"createdAt"`
	Scope      string            `json:"scope"`
	Labels     map[string]string `json:"labels"`
	Options    map[string]string `json:"options"`
	Status     map[string]string `json:"status"`
	Size       int64             `json:"size"`     // -1 when the daemon did not compute usage
	RefCount   int64             `json:"refCount"` // -1 when the daemon did not compute usage
}

// VolumeDetails is the single-volume inspect record.
type VolumeDetails = VolumeSummary

// CreateVolumeRequest describes a volume to create.
type CreateVolumeRequest struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver"`
	DriverOpts map[string]string `json:"driverOpts"`
	Labels     map[string]string `json:"labels"`
}

// PruneReport summarises a prune of images, networks or volumes.
type PruneReport struct {
	Deleted             []string `json:"deleted"`
	SpaceReclaimed      uint64   `json:"spaceReclaimed"`
	SpaceReclaimedHuman string   `json:"spaceReclaimedHuman"`
}

// --- System ---

// VersionInfo is the daemon's version report.
type VersionInfo struct {
	Platform      string             `json:"platform"`
	Version       string             `json:"version"`
	APIVersion    string             `json:"apiVersion"`
	MinAPIVersion string             `json:"minApiVersion"`
	GitCommit     string             `json:"gitCommit"`
	GoVersion     string             `json:"goVersion"`
	Os            string             `json:"os"`
	Arch          string             `json:"arch"`
	KernelVersion string             `json:"kernelVersion"`
	BuildTime     string             `json:"buildTime"`
	Components    []VersionComponent `json:"components"`
}

// VersionComponent is one engine component (containerd, runc, ...).
type VersionComponent struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DaemonInfo is the daemon's `info` report.
type DaemonInfo struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	ServerVersion      string             `json:"serverVersion"`
	Containers         int                `json:"containers"`
	ContainersRunning  int                `json:"containersRunning"`
	ContainersPaused   int                `json:"containersPaused"`
	ContainersStopped  int                `json:"containersStopped"`
	Images             int                `json:"images"`
	Driver             string             `json:"driver"`
	DriverStatus       [][2]string        `json:"driverStatus"`
	Plugins            DaemonPlugins      `json:"plugins"`
	MemoryLimit        bool               `json:"memoryLimit"`
	SwapLimit          bool               `json:"swapLimit"`
	CPUCfsPeriod       bool               `json:"cpuCfsPeriod"`
	CPUCfsQuota        bool               `json:"cpuCfsQuota"`
	CPUShares          bool               `json:"cpuShares"`
	CPUSet             bool               `json:"cpuSet"`
	PidsLimit          bool               `json:"pidsLimit"`
	IPv4Forwarding     bool               `json:"ipv4Forwarding"`
	Debug              bool               `json:"debug"`
	NFd                int                `json:"nfd"`
	OomKillDisable     bool               `json:"oomKillDisable"`
	NGoroutines        int                `json:"ngoroutines"`
	SystemTime         string             `json:"systemTime"`
	LoggingDriver      string             `json:"loggingDriver"`
	CgroupDriver       string             `json:"cgroupDriver"`
	NEventsListener    int                `json:"neventsListener"`
	KernelVersion      string             `json:"kernelVersion"`
	OperatingSystem    string             `json:"operatingSystem"`
	OSType             string             `json:"osType"`
	Architecture       string             `json:"architecture"`
	NCPU               int                `json:"ncpu"`
	MemTotal           int64              `json:"memTotal"`
	DockerRootDir      string             `json:"dockerRootDir"`
	HTTPProxy          string             `json:"httpProxy"`
	HTTPSProxy         string             `json:"httpsProxy"`
	NoProxy            string             `json:"noProxy"`
	Labels             []string           `json:"labels"`
	ExperimentalBuild  bool               `json:"experimentalBuild"`
	Runtimes           map[string]Runtime `json:"runtimes"`
	DefaultRuntime     string             `json:"defaultRuntime"`
	Swarm              SwarmInfo          `json:"swarm"`
	LiveRestoreEnabled bool               `json:"liveRestoreEnabled"`
	Isolation          string             `json:"isolation"`
	InitBinary         string             `json:"initBinary"`
	ContainerdCommit   string             `json:"containerdCommit"`
	RuncCommit         string             `json:"runcCommit"`
	InitCommit         string             `json:"initCommit"`
	SecurityOptions    []string           `json:"securityOptions"`
}

// DaemonPlugins lists the plugins known to the daemon.
type DaemonPlugins struct {
	Volume        []string `json:"volume"`
	Network       []string `json:"network"`
	Authorization []string `json:"authorization"`
	Log           []string `json:"log"`
}

// Runtime is one OCI runtime configured on the daemon.
type Runtime struct {
	Path string   `json:"path"`
	Args []string `json:"runtimeArgs"`
}

// SwarmInfo is the daemon's swarm membership.
type SwarmInfo struct {
	NodeID           string      `json:"nodeId"`
	NodeAddr         string      `json:"nodeAddr"`
	LocalNodeState   string      `json:"localNodeState"`
	ControlAvailable bool        `json:"controlAvailable"`
	Error            string      `json:"error"`
	RemoteManagers   []SwarmPeer `json:"remoteManagers"`
}

// SwarmPeer is a swarm manager node.
type SwarmPeer struct {
	NodeID string `json:"nodeId"`
	Addr   string `json:"addr"`
}

// SystemInfo combines version and info.
type SystemInfo struct {
	Version VersionInfo `json:"version"`
	Info    DaemonInfo  `json:"info"`
}

// SystemStats is the dashboard summary.
type SystemStats struct {
	ContainersTotal   int `json:"containersTotal"`
	ContainersRunning int `json:"containersRunning"`
	ContainersStopped int `json:"containersStopped"`
	ContainersPaused  int `json:"containersPaused"`
	ImagesTotal       int `json:"imagesTotal"`
	VolumesTotal      int `json:"volumesTotal"`
	NetworksTotal     int `json:"networksTotal"`
}
