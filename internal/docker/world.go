package docker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"
)

// worldEpoch is the creation time of everything seeded into a World.
var worldEpoch = time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)

const anonymousVolumeLabel = "com.docker.volume.anonymous"

// World is the in-memory daemon state served by FakeDaemon. Collections keep
// insertion order, which is the order listings report.
type World struct {
	mu         sync.Mutex
	containers []*LiveContainer
	images     []*LiveImage
	networks   []*LiveNetwork
	volumes    []*LiveVolume
	seq        int

	emptyStats      bool
	lastStopTimeout *int
	lastKillSignal  string
}

// LiveContainer is one container in the world.
type LiveContainer struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Image         string            `yaml:"image"`
	Cmd           []string          `yaml:"cmd"`
	Env           []string          `yaml:"env"`
	WorkingDir    string            `yaml:"workingDir"`
	Labels        map[string]string `yaml:"labels"`
	State         string            `yaml:"state"` // created, running, paused, exited
	ExitCode      int               `yaml:"exitCode"`
	Tty           bool              `yaml:"tty"`
	Ports         []string          `yaml:"ports"`
	Binds         []string          `yaml:"binds"`
	Networks      []string          `yaml:"networks"`
	RestartPolicy string            `yaml:"restartPolicy"`
	AutoRemove    bool              `yaml:"autoRemove"`
	LogLines      []string          `yaml:"logs"`
	StderrEvery   int               `yaml:"stderrEvery"` // every Nth log line is written to stderr

	ImageID    string      `yaml:"-"`
	Created    time.Time   `yaml:"-"`
	StartedAt  time.Time   `yaml:"-"`
	FinishedAt time.Time   `yaml:"-"`
	Pid        int         `yaml:"-"`
	exposed    nat.PortSet `yaml:"-"`
	bindings   nat.PortMap `yaml:"-"`
}

func (c *LiveContainer) running() bool { return c.State == "running" || c.State == "paused" }

// LiveImage is one image in the world.
type LiveImage struct {
	ID           string            `yaml:"id"`
	Tags         []string          `yaml:"tags"`
	Size         int64             `yaml:"size"`
	Labels       map[string]string `yaml:"labels"`
	Env          []string          `yaml:"env"`
	Cmd          []string          `yaml:"cmd"`
	ExposedPorts []string          `yaml:"exposedPorts"`
	Architecture string            `yaml:"architecture"`

	Digest  string    `yaml:"-"`
	Created time.Time `yaml:"-"`
}

// LiveNetwork is one network in the world.
type LiveNetwork struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Driver     string            `yaml:"driver"`
	Scope      string            `yaml:"scope"`
	Internal   bool              `yaml:"internal"`
	Attachable bool              `yaml:"attachable"`
	EnableIPv6 bool              `yaml:"enableIpv6"`
	Subnet     string            `yaml:"subnet"`
	Gateway    string            `yaml:"gateway"`
	Labels     map[string]string `yaml:"labels"`
	Options    map[string]string `yaml:"options"`

	Predefined bool      `yaml:"-"`
	Created    time.Time `yaml:"-"`
}

// LiveVolume is one volume in the world.
type LiveVolume struct {
	Name    string            `yaml:"name"`
	Driver  string            `yaml:"driver"`
	Labels  map[string]string `yaml:"labels"`
	Options map[string]string `yaml:"options"`
	Size    int64             `yaml:"size"`

	Created time.Time `yaml:"-"`
}

func (v *LiveVolume) mountpoint() string {
	return "/var/lib/docker/volumes/" + v.Name + "/_data"
}

// WorldSeed is the YAML layout accepted by LoadWorld.
type WorldSeed struct {
	Images     []LiveImage     `yaml:"images"`
	Networks   []LiveNetwork   `yaml:"networks"`
	Volumes    []LiveVolume    `yaml:"volumes"`
	Containers []LiveContainer `yaml:"containers"`
}

// apiError is a daemon-side failure rendered as {"message": ...}.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func notFoundf(format string, args ...any) *apiError {
	return &apiError{status: http.StatusNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) *apiError {
	return &apiError{status: http.StatusConflict, msg: fmt.Sprintf(format, args...)}
}

func badRequestf(format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func fakeID(kind, name string) string {
	sum := sha256.Sum256([]byte(kind + "/" + name))
	return hex.EncodeToString(sum[:])
}

// familiarTag normalizes an image reference to "name:tag" form. Unparseable
// input is returned unchanged.
func familiarTag(ref string) string {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ref
	}
	return reference.FamiliarString(reference.TagNameOnly(named))
}

// NewWorld builds a world from seed. The predefined bridge, host and none
// networks always exist; images named by containers are added if missing.
func NewWorld(seed WorldSeed) (*World, error) {
	w := &World{}

	for _, n := range []LiveNetwork{
		{Name: "bridge", Driver: "bridge", Subnet: "172.17.0.0/16", Gateway: "172.17.0.1"},
		{Name: "host", Driver: "host"},
		{Name: "none", Driver: "null"},
	} {
		n.Predefined = true
		w.addNetworkLocked(n)
	}
	for _, n := range seed.Networks {
		if w.findNetworkLocked(n.Name) != nil {
			return nil, fmt.Errorf("seed: duplicate network %q", n.Name)
		}
		w.addNetworkLocked(n)
	}
	for _, img := range seed.Images {
		w.addImageLocked(img)
	}
	for _, v := range seed.Volumes {
		if w.findVolumeLocked(v.Name) != nil {
			return nil, fmt.Errorf("seed: duplicate volume %q", v.Name)
		}
		w.addVolumeLocked(v)
	}
	for _, c := range seed.Containers {
		if _, err := w.addContainerLocked(c); err != nil {
			return nil, fmt.Errorf("seed container %q: %w", c.Name, err)
		}
	}
	return w, nil
}

// LoadWorld reads a YAML seed file.
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed WorldSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewWorld(seed)
}

// DefaultWorld is a small environment with every container state and a
// dangling image.
func DefaultWorld() *World {
	w, err := NewWorld(WorldSeed{
		Images: []LiveImage{
			{Tags: []string{"nginx:latest", "nginx:1.27"}, Size: 192_000_000, Cmd: []string{"nginx", "-g", "daemon off;"}, ExposedPorts: []string{"80/tcp"}},
			{Tags: []string{"redis:7-alpine"}, Size: 41_000_000, Cmd: []string{"redis-server"}, ExposedPorts: []string{"6379/tcp"}},
			{Tags: []string{"postgres:16"}, Size: 438_000_000, Cmd: []string{"postgres"}, ExposedPorts: []string{"5432/tcp"}, Env: []string{"PGDATA=/var/lib/postgresql/data"}},
			{Tags: []string{"busybox:latest"}, Size: 4_300_000, Cmd: []string{"sh"}},
			{ID: fakeID("image", "dangling"), Size: 12_000_000},
		},
		Networks: []LiveNetwork{
			{Name: "app-net", Driver: "bridge", Subnet: "172.20.0.0/16", Gateway: "172.20.0.1", Labels: map[string]string{"project": "demo"}},
			{Name: "scratch-net", Driver: "bridge"},
		},
		Volumes: []LiveVolume{
			{Name: "pgdata", Size: 48_000_000},
			{Name: "cache-data"},
			{Name: fakeID("volume", "anon")[:32], Labels: map[string]string{anonymousVolumeLabel: ""}, Size: 1_048_576},
		},
		Containers: []LiveContainer{
			{
				Name: "web", Image: "nginx:latest", State: "running",
				Ports: []string{"8080:80/tcp"}, Networks: []string{"bridge", "app-net"},
				RestartPolicy: "unless-stopped",
				LogLines: []string{
					"/docker-entrypoint.sh: Configuration complete; ready for start up",
					`172.17.0.1 - - "GET / HTTP/1.1" 200 615`,
					`172.17.0.1 - - "GET /favicon.ico HTTP/1.1" 404 153`,
				},
			},
			{
				Name: "cache", Image: "redis:7-alpine", State: "running",
				Networks: []string{"app-net"}, Binds: []string{"cache-data:/data"},
				StderrEvery: 2,
				LogLines: []string{
					"Server initialized",
					"WARNING Memory overcommit must be enabled!",
					"Ready to accept connections tcp",
					"WARNING overcommit_memory is set to 0",
				},
			},
			{
				Name: "db", Image: "postgres:16", State: "exited", ExitCode: 0,
				Binds:    []string{"pgdata:/var/lib/postgresql/data"},
				LogLines: []string{"database system is shut down"},
			},
			{
				Name: "sidecar", Image: "busybox:latest", State: "paused",
				Cmd: []string{"sleep", "infinity"}, Tty: true,
				LogLines: []string{"sidecar up"},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return w
}

func (w *World) nextSeq() int {
	w.seq++
	return w.seq
}

func (w *World) addNetworkLocked(n LiveNetwork) *LiveNetwork {
	if n.ID == "" {
		n.ID = fakeID("network", n.Name)
	}
	if n.Driver == "" {
		n.Driver = "bridge"
	}
	if n.Scope == "" {
		n.Scope = "local"
	}
	if n.Driver == "bridge" && n.Subnet == "" {
		octet := 18 + len(w.networks)
		n.Subnet = fmt.Sprintf("172.%d.0.0/16", octet)
		n.Gateway = fmt.Sprintf("172.%d.0.1", octet)
	}
	n.Labels = nonNilMap(n.Labels)
	n.Options = nonNilMap(n.Options)
	n.Created = worldEpoch.Add(time.Duration(w.nextSeq()) * time.Minute)
	net := &n
	w.networks = append(w.networks, net)
	return net
}

func (w *World) addImageLocked(img LiveImage) *LiveImage {
	for i, t := range img.Tags {
		img.Tags[i] = familiarTag(t)
	}
	if img.ID == "" {
		key := strings.Join(img.Tags, ",")
		if key == "" {
			key = strconv.Itoa(w.seq)
		}
		img.ID = fakeID("image", key)
	}
	img.ID = strings.TrimPrefix(img.ID, "sha256:")
	if img.Architecture == "" {
		img.Architecture = "amd64"
	}
	img.Digest = "sha256:" + fakeID("digest", img.ID)
	img.Labels = nonNilMap(img.Labels)
	img.Created = worldEpoch.Add(time.Duration(w.nextSeq()) * time.Minute)
	p := &img
	w.images = append(w.images, p)
	return p
}

func (w *World) addVolumeLocked(v LiveVolume) *LiveVolume {
	if v.Driver == "" {
		v.Driver = "local"
	}
	v.Labels = nonNilMap(v.Labels)
	v.Options = nonNilMap(v.Options)
	v.Created = worldEpoch.Add(time.Duration(w.nextSeq()) * time.Minute)
	p := &v
	w.volumes = append(w.volumes, p)
	return p
}

// addContainerLocked resolves the image, networks and volumes of c and
// appends it.
func (w *World) addContainerLocked(c LiveContainer) (*LiveContainer, *apiError) {
	c.Name = strings.TrimPrefix(c.Name, "/")
	if c.Name == "" {
		c.Name = "fake_" + strconv.Itoa(w.seq+1)
	}
	if w.findContainerLocked(c.Name) != nil {
		return nil, conflictf(`Conflict. The container name "/%s" is already in use`, c.Name)
	}

	img := w.findImageLocked(c.Image)
	if img == nil {
		img = w.addImageLocked(LiveImage{Tags: []string{c.Image}, Size: 10_000_000})
	}
	c.ImageID = "sha256:" + img.ID
	if len(c.Cmd) == 0 {
		c.Cmd = append([]string(nil), img.Cmd...)
	}
	if len(c.Env) == 0 {
		c.Env = append([]string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}, img.Env...)
	}

	if c.exposed == nil {
		exposed, bindings, err := nat.ParsePortSpecs(c.Ports)
		if err != nil {
			return nil, badRequestf("invalid port spec: %v", err)
		}
		c.exposed, c.bindings = exposed, bindings
	}

	if len(c.Networks) == 0 {
		c.Networks = []string{"bridge"}
	}
	for i, name := range c.Networks {
		n := w.findNetworkLocked(name)
		if n == nil {
			return nil, notFoundf("network %s not found", name)
		}
		c.Networks[i] = n.Name
	}

	for _, b := range c.Binds {
		src, _, _ := strings.Cut(b, ":")
		if src != "" && !strings.HasPrefix(src, "/") && w.findVolumeLocked(src) == nil {
			w.addVolumeLocked(LiveVolume{Name: src})
		}
	}

	if c.ID == "" {
		c.ID = fakeID("container", c.Name+"#"+strconv.Itoa(w.seq))
	}
	if c.State == "" {
		c.State = "created"
	}
	c.Labels = nonNilMap(c.Labels)
	c.Created = worldEpoch.Add(time.Duration(w.nextSeq()) * time.Minute)
	if c.running() {
		c.StartedAt = c.Created.Add(time.Second)
		c.Pid = 1000 + w.seq
	}
	if c.State == "exited" {
		c.StartedAt = c.Created.Add(time.Second)
		c.FinishedAt = c.Created.Add(time.Hour)
	}

	p := &c
	w.containers = append(w.containers, p)
	return p, nil
}

// AddContainer inserts c, resolving its image and networks like a seed entry.
func (w *World) AddContainer(c LiveContainer) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	added, err := w.addContainerLocked(c)
	if err != nil {
		return "", err
	}
	return added.ID, nil
}

// Container returns a copy of the container matching ref.
func (w *World) Container(ref string) (LiveContainer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.findContainerLocked(ref)
	if c == nil {
		return LiveContainer{}, false
	}
	return *c, true
}

// SetEmptyStats makes the stats endpoint answer with an empty body.
func (w *World) SetEmptyStats(v bool) {
	w.mu.Lock()
	w.emptyStats = v
	w.mu.Unlock()
}

// LastStopTimeout is the t parameter of the most recent stop or restart;
// nil when none carried one.
func (w *World) LastStopTimeout() *int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastStopTimeout
}

// LastKillSignal is the signal of the most recent kill.
func (w *World) LastKillSignal() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastKillSignal
}

// --- lookups (w.mu held) ---

// findContainerLocked matches full id, then name, then a unique id prefix.
func (w *World) findContainerLocked(ref string) *LiveContainer {
	ref = strings.TrimPrefix(ref, "/")
	if ref == "" {
		return nil
	}
	for _, c := range w.containers {
		if c.ID == ref {
			return c
		}
	}
	for _, c := range w.containers {
		if c.Name == ref {
			return c
		}
	}
	var match *LiveContainer
	for _, c := range w.containers {
		if strings.HasPrefix(c.ID, ref) {
			if match != nil {
				return nil
			}
			match = c
		}
	}
	return match
}

func (w *World) findImageLocked(ref string) *LiveImage {
	if ref == "" {
		return nil
	}
	id := strings.TrimPrefix(ref, "sha256:")
	for _, img := range w.images {
		if img.ID == id {
			return img
		}
	}
	tag := familiarTag(ref)
	for _, img := range w.images {
		for _, t := range img.Tags {
			if t == tag {
				return img
			}
		}
	}
	var match *LiveImage
	for _, img := range w.images {
		if len(id) >= 4 && strings.HasPrefix(img.ID, id) {
			if match != nil {
				return nil
			}
			match = img
		}
	}
	return match
}

func (w *World) findNetworkLocked(ref string) *LiveNetwork {
	if ref == "" {
		return nil
	}
	for _, n := range w.networks {
		if n.ID == ref {
			return n
		}
	}
	for _, n := range w.networks {
		if n.Name == ref {
			return n
		}
	}
	var match *LiveNetwork
	for _, n := range w.networks {
		if strings.HasPrefix(n.ID, ref) {
			if match != nil {
				return nil
			}
			match = n
		}
	}
	return match
}

func (w *World) findVolumeLocked(name string) *LiveVolume {
	for _, v := range w.volumes {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (w *World) networkIndexLocked(n *LiveNetwork) int {
	for i, x := range w.networks {
		if x == n {
			return i
		}
	}
	return -1
}

func (w *World) containerIndexLocked(c *LiveContainer) int {
	for i, x := range w.containers {
		if x == c {
			return i
		}
	}
	return -1
}

// containersOnLocked lists containers attached to network n.
func (w *World) containersOnLocked(n *LiveNetwork) []*LiveContainer {
	var out []*LiveContainer
	for _, c := range w.containers {
		for _, name := range c.Networks {
			if name == n.Name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// volumeUsersLocked lists the ids of containers that mount volume name.
func (w *World) volumeUsersLocked(name string) []string {
	var ids []string
	for _, c := range w.containers {
		for _, b := range c.Binds {
			if src, _, _ := strings.Cut(b, ":"); src == name {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids
}

func (w *World) imageUsersLocked(img *LiveImage) []*LiveContainer {
	var out []*LiveContainer
	for _, c := range w.containers {
		if c.ImageID == "sha256:"+img.ID {
			out = append(out, c)
		}
	}
	return out
}

// endpointAddrLocked is the deterministic address of c on network n.
func (w *World) endpointAddrLocked(n *LiveNetwork, c *LiveContainer) (ip, gateway string, prefix int) {
	if n.Subnet == "" {
		return "", "", 0
	}
	base, _, _ := strings.Cut(n.Subnet, "/")
	octets := strings.Split(base, ".")
	if len(octets) != 4 {
		return "", "", 0
	}
	ip = fmt.Sprintf("%s.%s.0.%d", octets[0], octets[1], 2+w.containerIndexLocked(c))
	return ip, n.Gateway, 16
}

func macFor(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ""
	}
	b := make([]string, 0, 6)
	b = append(b, "02", "42")
	for _, p := range parts {
		n, _ := strconv.Atoi(p)
		b = append(b, fmt.Sprintf("%02x", n))
	}
	return strings.Join(b, ":")
}

// --- container mutations ---

func (w *World) createContainer(c LiveContainer) (string, *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.findImageLocked(c.Image) == nil {
		return "", notFoundf("No such image: %s", c.Image)
	}
	for _, name := range c.Networks {
		if w.findNetworkLocked(name) == nil {
			return "", notFoundf("network %s not found", name)
		}
	}
	c.State = "created"
	added, err := w.addContainerLocked(c)
	if err != nil {
		return "", err
	}
	return added.ID, nil
}

func (w *World) containerLocked(ref string) (*LiveContainer, *apiError) {
	c := w.findContainerLocked(ref)
	if c == nil {
		return nil, notFoundf("No such container: %s", ref)
	}
	return c, nil
}

func (w *World) startContainer(ref string) (changed bool, _ *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.containerLocked(ref)
	if err != nil {
		return false, err
	}
	switch c.State {
	case "running":
		return false, nil
	case "paused":
		return false, conflictf("cannot start a paused container, try unpause instead")
	}
	c.State = "running"
	c.ExitCode = 0
	c.StartedAt = time.Now().UTC()
	c.Pid = 1000 + w.nextSeq()
	return true, nil
}

func (w *World) stopContainer(ref string, timeout *int, restart bool) (changed bool, _ *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastStopTimeout = timeout
	c, err := w.containerLocked(ref)
	if err != nil {
		return false, err
	}
	if restart {
		c.State = "running"
		c.ExitCode = 0
		c.StartedAt = time.Now().UTC()
		c.Pid = 1000 + w.nextSeq()
		return true, nil
	}
	if !c.running() {
		return false, nil
	}
	c.State = "exited"
	c.ExitCode = 0
	c.Pid = 0
	c.FinishedAt = time.Now().UTC()
	return true, nil
}

func (w *World) killContainer(ref, signal string) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastKillSignal = signal
	c, err := w.containerLocked(ref)
	if err != nil {
		return err
	}
	if !c.running() {
		return conflictf("cannot kill container: %s: container %s is not running", ref, c.ID)
	}
	c.State = "exited"
	c.ExitCode = 137
	c.Pid = 0
	c.FinishedAt = time.Now().UTC()
	return nil
}

func (w *World) pauseContainer(ref string, pause bool) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.containerLocked(ref)
	if err != nil {
		return err
	}
	switch {
	case pause && c.State != "running":
		if c.State == "paused" {
			return conflictf("container %s is already paused", c.ID)
		}
		return conflictf("container %s is not running", c.ID)
	case !pause && c.State != "paused":
		return conflictf("container %s is not paused", c.ID)
	}
	if pause {
		c.State = "paused"
	} else {
		c.State = "running"
	}
	return nil
}

func (w *World) renameContainer(ref, name string) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.containerLocked(ref)
	if err != nil {
		return err
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return badRequestf("Neither old nor new names may be empty")
	}
	if other := w.findContainerLocked(name); other != nil && other != c && other.Name == name {
		return conflictf(`Conflict. The container name "/%s" is already in use by container %q`, name, other.ID)
	}
	c.Name = name
	return nil
}

func (w *World) removeContainer(ref string, force, removeVolumes bool) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, err := w.containerLocked(ref)
	if err != nil {
		return err
	}
	if c.running() && !force {
		return conflictf(`cannot remove container "/%s": container is running: stop the container before removing or force remove`, c.Name)
	}
	w.containers = removeItem(w.containers, c)

	if removeVolumes {
		for _, b := range c.Binds {
			src, _, _ := strings.Cut(b, ":")
			v := w.findVolumeLocked(src)
			if v == nil {
				continue
			}
			if _, anon := v.Labels[anonymousVolumeLabel]; anon && len(w.volumeUsersLocked(v.Name)) == 0 {
				w.volumes = removeItem(w.volumes, v)
			}
		}
	}
	return nil
}

func removeItem[T comparable](s []T, item T) []T {
	out := s[:0]
	for _, x := range s {
		if x != item {
			out = append(out, x)
		}
	}
	return out
}

// --- image mutations ---

type imageDelete struct {
	Untagged string `json:"Untagged,omitempty"`
	Deleted  string `json:"Deleted,omitempty"`
}

func (w *World) removeImage(ref string, force bool) ([]imageDelete, *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	img := w.findImageLocked(ref)
	if img == nil {
		return nil, notFoundf("No such image: %s", ref)
	}

	tag := familiarTag(ref)
	byTag := false
	for _, t := range img.Tags {
		if t == tag {
			byTag = true
		}
	}

	if byTag && len(img.Tags) > 1 {
		img.Tags = removeItem(img.Tags, tag)
		return []imageDelete{{Untagged: tag}}, nil
	}
	if !byTag && len(img.Tags) > 1 && !force {
		return nil, conflictf("conflict: unable to delete %s (must be forced) - image is referenced in multiple repositories", shortID(img.ID))
	}

	if users := w.imageUsersLocked(img); len(users) > 0 && !force {
		return nil, conflictf("conflict: unable to delete %s (must be forced) - image is being used by container %s", shortID(img.ID), shortID(users[0].ID))
	}

	out := make([]imageDelete, 0, len(img.Tags)+1)
	for _, t := range img.Tags {
		out = append(out, imageDelete{Untagged: t})
	}
	out = append(out, imageDelete{Deleted: "sha256:" + img.ID})
	w.images = removeItem(w.images, img)
	return out, nil
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// pullImage adds ref (familiar name:tag) unless present. Repositories whose
// name starts with "nonexistent" fail like a registry miss.
func (w *World) pullImage(ref string) (img LiveImage, existed bool, _ *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	repo, _, _ := strings.Cut(ref, ":")
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repo = repo[i+1:]
	}
	if strings.HasPrefix(repo, "nonexistent") {
		return LiveImage{}, false, notFoundf("pull access denied for %s, repository does not exist or may require 'docker login'", strings.Split(ref, ":")[0])
	}

	if found := w.findImageLocked(ref); found != nil {
		return *found, true, nil
	}
	added := w.addImageLocked(LiveImage{Tags: []string{ref}, Size: 25_000_000})
	return *added, false, nil
}

func (w *World) pruneImages(danglingOnly bool) ([]imageDelete, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var deleted []imageDelete
	var reclaimed uint64
	keep := w.images[:0]
	for _, img := range w.images {
		unused := len(w.imageUsersLocked(img)) == 0
		dangling := len(img.Tags) == 0
		if unused && (dangling || !danglingOnly) {
			for _, t := range img.Tags {
				deleted = append(deleted, imageDelete{Untagged: t})
			}
			deleted = append(deleted, imageDelete{Deleted: "sha256:" + img.ID})
			reclaimed += uint64(img.Size)
			continue
		}
		keep = append(keep, img)
	}
	w.images = keep
	return deleted, reclaimed
}

// --- network mutations ---

type networkCreate struct {
	Name       string            `json:"Name"`
	Driver     string            `json:"Driver"`
	Internal   bool              `json:"Internal"`
	Attachable bool              `json:"Attachable"`
	EnableIPv6 *bool             `json:"EnableIPv6"`
	Labels     map[string]string `json:"Labels"`
	Options    map[string]string `json:"Options"`
	IPAM       *struct {
		Config []struct {
			Subnet  string `json:"Subnet"`
			Gateway string `json:"Gateway"`
		} `json:"Config"`
	} `json:"IPAM"`
}

func (w *World) createNetwork(req networkCreate) (string, *apiError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if req.Name == "" {
		return "", badRequestf("network name is required")
	}
	for _, n := range w.networks {
		if n.Name == req.Name {
			return "", conflictf("network with name %s already exists", req.Name)
		}
	}
	n := LiveNetwork{
		Name:       req.Name,
		Driver:     req.Driver,
		Internal:   req.Internal,
		Attachable: req.Attachable,
		EnableIPv6: req.EnableIPv6 != nil && *req.EnableIPv6,
		Labels:     req.Labels,
		Options:    req.Options,
	}
	if req.IPAM != nil && len(req.IPAM.Config) > 0 {
		n.Subnet = req.IPAM.Config[0].Subnet
		n.Gateway = req.IPAM.Config[0].Gateway
	}
	added := w.addNetworkLocked(n)
	return added.ID, nil
}

func (w *World) removeNetwork(ref string) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.findNetworkLocked(ref)
	if n == nil {
		return notFoundf("network %s not found", ref)
	}
	if n.Predefined {
		return &apiError{status: http.StatusForbidden, msg: n.Name + " is a pre-defined network and cannot be removed"}
	}
	if len(w.containersOnLocked(n)) > 0 {
		return conflictf("error while removing network: network %s id %s has active endpoints", n.Name, n.ID)
	}
	w.networks = removeItem(w.networks, n)
	return nil
}

func (w *World) pruneNetworks() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	deleted := make([]string, 0)
	keep := w.networks[:0]
	for _, n := range w.networks {
		if !n.Predefined && len(w.containersOnLocked(n)) == 0 {
			deleted = append(deleted, n.Name)
			continue
		}
		keep = append(keep, n)
	}
	w.networks = keep
	return deleted
}

func (w *World) connectNetwork(netRef, ctrRef string, connect, force bool) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.findNetworkLocked(netRef)
	if n == nil {
		return notFoundf("network %s not found", netRef)
	}
	c := w.findContainerLocked(ctrRef)
	if c == nil {
		return notFoundf("No such container: %s", ctrRef)
	}

	attached := false
	for _, name := range c.Networks {
		if name == n.Name {
			attached = true
		}
	}
	switch {
	case connect && attached:
		return &apiError{status: http.StatusForbidden, msg: fmt.Sprintf("endpoint with name %s already exists in network %s", c.Name, n.Name)}
	case connect:
		c.Networks = append(c.Networks, n.Name)
	case !attached && !force:
		return &apiError{status: http.StatusForbidden, msg: fmt.Sprintf("container %s is not connected to network %s", c.ID, n.Name)}
	default:
		c.Networks = removeItem(c.Networks, n.Name)
	}
	return nil
}

// --- volume mutations ---

type volumeCreate struct {
	Name       string            `json:"Name"`
	Driver     string            `json:"Driver"`
	DriverOpts map[string]string `json:"DriverOpts"`
	Labels     map[string]string `json:"Labels"`
}

func (w *World) createVolume(req volumeCreate) LiveVolume {
	w.mu.Lock()
	defer w.mu.Unlock()

	if req.Name != "" {
		if v := w.findVolumeLocked(req.Name); v != nil {
			return *v
		}
	}
	labels := req.Labels
	if req.Name == "" {
		req.Name = fakeID("volume", strconv.Itoa(w.seq))[:32]
		labels = nonNilMap(labels)
		labels[anonymousVolumeLabel] = ""
	}
	v := w.addVolumeLocked(LiveVolume{Name: req.Name, Driver: req.Driver, Options: req.DriverOpts, Labels: labels})
	return *v
}

func (w *World) removeVolume(name string, force bool) *apiError {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := w.findVolumeLocked(name)
	if v == nil {
		if force {
			return nil
		}
		return notFoundf("get %s: no such volume", name)
	}
	if users := w.volumeUsersLocked(name); len(users) > 0 {
		return conflictf("remove %s: volume is in use - [%s]", name, strings.Join(users, ", "))
	}
	w.volumes = removeItem(w.volumes, v)
	return nil
}

// pruneVolumes removes unused volumes; only anonymous ones unless all.
func (w *World) pruneVolumes(all bool) ([]string, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	deleted := make([]string, 0)
	var reclaimed uint64
	keep := w.volumes[:0]
	for _, v := range w.volumes {
		_, anon := v.Labels[anonymousVolumeLabel]
		if (anon || all) && len(w.volumeUsersLocked(v.Name)) == 0 {
			deleted = append(deleted, v.Name)
			reclaimed += uint64(v.Size)
			continue
		}
		keep = append(keep, v)
	}
	w.volumes = keep
	return deleted, reclaimed
}
