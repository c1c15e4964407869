package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

const (
	// DefaultStopTimeout is the grace period, in seconds, for stop and restart.
	DefaultStopTimeout = 10
	// DefaultKillSignal is sent by kill when the caller names no signal.
	DefaultKillSignal = "SIGKILL"
	// topArgs are the ps arguments used for the process listing.
	topArgs = "aux"
)

var restartPolicies = map[string]bool{
	"": true, "no": true, "always": true, "unless-stopped": true, "on-failure": true,
}

// ListContainers returns containers in daemon order. Stopped containers are
// included only when all is set.
func (s *Service) ListContainers(ctx context.Context, all, size bool) ([]ContainerListItem, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := cli.ContainerList(ctx, container.ListOptions{All: all, Size: size})
	if err != nil {
		return nil, Classify(err, ResourceContainer, "")
	}

	result := make([]ContainerListItem, 0, len(raw))
	for _, c := range raw {
		result = append(result, containerListItem(c))
	}
	return result, nil
}

func containerListItem(c container.Summary) ContainerListItem {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	ports := make([]ContainerPort, 0, len(c.Ports))
	for _, p := range c.Ports {
		port, _ := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
		ports = append(ports, ContainerPort{
			IP:          p.IP,
			PrivatePort: p.PrivatePort,
			PublicPort:  p.PublicPort,
			Type:        p.Type,
			Port:        string(port),
		})
	}

	networks := make([]string, 0)
	if c.NetworkSettings != nil {
		for n := range c.NetworkSettings.Networks {
			networks = append(networks, n)
		}
		sort.Strings(networks)
	}

	return ContainerListItem{
		ID:         c.ID,
		Names:      nonNilStrings(c.Names),
		Name:       name,
		Image:      c.Image,
		ImageID:    c.ImageID,
		Command:    c.Command,
		Created:    c.Created,
		State:      string(c.State),
		Status:     c.Status,
		Ports:      ports,
		Labels:     nonNilMap(c.Labels),
		Networks:   networks,
		SizeRw:     c.SizeRw,
		SizeRootFs: c.SizeRootFs,
	}
}

// ContainerDetails inspects one container, including its size.
func (s *Service) ContainerDetails(ctx context.Context, id string) (*ContainerDetails, error) {
	if err := requireID(ResourceContainer, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, _, err := cli.ContainerInspectWithRaw(ctx, id, true)
	if err != nil {
		return nil, Classify(err, ResourceContainer, id)
	}
	if raw.ContainerJSONBase == nil {
		return nil, &Error{Kind: KindSerialization, Resource: ResourceContainer, ID: id, Message: "inspect response has no container body"}
	}

	d := &ContainerDetails{
		ID:              raw.ID,
		Name:            strings.TrimPrefix(raw.Name, "/"),
		Created:         raw.Created,
		Path:            raw.Path,
		Args:            nonNilStrings(raw.Args),
		Image:           raw.Image,
		RestartCount:    raw.RestartCount,
		Driver:          raw.Driver,
		Platform:        raw.Platform,
		MountLabel:      raw.MountLabel,
		ProcessLabel:    raw.ProcessLabel,
		AppArmorProfile: raw.AppArmorProfile,
		ExecIDs:         nonNilStrings(raw.ExecIDs),
		SizeRw:          derefInt64(raw.SizeRw),
		SizeRootFs:      derefInt64(raw.SizeRootFs),
		State:           ContainerState{Status: "unknown"},
		Config: ContainerConfig{
			Env:          []string{},
			Cmd:          []string{},
			Entrypoint:   []string{},
			Labels:       map[string]string{},
			ExposedPorts: []string{},
		},
		HostConfig: ContainerHost{Binds: []string{}, PortBindings: []PortBinding{}},
		Mounts:     make([]MountPoint, 0, len(raw.Mounts)),
		Networks:   []EndpointInfo{},
		Ports:      []PortBinding{},
	}

	if st := raw.State; st != nil {
		d.State = ContainerState{
			Status:     string(st.Status),
			Running:    st.Running,
			Paused:     st.Paused,
			Restarting: st.Restarting,
			OOMKilled:  st.OOMKilled,
			Dead:       st.Dead,
			Pid:        st.Pid,
			ExitCode:   st.ExitCode,
			Error:      st.Error,
			StartedAt:  st.StartedAt,
			FinishedAt: st.FinishedAt,
		}
		if st.Health != nil {
			d.State.Health = string(st.Health.Status)
			d.State.FailingStreak = st.Health.FailingStreak
		}
	}

	if cfg := raw.Config; cfg != nil {
		exposed := make([]string, 0, len(cfg.ExposedPorts))
		for p := range cfg.ExposedPorts {
			exposed = append(exposed, string(p))
		}
		sort.Strings(exposed)
		d.Config = ContainerConfig{
			Image:        cfg.Image,
			Hostname:     cfg.Hostname,
			User:         cfg.User,
			Env:          nonNilStrings(cfg.Env),
			Cmd:          nonNilStrings(cfg.Cmd),
			Entrypoint:   nonNilStrings(cfg.Entrypoint),
			WorkingDir:   cfg.WorkingDir,
			Labels:       nonNilMap(cfg.Labels),
			ExposedPorts: exposed,
			Tty:          cfg.Tty,
		}
	}

	if hc := raw.HostConfig; hc != nil {
		d.HostConfig = ContainerHost{
			NetworkMode:       string(hc.NetworkMode),
			RestartPolicy:     string(hc.RestartPolicy.Name),
			MaximumRetryCount: hc.RestartPolicy.MaximumRetryCount,
			Privileged:        hc.Privileged,
			AutoRemove:        hc.AutoRemove,
			Binds:             nonNilStrings(hc.Binds),
			PortBindings:      portBindings(hc.PortBindings),
			Memory:            hc.Memory,
			NanoCPUs:          hc.NanoCPUs,
			CPUShares:         hc.CPUShares,
		}
	}

	for _, m := range raw.Mounts {
		d.Mounts = append(d.Mounts, MountPoint{
			Type:        string(m.Type),
			Name:        m.Name,
			Source:      m.Source,
			Destination: m.Destination,
			Driver:      m.Driver,
			Mode:        m.Mode,
			RW:          m.RW,
			Propagation: string(m.Propagation),
		})
	}

	if ns := raw.NetworkSettings; ns != nil {
		d.Ports = portBindings(ns.Ports)
		names := make([]string, 0, len(ns.Networks))
		for name := range ns.Networks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ep := ns.Networks[name]
			if ep == nil {
				continue
			}
			d.Networks = append(d.Networks, EndpointInfo{
				Network:     name,
				NetworkID:   ep.NetworkID,
				EndpointID:  ep.EndpointID,
				Gateway:     ep.Gateway,
				IPAddress:   ep.IPAddress,
				IPPrefixLen: ep.IPPrefixLen,
				IPv6Address: ep.GlobalIPv6Address,
				MacAddress:  ep.MacAddress,
				Aliases:     nonNilStrings(ep.Aliases),
			})
		}
	}

	return d, nil
}

// portBindings flattens a port map in port order. Exposed ports without a
// host binding appear once with empty host fields.
func portBindings(pm nat.PortMap) []PortBinding {
	ports := make([]nat.Port, 0, len(pm))
	for p := range pm {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Int() != ports[j].Int() {
			return ports[i].Int() < ports[j].Int()
		}
		return ports[i].Proto() < ports[j].Proto()
	})

	out := make([]PortBinding, 0, len(ports))
	for _, p := range ports {
		bindings := pm[p]
		if len(bindings) == 0 {
			out = append(out, PortBinding{ContainerPort: string(p)})
			continue
		}
		for _, b := range bindings {
			out = append(out, PortBinding{ContainerPort: string(p), HostIP: b.HostIP, HostPort: b.HostPort})
		}
	}
	return out
}

// CreateContainer creates (but does not start) a container and returns its id.
func (s *Service) CreateContainer(ctx context.Context, req CreateContainerRequest) (string, error) {
	if strings.TrimSpace(req.Image) == "" {
		return "", invalidInput("image is required")
	}
	if _, err := reference.ParseNormalizedNamed(req.Image); err != nil {
		return "", invalidInput(fmt.Sprintf("image reference %q: %v", req.Image, err))
	}
	if !restartPolicies[req.RestartPolicy] {
		return "", invalidInput("unknown restart policy " + strconv.Quote(req.RestartPolicy))
	}
	exposed, bindings, err := nat.ParsePortSpecs(req.Ports)
	if err != nil {
		return "", invalidInput("ports: " + err.Error())
	}

	cli, err := s.client()
	if err != nil {
		return "", err
	}

	cfg := &container.Config{
		Image:        req.Image,
		Cmd:          req.Cmd,
		Env:          req.Env,
		WorkingDir:   req.WorkingDir,
		Labels:       req.Labels,
		ExposedPorts: exposed,
		Tty:          req.Tty,
	}
	hostCfg := &container.HostConfig{
		Binds:         req.Binds,
		PortBindings:  bindings,
		NetworkMode:   container.NetworkMode(req.NetworkMode),
		AutoRemove:    req.AutoRemove,
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(req.RestartPolicy)},
	}

	resp, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, req.Name)
	if err != nil {
		return "", Classify(err, ResourceImage, req.Image)
	}
	return resp.ID, nil
}

// StartContainer starts a created or stopped container.
func (s *Service) StartContainer(ctx context.Context, id string) error {
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerStart(ctx, id, container.StartOptions{})
	})
}

// StopContainer stops a container, waiting timeout seconds (default 10)
// before the daemon kills it.
func (s *Service) StopContainer(ctx context.Context, id string, timeout *int) error {
	t := DefaultStopTimeout
	if timeout != nil {
		t = *timeout
	}
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &t})
	})
}

// RestartContainer restarts a container with the same grace period as stop.
func (s *Service) RestartContainer(ctx context.Context, id string, timeout *int) error {
	t := DefaultStopTimeout
	if timeout != nil {
		t = *timeout
	}
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerRestart(ctx, id, container.StopOptions{Timeout: &t})
	})
}

// KillContainer sends signal (default SIGKILL) to a container.
func (s *Service) KillContainer(ctx context.Context, id, signal string) error {
	if signal == "" {
		signal = DefaultKillSignal
	}
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerKill(ctx, id, signal)
	})
}

// PauseContainer freezes every process of a container.
func (s *Service) PauseContainer(ctx context.Context, id string) error {
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerPause(ctx, id)
	})
}

// UnpauseContainer resumes a paused container.
func (s *Service) UnpauseContainer(ctx context.Context, id string) error {
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerUnpause(ctx, id)
	})
}

// RenameContainer gives a container a new name.
func (s *Service) RenameContainer(ctx context.Context, id, newName string) error {
	newName = strings.TrimPrefix(strings.TrimSpace(newName), "/")
	if newName == "" {
		return invalidInput("new container name is required")
	}
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerRename(ctx, id, newName)
	})
}

// RemoveContainer deletes a container. A running container needs force;
// removeVolumes also deletes its anonymous volumes.
func (s *Service) RemoveContainer(ctx context.Context, id string, force, removeVolumes bool) error {
	return s.containerAction(ctx, id, func(ctx context.Context) error {
		cli, err := s.client()
		if err != nil {
			return err
		}
		return cli.ContainerRemove(ctx, id, container.RemoveOptions{
			Force:         force,
			RemoveVolumes: removeVolumes,
		})
	})
}

// containerAction validates id, runs one daemon call and classifies its
// failure against the container.
func (s *Service) containerAction(ctx context.Context, id string, call func(context.Context) error) error {
	if err := requireID(ResourceContainer, id); err != nil {
		return err
	}
	if err := call(ctx); err != nil {
		return Classify(err, ResourceContainer, id)
	}
	return nil
}

// ContainerStats takes a single non-streaming sample.
func (s *Service) ContainerStats(ctx context.Context, id string) (*ContainerStats, error) {
	if err := requireID(ResourceContainer, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	resp, err := cli.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return nil, Classify(err, ResourceContainer, id)
	}
	defer resp.Body.Close()

	var sample container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Kind: KindOperationFailed, Resource: ResourceContainer, ID: id, Message: "daemon returned no stats sample", Err: err}
		}
		return nil, Classify(err, ResourceContainer, id)
	}
	return statsRecord(id, &sample), nil
}

func statsRecord(id string, st *container.StatsResponse) *ContainerStats {
	cpuDelta := float64(st.CPUStats.CPUUsage.TotalUsage) - float64(st.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(st.CPUStats.SystemUsage) - float64(st.PreCPUStats.SystemUsage)
	onlineCPUs := st.CPUStats.OnlineCPUs
	if onlineCPUs == 0 {
		onlineCPUs = uint32(len(st.CPUStats.CPUUsage.PercpuUsage))
	}
	cpuPerc := 0.0
	if systemDelta > 0 && cpuDelta > 0 {
		cpuPerc = (cpuDelta / systemDelta) * float64(onlineCPUs) * 100.0
	}

	// Page cache is reported as inactive_file on cgroup v2 and cache on v1.
	memUsage := st.MemoryStats.Usage
	cache, ok := st.MemoryStats.Stats["inactive_file"]
	if !ok {
		cache = st.MemoryStats.Stats["cache"]
	}
	if cache < memUsage {
		memUsage -= cache
	}
	memLimit := st.MemoryStats.Limit
	memPerc := 0.0
	if memLimit > 0 {
		memPerc = float64(memUsage) / float64(memLimit) * 100.0
	}

	networks := make(map[string]NetworkUsage, len(st.Networks))
	var netRx, netTx uint64
	for name, n := range st.Networks {
		netRx += n.RxBytes
		netTx += n.TxBytes
		networks[name] = NetworkUsage{
			RxBytes:   n.RxBytes,
			RxPackets: n.RxPackets,
			TxBytes:   n.TxBytes,
			TxPackets: n.TxPackets,
		}
	}

	var blkRead, blkWrite uint64
	for _, bio := range st.BlkioStats.IoServiceBytesRecursive {
		switch strings.ToLower(bio.Op) {
		case "read":
			blkRead += bio.Value
		case "write":
			blkWrite += bio.Value
		}
	}

	name := strings.TrimPrefix(st.Name, "/")
	if st.ID != "" {
		id = st.ID
	}

	return &ContainerStats{
		ID:            id,
		Name:          name,
		Read:          formatTime(st.Read),
		PreRead:       formatTime(st.PreRead),
		NumProcs:      st.NumProcs,
		CPUPercent:    cpuPerc,
		OnlineCPUs:    onlineCPUs,
		MemoryUsage:   memUsage,
		MemoryLimit:   memLimit,
		MemoryPercent: memPerc,
		NetworkRx:     netRx,
		NetworkTx:     netTx,
		BlockRead:     blkRead,
		BlockWrite:    blkWrite,
		Pids:          st.PidsStats.Current,
		Networks:      networks,
		Display: StatsDisplay{
			CPUPerc:  formatPercent(cpuPerc),
			MemPerc:  formatPercent(memPerc),
			MemUsage: formatBytesPair(memUsage, memLimit),
			NetIO:    formatBytesPair(netRx, netTx),
			BlockIO:  formatBytesPair(blkRead, blkWrite),
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ContainerProcesses lists the processes running inside a container.
func (s *Service) ContainerProcesses(ctx context.Context, id string) (*ProcessList, error) {
	if err := requireID(ResourceContainer, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	resp, err := cli.ContainerTop(ctx, id, []string{topArgs})
	if err != nil {
		return nil, Classify(err, ResourceContainer, id)
	}

	procs := resp.Processes
	if procs == nil {
		procs = [][]string{}
	}
	return &ProcessList{Titles: nonNilStrings(resp.Titles), Processes: procs}, nil
}
