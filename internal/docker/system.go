package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/api/types/volume"
	"golang.org/x/sync/errgroup"
)

// Version returns the daemon's version report.
func (s *Service) Version(ctx context.Context) (*VersionInfo, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}
	v, err := cli.ServerVersion(ctx)
	if err != nil {
		return nil, Classify(err, "", "")
	}
	info := versionInfo(v)
	return &info, nil
}

func versionInfo(v types.Version) VersionInfo {
	comps := make([]VersionComponent, 0, len(v.Components))
	for _, c := range v.Components {
		comps = append(comps, VersionComponent{Name: c.Name, Version: c.Version})
	}
	return VersionInfo{
		Platform:      v.Platform.Name,
		Version:       v.Version,
		APIVersion:    v.APIVersion,
		MinAPIVersion: v.MinAPIVersion,
		GitCommit:     v.GitCommit,
		GoVersion:     v.GoVersion,
		Os:            v.Os,
		Arch:          v.Arch,
		KernelVersion: v.KernelVersion,
		BuildTime:     v.BuildTime,
		Components:    comps,
	}
}

// Info returns the daemon's system report.
func (s *Service) Info(ctx context.Context) (*DaemonInfo, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}
	raw, err := cli.Info(ctx)
	if err != nil {
		return nil, Classify(err, "", "")
	}
	info := daemonInfo(raw)
	return &info, nil
}

func daemonInfo(i system.Info) DaemonInfo {
	runtimes := make(map[string]Runtime, len(i.Runtimes))
	for name, rt := range i.Runtimes {
		runtimes[name] = Runtime{Path: rt.Path, Args: nonNilStrings(rt.Args)}
	}

	peers := make([]SwarmPeer, 0, len(i.Swarm.RemoteManagers))
	for _, p := range i.Swarm.RemoteManagers {
		peers = append(peers, SwarmPeer{NodeID: p.NodeID, Addr: p.Addr})
	}

	driverStatus := i.DriverStatus
	if driverStatus == nil {
		driverStatus = [][2]string{}
	}

	return DaemonInfo{
		ID:                i.ID,
		Name:              i.Name,
		ServerVersion:     i.ServerVersion,
		Containers:        i.Containers,
		ContainersRunning: i.ContainersRunning,
		ContainersPaused:  i.ContainersPaused,
		ContainersStopped: i.ContainersStopped,
		Images:            i.Images,
		Driver:            i.Driver,
		DriverStatus:      driverStatus,
		Plugins: DaemonPlugins{
			Volume:        nonNilStrings(i.Plugins.Volume),
			Network:       nonNilStrings(i.Plugins.Network),
			Authorization: nonNilStrings(i.Plugins.Authorization),
			Log:           nonNilStrings(i.Plugins.Log),
		},
		MemoryLimit:       i.MemoryLimit,
		SwapLimit:         i.SwapLimit,
		CPUCfsPeriod:      i.CPUCfsPeriod,
		CPUCfsQuota:       i.CPUCfsQuota,
		CPUShares:         i.CPUShares,
		CPUSet:            i.CPUSet,
		PidsLimit:         i.PidsLimit,
		IPv4Forwarding:    i.IPv4Forwarding,
		Debug:             i.Debug,
		NFd:               i.NFd,
		OomKillDisable:    i.OomKillDisable,
		NGoroutines:       i.NGoroutines,
		SystemTime:        i.SystemTime,
		LoggingDriver:     i.LoggingDriver,
		CgroupDriver:      i.CgroupDriver,
		NEventsListener:   i.NEventsListener,
		KernelVersion:     i.KernelVersion,
		OperatingSystem:   i.OperatingSystem,
		OSType:            i.OSType,
		Architecture:      i.Architecture,
		NCPU:              i.NCPU,
		MemTotal:          i.MemTotal,
		DockerRootDir:     i.DockerRootDir,
		HTTPProxy:         i.HTTPProxy,
		HTTPSProxy:        i.HTTPSProxy,
		NoProxy:           i.NoProxy,
		Labels:            nonNilStrings(i.Labels),
		ExperimentalBuild: i.ExperimentalBuild,
		Runtimes:          runtimes,
		DefaultRuntime:    i.DefaultRuntime,
		Swarm: SwarmInfo{
			NodeID:           i.Swarm.NodeID,
			NodeAddr:         i.Swarm.NodeAddr,
			LocalNodeState:   string(i.Swarm.LocalNodeState),
			ControlAvailable: i.Swarm.ControlAvailable,
			Error:            i.Swarm.Error,
			RemoteManagers:   peers,
		},
		LiveRestoreEnabled: i.LiveRestoreEnabled,
		Isolation:          string(i.Isolation),
		InitBinary:         i.InitBinary,
		ContainerdCommit:   i.ContainerdCommit.ID,
		RuncCommit:         i.RuncCommit.ID,
		InitCommit:         i.InitCommit.ID,
		SecurityOptions:    nonNilStrings(i.SecurityOptions),
	}
}

// SystemInfo returns version and info together. Both calls use the same
// handle and either failure fails the whole record.
func (s *Service) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	var (
		v   types.Version
		raw system.Info
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v, err = cli.ServerVersion(gctx)
		return err
	})
	g.Go(func() (err error) {
		raw, err = cli.Info(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, Classify(err, "", "")
	}

	return &SystemInfo{Version: versionInfo(v), Info: daemonInfo(raw)}, nil
}

// SystemStats builds the dashboard counters. Container and image counts come
// from info; volume and network totals come from their own listings.
func (s *Service) SystemStats(ctx context.Context) (*SystemStats, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	var (
		info     system.Info
		volumes  volume.ListResponse
		networks []network.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info, err = cli.Info(gctx)
		return err
	})
	g.Go(func() (err error) {
		volumes, err = cli.VolumeList(gctx, volume.ListOptions{})
		return err
	})
	g.Go(func() (err error) {
		networks, err = cli.NetworkList(gctx, network.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, Classify(err, "", "")
	}

	return &SystemStats{
		ContainersTotal:   info.Containers,
		ContainersRunning: info.ContainersRunning,
		ContainersStopped: info.ContainersStopped,
		ContainersPaused:  info.ContainersPaused,
		ImagesTotal:       info.Images,
		VolumesTotal:      len(volumes.Volumes),
		NetworksTotal:     len(networks),
	}, nil
}
