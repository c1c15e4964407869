package docker

import (
	"context"
	"net/netip"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
)

// ListNetworks returns networks in daemon order.
func (s *Service) ListNetworks(ctx context.Context) ([]NetworkSummary, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return nil, Classify(err, ResourceNetwork, "")
	}

	result := make([]NetworkSummary, 0, len(raw))
	for _, n := range raw {
		result = append(result, networkSummary(n))
	}
	return result, nil
}

func networkSummary(n network.Inspect) NetworkSummary {
	ipam := NetworkIPAM{Driver: n.IPAM.Driver, Config: make([]NetworkIPAMConfig, 0, len(n.IPAM.Config))}
	for _, c := range n.IPAM.Config {
		ipam.Config = append(ipam.Config, NetworkIPAMConfig{
			Subnet:  c.Subnet,
			Gateway: c.Gateway,
			IPRange: c.IPRange,
		})
	}

	return NetworkSummary{
		ID:         n.ID,
		Name:       n.Name,
		Driver:     n.Driver,
		Scope:      n.Scope,
		Created:    formatTime(n.Created),
		Internal:   n.Internal,
		Attachable: n.Attachable,
		Ingress:    n.Ingress,
		EnableIPv6: n.EnableIPv6,
		IPAM:       ipam,
		Containers: len(n.Containers),
		Labels:     nonNilMap(n.Labels),
		Options:    nonNilMap(n.Options),
	}
}

// NetworkDetails inspects one network, listing its endpoints by container
// name.
func (s *Service) NetworkDetails(ctx context.Context, id string) (*NetworkDetails, error) {
	if err := requireID(ResourceNetwork, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := cli.NetworkInspect(ctx, id, network.InspectOptions{})
	if err != nil {
		return nil, Classify(err, ResourceNetwork, id)
	}

	endpoints := make([]NetworkEndpoint, 0, len(raw.Containers))
	for cid, ep := range raw.Containers {
		endpoints = append(endpoints, NetworkEndpoint{
			ContainerID: cid,
			Name:        ep.Name,
			EndpointID:  ep.EndpointID,
			MacAddress:  ep.MacAddress,
			IPv4Address: ep.IPv4Address,
			IPv6Address: ep.IPv6Address,
		})
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })

	return &NetworkDetails{NetworkSummary: networkSummary(raw), Endpoints: endpoints}, nil
}

// CreateNetwork creates a network and returns its id. Driver defaults to
// bridge.
func (s *Service) CreateNetwork(ctx context.Context, req CreateNetworkRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", invalidInput("network name is required")
	}
	if req.Gateway != "" && req.Subnet == "" {
		return "", invalidInput("gateway requires a subnet")
	}
	if req.Subnet != "" {
		prefix, err := netip.ParsePrefix(req.Subnet)
		if err != nil {
			return "", invalidInput("subnet: " + err.Error())
		}
		if req.Gateway != "" {
			gw, err := netip.ParseAddr(req.Gateway)
			if err != nil {
				return "", invalidInput("gateway: " + err.Error())
			}
			if !prefix.Contains(gw) {
				return "", invalidInput("gateway " + req.Gateway + " is outside subnet " + req.Subnet)
			}
		}
	}

	driver := req.Driver
	if driver == "" {
		driver = "bridge"
	}

	opts := network.CreateOptions{
		Driver:     driver,
		Internal:   req.Internal,
		Attachable: req.Attachable,
		Labels:     req.Labels,
		Options:    req.Options,
	}
	if req.EnableIPv6 {
		enable := true
		opts.EnableIPv6 = &enable
	}
	if req.Subnet != "" {
		opts.IPAM = &network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{{Subnet: req.Subnet, Gateway: req.Gateway}},
		}
	}

	cli, err := s.client()
	if err != nil {
		return "", err
	}
	resp, err := cli.NetworkCreate(ctx, name, opts)
	if err != nil {
		return "", Classify(err, ResourceNetwork, name)
	}
	return resp.ID, nil
}

// RemoveNetwork deletes a network. Predefined networks are refused by the
// daemon.
func (s *Service) RemoveNetwork(ctx context.Context, id string) error {
	if err := requireID(ResourceNetwork, id); err != nil {
		return err
	}
	cli, err := s.client()
	if err != nil {
		return err
	}
	if err := cli.NetworkRemove(ctx, id); err != nil {
		return Classify(err, ResourceNetwork, id)
	}
	return nil
}

// PruneNetworks removes every network with no attached container.
func (s *Service) PruneNetworks(ctx context.Context) (*PruneReport, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	report, err := cli.NetworksPrune(ctx, filters.NewArgs())
	if err != nil {
		return nil, Classify(err, ResourceNetwork, "")
	}
	return pruneReport(report.NetworksDeleted, 0), nil
}

// ConnectNetwork attaches a container to a network.
func (s *Service) ConnectNetwork(ctx context.Context, networkID, containerID string) error {
	if err := requireID(ResourceNetwork, networkID); err != nil {
		return err
	}
	if err := requireID(ResourceContainer, containerID); err != nil {
		return err
	}
	cli, err := s.client()
	if err != nil {
		return err
	}
	if err := cli.NetworkConnect(ctx, networkID, containerID, nil); err != nil {
		return Classify(err, ResourceNetwork, networkID)
	}
	return nil
}

// DisconnectNetwork detaches a container from a network.
func (s *Service) DisconnectNetwork(ctx context.Context, networkID, containerID string, force bool) error {
	if err := requireID(ResourceNetwork, networkID); err != nil {
		return err
	}
	if err := requireID(ResourceContainer, containerID); err != nil {
		return err
	}
	cli, err := s.client()
	if err != nil {
		return err
	}
	if err := cli.NetworkDisconnect(ctx, networkID, containerID, force); err != nil {
		return Classify(err, ResourceNetwork, networkID)
	}
	return nil
}
