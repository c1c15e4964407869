package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/volume"
)

// ListVolumes returns volumes in daemon order.
func (s *Service) ListVolumes(ctx context.Context) ([]VolumeSummary, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	resp, err := cli.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, Classify(err, ResourceVolume, "")
	}

	result := make([]VolumeSummary, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		if v == nil {
			continue
		}
		result = append(result, volumeSummary(*v))
	}
	return result, nil
}

func volumeSummary(v volume.Volume) VolumeSummary {
	status := make(map[string]string, len(v.Status))
	for k, val := range v.Status {
		status[k] = fmt.Sprint(val)
	}

	size, refs := int64(-1), int64(-1)
	if v.UsageData != nil {
		size, refs = v.UsageData.Size, v.UsageData.RefCount
	}

	return VolumeSummary{
		Name:       v.Name,
		Driver:     v.Driver,
		Mountpoint: v.Mountpoint,
		CreatedAt:  v.CreatedAt,
		Scope:      v.Scope,
		Labels:     nonNilMap(v.Labels),
		Options:    nonNilMap(v.Options),
		Status:     status,
		Size:       size,
		RefCount:   refs,
	}
}

// VolumeDetails inspects one volume by name.
func (s *Service) VolumeDetails(ctx context.Context, name string) (*VolumeDetails, error) {
	if err := requireID(ResourceVolume, name); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	v, err := cli.VolumeInspect(ctx, name)
	if err != nil {
		return nil, Classify(err, ResourceVolume, name)
	}
	d := volumeSummary(v)
	return &d, nil
}

// CreateVolume creates a volume. An empty name lets the daemon generate one;
// the driver defaults to local.
func (s *Service) CreateVolume(ctx context.Context, req CreateVolumeRequest) (*VolumeDetails, error) {
	name := strings.TrimSpace(req.Name)
	if strings.ContainsAny(name, `/\: `) {
		return nil, invalidInput(fmt.Sprintf("invalid volume name %q", req.Name))
	}
	driver := req.Driver
	if driver == "" {
		driver = "local"
	}

	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	v, err := cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:       name,
		Driver:     driver,
		DriverOpts: req.DriverOpts,
		Labels:     req.Labels,
	})
	if err != nil {
		return nil, Classify(err, ResourceVolume, name)
	}
	d := volumeSummary(v)
	return &d, nil
}

// RemoveVolume deletes a volume. A volume in use by a container is refused
// by the daemon even with force.
func (s *Service) RemoveVolume(ctx context.Context, name string, force bool) error {
	if err := requireID(ResourceVolume, name); err != nil {
		return err
	}
	cli, err := s.client()
	if err != nil {
		return err
	}
	if err := cli.VolumeRemove(ctx, name, force); err != nil {
		return Classify(err, ResourceVolume, name)
	}
	return nil
}

// PruneVolumes removes unused volumes, following the daemon's default
// selection (anonymous volumes on current API versions).
func (s *Service) PruneVolumes(ctx context.Context) (*PruneReport, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	report, err := cli.VolumesPrune(ctx, filters.NewArgs())
	if err != nil {
		return nil, Classify(err, ResourceVolume, "")
	}
	return pruneReport(report.VolumesDeleted, report.SpaceReclaimed), nil
}
