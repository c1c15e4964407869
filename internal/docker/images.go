package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"
)

const noneTag = "<none>:<none>"

// ListImages returns images in daemon order. Intermediate layers are
// included only when all is set.
func (s *Service) ListImages(ctx context.Context, all bool) ([]ImageListItem, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := cli.ImageList(ctx, image.ListOptions{All: all})
	if err != nil {
		return nil, Classify(err, ResourceImage, "")
	}

	result := make([]ImageListItem, 0, len(raw))
	for _, img := range raw {
		tags := nonNilStrings(img.RepoTags)
		result = append(result, ImageListItem{
			ID:          img.ID,
			ParentID:    img.ParentID,
			RepoTags:    tags,
			RepoDigests: nonNilStrings(img.RepoDigests),
			Created:     img.Created,
			Size:        img.Size,
			SharedSize:  img.SharedSize,
			Labels:      nonNilMap(img.Labels),
			Containers:  img.Containers,
			Dangling:    len(tags) == 0 || (len(tags) == 1 && tags[0] == noneTag),
		})
	}
	return result, nil
}

// ImageDetails inspects one image by id or reference.
func (s *Service) ImageDetails(ctx context.Context, id string) (*ImageDetails, error) {
	if err := requireID(ResourceImage, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	raw, err := cli.ImageInspect(ctx, id)
	if err != nil {
		return nil, Classify(err, ResourceImage, id)
	}

	d := &ImageDetails{
		ID:            raw.ID,
		RepoTags:      nonNilStrings(raw.RepoTags),
		RepoDigests:   nonNilStrings(raw.RepoDigests),
		Parent:        raw.Parent,
		Comment:       raw.Comment,
		Created:       raw.Created,
		DockerVersion: raw.DockerVersion,
		Author:        raw.Author,
		Architecture:  raw.Architecture,
		Variant:       raw.Variant,
		Os:            raw.Os,
		Size:          raw.Size,
		SizeHuman:     formatBytes(uint64(max(raw.Size, 0))),
		GraphDriver: GraphDriver{
			Name: raw.GraphDriver.Name,
			Data: nonNilMap(raw.GraphDriver.Data),
		},
		RootFS: RootFS{
			Type:   raw.RootFS.Type,
			Layers: nonNilStrings(raw.RootFS.Layers),
		},
		LastTagTime: formatTime(raw.Metadata.LastTagTime),
		Labels:      map[string]string{},
		Config: ImageConfig{
			Env:          []string{},
			Cmd:          []string{},
			Entrypoint:   []string{},
			ExposedPorts: []string{},
			Volumes:      []string{},
		},
	}

	if cfg := raw.Config; cfg != nil {
		d.Labels = nonNilMap(cfg.Labels)
		d.Config = ImageConfig{
			User:         cfg.User,
			Env:          nonNilStrings(cfg.Env),
			Cmd:          nonNilStrings(cfg.Cmd),
			Entrypoint:   nonNilStrings(cfg.Entrypoint),
			WorkingDir:   cfg.WorkingDir,
			ExposedPorts: sortedKeys(cfg.ExposedPorts),
			Volumes:      sortedKeys(cfg.Volumes),
			StopSignal:   cfg.StopSignal,
		}
	}
	return d, nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemoveImage deletes an image. noPrune keeps untagged parent layers.
func (s *Service) RemoveImage(ctx context.Context, id string, force, noPrune bool) ([]ImageDeleteItem, error) {
	if err := requireID(ResourceImage, id); err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	resp, err := cli.ImageRemove(ctx, id, image.RemoveOptions{
		Force:         force,
		PruneChildren: !noPrune,
	})
	if err != nil {
		return nil, Classify(err, ResourceImage, id)
	}

	items := make([]ImageDeleteItem, 0, len(resp))
	for _, r := range resp {
		items = append(items, ImageDeleteItem{Untagged: r.Untagged, Deleted: r.Deleted})
	}
	return items, nil
}

// normalizeImageRef validates name and applies tag (default "latest") when
// the name carries neither tag nor digest.
func normalizeImageRef(name, tag string) (reference.Named, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("image name is required")
	}
	named, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("image reference %q: %v", name, err))
	}

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return reference.TagNameOnly(named), nil
	}
	if _, ok := named.(reference.Tagged); ok {
		return nil, invalidInput("image " + name + " already carries a tag")
	}
	if _, ok := named.(reference.Digested); ok {
		return nil, invalidInput("image " + name + " already carries a digest")
	}
	tagged, err := reference.WithTag(named, tag)
	if err != nil {
		return nil, invalidInput(fmt.Sprintf("tag %q: %v", tag, err))
	}
	return tagged, nil
}

// PullImage pulls name:tag and waits for the progress stream to finish.
// An error reported inside the stream fails the pull.
func (s *Service) PullImage(ctx context.Context, name, tag string) (*PullResult, error) {
	ref, err := normalizeImageRef(name, tag)
	if err != nil {
		return nil, err
	}
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	full := ref.String()
	familiar := reference.FamiliarString(ref)

	rc, err := cli.ImagePull(ctx, full, image.PullOptions{})
	if err != nil {
		return nil, Classify(err, ResourceImage, familiar)
	}
	defer rc.Close()

	res := &PullResult{Image: familiar}
	dec := json.NewDecoder(rc)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, Classify(err, ResourceImage, familiar)
		}
		if msg.Error != nil {
			return nil, &Error{Kind: KindOperationFailed, Resource: ResourceImage, ID: familiar, Message: msg.Error.Message}
		}
		if d, ok := strings.CutPrefix(msg.Status, "Digest: "); ok {
			res.Digest = d
		}
		if msg.ID == "" && msg.Status != "" {
			res.Status = msg.Status
		}
	}
	return res, nil
}

// PruneImages removes unused images; with danglingOnly only untagged ones.
func (s *Service) PruneImages(ctx context.Context, danglingOnly bool) (*PruneReport, error) {
	cli, err := s.client()
	if err != nil {
		return nil, err
	}

	args := filters.NewArgs()
	if danglingOnly {
		args.Add("dangling", "true")
	} else {
		args.Add("dangling", "false")
	}

	report, err := cli.ImagesPrune(ctx, args)
	if err != nil {
		return nil, Classify(err, ResourceImage, "")
	}

	deleted := make([]string, 0, len(report.ImagesDeleted))
	for _, d := range report.ImagesDeleted {
		if d.Deleted != "" {
			deleted = append(deleted, d.Deleted)
		}
	}
	return pruneReport(deleted, report.SpaceReclaimed), nil
}

func pruneReport(deleted []string, reclaimed uint64) *PruneReport {
	return &PruneReport{
		Deleted:             nonNilStrings(deleted),
		SpaceReclaimed:      reclaimed,
		SpaceReclaimedHuman: formatBytes(reclaimed),
	}
}
