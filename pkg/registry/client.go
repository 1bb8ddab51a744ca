/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package registry talks to the container Registry (Harbor v2 API) that
// stores user snapshots. Each user owns one repository inside the snapshot
// project; every artifact in it is one snapshot, tagged with its ID.
package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

const apiBase = "/api/v2.0"

// Snapshot is one stored container snapshot, as exposed to users.
type Snapshot struct {
	ID          string    `json:"snapshot_ID"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VO          string    `json:"vo"`
	SizeBytes   int64     `json:"size"`
	PushTime    time.Time `json:"submit_time"`
	DockerImage string    `json:"docker_image"`
}

type artifact struct {
	Digest   string    `json:"digest"`
	Size     int64     `json:"size"`
	PushTime time.Time `json:"push_time"`
	Tags     []struct {
		Name string `json:"name"`
	} `json:"tags"`
	ExtraAttrs struct {
		Config struct {
			Labels map[string]string `json:"Labels"`
		} `json:"config"`
	} `json:"extra_attrs"`
}

type Client struct {
	endpoint   string
	project    string
	authHeader string
	httpClient httpclient.Interface
}

func NewClient(hc httpclient.Interface) *Client {
	return NewClientWith(config.GetHarborEndpoint(), config.GetSnapshotProject(),
		config.GetHarborRobotUser(), config.GetHarborRobotPassword(), hc)
}

func NewClientWith(endpoint, project, user, password string, hc httpclient.Interface) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		project:    project,
		authHeader: "Basic " + creds,
		httpClient: hc,
	}
}

// RepoName is the user's repository inside the snapshot project.
func (c *Client) RepoName(subject string) string {
	return utils.SanitizeSubject(subject)
}

// ImageRef is the full pullable reference of one snapshot.
func (c *Client) ImageRef(subject, snapshotID string) string {
	host := c.endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return fmt.Sprintf("%s/%s/%s:%s", host, c.project, c.RepoName(subject), snapshotID)
}

func (c *Client) repoURL(subject string) string {
	// repository names with slashes must be double-escaped in Harbor paths;
	// user repos are flat so a single PathEscape suffices
	return fmt.Sprintf("%s%s/projects/%s/repositories/%s",
		c.endpoint, apiBase, c.project, url.PathEscape(c.RepoName(subject)))
}

// ListSnapshots returns the user's snapshots, newest first. A user with no
// repository yet has no snapshots; that is not an error.
func (c *Client) ListSnapshots(ctx context.Context, subject string) ([]Snapshot, error) {
	arts, err := c.listArtifacts(ctx, subject)
	if err != nil {
		return nil, err
	}
	var out []Snapshot
	for _, a := range arts {
		if len(a.Tags) == 0 {
			continue
		}
		labels := a.ExtraAttrs.Config.Labels
		out = append(out, Snapshot{
			ID:          a.Tags[0].Name,
			Title:       labels["ai4.title"],
			Description: labels["ai4.description"],
			VO:          labels["ai4.vo"],
			SizeBytes:   a.Size,
			PushTime:    a.PushTime,
			DockerImage: c.ImageRef(subject, a.Tags[0].Name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PushTime.After(out[j].PushTime) })
	return out, nil
}

func (c *Client) listArtifacts(ctx context.Context, subject string) ([]artifact, error) {
	u := c.repoURL(subject) + "/artifacts?page_size=100&with_tag=true&with_label=true"
	res, err := c.httpClient.Get(ctx, u, "Authorization", c.authHeader)
	if err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("registry unreachable: %v", err))
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if !res.IsSuccess() {
		return nil, errors.NewBackendError(fmt.Sprintf("registry returned %d: %s", res.StatusCode, res.Body))
	}
	var arts []artifact
	if err := res.Unmarshal(&arts); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed registry response: %v", err))
	}
	return arts, nil
}

// GetSnapshot finds one snapshot by ID.
func (c *Client) GetSnapshot(ctx context.Context, subject, snapshotID string) (*Snapshot, error) {
	snaps, err := c.ListSnapshots(ctx, subject)
	if err != nil {
		return nil, err
	}
	for i := range snaps {
		if snaps[i].ID == snapshotID {
			return &snaps[i], nil
		}
	}
	return nil, errors.NewNotFound("snapshot not found: " + snapshotID)
}

// DeleteSnapshot removes the artifact carrying the snapshot's tag.
func (c *Client) DeleteSnapshot(ctx context.Context, subject, snapshotID string) error {
	if _, err := c.GetSnapshot(ctx, subject, snapshotID); err != nil {
		return err
	}
	u := fmt.Sprintf("%s/artifacts/%s", c.repoURL(subject), url.PathEscape(snapshotID))
	res, err := c.httpClient.Delete(ctx, u, "Authorization", c.authHeader)
	if err != nil {
		return errors.NewBackendError(fmt.Sprintf("registry unreachable: %v", err))
	}
	if res.StatusCode == http.StatusNotFound {
		return errors.NewNotFound("snapshot not found: " + snapshotID)
	}
	if !res.IsSuccess() {
		return errors.NewBackendError(fmt.Sprintf("registry returned %d: %s", res.StatusCode, res.Body))
	}
	return nil
}

// UserUsage is the total bytes the user's snapshots occupy.
func (c *Client) UserUsage(ctx context.Context, subject string) (int64, error) {
	snaps, err := c.ListSnapshots(ctx, subject)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, s := range snaps {
		total += s.SizeBytes
	}
	return total, nil
}

// CheckQuota rejects a new snapshot when the user's stored bytes already
// reach the per-user ceiling. The size of the snapshot about to be taken is
// unknown at admission time, so only current usage is counted.
func (c *Client) CheckQuota(ctx context.Context, subject string) error {
	limit := config.GetSnapshotUserQuota()
	if limit <= 0 {
		return nil
	}
	used, err := c.UserUsage(ctx, subject)
	if err != nil {
		return err
	}
	if used >= limit {
		return errors.NewQuotaExceeded("snapshot storage", int(limit), int(used))
	}
	return nil
}
