/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/backoff"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

const metadataFile = "ai4-metadata.yml"

// indexEntry is one line of an upstream module-list document.
type indexEntry struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
}

// gitCatalog resolves items straight from the upstream git host. It holds no
// cache; wrap it with NewCached for production use.
type gitCatalog struct {
	httpClient httpclient.Interface
	indexURLs  map[Kind]string
	branch     string
	allowList  []string
}

// NewGitCatalog builds the uncached resolver from config.
func NewGitCatalog(hc httpclient.Interface) Catalog {
	return &gitCatalog{
		httpClient: hc,
		indexURLs: map[Kind]string{
			KindModule: config.GetModulesIndexURL(),
			KindTool:   config.GetToolsIndexURL(),
		},
		branch:    config.GetCatalogBranch(),
		allowList: config.GetImageAllowList(),
	}
}

func (g *gitCatalog) index(ctx context.Context, kind Kind) ([]indexEntry, error) {
	indexURL, ok := g.indexURLs[kind]
	if !ok || indexURL == "" {
		return nil, errors.NewBadRequest(fmt.Sprintf("unknown catalog kind %q", kind))
	}
	var res *httpclient.Result
	op := func() error {
		var err error
		res, err = g.httpClient.Get(ctx, indexURL)
		if err != nil {
			return err
		}
		if !res.IsSuccess() {
			return fmt.Errorf("index fetch returned %d", res.StatusCode)
		}
		return nil
	}
	if err := backoff.RetryN(op, backoff.DefaultMaxTries); err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("failed to fetch %s index: %v", kind, err))
	}
	var entries []indexEntry
	if err := yaml.Unmarshal(res.Body, &entries); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed %s index: %v", kind, err))
	}
	return entries, nil
}

func (g *gitCatalog) List(ctx context.Context, kind Kind) ([]string, error) {
	entries, err := g.index(ctx, kind)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

func (g *gitCatalog) Detail(ctx context.Context, kind Kind) ([]Summary, error) {
	entries, err := g.index(ctx, kind)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(entries))
	for _, e := range entries {
		// one bad item never sinks the whole index
		meta, err := g.fetchMetadata(ctx, e)
		if err != nil {
			klog.Warningf("dropping catalog item %s/%s: %v", kind, e.Name, err)
			continue
		}
		summaries = append(summaries, Summary{
			Name:        meta.Name,
			Title:       meta.Title,
			Summary:     meta.Summary,
			Keywords:    meta.Keywords,
			License:     meta.License,
			DockerImage: meta.DockerImage,
		})
	}
	return summaries, nil
}

func (g *gitCatalog) Metadata(ctx context.Context, kind Kind, name string) (*Metadata, error) {
	entries, err := g.index(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name == name {
			return g.fetchMetadata(ctx, e)
		}
	}
	return nil, errors.NewCatalogItemNotFound(fmt.Sprintf("no %s named %q in the catalog", kind, name))
}

// Refresh is a no-op: the git resolver reads upstream on every call.
func (g *gitCatalog) Refresh(Kind, string) {}

func (g *gitCatalog) fetchMetadata(ctx context.Context, entry indexEntry) (*Metadata, error) {
	branch := entry.Branch
	if branch == "" {
		branch = g.branch
	}
	rawURL, err := rawFileURL(entry.URL, branch, metadataFile)
	if err != nil {
		return nil, err
	}
	var res *httpclient.Result
	op := func() error {
		var err error
		res, err = g.httpClient.Get(ctx, rawURL)
		if err != nil {
			return err
		}
		if !res.IsSuccess() {
			return backoff.Permanent(fmt.Errorf("metadata fetch returned %d", res.StatusCode))
		}
		return nil
	}
	if err := backoff.RetryN(op, backoff.DefaultMaxTries); err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %v", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(res.Body, &meta); err != nil {
		return nil, fmt.Errorf("malformed metadata document: %v", err)
	}
	meta.Name = entry.Name
	meta.Branch = branch
	meta.SourceCode = entry.URL
	if meta.Links.SourceCode != "" {
		meta.SourceCode = meta.Links.SourceCode
	}
	meta.DockerImage = strings.TrimSpace(meta.Links.DockerImage)
	if err := validateMetadata(&meta); err != nil {
		return nil, err
	}
	if !AllowedImage(meta.DockerImage, g.allowList) {
		return nil, fmt.Errorf("docker image %q is not in the allow-list", meta.DockerImage)
	}
	g.enrich(ctx, &meta)
	return &meta, nil
}

func validateMetadata(meta *Metadata) error {
	var missing []string
	if meta.Title == "" {
		missing = append(missing, "title")
	}
	if meta.Summary == "" {
		missing = append(missing, "summary")
	}
	if meta.DockerImage == "" {
		missing = append(missing, "links.docker_image")
	}
	if len(missing) > 0 {
		return fmt.Errorf("metadata misses required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// enrich overwrites license and last-modified with values queried live from
// the source-code host, and pulls the available docker tags. Best effort:
// the item survives even when the host is unreachable.
func (g *gitCatalog) enrich(ctx context.Context, meta *Metadata) {
	meta.DockerTags = g.dockerTags(ctx, meta.DockerImage)

	token := config.GetGithubToken()
	if token == "" {
		return
	}
	org, repo, ok := splitGithubRepo(meta.SourceCode)
	if !ok {
		return
	}
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s", org, repo)
	res, err := g.httpClient.Get(ctx, apiURL, "Authorization", "Bearer "+token)
	if err != nil || !res.IsSuccess() {
		klog.V(2).Infof("skipping live enrichment of %s: host unreachable", meta.Name)
		return
	}
	var repoInfo struct {
		PushedAt string `json:"pushed_at"`
		License  struct {
			SpdxID string `json:"spdx_id"`
		} `json:"license"`
	}
	if err := res.Unmarshal(&repoInfo); err != nil {
		return
	}
	if repoInfo.License.SpdxID != "" && repoInfo.License.SpdxID != "NOASSERTION" {
		meta.License = repoInfo.License.SpdxID
	}
	if repoInfo.PushedAt != "" {
		meta.LastModified = repoInfo.PushedAt
	}
}

func (g *gitCatalog) dockerTags(ctx context.Context, image string) []string {
	fallback := []string{"latest"}
	tagsURL := fmt.Sprintf("https://registry.hub.docker.com/v2/repositories/%s/tags?page_size=100", image)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := g.httpClient.Get(ctx, tagsURL)
	if err != nil || !res.IsSuccess() {
		return fallback
	}
	var page struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := res.Unmarshal(&page); err != nil || len(page.Results) == 0 {
		return fallback
	}
	tags := make([]string, 0, len(page.Results))
	for _, r := range page.Results {
		tags = append(tags, r.Name)
	}
	return tags
}

// rawFileURL maps a repository URL to the raw content URL of a file at a
// branch.
func rawFileURL(repoURL, branch, file string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("bad repository URL %q: %v", repoURL, err)
	}
	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	switch u.Host {
	case "github.com":
		return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", path, branch, file), nil
	default:
		// gitlab-style raw path
		return fmt.Sprintf("%s://%s/%s/-/raw/%s/%s", scheme, u.Host, path, branch, file), nil
	}
}

func splitGithubRepo(repoURL string) (org, repo string, ok bool) {
	u, err := url.Parse(repoURL)
	if err != nil || u.Host != "github.com" {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git"), "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
