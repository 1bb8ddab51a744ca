/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package catalog resolves deployable workload metadata from upstream git
// indexes. The Catalog interface has two implementations: a git-backed
// resolver and a caching wrapper that adds TTLs and single-flight
// coalescing; the server composes them at startup.
package catalog

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

type Kind string

const (
	KindModule Kind = "modules"
	KindTool   Kind = "tools"
)

// Summary is the trimmed record for grid views.
type Summary struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Keywords    []string `json:"keywords,omitempty"`
	License     string   `json:"license,omitempty"`
	DockerImage string   `json:"docker_image"`
}

// Metadata is the complete record for one catalog item.
type Metadata struct {
	Name         string   `json:"name" yaml:"name"`
	Title        string   `json:"title" yaml:"title"`
	Summary      string   `json:"summary" yaml:"summary"`
	Description  string   `json:"description" yaml:"description"`
	Keywords     []string `json:"keywords" yaml:"tags"`
	License      string   `json:"license" yaml:"license"`
	DateCreated  string   `json:"date_created" yaml:"date_created"`
	DockerImage  string   `json:"docker_image" yaml:"-"`
	DockerTags   []string `json:"docker_tags" yaml:"-"`
	SourceCode   string   `json:"source_code" yaml:"-"`
	Branch       string   `json:"branch" yaml:"-"`
	LastModified string   `json:"last_modified,omitempty" yaml:"-"`

	Links struct {
		SourceCode  string `json:"source_code" yaml:"source_code"`
		DockerImage string `json:"docker_image" yaml:"docker_image"`
	} `json:"links" yaml:"links"`
}

// Catalog is the capability set the rest of the server programs against.
type Catalog interface {
	// List returns the item names of a kind.
	List(ctx context.Context, kind Kind) ([]string, error)
	// Detail returns trimmed metadata for all items of a kind.
	Detail(ctx context.Context, kind Kind) ([]Summary, error)
	// Metadata returns the complete record for one item.
	Metadata(ctx context.Context, kind Kind, name string) (*Metadata, error)
	// Refresh invalidates cached entries; empty name matches the whole kind,
	// empty kind matches everything.
	Refresh(kind Kind, name string)
}

// FilterByKeywords keeps the summaries matching every pattern. Patterns
// support a trailing or leading `*` wildcard.
func FilterByKeywords(items []Summary, patterns []string) []Summary {
	if len(patterns) == 0 {
		return items
	}
	return lo.Filter(items, func(item Summary, _ int) bool {
		for _, p := range patterns {
			if !lo.SomeBy(item.Keywords, func(kw string) bool { return matchPattern(kw, p) }) {
				return false
			}
		}
		return true
	})
}

func matchPattern(s, pattern string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1:
		return strings.Contains(s, pattern[1:len(pattern)-1])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(s, pattern[:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(s, pattern[1:])
	default:
		return s == pattern
	}
}

// AllowedImage reports whether a docker image belongs to one of the
// allow-listed registry/organization prefixes.
func AllowedImage(image string, allowList []string) bool {
	return lo.SomeBy(allowList, func(prefix string) bool {
		return strings.HasPrefix(image, prefix+"/") || image == prefix
	})
}
