/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

func TestRawFileURL(t *testing.T) {
	got, err := rawFileURL("https://github.com/ai4os-hub/demo-app", "main", "ai4-metadata.yml")
	require.NoError(t, err)
	assert.Equal(t, "https://raw.githubusercontent.com/ai4os-hub/demo-app/main/ai4-metadata.yml", got)

	got, err = rawFileURL("https://github.com/ai4os-hub/demo-app.git", "master", "ai4-metadata.yml")
	require.NoError(t, err)
	assert.Equal(t, "https://raw.githubusercontent.com/ai4os-hub/demo-app/master/ai4-metadata.yml", got)

	got, err = rawFileURL("https://gitlab.example.org/grp/tool", "main", "ai4-metadata.yml")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.org/grp/tool/-/raw/main/ai4-metadata.yml", got)
}

func TestSplitGithubRepo(t *testing.T) {
	org, repo, ok := splitGithubRepo("https://github.com/ai4os-hub/demo-app")
	require.True(t, ok)
	assert.Equal(t, "ai4os-hub", org)
	assert.Equal(t, "demo-app", repo)

	_, _, ok = splitGithubRepo("https://gitlab.example.org/grp/tool")
	assert.False(t, ok)
}

// the fake upstream serves an index with one valid module, one with a
// disallowed image and one with broken metadata
func TestGitCatalogDropsDisallowedImages(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/index.yaml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"- name: demo-app\n  url: " + srvURL + "/repo/demo-app\n" +
				"- name: evil-app\n  url: " + srvURL + "/repo/evil-app\n" +
				"- name: broken-app\n  url: " + srvURL + "/repo/broken-app\n"))
	})
	mux.HandleFunc("/repo/demo-app/-/raw/master/ai4-metadata.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("title: Demo\nsummary: A demo module\nlinks:\n  docker_image: deephdc/demo-app\n"))
	})
	mux.HandleFunc("/repo/evil-app/-/raw/master/ai4-metadata.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("title: Evil\nsummary: Not allow-listed\nlinks:\n  docker_image: evilorg/evil-app\n"))
	})
	mux.HandleFunc("/repo/broken-app/-/raw/master/ai4-metadata.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("summary: no title or image\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	g := &gitCatalog{
		httpClient: httpclient.New(httpclient.Options{}),
		indexURLs:  map[Kind]string{KindModule: srv.URL + "/index.yaml"},
		branch:     "master",
		allowList:  []string{"deephdc", "ai4oshub"},
	}

	names, err := g.List(context.Background(), KindModule)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-app", "evil-app", "broken-app"}, names)

	// detail drops the bad items but keeps the good one
	summaries, err := g.Detail(context.Background(), KindModule)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "demo-app", summaries[0].Name)
	assert.Equal(t, "deephdc/demo-app", summaries[0].DockerImage)

	// metadata of a dropped item is an explicit error
	_, err = g.Metadata(context.Background(), KindModule, "evil-app")
	assert.Error(t, err)

	meta, err := g.Metadata(context.Background(), KindModule, "demo-app")
	require.NoError(t, err)
	assert.Equal(t, "Demo", meta.Title)
	// docker tags default to latest when the registry is unreachable
	assert.Equal(t, []string{"latest"}, meta.DockerTags)
}

func TestGitCatalogUnknownKind(t *testing.T) {
	g := &gitCatalog{indexURLs: map[Kind]string{}}
	_, err := g.List(context.Background(), Kind("nonsense"))
	assert.Error(t, err)
}
