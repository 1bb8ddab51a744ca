/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package oscar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	resolve := func(vo string) (config.OscarCluster, bool) {
		if vo != "vo.ai4eosc.eu" {
			return config.OscarCluster{}, false
		}
		return config.OscarCluster{Endpoint: srv.URL, ClusterID: "oscar-ai4eosc"}, true
	}
	return NewClientWith(httpclient.New(httpclient.Options{}), resolve)
}

func TestListServicesPassesUserToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/system/services", r.URL.Path)
		_, _ = w.Write([]byte(`[{"name": "svc-1", "image": "ai4oshub/demo:latest"}]`))
	})

	services, err := c.ListServices(context.Background(), "vo.ai4eosc.eu", "user-token")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "svc-1", services[0].Name)
}

func TestCreateServiceStampsClusterID(t *testing.T) {
	var got Service
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	svc := &Service{Name: "svc-1", Image: "ai4oshub/demo:latest", CPU: "1.0", Memory: "2Gi"}
	require.NoError(t, c.CreateService(context.Background(), "vo.ai4eosc.eu", "user-token", svc))
	assert.Equal(t, "oscar-ai4eosc", got.ClusterID)
}

func TestUnknownVOHasNoCluster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.ListServices(context.Background(), "vo.unknown", "user-token")
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestTokenRefusedMapsToForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.GetService(context.Background(), "vo.ai4eosc.eu", "bad-token", "svc-1")
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))
}

func TestGetServiceNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.GetService(context.Background(), "vo.ai4eosc.eu", "user-token", "gone")
	assert.True(t, errors.IsNotFound(err))
}

func TestInvokeReturnsRawBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run/svc-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"predictions": [0.9]}`))
	})
	out, err := c.Invoke(context.Background(), "vo.ai4eosc.eu", "user-token", "svc-1",
		map[string]string{"input": "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions": [0.9]}`, string(out))
}

func TestLogs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/system/logs/svc-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"job-1": {"status": "Succeeded", "creation_time": "2025-06-01T08:30:00Z"}}`))
	})
	logs, err := c.Logs(context.Background(), "vo.ai4eosc.eu", "user-token", "svc-1")
	require.NoError(t, err)
	assert.Equal(t, "Succeeded", logs["job-1"].Status)
}
