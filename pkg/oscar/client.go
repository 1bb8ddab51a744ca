/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package oscar manages serverless inference services on the Function
// Platform cluster attached to a VO. The user's own access token is passed
// through: the cluster enforces its own authorization, PAPI never holds
// Function Platform credentials.
package oscar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

// Service is a Function Platform service definition. Only the fields PAPI
// manages are modeled; the cluster fills in the rest.
type Service struct {
	Name         string   `json:"name"`
	ClusterID    string   `json:"cluster_id,omitempty"`
	Image        string   `json:"image"`
	CPU          string   `json:"cpu"`
	Memory       string   `json:"memory"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
	Environment  struct {
		Vars map[string]string `json:"Variables,omitempty"`
	} `json:"environment,omitempty"`
	Script string `json:"script,omitempty"`
}

// LogEntry is one execution record of an asynchronous invocation.
type LogEntry struct {
	Status       string `json:"status"`
	CreationTime string `json:"creation_time"`
	StartTime    string `json:"start_time"`
	FinishTime   string `json:"finish_time"`
}

type Client struct {
	httpClient httpclient.Interface
	resolve    func(vo string) (config.OscarCluster, bool)
}

func NewClient(hc httpclient.Interface) *Client {
	return &Client{httpClient: hc, resolve: config.GetOscarCluster}
}

// NewClientWith overrides cluster resolution, used by tests.
func NewClientWith(hc httpclient.Interface, resolve func(vo string) (config.OscarCluster, bool)) *Client {
	return &Client{httpClient: hc, resolve: resolve}
}

func (c *Client) endpoint(vo string) (config.OscarCluster, error) {
	cluster, ok := c.resolve(vo)
	if !ok || cluster.Endpoint == "" {
		return config.OscarCluster{}, errors.NewBadRequest("VO has no inference cluster: " + vo)
	}
	cluster.Endpoint = strings.TrimSuffix(cluster.Endpoint, "/")
	return cluster, nil
}

func cvtResult(res *httpclient.Result, err error) (*httpclient.Result, error) {
	if err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("inference cluster unreachable: %v", err))
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return nil, errors.NewForbidden("inference cluster refused the user token")
	case res.StatusCode == http.StatusNotFound:
		return nil, errors.NewNotFound("service not found")
	case !res.IsSuccess():
		return nil, errors.NewBackendError(fmt.Sprintf("inference cluster returned %d: %s", res.StatusCode, res.Body))
	}
	return res, nil
}

// ListServices returns every service on the VO's cluster visible to the
// caller's token.
func (c *Client) ListServices(ctx context.Context, vo, token string) ([]Service, error) {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return nil, err
	}
	res, err := cvtResult(c.httpClient.Get(ctx, cluster.Endpoint+"/system/services",
		"Authorization", "Bearer "+token))
	if err != nil {
		return nil, err
	}
	var services []Service
	if err := res.Unmarshal(&services); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed service listing: %v", err))
	}
	return services, nil
}

func (c *Client) GetService(ctx context.Context, vo, token, name string) (*Service, error) {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return nil, err
	}
	res, err := cvtResult(c.httpClient.Get(ctx, cluster.Endpoint+"/system/services/"+url.PathEscape(name),
		"Authorization", "Bearer "+token))
	if err != nil {
		return nil, err
	}
	var service Service
	if err := res.Unmarshal(&service); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed service: %v", err))
	}
	return &service, nil
}

// CreateService registers a new service. The cluster ID is stamped from the
// VO's configuration so callers cannot target a foreign cluster.
func (c *Client) CreateService(ctx context.Context, vo, token string, service *Service) error {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return err
	}
	service.ClusterID = cluster.ClusterID
	_, err = cvtResult(c.httpClient.Post(ctx, cluster.Endpoint+"/system/services", service,
		"Authorization", "Bearer "+token))
	return err
}

func (c *Client) UpdateService(ctx context.Context, vo, token string, service *Service) error {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return err
	}
	service.ClusterID = cluster.ClusterID
	_, err = cvtResult(c.httpClient.Put(ctx, cluster.Endpoint+"/system/services", service,
		"Authorization", "Bearer "+token))
	return err
}

func (c *Client) DeleteService(ctx context.Context, vo, token, name string) error {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return err
	}
	_, err = cvtResult(c.httpClient.Delete(ctx, cluster.Endpoint+"/system/services/"+url.PathEscape(name),
		"Authorization", "Bearer "+token))
	return err
}

// Invoke runs the service synchronously with the given payload and returns
// the raw response body.
func (c *Client) Invoke(ctx context.Context, vo, token, name string, payload interface{}) ([]byte, error) {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return nil, err
	}
	res, err := cvtResult(c.httpClient.Post(ctx, cluster.Endpoint+"/run/"+url.PathEscape(name), payload,
		"Authorization", "Bearer "+token))
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Logs lists the execution records of a service's async invocations, keyed
// by job name.
func (c *Client) Logs(ctx context.Context, vo, token, name string) (map[string]LogEntry, error) {
	cluster, err := c.endpoint(vo)
	if err != nil {
		return nil, err
	}
	res, err := cvtResult(c.httpClient.Get(ctx, cluster.Endpoint+"/system/logs/"+url.PathEscape(name),
		"Authorization", "Bearer "+token))
	if err != nil {
		return nil, err
	}
	logs := map[string]LogEntry{}
	if err := res.Unmarshal(&logs); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed logs: %v", err))
	}
	return logs, nil
}
