/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package nomad

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	goerrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

// Client talks to the Scheduler's HTTP API.
type Client struct {
	addr       string
	httpClient httpclient.Interface
}

var (
	initOnce sync.Once
	instance *Client
	initErr  error
)

// NewClient builds the singleton Scheduler client, loading mutual-TLS
// material from the NOMAD_* environment when present.
func NewClient() (*Client, error) {
	initOnce.Do(func() {
		tlsConfig, err := buildTLSConfig()
		if err != nil {
			initErr = err
			return
		}
		instance = &Client{
			addr:       config.GetNomadAddr(),
			httpClient: httpclient.New(httpclient.Options{TLSConfig: tlsConfig}),
		}
	})
	return instance, initErr
}

// NewClientWith builds a client against an explicit address, used by tests.
func NewClientWith(addr string, hc httpclient.Interface) *Client {
	return &Client{addr: addr, httpClient: hc}
}

func buildTLSConfig() (*tls.Config, error) {
	caCert := config.GetNomadCACert()
	clientCert := config.GetNomadClientCert()
	clientKey := config.GetNomadClientKey()
	if caCert == "" && clientCert == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caCert != "" {
		pem, err := os.ReadFile(caCert)
		if err != nil {
			return nil, fmt.Errorf("failed to read scheduler CA cert: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caCert)
		}
		tlsConfig.RootCAs = pool
	}
	if clientCert != "" {
		cert, err := tls.LoadX509KeyPair(clientCert, clientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load scheduler client cert: %v", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// cvtError maps an upstream response to the error taxonomy. The upstream
// message is passed through verbatim.
func cvtError(res *httpclient.Result, err error) error {
	if err != nil {
		if goerrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeout(err.Error())
		}
		return errors.NewBackendError(err.Error())
	}
	if res.StatusCode == http.StatusNotFound {
		return errors.NewWorkloadNotFound(string(res.Body))
	}
	return errors.NewBackendError(fmt.Sprintf("scheduler returned %d: %s", res.StatusCode, res.Body))
}

// filterQuote makes a value safe to splice into a quoted filter expression.
func filterQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// ListJobs returns the caller's live jobs in a namespace. The filter keys on
// the owner metadata field so one user can never see another's jobs; an
// empty owner lists every job under the prefix.
func (c *Client) ListJobs(ctx context.Context, namespace, owner, prefix string) ([]JobStub, error) {
	filter := fmt.Sprintf(`Name matches "^%s" and Meta is not empty`, filterQuote(prefix))
	if !config.CountDeadJobs() {
		filter = `Status != "dead" and ` + filter
	}
	if owner != "" {
		filter += fmt.Sprintf(` and Meta.owner == "%s"`, filterQuote(owner))
	}
	u := fmt.Sprintf("%s/v1/jobs?namespace=%s&meta=true&filter=%s",
		c.addr, url.QueryEscape(namespace), url.QueryEscape(filter))
	res, err := c.httpClient.Get(ctx, u)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var jobs []JobStub
	if err := res.Unmarshal(&jobs); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode job list: %v", err))
	}
	return jobs, nil
}

// GetJob reads one job by ID.
func (c *Client) GetJob(ctx context.Context, namespace, id string) (*Job, error) {
	u := fmt.Sprintf("%s/v1/job/%s?namespace=%s", c.addr, url.PathEscape(id), url.QueryEscape(namespace))
	res, err := c.httpClient.Get(ctx, u)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var job Job
	if err := res.Unmarshal(&job); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode job: %v", err))
	}
	return &job, nil
}

// GetAllocations returns a job's allocations, most recent first.
func (c *Client) GetAllocations(ctx context.Context, namespace, id string) ([]Allocation, error) {
	u := fmt.Sprintf("%s/v1/job/%s/allocations?namespace=%s",
		c.addr, url.PathEscape(id), url.QueryEscape(namespace))
	res, err := c.httpClient.Get(ctx, u)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var allocs []Allocation
	if err := res.Unmarshal(&allocs); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode allocations: %v", err))
	}
	sort.Slice(allocs, func(i, j int) bool { return allocs[i].CreateTime > allocs[j].CreateTime })
	return allocs, nil
}

// GetLatestEvaluation returns the most recent evaluation of a job, or nil
// when the job has none yet.
func (c *Client) GetLatestEvaluation(ctx context.Context, namespace, id string) (*Evaluation, error) {
	u := fmt.Sprintf("%s/v1/job/%s/evaluations?namespace=%s",
		c.addr, url.PathEscape(id), url.QueryEscape(namespace))
	res, err := c.httpClient.Get(ctx, u)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var evals []Evaluation
	if err := res.Unmarshal(&evals); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode evaluations: %v", err))
	}
	if len(evals) == 0 {
		return nil, nil
	}
	latest := evals[0]
	for _, e := range evals[1:] {
		if e.CreateTime > latest.CreateTime {
			latest = e
		}
	}
	return &latest, nil
}

// ParseJob converts a rendered HCL spec into the Scheduler's job object.
func (c *Client) ParseJob(ctx context.Context, hcl string) (*Job, error) {
	body := map[string]interface{}{"JobHCL": hcl, "Canonicalize": true}
	res, err := c.httpClient.Post(ctx, c.addr+"/v1/jobs/parse", body)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var job Job
	if err := res.Unmarshal(&job); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode parsed job: %v", err))
	}
	return &job, nil
}

// SubmitJob registers a job. Submission is never retried; on failure the
// user re-submits.
func (c *Client) SubmitJob(ctx context.Context, job *Job) error {
	body := map[string]interface{}{"Job": job}
	u := fmt.Sprintf("%s/v1/jobs?namespace=%s", c.addr, url.QueryEscape(job.Namespace))
	res, err := c.httpClient.Post(ctx, u, body)
	if err != nil || !res.IsSuccess() {
		return cvtError(res, err)
	}
	klog.Infof("submitted job %s to namespace %s", job.ID, job.Namespace)
	return nil
}

// DeregisterJob stops a job. Purge removes it entirely, which must work for
// jobs in any state including already-dead ones.
func (c *Client) DeregisterJob(ctx context.Context, namespace, id string, purge bool) error {
	u := fmt.Sprintf("%s/v1/job/%s?namespace=%s&purge=%t",
		c.addr, url.PathEscape(id), url.QueryEscape(namespace), purge)
	res, err := c.httpClient.Delete(ctx, u)
	if err != nil || !res.IsSuccess() {
		return cvtError(res, err)
	}
	klog.Infof("deregistered job %s (purge=%t)", id, purge)
	return nil
}

// ListNodes returns all nodes with their resources.
func (c *Client) ListNodes(ctx context.Context) ([]Node, error) {
	res, err := c.httpClient.Get(ctx, c.addr+"/v1/nodes?resources=true")
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var nodes []Node
	if err := res.Unmarshal(&nodes); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode nodes: %v", err))
	}
	return nodes, nil
}

// ListNodeAllocations returns the allocations currently placed on a node.
func (c *Client) ListNodeAllocations(ctx context.Context, nodeID string) ([]Allocation, error) {
	u := fmt.Sprintf("%s/v1/node/%s/allocations", c.addr, url.PathEscape(nodeID))
	res, err := c.httpClient.Get(ctx, u)
	if err != nil || !res.IsSuccess() {
		return nil, cvtError(res, err)
	}
	var allocs []Allocation
	if err := res.Unmarshal(&allocs); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("failed to decode node allocations: %v", err))
	}
	return allocs, nil
}
