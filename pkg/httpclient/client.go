/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Interface is the outbound HTTP surface shared by the Scheduler, Registry,
// Secret Store and Function Platform clients.
type Interface interface {
	Get(ctx context.Context, url string, headers ...string) (*Result, error)
	Post(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error)
	Put(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error)
	Delete(ctx context.Context, url string, headers ...string) (*Result, error)
	Do(req *http.Request) (*Result, error)
}

// Result is a fully-read HTTP response.
type Result struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Unmarshal decodes the response body into v.
func (r *Result) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

type client struct {
	*http.Client
	maxTry int
}

const (
	DefaultTimeout = 15 * time.Second
	DefaultMaxTry  = 2
)

var (
	once     sync.Once
	instance *client
)

// Options customize a client built with New.
type Options struct {
	Timeout   time.Duration
	MaxTry    int
	TLSConfig *tls.Config
}

// NewHttpClient returns the shared pooled client. All callers that do not
// need client certificates use this instance.
func NewHttpClient() Interface {
	once.Do(func() {
		instance = newClient(Options{})
	})
	return instance
}

// New builds a dedicated client, for upstreams that need their own TLS
// material or timeouts (the Scheduler uses mutual TLS).
func New(opts Options) Interface {
	return newClient(opts)
}

func newClient(opts Options) *client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxTry := opts.MaxTry
	if maxTry == 0 {
		maxTry = DefaultMaxTry
	}
	return &client{
		maxTry: maxTry,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:       opts.TLSConfig,
				TLSHandshakeTimeout:   10 * time.Second,
				MaxIdleConns:          128,
				MaxConnsPerHost:       64,
				IdleConnTimeout:       1 * time.Minute,
				ExpectContinueTimeout: 10 * time.Second,
			},
		},
	}
}

func (c *client) Get(ctx context.Context, url string, headers ...string) (*Result, error) {
	return c.do(ctx, url, http.MethodGet, nil, headers...)
}

func (c *client) Post(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error) {
	return c.do(ctx, url, http.MethodPost, body, headers...)
}

func (c *client) Put(ctx context.Context, url string, body interface{}, headers ...string) (*Result, error) {
	return c.do(ctx, url, http.MethodPut, body, headers...)
}

func (c *client) Delete(ctx context.Context, url string, headers ...string) (*Result, error) {
	return c.do(ctx, url, http.MethodDelete, nil, headers...)
}

func (c *client) do(ctx context.Context, url, method string, body interface{}, headers ...string) (*Result, error) {
	req, err := BuildRequest(ctx, url, method, body, headers...)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Do executes the request, reading the whole body. Transport-level failures
// are retried up to maxTry times; HTTP error statuses are not, callers decide
// what a non-2xx means.
func (c *client) Do(req *http.Request) (*Result, error) {
	var rsp *http.Response
	var err error
	for i := 0; i < c.maxTry; i++ {
		if rsp, err = c.Client.Do(req); err == nil {
			break
		}
		if req.Context().Err() != nil || i == c.maxTry-1 {
			return nil, err
		}
	}
	if rsp == nil {
		return nil, fmt.Errorf("no result")
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: rsp.StatusCode, Body: data, Header: rsp.Header}, nil
}

// BuildRequest creates a request with the body converted to an io.Reader and
// headers set in (key, value) pairs. URLs without a scheme default to https.
func BuildRequest(ctx context.Context, url, method string, body interface{}, headers ...string) (*http.Request, error) {
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	reader, err := cvtIOReader(body)
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	return request, nil
}

func cvtIOReader(body interface{}) (io.Reader, error) {
	switch val := body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(val), nil
	case []byte:
		return bytes.NewReader(val), nil
	case io.Reader:
		return val, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
