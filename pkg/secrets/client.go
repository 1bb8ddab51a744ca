/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package secrets brokers a key/value secret store. The store token can
// read the whole root; the per-user path prefix is enforced here, server
// side, so users can never name a path outside their own subtree.
package secrets

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

const tokenHeader = "X-Vault-Token"

type Client struct {
	addr       string
	token      string
	root       string
	httpClient httpclient.Interface
}

func NewClient(hc httpclient.Interface) *Client {
	return &Client{
		addr:       config.GetVaultAddr(),
		token:      config.GetVaultToken(),
		root:       config.GetSecretRoot(),
		httpClient: hc,
	}
}

// NewClientWith builds a client against an explicit store, used by tests.
func NewClientWith(addr, token, root string, hc httpclient.Interface) *Client {
	return &Client{addr: addr, token: token, root: root, httpClient: hc}
}

// userPath derives the effective store path. All paths are rooted at
// /<root>/<vo>/users/<subject>/; anything escaping that subtree fails.
func (c *Client) userPath(vo, subject, subpath string) (string, error) {
	prefix := path.Join(c.root, vo, "users", subject)
	full := path.Clean(path.Join(prefix, strings.TrimSpace(subpath)))
	if full != prefix && !strings.HasPrefix(full, prefix+"/") {
		return "", errors.NewSecretPathForbidden(
			fmt.Sprintf("path %q escapes the user's secret subtree", subpath))
	}
	return full, nil
}

func (c *Client) url(storePath string) string {
	return c.addr + "/v1" + storePath
}

// List walks the user's subtree under subpath recursively and returns the
// secrets keyed by their path relative to the user root.
func (c *Client) List(ctx context.Context, vo, subject, subpath string) (map[string]map[string]interface{}, error) {
	base, err := c.userPath(vo, subject, subpath)
	if err != nil {
		return nil, err
	}
	userRoot, _ := c.userPath(vo, subject, "")
	out := map[string]map[string]interface{}{}
	if err := c.walk(ctx, base, userRoot, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) walk(ctx context.Context, storePath, userRoot string, out map[string]map[string]interface{}) error {
	res, err := c.httpClient.Get(ctx, c.url(storePath)+"?list=true", tokenHeader, c.token)
	if err != nil {
		return errors.NewBackendError(fmt.Sprintf("secret store unreachable: %v", err))
	}
	if res.StatusCode == http.StatusNotFound {
		// empty subtree
		return nil
	}
	if !res.IsSuccess() {
		return errors.NewBackendError(fmt.Sprintf("secret store returned %d: %s", res.StatusCode, res.Body))
	}
	var listing struct {
		Data struct {
			Keys []string `json:"keys"`
		} `json:"data"`
	}
	if err := res.Unmarshal(&listing); err != nil {
		return errors.NewInternalError(fmt.Sprintf("malformed secret listing: %v", err))
	}
	for _, key := range listing.Data.Keys {
		child := path.Join(storePath, key)
		if strings.HasSuffix(key, "/") {
			if err := c.walk(ctx, child, userRoot, out); err != nil {
				return err
			}
			continue
		}
		value, err := c.read(ctx, child)
		if err != nil {
			return err
		}
		out["/"+strings.TrimPrefix(strings.TrimPrefix(child, userRoot), "/")] = value
	}
	return nil
}

func (c *Client) read(ctx context.Context, storePath string) (map[string]interface{}, error) {
	res, err := c.httpClient.Get(ctx, c.url(storePath), tokenHeader, c.token)
	if err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("secret store unreachable: %v", err))
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewNotFound("secret not found")
	}
	if !res.IsSuccess() {
		return nil, errors.NewBackendError(fmt.Sprintf("secret store returned %d: %s", res.StatusCode, res.Body))
	}
	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := res.Unmarshal(&payload); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("malformed secret: %v", err))
	}
	return payload.Data, nil
}

// Get reads one secret under the user's subtree.
func (c *Client) Get(ctx context.Context, vo, subject, subpath string) (map[string]interface{}, error) {
	storePath, err := c.userPath(vo, subject, subpath)
	if err != nil {
		return nil, err
	}
	return c.read(ctx, storePath)
}

// Put creates or replaces one secret.
func (c *Client) Put(ctx context.Context, vo, subject, subpath string, value map[string]interface{}) error {
	storePath, err := c.userPath(vo, subject, subpath)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Post(ctx, c.url(storePath), value, tokenHeader, c.token)
	if err != nil {
		return errors.NewBackendError(fmt.Sprintf("secret store unreachable: %v", err))
	}
	if !res.IsSuccess() {
		return errors.NewBackendError(fmt.Sprintf("secret store returned %d: %s", res.StatusCode, res.Body))
	}
	return nil
}

// Delete removes one secret.
func (c *Client) Delete(ctx context.Context, vo, subject, subpath string) error {
	storePath, err := c.userPath(vo, subject, subpath)
	if err != nil {
		return err
	}
	res, err := c.httpClient.Delete(ctx, c.url(storePath), tokenHeader, c.token)
	if err != nil {
		return errors.NewBackendError(fmt.Sprintf("secret store unreachable: %v", err))
	}
	if !res.IsSuccess() {
		return errors.NewBackendError(fmt.Sprintf("secret store returned %d: %s", res.StatusCode, res.Body))
	}
	return nil
}
