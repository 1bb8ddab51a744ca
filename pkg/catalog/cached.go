/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	MetadataTTL = 6 * time.Hour
	ListTTL     = 15 * time.Minute
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// cachedCatalog wraps a resolver with per-key TTLs. Concurrent misses for
// the same key coalesce into one upstream fetch.
type cachedCatalog struct {
	inner Catalog
	store *gocache.Cache
	group singleflight.Group
	// now is swappable so expiry is testable without sleeping
	now func() time.Time
}

// NewCached wraps a catalog with the production TTLs.
func NewCached(inner Catalog) Catalog {
	return newCached(inner, time.Now)
}

func newCached(inner Catalog, now func() time.Time) *cachedCatalog {
	// the janitor only reclaims memory; expiry decisions use c.now
	return &cachedCatalog{
		inner: inner,
		store: gocache.New(gocache.NoExpiration, 30*time.Minute),
		now:   now,
	}
}

func (c *cachedCatalog) get(key string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if raw, found := c.store.Get(key); found {
		e := raw.(entry)
		if c.now().Before(e.expiresAt) {
			return e.value, nil
		}
		c.store.Delete(key)
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a concurrent flight may have repopulated the key already
		if raw, found := c.store.Get(key); found {
			if e := raw.(entry); c.now().Before(e.expiresAt) {
				return e.value, nil
			}
		}
		fetched, err := fetch()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, entry{value: fetched, expiresAt: c.now().Add(ttl)}, gocache.NoExpiration)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

func listKey(kind Kind) string             { return fmt.Sprintf("list/%s", kind) }
func detailKey(kind Kind) string           { return fmt.Sprintf("detail/%s", kind) }
func metaKey(kind Kind, name string) string { return fmt.Sprintf("meta/%s/%s", kind, name) }

func (c *cachedCatalog) List(ctx context.Context, kind Kind) ([]string, error) {
	val, err := c.get(listKey(kind), ListTTL, func() (interface{}, error) {
		return c.inner.List(ctx, kind)
	})
	if err != nil {
		return nil, err
	}
	return val.([]string), nil
}

func (c *cachedCatalog) Detail(ctx context.Context, kind Kind) ([]Summary, error) {
	val, err := c.get(detailKey(kind), ListTTL, func() (interface{}, error) {
		return c.inner.Detail(ctx, kind)
	})
	if err != nil {
		return nil, err
	}
	return val.([]Summary), nil
}

func (c *cachedCatalog) Metadata(ctx context.Context, kind Kind, name string) (*Metadata, error) {
	val, err := c.get(metaKey(kind, name), MetadataTTL, func() (interface{}, error) {
		return c.inner.Metadata(ctx, kind, name)
	})
	if err != nil {
		return nil, err
	}
	return val.(*Metadata), nil
}

// Refresh drops the matching keys. Readers racing a refresh see either the
// pre- or post-refresh snapshot, never a torn view: entries are immutable
// values swapped whole.
func (c *cachedCatalog) Refresh(kind Kind, name string) {
	if kind == "" {
		c.store.Flush()
		return
	}
	if name != "" {
		c.store.Delete(metaKey(kind, name))
		return
	}
	prefix := fmt.Sprintf("meta/%s/", kind)
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	c.store.Delete(listKey(kind))
	c.store.Delete(detailKey(kind))
}
