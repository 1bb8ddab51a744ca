/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package catalog_handlers serves the public marketplace API: item lists,
// metadata and deployable config schemas.
package catalog_handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Handler handles HTTP requests for catalog resources.
type Handler struct {
	catalog catalog.Catalog
}

// NewHandler creates a new catalog handler.
func NewHandler(cat catalog.Catalog) *Handler {
	return &Handler{catalog: cat}
}

// handle is a common handler wrapper for HTTP requests.
func handle(c *gin.Context, fn func(c *gin.Context) (interface{}, error)) {
	result, err := fn(c)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(200, result)
}

func kindOf(c *gin.Context) catalog.Kind {
	if strings.Contains(c.FullPath(), "/tools") {
		return catalog.KindTool
	}
	return catalog.KindModule
}

// List returns the item names of a kind, optionally filtered by tags.
func (h *Handler) List(c *gin.Context) {
	handle(c, h.list)
}

// Detail returns the trimmed metadata of every item of a kind.
func (h *Handler) Detail(c *gin.Context) {
	handle(c, h.detail)
}

// Metadata returns the full record of one item.
func (h *Handler) Metadata(c *gin.Context) {
	handle(c, h.metadata)
}

// ConfigSchema returns the deployable parameter schema of one item.
func (h *Handler) ConfigSchema(c *gin.Context) {
	handle(c, h.configSchema)
}

// Refresh drops cached catalog entries so the next read refetches.
func (h *Handler) Refresh(c *gin.Context) {
	handle(c, h.refresh)
}

func (h *Handler) list(c *gin.Context) (interface{}, error) {
	kind := kindOf(c)
	tags := c.QueryArray("tags")
	if len(tags) == 0 {
		return h.catalog.List(c.Request.Context(), kind)
	}
	items, err := h.catalog.Detail(c.Request.Context(), kind)
	if err != nil {
		return nil, err
	}
	filtered := catalog.FilterByKeywords(items, tags)
	names := make([]string, 0, len(filtered))
	for _, item := range filtered {
		names = append(names, item.Name)
	}
	return names, nil
}

func (h *Handler) detail(c *gin.Context) (interface{}, error) {
	items, err := h.catalog.Detail(c.Request.Context(), kindOf(c))
	if err != nil {
		return nil, err
	}
	if tags := c.QueryArray("tags"); len(tags) > 0 {
		items = catalog.FilterByKeywords(items, tags)
	}
	return items, nil
}

func (h *Handler) metadata(c *gin.Context) (interface{}, error) {
	return h.catalog.Metadata(c.Request.Context(), kindOf(c), c.Param("name"))
}

func (h *Handler) configSchema(c *gin.Context) (interface{}, error) {
	return catalog.ConfigSchema(c.Request.Context(), h.catalog, kindOf(c), c.Param("name"))
}

func (h *Handler) refresh(c *gin.Context) (interface{}, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, err
	}
	kind := kindOf(c)
	name := c.Param("name")
	h.catalog.Refresh(kind, name)
	klog.Infof("catalog refresh: kind=%s name=%s by=%s", kind, name, info.Subject)
	return gin.H{"status": "refreshed"}, nil
}
