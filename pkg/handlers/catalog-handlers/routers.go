/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package catalog_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitCatalogRouters registers the catalog API routes. Reads are public;
// cache invalidation needs a logged-in user.
func InitCatalogRouters(e *gin.Engine, h *Handler) {
	for _, family := range []string{"/v1/catalog/modules", "/v1/catalog/tools"} {
		group := e.Group(family)
		{
			group.GET("", h.List)
			group.GET("/detail", h.Detail)
			group.GET("/:name/metadata", h.Metadata)
			group.GET("/:name/config", h.ConfigSchema)
			group.PUT("/:name/refresh", auth.Authorize(), h.Refresh)
		}
	}
}
