/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package snapshot_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitSnapshotRouters registers the snapshot API routes.
func InitSnapshotRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/snapshots", auth.Authorize())
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.DELETE("/:id", h.Delete)
	}
}
