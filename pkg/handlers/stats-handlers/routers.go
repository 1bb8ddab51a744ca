/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stats_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitStatsRouters registers the deployment statistics routes.
func InitStatsRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/deployments/stats", auth.Authorize())
	{
		group.GET("/user", h.UserStats)
		group.GET("/cluster", h.ClusterStats)
		group.GET("/cluster/gpus", h.GPUStats)
	}
}
