/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployment_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitDeploymentRouters registers the deployment API routes.
func InitDeploymentRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/deployments", auth.Authorize())
	{
		group.GET("modules", h.ListModules)
		group.POST("modules", h.CreateModule)
		group.GET("modules/:uuid", h.GetDeployment)
		group.DELETE("modules/:uuid", h.DeleteDeployment)

		group.GET("tools", h.ListTools)
		group.POST("tools", h.CreateTool)
		group.GET("tools/:uuid", h.GetDeployment)
		group.DELETE("tools/:uuid", h.DeleteDeployment)

		group.GET("batch", h.ListBatch)
		group.POST("batch", h.CreateBatch)
		group.GET("batch/:uuid", h.GetDeployment)
		group.DELETE("batch/:uuid", h.DeleteDeployment)
	}
}
