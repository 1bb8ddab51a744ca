/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package inference_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitInferenceRouters registers the inference API routes.
func InitInferenceRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/inference/oscar/services", auth.Authorize())
	{
		group.GET("", h.ListServices)
		group.POST("", h.CreateService)
		group.GET("/:name", h.GetService)
		group.PUT("/:name", h.UpdateService)
		group.DELETE("/:name", h.DeleteService)
		group.POST("/:name/invoke", h.InvokeService)
		group.GET("/:name/logs", h.ServiceLogs)
	}
}
