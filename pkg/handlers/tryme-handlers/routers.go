/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package tryme_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitTryMeRouters registers the try-me API routes.
func InitTryMeRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/try_me", auth.Authorize())
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.DELETE("/:uuid", h.Delete)
	}
}
