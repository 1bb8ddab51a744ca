/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package secret_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitSecretRouters registers the secret API routes.
func InitSecretRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/secrets", auth.Authorize())
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.DELETE("", h.Delete)
	}
}
