/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package proxy_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitProxyRouters registers the LLM proxy routes.
func InitProxyRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/v1/proxies/llm", auth.Authorize())
	{
		group.GET("/models", h.ListModels)
		group.POST("/chat", h.Chat)
	}
}
