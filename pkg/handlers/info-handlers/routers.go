/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package info_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
)

// InitInfoRouters registers the platform information routes. The schema
// endpoint is public; the mail relay requires a logged-in user.
func InitInfoRouters(e *gin.Engine, h *Handler) {
	e.GET("/v1/info/conf", h.Conf)
	e.POST("/v1/info/signup", auth.Authorize(), h.Signup)
}
