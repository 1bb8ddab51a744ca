/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
)

// Logger returns the access-log middleware. Errors attached to the context
// by AbortWithApiError are logged together with the request line.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			klog.Warningf("%s %s %d %v client=%s errors=%s",
				c.Request.Method, path, status, latency, c.ClientIP(), c.Errors.String())
			return
		}
		klog.Infof("%s %s %d %v client=%s",
			c.Request.Method, path, status, latency, c.ClientIP())
	}
}
