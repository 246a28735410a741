/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package middleware carries the gin middleware shared by every route
// group.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/metrics"
)

// HandleLogging logs every request with latency and status and feeds
// the request counter. Errors collected on the context are logged at
// warning level.
func HandleLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()

		if len(c.Errors) > 0 {
			klog.Warningf("%s %s %d %s %v", c.Request.Method, path, status, latency, c.Errors.Last())
			return
		}
		klog.V(2).Infof("%s %s %d %s", c.Request.Method, path, status, latency)
	}
}
