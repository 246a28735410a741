/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package log_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitLogRouters registers the log routes.
func InitLogRouters(e *gin.Engine, h *Handler) {
	e.GET("/logs", h.GetLogs)
	e.GET("/ws/logs", h.StreamLogs)
}
