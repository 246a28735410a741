/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package status_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitStatusRouters registers the overview routes.
func InitStatusRouters(e *gin.Engine, h *Handler) {
	e.GET("/status", h.GetStatus)
	e.GET("/gpus", h.GetGpus)
	e.GET("/settings", h.GetSettings)
	e.PUT("/settings", h.PutSettings)
}
