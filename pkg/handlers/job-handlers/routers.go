/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package job_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitJobRouters registers the job polling routes.
func InitJobRouters(e *gin.Engine, h *Handler) {
	e.GET("/jobs", h.ListJobs)
	e.GET("/jobs/:id", h.GetJob)
}
