/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package instance_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitInstanceRouters registers the instance routes. The literal
// start-all and stop-all paths come before the :id routes so gin never
// captures them as an id.
func InitInstanceRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/instances")
	{
		group.GET("", h.ListInstances)
		group.POST("", h.CreateInstance)
		group.POST("start-all", h.StartAll)
		group.POST("stop-all", h.StopAll)

		group.POST(":id/start", h.StartInstance)
		group.POST(":id/stop", h.StopInstance)
		group.POST(":id/restart", h.RestartInstance)
		group.GET(":id/health", h.GetInstanceHealth)
		group.DELETE(":id", h.RemoveInstance)
	}
}
