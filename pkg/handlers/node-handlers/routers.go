/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package node_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitNodeRouters registers the custom node routes. The literal
// update-all path comes before the :name routes.
func InitNodeRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/nodes")
	{
		group.GET("registry", h.GetRegistry)
		group.GET("installed", h.GetInstalled)
		group.POST("install", h.Install)
		group.POST("update-all", h.UpdateAll)

		group.POST(":name/update", h.Update)
		group.DELETE(":name", h.Remove)
	}
}
