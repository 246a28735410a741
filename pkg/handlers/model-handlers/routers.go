/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package model_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitModelRouters registers the model routes.
func InitModelRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/models")
	{
		group.GET("registry", h.GetRegistry)
		group.GET("registry/:id", h.GetRegistryEntry)
		group.GET("local", h.GetLocal)
		group.GET("categories", h.GetCategories)
		group.GET("search", h.Search)
		group.POST("download", h.Download)
		group.DELETE(":category/:name", h.Delete)
	}
}
