/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package target_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitTargetRouters registers the engine target routes.
func InitTargetRouters(e *gin.Engine, h *Handler) {
	group := e.Group("/comfyui")
	{
		group.GET("target", h.GetTarget)
		group.PUT("target", h.PutTarget)
		group.POST("target/reset", h.ResetTarget)

		group.GET("saved", h.ListSaved)
		group.POST("saved", h.AddSaved)
		group.DELETE("saved", h.RemoveSaved)

		group.GET("extra-model-dirs", h.ListExtraDirs)
		group.POST("extra-model-dirs", h.AddExtraDir)
		group.DELETE("extra-model-dirs", h.RemoveExtraDir)
	}
}
