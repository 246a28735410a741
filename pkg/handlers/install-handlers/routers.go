/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package install_handlers

import (
	"github.com/gin-gonic/gin"
)

// InitInstallRouters registers the provisioning routes.
func InitInstallRouters(e *gin.Engine, h *Handler) {
	e.GET("/install/status", h.GetInstallStatus)
	e.POST("/install", h.Install)
	e.POST("/install/sage-attention", h.InstallSageAttention)
	e.POST("/update", h.Update)
	e.POST("/purge", h.Purge)
	e.POST("/purge-all", h.PurgeAll)
}
