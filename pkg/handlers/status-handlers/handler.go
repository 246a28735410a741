/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package status_handlers serves the read-only overview endpoints:
// install state, GPU inventory and persisted settings.
package status_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/gpu"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the overview routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a status handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetStatus summarizes the installation and the registry.
func (h *Handler) GetStatus(c *gin.Context) {
	reg := h.app.Instances()
	c.JSON(http.StatusOK, StatusResponse{
		Version:   config.AppVersion,
		Install:   h.app.Installer().Check(),
		IsBuiltin: h.app.Env().IsBuiltin(),
		Instances: InstanceSummary{
			Total:   len(reg.List()),
			Running: reg.RunningCount(),
			Max:     config.MaxInstances,
		},
		Jobs: len(h.app.Jobs().List()),
	})
}

// GetGpus lists the GPUs visible to nvidia-smi.
func (h *Handler) GetGpus(c *gin.Context) {
	gpus := gpu.Probe(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"gpus": gpus, "count": len(gpus)})
}

// GetSettings returns the persisted settings document.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Settings().Load())
}

// PutSettings merges the request body into the persisted settings.
func (h *Handler) PutSettings(c *gin.Context) {
	var updates config.Settings
	if err := c.ShouldBindJSON(&updates); err != nil {
		utils.AbortWithApiError(c, badBody(err))
		return
	}
	if err := h.app.Settings().Save(updates); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.app.Settings().Load())
}
