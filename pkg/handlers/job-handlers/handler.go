/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package job_handlers exposes the async job registry for polling.
package job_handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the job routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a job handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// ListJobs returns every tracked job, newest first.
func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.app.Jobs().List()})
}

// GetJob returns one job by id.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.app.Jobs().Get(c.Param("id"))
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
