/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package install_handlers drives engine provisioning: install,
// update, the optional accelerator and the two purge flavors.
package install_handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/supervisor"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the provisioning routes.
type Handler struct {
	app *app.App
}

// NewHandler returns an install handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetInstallStatus reports what is on disk.
func (h *Handler) GetInstallStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Installer().Check())
}

// Install launches the full installation as a job.
func (h *Handler) Install(c *gin.Context) {
	inst := h.app.Installer()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "install",
		Run: func(p progress.Sink) (interface{}, error) {
			if err := inst.FullInstall(context.Background(), p); err != nil {
				return nil, err
			}
			return inst.Check(), nil
		},
	})
	utils.RespondAccepted(c, id)
}

// Update launches a git pull of the engine as a job.
func (h *Handler) Update(c *gin.Context) {
	inst := h.app.Installer()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "update",
		Run: func(p progress.Sink) (interface{}, error) {
			if err := inst.Update(context.Background(), p); err != nil {
				return nil, err
			}
			return inst.Check(), nil
		},
	})
	utils.RespondAccepted(c, id)
}

// InstallSageAttention launches the accelerator install as a job.
func (h *Handler) InstallSageAttention(c *gin.Context) {
	inst := h.app.Installer()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "install_sage_attention",
		Run: func(p progress.Sink) (interface{}, error) {
			return gin.H{"installed": true}, inst.InstallSageAttention(context.Background(), p)
		},
	})
	utils.RespondAccepted(c, id)
}

// Purge removes the engine directory, models backed up, while the
// environment stays. Refused while instances run.
func (h *Handler) Purge(c *gin.Context) {
	if h.app.Instances().AnyRunning() {
		utils.AbortWithApiError(c, errors.NewBadRequest("Stop all instances before purging"))
		return
	}
	if err := h.app.Installer().Purge(nil); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("engine purged")
	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}

// PurgeAll removes the entire base directory. Refused while instances
// run.
func (h *Handler) PurgeAll(c *gin.Context) {
	if h.app.Instances().AnyRunning() {
		utils.AbortWithApiError(c, errors.NewBadRequest("Stop all instances before purging"))
		return
	}
	if err := h.app.Installer().PurgeAll(nil); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "purged"})
}
