/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package instance_handlers exposes instance lifecycle over REST.
// Start, stop, restart and remove are synchronous: the response is
// sent only after the operation finished, so a 200 from start means
// the engine answered its readiness probe.
package instance_handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/instance"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the instance routes.
type Handler struct {
	app *app.App
}

// NewHandler returns an instance handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// ListInstances returns every registered instance plus the option
// catalogs the UI needs to build the creation form.
func (h *Handler) ListInstances(c *gin.Context) {
	reg := h.app.Instances()
	c.JSON(http.StatusOK, ListResponse{
		Instances:  reg.Views(),
		VramModes:  config.VramModeNames(),
		ExtraFlags: config.ExtraFlags,
		NextPort:   reg.NextAvailablePort(),
		Max:        config.MaxInstances,
	})
}

// CreateInstance registers a new instance without starting it.
func (h *Handler) CreateInstance(c *gin.Context) {
	var spec instance.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		utils.AbortWithApiError(c, errors.NewBadRequest("Invalid instance spec: "+err.Error()))
		return
	}
	inst, err := h.app.Instances().Add(spec)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("instance %s registered on port %d", inst.ID, inst.Port)
	h.app.UpdateInstanceGauges()
	c.JSON(http.StatusCreated, inst.View())
}

// StartInstance starts one instance and waits for readiness.
func (h *Handler) StartInstance(c *gin.Context) {
	id := c.Param("id")
	inst, err := h.app.Instances().Get(id)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	ok, err := h.app.Instances().Start(id, nil)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.UpdateInstanceGauges()
	if !ok {
		reason := inst.Handle.LastError()
		if reason == "" {
			reason = fmt.Sprintf("instance %s failed to start", id)
		}
		utils.AbortWithApiError(c, errors.NewInternal(reason))
		return
	}
	h.app.EmitServerLog("instance %s running at %s", id, inst.URL())
	c.JSON(http.StatusOK, gin.H{"status": "running", "url": inst.URL()})
}

// StopInstance stops one instance. Stopping a stopped instance is a
// no-op that still answers 200.
func (h *Handler) StopInstance(c *gin.Context) {
	id := c.Param("id")
	ok, err := h.app.Instances().Stop(id, nil)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.UpdateInstanceGauges()
	if !ok {
		utils.AbortWithApiError(c, errors.NewInternal(fmt.Sprintf("instance %s did not stop", id)))
		return
	}
	h.app.EmitServerLog("instance %s stopped", id)
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// RestartInstance stops and starts one instance, waiting for
// readiness.
func (h *Handler) RestartInstance(c *gin.Context) {
	id := c.Param("id")
	inst, err := h.app.Instances().Get(id)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	ok, err := h.app.Instances().Restart(id, nil)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.UpdateInstanceGauges()
	if !ok {
		reason := inst.Handle.LastError()
		if reason == "" {
			reason = fmt.Sprintf("instance %s failed to restart", id)
		}
		utils.AbortWithApiError(c, errors.NewInternal(reason))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "running", "url": inst.URL()})
}

// RemoveInstance stops the instance if needed and unregisters it.
func (h *Handler) RemoveInstance(c *gin.Context) {
	id := c.Param("id")
	if err := h.app.Instances().Remove(id, nil); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("instance %s removed", id)
	h.app.UpdateInstanceGauges()
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// GetInstanceHealth probes the instance's engine endpoint.
func (h *Handler) GetInstanceHealth(c *gin.Context) {
	health, err := h.app.CheckHealth(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, health)
}

// StartAll starts every stopped instance concurrently and waits for
// all of them.
func (h *Handler) StartAll(c *gin.Context) {
	started, total := h.app.Instances().StartAll(nil)
	h.app.EmitServerLog("started %d of %d instances", started, total)
	h.app.UpdateInstanceGauges()
	c.JSON(http.StatusOK, gin.H{"started": started, "total": total})
}

// StopAll stops every instance in registration order.
func (h *Handler) StopAll(c *gin.Context) {
	failed := h.app.Instances().StopAll(nil)
	h.app.UpdateInstanceGauges()
	if len(failed) > 0 {
		utils.AbortWithApiError(c, errors.NewInternal(fmt.Sprintf("instances did not stop: %v", failed)))
		return
	}
	h.app.EmitServerLog("all instances stopped")
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
