/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package node_handlers manages the engine's custom node packs.
// Install and update run git, so they are jobs; listing and removal
// are synchronous.
package node_handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/jobs"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/supervisor"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the custom node routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a node handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetRegistry returns the curated node pack catalog with install
// state.
func (h *Handler) GetRegistry(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.app.Nodes().Registry()})
}

// GetInstalled lists the node packs present in custom_nodes.
func (h *Handler) GetInstalled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.app.Nodes().Installed()})
}

// InstallRequest names the packs to install: catalog ids or git
// repository URLs, singly or as a batch.
type InstallRequest struct {
	Target  string   `json:"target"`
	Targets []string `json:"targets"`
}

// Install clones the requested node packs as one job. A single target
// fails the job on error; a batch continues past failures and reports
// the per-pack outcome.
func (h *Handler) Install(c *gin.Context) {
	var req InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Target == "" && len(req.Targets) == 0) {
		utils.AbortWithApiError(c, errors.NewBadRequest("Missing required field \"target\" or \"targets\""))
		return
	}

	mgr := h.app.Nodes()
	if req.Target != "" {
		id := h.app.Supervisor().Launch(supervisor.JobSpec{
			Operation: "node_install",
			Run: func(p progress.Sink) (interface{}, error) {
				if err := mgr.Install(context.Background(), req.Target, p); err != nil {
					return nil, err
				}
				return gin.H{"target": req.Target}, nil
			},
		})
		utils.RespondAccepted(c, id)
		return
	}

	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "node_install",
		Run: func(p progress.Sink) (interface{}, error) {
			details := make(map[string]bool)
			for n, target := range req.Targets {
				p(n, len(req.Targets), fmt.Sprintf("Installing %s (%d/%d)", target, n+1, len(req.Targets)))
				details[target] = mgr.Install(context.Background(), target, nil) == nil
			}
			p(len(req.Targets), len(req.Targets), "Installs finished")
			return jobs.NewAggregate(details), nil
		},
	})
	utils.RespondAccepted(c, id)
}

// Update pulls one installed node pack as a job.
func (h *Handler) Update(c *gin.Context) {
	name := c.Param("name")
	mgr := h.app.Nodes()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "node_update",
		Run: func(p progress.Sink) (interface{}, error) {
			if err := mgr.Update(context.Background(), name, p); err != nil {
				return nil, err
			}
			return gin.H{"name": name}, nil
		},
	})
	utils.RespondAccepted(c, id)
}

// UpdateAll pulls every installed node pack as one job.
func (h *Handler) UpdateAll(c *gin.Context) {
	mgr := h.app.Nodes()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "node_update_all",
		Run: func(p progress.Sink) (interface{}, error) {
			details := make(map[string]bool)
			for _, r := range mgr.UpdateAll(context.Background(), p) {
				details[r.Name] = r.OK
			}
			return jobs.NewAggregate(details), nil
		},
	})
	utils.RespondAccepted(c, id)
}

// Remove deletes one installed node pack directory.
func (h *Handler) Remove(c *gin.Context) {
	name := c.Param("name")
	if err := h.app.Nodes().Remove(name); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("node pack %s removed", name)
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
