/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package model_handlers exposes the model catalog, the local model
// scan, hub search and download jobs.
package model_handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/jobs"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/models"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/supervisor"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the model routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a model handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetRegistry returns the curated model catalog with install state.
func (h *Handler) GetRegistry(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.app.Models().Registry()})
}

// GetRegistryEntry returns one curated catalog entry.
func (h *Handler) GetRegistryEntry(c *gin.Context) {
	entry, err := h.app.Models().RegistryGet(c.Param("id"))
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// GetLocal scans the model directories and returns what is on disk.
func (h *Handler) GetLocal(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.app.Models().Scan()})
}

// GetCategories returns the known model category names.
func (h *Handler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": config.ModelCategories})
}

// Search queries the hugging face hub.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.AbortWithApiError(c, errors.NewBadRequest("Missing query parameter \"q\""))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	results, err := h.app.Models().Search(c.Request.Context(), query, limit)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// DownloadRequest is the body of POST /models/download: either a
// curated registry id or a list of explicit file requests.
type DownloadRequest struct {
	RegistryID string                   `json:"registry_id"`
	Files      []models.DownloadRequest `json:"files"`
}

// Download launches the requested downloads as one job.
func (h *Handler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AbortWithApiError(c, errors.NewBadRequest("Invalid download request: "+err.Error()))
		return
	}
	if req.RegistryID == "" && len(req.Files) == 0 {
		utils.AbortWithApiError(c, errors.NewBadRequest("Nothing to download"))
		return
	}
	if req.RegistryID != "" {
		if _, err := h.app.Models().RegistryGet(req.RegistryID); err != nil {
			utils.AbortWithApiError(c, err)
			return
		}
	}
	for _, f := range req.Files {
		if f.URL == "" {
			utils.AbortWithApiError(c, errors.NewBadRequest("Missing download url"))
			return
		}
	}

	mgr := h.app.Models()
	id := h.app.Supervisor().Launch(supervisor.JobSpec{
		Operation: "model_download",
		Run: func(p progress.Sink) (interface{}, error) {
			if req.RegistryID != "" {
				if err := mgr.DownloadFromRegistry(context.Background(), req.RegistryID, p); err != nil {
					return nil, err
				}
				return gin.H{"registry_id": req.RegistryID}, nil
			}
			details := make(map[string]bool)
			for _, r := range mgr.DownloadMany(context.Background(), req.Files, p) {
				details[r.Filename] = r.OK
			}
			return jobs.NewAggregate(details), nil
		},
	})
	utils.RespondAccepted(c, id)
}

// Delete removes one local model file.
func (h *Handler) Delete(c *gin.Context) {
	category := c.Param("category")
	name := c.Param("name")
	if err := h.app.Models().Delete(category, name); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("model %s/%s deleted", category, name)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
