/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package target_handlers manages which engine directory is active,
// the saved directory list and the extra model directories. All of it
// is persisted in settings.json; switching the target rebuilds the
// collaborator set.
package target_handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// Handler answers the target management routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a target handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// DirRequest is the body of every route that names a directory.
type DirRequest struct {
	Dir string `json:"dir" binding:"required"`
}

func (h *Handler) bindDir(c *gin.Context) (string, bool) {
	var req DirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.AbortWithApiError(c, errors.NewBadRequest("Missing required field \"dir\""))
		return "", false
	}
	return req.Dir, true
}

// GetTarget reports the active engine directory.
func (h *Handler) GetTarget(c *gin.Context) {
	env := h.app.Env()
	c.JSON(http.StatusOK, gin.H{
		"dir":        env.EngineDir,
		"is_builtin": env.IsBuiltin(),
		"installed":  env.IsEngineInstalled(),
	})
}

// PutTarget switches the active engine directory.
func (h *Handler) PutTarget(c *gin.Context) {
	dir, ok := h.bindDir(c)
	if !ok {
		return
	}
	if err := h.app.SwitchTarget(dir); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.app.EmitServerLog("engine target switched to %s", dir)
	h.GetTarget(c)
}

// ResetTarget switches back to the built-in engine directory.
func (h *Handler) ResetTarget(c *gin.Context) {
	if err := h.app.SwitchTarget(""); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.GetTarget(c)
}

// ListSaved returns the saved engine directories, built-in first.
func (h *Handler) ListSaved(c *gin.Context) {
	builtin := h.app.Env().BuiltinEngineDir()
	c.JSON(http.StatusOK, gin.H{"dirs": h.app.Settings().SavedEngineDirs(builtin)})
}

// AddSaved stores one engine directory for later switching.
func (h *Handler) AddSaved(c *gin.Context) {
	dir, ok := h.bindDir(c)
	if !ok {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		utils.AbortWithApiError(c, errors.NewBadRequest("Directory does not exist: "+dir))
		return
	}
	if err := h.app.Settings().AddSavedEngineDir(dir, h.app.Env().BuiltinEngineDir()); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.ListSaved(c)
}

// RemoveSaved drops one saved engine directory.
func (h *Handler) RemoveSaved(c *gin.Context) {
	dir, ok := h.bindDir(c)
	if !ok {
		return
	}
	if err := h.app.Settings().RemoveSavedEngineDir(dir); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.ListSaved(c)
}

// ListExtraDirs returns the extra model search directories.
func (h *Handler) ListExtraDirs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dirs": h.app.Settings().ExtraModelDirs()})
}

// AddExtraDir registers one extra model search directory.
func (h *Handler) AddExtraDir(c *gin.Context) {
	dir, ok := h.bindDir(c)
	if !ok {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		utils.AbortWithApiError(c, errors.NewBadRequest("Directory does not exist: "+dir))
		return
	}
	if err := h.app.Settings().AddExtraModelDir(dir); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.ListExtraDirs(c)
}

// RemoveExtraDir drops one extra model search directory.
func (h *Handler) RemoveExtraDir(c *gin.Context) {
	dir, ok := h.bindDir(c)
	if !ok {
		return
	}
	if err := h.app.Settings().RemoveExtraModelDir(dir); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	h.ListExtraDirs(c)
}
