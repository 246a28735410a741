/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package node_handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/worker"
)

func newTestSetup(t *testing.T) (*gin.Engine, *app.App) {
	gin.SetMode(gin.TestMode)
	pool := worker.NewPool(0, 0)
	t.Cleanup(pool.Close)
	a := app.New(t.TempDir(), "", "", "", pool)

	engine := gin.New()
	InitNodeRouters(engine, NewHandler(a))
	return engine, a
}

func installFakeNode(t *testing.T, a *app.App, name string) {
	dir := filepath.Join(a.Env().EngineDir, "custom_nodes", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
}

func TestGetRegistryListsCatalog(t *testing.T) {
	router, _ := newTestSetup(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nodes/registry", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nodes []struct {
			ID        string `json:"id"`
			Installed bool   `json:"installed"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Nodes)
}

func TestGetInstalledListsDirs(t *testing.T) {
	router, a := newTestSetup(t)
	installFakeNode(t, a, "ComfyUI-TestPack")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nodes/installed", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ComfyUI-TestPack")
}

func TestInstallRequiresTarget(t *testing.T) {
	router, _ := newTestSetup(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/nodes/install", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveNode(t *testing.T) {
	router, a := newTestSetup(t)
	installFakeNode(t, a, "ComfyUI-TestPack")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/nodes/ComfyUI-TestPack", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoDirExists(t, filepath.Join(a.Env().EngineDir, "custom_nodes", "ComfyUI-TestPack"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/nodes/ComfyUI-TestPack", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
