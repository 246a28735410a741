/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package instance_handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/worker"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	pool := worker.NewPool(0, 0)
	t.Cleanup(pool.Close)
	a := app.New(t.TempDir(), "", "", "", pool)

	engine := gin.New()
	InitInstanceRouters(engine, NewHandler(a))
	return engine
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestListIncludesOptionCatalogs(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/instances", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "instances")
	assert.Contains(t, resp, "vram_modes")
	assert.Contains(t, resp, "extra_flags")
	assert.Contains(t, resp, "next_port")
}

func TestCreateInstance(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/instances", `{"port": 8190, "gpu_device": 0}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "gpu0_8190", view["id"])
	assert.Equal(t, "stopped", view["status"])
	assert.Equal(t, "http://127.0.0.1:8190", view["url"])
}

func TestCreateRejectsDuplicatePort(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(router, http.MethodPost, "/instances", `{"port": 8190}`).Code)

	w := doJSON(router, http.MethodPost, "/instances", `{"port": 8190}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "Port 8190 already in use by instance")
}

func TestCreateRejectsInvalidVramMode(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/instances", `{"vram_mode": "turbo"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownInstanceIs404(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/instances/nope/stop", "/instances/nope/start"} {
		w := doJSON(router, http.MethodPost, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := doJSON(router, http.MethodDelete, "/instances/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// The literal start-all and stop-all paths must not be captured by the
// :id routes.
func TestStartAllStopAllAreNotInstanceIDs(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/instances/start-all", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp["started"])
	assert.Equal(t, 0, resp["total"])

	w = doJSON(router, http.MethodPost, "/instances/stop-all", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStopStoppedInstanceSucceeds(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(router, http.MethodPost, "/instances", `{"port": 8190}`).Code)

	w := doJSON(router, http.MethodPost, "/instances/gpu0_8190/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stopped"`)
}

func TestRemoveInstance(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		doJSON(router, http.MethodPost, "/instances", `{"port": 8190}`).Code)

	require.Equal(t, http.StatusOK,
		doJSON(router, http.MethodDelete, "/instances/gpu0_8190", "").Code)
	assert.Equal(t, http.StatusNotFound,
		doJSON(router, http.MethodDelete, "/instances/gpu0_8190", "").Code)
}
