/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
)

func newTestManager(t *testing.T) *Manager {
	env := config.NewEnvironment(t.TempDir(), "")
	settings := config.NewSettingsStore(env.SettingsPath())
	return NewManager(env, settings)
}

func TestRegistryInstalledState(t *testing.T) {
	m := newTestManager(t)

	entry, err := m.RegistryGet("sd15")
	require.NoError(t, err)
	assert.False(t, entry.Installed)

	dir := filepath.Join(m.env.ModelsDir, entry.Category)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, entry.Filename), []byte("w"), 0o644))

	entry, err = m.RegistryGet("sd15")
	require.NoError(t, err)
	assert.True(t, entry.Installed)

	_, err = m.RegistryGet("nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestScanFindsModelsAcrossDirs(t *testing.T) {
	m := newTestManager(t)
	main := filepath.Join(m.env.ModelsDir, "loras")
	require.NoError(t, os.MkdirAll(main, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(main, "style.safetensors"), make([]byte, 2048), 0o644))

	extra := t.TempDir()
	extraLoras := filepath.Join(extra, "loras")
	require.NoError(t, os.MkdirAll(extraLoras, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(extraLoras, "pose.safetensors"), []byte("x"), 0o644))
	require.NoError(t, m.settings.AddExtraModelDir(extra))

	found := m.Scan()
	require.Len(t, found["loras"], 2)
	assert.Equal(t, "style.safetensors", found["loras"][0].Name)
	assert.Equal(t, int64(2048), found["loras"][0].SizeBytes)
	assert.Equal(t, "pose.safetensors", found["loras"][1].Name)
}

func TestDeleteValidation(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, errors.IsBadRequest(m.Delete("nope", "a.safetensors")))
	assert.True(t, errors.IsBadRequest(m.Delete("loras", "../escape")))
	assert.True(t, errors.IsNotFound(m.Delete("loras", "missing.safetensors")))

	dir := filepath.Join(m.env.ModelsDir, "loras")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	target := filepath.Join(dir, "style.safetensors")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, m.Delete("loras", "style.safetensors"))
	assert.NoFileExists(t, target)
}

func TestDownloadWritesFile(t *testing.T) {
	payload := make([]byte, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	m := newTestManager(t)
	var last string
	err := m.Download(context.Background(), DownloadRequest{
		URL:      srv.URL + "/file.safetensors",
		Category: "vae",
	}, func(cur, total int, msg string) { last = msg })
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(m.env.ModelsDir, "vae", "file.safetensors"))
	require.NoError(t, err)
	assert.Len(t, data, len(payload))
	assert.Contains(t, last, "file.safetensors")
}

func TestDownloadCleansUpOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := newTestManager(t)
	err := m.Download(context.Background(), DownloadRequest{
		URL:      srv.URL + "/missing.safetensors",
		Category: "vae",
	}, nil)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(m.env.ModelsDir, "vae", "missing.safetensors"))
	assert.NoFileExists(t, filepath.Join(m.env.ModelsDir, "vae", "missing.safetensors.part"))
}

func TestDownloadValidation(t *testing.T) {
	m := newTestManager(t)
	err := m.Download(context.Background(), DownloadRequest{URL: "ftp://bad", Category: "vae"}, nil)
	assert.True(t, errors.IsBadRequest(err))

	err = m.Download(context.Background(), DownloadRequest{URL: "https://ok.example/x.bin", Category: "bogus"}, nil)
	assert.True(t, errors.IsBadRequest(err))
}

func TestDownloadManyContinuesPastFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.bin" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := newTestManager(t)
	results := m.DownloadMany(context.Background(), []DownloadRequest{
		{URL: srv.URL + "/bad.bin", Category: "vae"},
		{URL: srv.URL + "/good.bin", Category: "vae"},
	}, nil)

	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.NotEmpty(t, results[0].Error)
	assert.True(t, results[1].OK)
}
