/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package nodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
)

func newTestManager(t *testing.T) *Manager {
	return NewManager(config.NewEnvironment(t.TempDir(), ""))
}

func installFakeNode(t *testing.T, m *Manager, name string) {
	require.NoError(t, os.MkdirAll(filepath.Join(m.nodesDir(), name), 0o755))
}

func TestDirNameForRepo(t *testing.T) {
	assert.Equal(t, "ComfyUI-Manager", dirNameForRepo("https://github.com/ltdrdata/ComfyUI-Manager.git"))
	assert.Equal(t, "rgthree-comfy", dirNameForRepo("https://github.com/rgthree/rgthree-comfy"))
}

func TestRegistryReflectsInstallState(t *testing.T) {
	m := newTestManager(t)
	views := m.Registry()
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.False(t, v.Installed)
	}

	installFakeNode(t, m, "ComfyUI-Manager")
	for _, v := range m.Registry() {
		if v.ID == "manager" {
			assert.True(t, v.Installed)
		}
	}
}

func TestInstalledSkipsHiddenAndCaches(t *testing.T) {
	m := newTestManager(t)
	assert.Empty(t, m.Installed())

	installFakeNode(t, m, "ComfyUI-KJNodes")
	installFakeNode(t, m, ".git")
	installFakeNode(t, m, "__pycache__")

	installed := m.Installed()
	require.Len(t, installed, 1)
	assert.Equal(t, "ComfyUI-KJNodes", installed[0].Name)
}

func TestInstallRejectsUnknownTarget(t *testing.T) {
	m := newTestManager(t)
	err := m.Install(context.Background(), "definitely-not-a-node", nil)
	assert.True(t, errors.IsBadRequest(err))
}

func TestInstallRejectsAlreadyInstalled(t *testing.T) {
	m := newTestManager(t)
	installFakeNode(t, m, "ComfyUI-Manager")
	err := m.Install(context.Background(), "manager", nil)
	assert.True(t, errors.IsBadRequest(err))
}

func TestUpdateUnknownNode(t *testing.T) {
	m := newTestManager(t)
	assert.True(t, errors.IsNotFound(m.Update(context.Background(), "nope", nil)))
	assert.True(t, errors.IsBadRequest(m.Update(context.Background(), "../evil", nil)))
}

func TestRemove(t *testing.T) {
	m := newTestManager(t)
	installFakeNode(t, m, "ComfyUI-KJNodes")

	require.NoError(t, m.Remove("ComfyUI-KJNodes"))
	assert.Empty(t, m.Installed())

	assert.True(t, errors.IsNotFound(m.Remove("ComfyUI-KJNodes")))
	assert.True(t, errors.IsBadRequest(m.Remove("../escape")))
}
