/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package installer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
)

func installEngine(t *testing.T, env *config.Environment) {
	require.NoError(t, os.MkdirAll(env.ModelsDir, 0o755))
	require.NoError(t, os.WriteFile(env.EntryPath(), []byte("print()"), 0o644))
}

func TestCheckReportsState(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	i := New(env, "")

	status := i.Check()
	assert.False(t, status.Installed)
	assert.False(t, status.RequirementsInstalled)
	assert.False(t, status.ModelsDirExists)
	assert.False(t, status.External)
	assert.Equal(t, env.EngineDir, status.EngineDir)

	require.NoError(t, os.MkdirAll(env.EngineDir, 0o755))
	installEngine(t, env)
	require.NoError(t, os.WriteFile(i.requirementsMarker(), nil, 0o644))

	status = i.Check()
	assert.True(t, status.Installed)
	assert.True(t, status.RequirementsInstalled)
	assert.True(t, status.ModelsDirExists)
}

func TestPurgeBacksUpModels(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	require.NoError(t, os.MkdirAll(filepath.Join(env.ModelsDir, "checkpoints"), 0o755))
	installEngine(t, env)
	model := filepath.Join(env.ModelsDir, "checkpoints", "model.safetensors")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0o644))

	require.NoError(t, New(env, "").Purge(nil))

	assert.NoFileExists(t, env.EntryPath())
	backed := filepath.Join(env.BaseDir, modelsBackupDir, "checkpoints", "model.safetensors")
	assert.FileExists(t, backed)
}

func TestPurgeRefusesExternalDir(t *testing.T) {
	base := t.TempDir()
	external := t.TempDir()
	env := config.NewEnvironment(base, external)
	require.NoError(t, os.MkdirAll(env.EngineDir, 0o755))
	installEngine(t, env)

	assert.Error(t, New(env, "").Purge(nil))
	assert.FileExists(t, env.EntryPath())
}

func TestPurgeMissingEngineIsNoop(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	assert.NoError(t, New(env, "").Purge(nil))
}

func TestRestoreModelsBackup(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	backup := filepath.Join(env.BaseDir, modelsBackupDir, "vae")
	require.NoError(t, os.MkdirAll(backup, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backup, "vae.pt"), []byte("v"), 0o644))
	require.NoError(t, os.MkdirAll(env.EngineDir, 0o755))

	require.NoError(t, New(env, "").restoreModelsBackup())
	assert.FileExists(t, filepath.Join(env.ModelsDir, "vae", "vae.pt"))
	assert.NoDirExists(t, filepath.Join(env.BaseDir, modelsBackupDir))
}

func TestPurgeAllRemovesBase(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	require.NoError(t, os.MkdirAll(env.EngineDir, 0o755))
	require.NoError(t, New(env, "").PurgeAll(nil))
	assert.NoDirExists(t, env.BaseDir)
}

func TestEnsureModelDirs(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	require.NoError(t, New(env, "").ensureModelDirs(nil))
	for _, category := range config.ModelCategories {
		assert.DirExists(t, filepath.Join(env.ModelsDir, category))
	}
}
