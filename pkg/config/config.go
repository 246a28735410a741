/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package config resolves every on-disk path the control plane touches
// into an explicit Environment record built once at startup, and reads
// the optional server config file through viper.
package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// LoadConfig loads the optional server configuration from the
// specified file path. All keys have defaults, so a missing config
// file is not an error for the caller that chooses to skip loading.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

// GetApiPort returns the REST API listen port.
func GetApiPort() int {
	return getInt(apiServerPort, 5000)
}

// GetApiHost returns the REST API bind address.
func GetApiHost() string {
	return getString(apiServerHost, DefaultHost)
}

// GetWorkerCount returns the worker pool size. Zero means one
// goroutine per submitted job.
func GetWorkerCount() int {
	return getInt(workerCount, 0)
}

// GetWorkerQueue returns the pending-task queue capacity of a bounded pool.
func GetWorkerQueue() int {
	return getInt(workerQueue, 64)
}

// IsHealthSweepEnabled returns whether the periodic instance health sweep runs.
func IsHealthSweepEnabled() bool {
	return getBool(healthEnable, true)
}

// GetHealthSchedule returns the cron expression of the health sweep.
func GetHealthSchedule() string {
	return getString(healthSchedule, "@every 1m")
}

// IsTracingEnable returns whether the OpenTelemetry tracer is initialized.
func IsTracingEnable() bool {
	return getBool(tracingEnable, false)
}

// GetEngineRepo returns the git URL the installer clones the engine from.
func GetEngineRepo() string {
	return getString(engineRepoKey, DefaultEngineRepo)
}

// Environment holds every resolved path for one engine target. It is
// immutable after construction; switching the active engine directory
// builds a fresh Environment and rebuilds the components that hold one.
type Environment struct {
	BaseDir           string
	EngineDir         string
	ModelsDir         string
	PythonEmbeddedDir string
	GitPortableDir    string
	FFmpegPortableDir string
	VenvDir           string

	// Resolved executables. Python and Git fall back to the system
	// installation when no portable copy is present.
	PythonPath string
	GitPath    string
}

// NewEnvironment resolves an Environment rooted at baseDir, targeting
// engineDir. An empty engineDir selects the built-in engine directory
// under the base.
func NewEnvironment(baseDir, engineDir string) *Environment {
	if engineDir == "" {
		engineDir = filepath.Join(baseDir, "comfyui")
	}
	env := &Environment{
		BaseDir:           baseDir,
		EngineDir:         engineDir,
		ModelsDir:         filepath.Join(engineDir, "models"),
		PythonEmbeddedDir: filepath.Join(baseDir, "python_embedded"),
		GitPortableDir:    filepath.Join(baseDir, "git_portable"),
		FFmpegPortableDir: filepath.Join(baseDir, "ffmpeg_portable"),
		VenvDir:           filepath.Join(baseDir, "venv"),
	}
	env.PythonPath = env.resolvePython()
	env.GitPath = env.resolveGit()
	return env
}

// EntryPath returns the absolute path of the engine entry file.
func (e *Environment) EntryPath() string {
	return filepath.Join(e.EngineDir, EngineEntryFile)
}

// IsEngineInstalled reports whether the engine entry file exists.
func (e *Environment) IsEngineInstalled() bool {
	_, err := os.Stat(e.EntryPath())
	return err == nil
}

// IsBuiltin reports whether the engine directory is the built-in one.
func (e *Environment) IsBuiltin() bool {
	return e.EngineDir == filepath.Join(e.BaseDir, "comfyui")
}

// BuiltinEngineDir returns the engine directory bundled with the base.
func (e *Environment) BuiltinEngineDir() string {
	return filepath.Join(e.BaseDir, "comfyui")
}

// SettingsPath returns the location of the persisted user settings.
func (e *Environment) SettingsPath() string {
	return filepath.Join(e.BaseDir, "settings.json")
}

// PathAdditions returns the portable tool bin directories that must be
// prepended to PATH for engine child processes, in priority order.
// Missing directories are skipped.
func (e *Environment) PathAdditions() []string {
	var additions []string
	for _, dir := range []string{
		filepath.Join(e.GitPortableDir, "cmd"),
		filepath.Join(e.FFmpegPortableDir, "bin"),
	} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			additions = append(additions, dir)
		}
	}
	return additions
}

// resolvePython finds the best available Python executable.
// Priority: embedded Python > legacy venv > system Python.
func (e *Environment) resolvePython() string {
	embedded := e.embeddedPython()
	if fileExists(embedded) {
		return embedded
	}
	venv := e.venvPython()
	if fileExists(venv) {
		return venv
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	// Not yet downloaded; the bootstrap step creates it here.
	return embedded
}

// resolveGit finds the best available git executable.
// Priority: portable Git > system Git.
func (e *Environment) resolveGit() string {
	portable := filepath.Join(e.GitPortableDir, "cmd", exeName("git"))
	if fileExists(portable) {
		return portable
	}
	return "git"
}

// IsEnvReady reports whether a usable Python interpreter is on disk.
func (e *Environment) IsEnvReady() bool {
	return fileExists(e.PythonPath)
}

func (e *Environment) embeddedPython() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.PythonEmbeddedDir, "python.exe")
	}
	return filepath.Join(e.PythonEmbeddedDir, "bin", "python3")
}

func (e *Environment) venvPython() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.VenvDir, "Scripts", "python.exe")
	}
	return filepath.Join(e.VenvDir, "bin", "python")
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
