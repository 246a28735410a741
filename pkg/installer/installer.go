/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package installer provisions and removes the engine installation:
// cloning the engine repository, installing its Python requirements
// and tearing the installation down again with the model files kept
// safe.
package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

// modelsBackupDir is where Purge parks the models directory so a
// later install can restore it.
const modelsBackupDir = "_models_backup"

// Installer provisions one environment.
type Installer struct {
	env  *config.Environment
	repo string
}

// New returns an installer for env cloning from repo.
func New(env *config.Environment, repo string) *Installer {
	if repo == "" {
		repo = config.DefaultEngineRepo
	}
	return &Installer{env: env, repo: repo}
}

// Status describes what is currently on disk.
type Status struct {
	Installed             bool   `json:"installed"`
	EnvReady              bool   `json:"env_ready"`
	RequirementsInstalled bool   `json:"requirements_installed"`
	ModelsDirExists       bool   `json:"models_dir_exists"`
	External              bool   `json:"is_external"`
	EngineDir             string `json:"comfyui_dir"`
	Python                string `json:"python"`
	Git                   string `json:"git"`
}

// Check reports the installation state without touching anything.
func (i *Installer) Check() Status {
	_, modelsErr := os.Stat(i.env.ModelsDir)
	_, reqErr := os.Stat(i.requirementsMarker())
	return Status{
		Installed:             i.env.IsEngineInstalled(),
		EnvReady:              i.env.IsEnvReady(),
		RequirementsInstalled: reqErr == nil,
		ModelsDirExists:       modelsErr == nil,
		External:              !i.env.IsBuiltin(),
		EngineDir:             i.env.EngineDir,
		Python:                i.env.PythonPath,
		Git:                   i.env.GitPath,
	}
}

// requirementsMarker is touched after a successful requirements
// install so Check can report it without invoking pip.
func (i *Installer) requirementsMarker() string {
	return filepath.Join(i.env.BaseDir, ".requirements_installed")
}

type step struct {
	name   string
	weight int
	run    func(ctx context.Context) error
}

// FullInstall runs every provisioning step with weighted progress.
// Steps that are already satisfied are skipped but still advance the
// progress.
func (i *Installer) FullInstall(ctx context.Context, p progress.Sink) error {
	p = progress.Safe(p)
	steps := []step{
		{"Preparing environment", 5, i.bootstrapEnv},
		{"Installing PyTorch", 35, i.installTorch},
		{"Cloning engine repository", 15, i.cloneEngine},
		{"Installing engine requirements", 35, i.installRequirements},
		{"Creating model directories", 10, i.ensureModelDirs},
	}
	total := 0
	for _, s := range steps {
		total += s.weight
	}
	done := 0
	for _, s := range steps {
		p(done, total, s.name)
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.name), err)
		}
		done += s.weight
	}
	p(total, total, "Installation complete")
	return nil
}

func (i *Installer) bootstrapEnv(ctx context.Context) error {
	if err := os.MkdirAll(i.env.BaseDir, 0o755); err != nil {
		return err
	}
	if !i.env.IsEnvReady() {
		return fmt.Errorf("no usable Python interpreter found, install Python 3.10+ first")
	}
	return i.run(ctx, i.env.PythonPath, "--version")
}

func (i *Installer) installTorch(ctx context.Context) error {
	return i.pip(ctx, "install", "torch", "torchvision", "torchaudio")
}

// cloneEngine clones the engine unless its entry file already exists.
// A models backup left by a previous purge is restored afterwards.
func (i *Installer) cloneEngine(ctx context.Context) error {
	if i.env.IsEngineInstalled() {
		klog.Infof("engine already present at %s, skipping clone", i.env.EngineDir)
		return nil
	}
	if err := i.run(ctx, i.env.GitPath, "clone", "--depth", "1", i.repo, i.env.EngineDir); err != nil {
		return err
	}
	return i.restoreModelsBackup()
}

func (i *Installer) restoreModelsBackup() error {
	backup := filepath.Join(i.env.BaseDir, modelsBackupDir)
	if _, err := os.Stat(backup); err != nil {
		return nil
	}
	klog.Infof("restoring models backup from %s", backup)
	if err := os.RemoveAll(i.env.ModelsDir); err != nil {
		return err
	}
	return os.Rename(backup, i.env.ModelsDir)
}

func (i *Installer) installRequirements(ctx context.Context) error {
	requirements := filepath.Join(i.env.EngineDir, "requirements.txt")
	if _, err := os.Stat(requirements); err != nil {
		klog.Warningf("no requirements.txt at %s, skipping", requirements)
		return nil
	}
	if err := i.pip(ctx, "install", "-r", requirements); err != nil {
		return err
	}
	return os.WriteFile(i.requirementsMarker(), nil, 0o644)
}

func (i *Installer) ensureModelDirs(context.Context) error {
	for _, category := range config.ModelCategories {
		if err := os.MkdirAll(filepath.Join(i.env.ModelsDir, category), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Update pulls the latest engine revision.
func (i *Installer) Update(ctx context.Context, p progress.Sink) error {
	p = progress.Safe(p)
	if !i.env.IsEngineInstalled() {
		return fmt.Errorf("engine is not installed at %s", i.env.EngineDir)
	}
	p(0, 100, "Pulling latest engine revision")
	if err := i.runIn(ctx, i.env.EngineDir, i.env.GitPath, "pull"); err != nil {
		return err
	}
	p(50, 100, "Updating engine requirements")
	if err := i.installRequirements(ctx); err != nil {
		return err
	}
	p(100, 100, "Update complete")
	return nil
}

// InstallSageAttention installs the optional attention kernel package.
func (i *Installer) InstallSageAttention(ctx context.Context, p progress.Sink) error {
	p = progress.Safe(p)
	p(0, 100, "Installing SageAttention")
	if err := i.pip(ctx, "install", "sageattention"); err != nil {
		return err
	}
	p(100, 100, "SageAttention installed")
	return nil
}

// Purge removes the built-in engine directory while keeping the
// Python environment. The models directory is moved aside first and
// restored by the next install.
func (i *Installer) Purge(p progress.Sink) error {
	p = progress.Safe(p)
	if !i.env.IsBuiltin() {
		return fmt.Errorf("refusing to purge external engine directory %s", i.env.EngineDir)
	}
	if _, err := os.Stat(i.env.EngineDir); err != nil {
		return nil
	}

	backup := filepath.Join(i.env.BaseDir, modelsBackupDir)
	if _, err := os.Stat(i.env.ModelsDir); err == nil {
		p(20, 100, "Backing up models")
		if err := os.RemoveAll(backup); err != nil {
			return err
		}
		if err := os.Rename(i.env.ModelsDir, backup); err != nil {
			return fmt.Errorf("backing up models: %w", err)
		}
	}
	p(60, 100, "Removing engine directory")
	if err := os.RemoveAll(i.env.EngineDir); err != nil {
		return err
	}
	p(100, 100, "Purge complete")
	return nil
}

// PurgeAll removes the entire base directory, models included.
func (i *Installer) PurgeAll(p progress.Sink) error {
	p = progress.Safe(p)
	p(0, 100, "Removing base directory")
	if err := os.RemoveAll(i.env.BaseDir); err != nil {
		return err
	}
	p(100, 100, "Everything removed")
	return nil
}

func (i *Installer) pip(ctx context.Context, args ...string) error {
	return i.run(ctx, i.env.PythonPath, append([]string{"-m", "pip"}, args...)...)
}

func (i *Installer) run(ctx context.Context, name string, args ...string) error {
	return i.runIn(ctx, "", name, args...)
}

func (i *Installer) runIn(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	klog.Infof("running %s %s", name, strings.Join(args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > 2000 {
			tail = tail[len(tail)-2000:]
		}
		return fmt.Errorf("%s %s failed: %v\n%s", filepath.Base(name), strings.Join(args, " "), err, tail)
	}
	return nil
}
