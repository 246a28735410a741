/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package app wires the collaborator set together: one Environment
// and the managers built on top of it. Switching the engine target
// rebuilds the environment-bound collaborators atomically while the
// hub, job registry and worker pool live on.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/installer"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/instance"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/jobs"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/loghub"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/metrics"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/models"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/nodes"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/supervisor"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/worker"
)

// App is the collaborator set behind the HTTP surface.
type App struct {
	host string
	repo string

	hub  *loghub.Hub
	jobs *jobs.Registry
	pool *worker.Pool
	sup  *supervisor.Supervisor

	client *resty.Client

	mu        sync.RWMutex
	env       *config.Environment
	settings  *config.SettingsStore
	registry  *instance.Registry
	installer *installer.Installer
	models    *models.Manager
	nodes     *nodes.Manager
}

// New builds the full collaborator set rooted at baseDir. The active
// engine directory comes from persisted settings unless engineDir
// overrides it.
func New(baseDir, engineDir, host, repo string, pool *worker.Pool) *App {
	if host == "" {
		host = config.DefaultHost
	}
	jobRegistry := jobs.NewRegistry()
	a := &App{
		host:   host,
		repo:   repo,
		hub:    loghub.NewHub(),
		jobs:   jobRegistry,
		pool:   pool,
		client: resty.New().SetTimeout(5 * time.Second),
	}
	a.sup = supervisor.New(jobRegistry, pool, a.EmitServerLog)

	settings := config.NewSettingsStore(config.NewEnvironment(baseDir, "").SettingsPath())
	if engineDir == "" {
		engineDir = settings.ActiveEngineDir("")
	}
	a.rebuildLocked(baseDir, engineDir, settings)
	return a
}

// rebuildLocked swaps every environment-bound collaborator. Callers
// other than New hold a.mu.
func (a *App) rebuildLocked(baseDir, engineDir string, settings *config.SettingsStore) {
	env := config.NewEnvironment(baseDir, engineDir)
	a.env = env
	a.settings = settings
	a.registry = instance.NewRegistry(env, a.host, a.hub.Emit)
	a.installer = installer.New(env, a.repo)
	a.models = models.NewManager(env, settings)
	a.nodes = nodes.NewManager(env)
	klog.Infof("collaborators built for engine dir %s", env.EngineDir)
}

// Env returns the current environment record.
func (a *App) Env() *config.Environment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.env
}

// Settings returns the settings store.
func (a *App) Settings() *config.SettingsStore {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// Instances returns the instance registry.
func (a *App) Instances() *instance.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}

// Installer returns the installer for the current target.
func (a *App) Installer() *installer.Installer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.installer
}

// Models returns the model manager for the current target.
func (a *App) Models() *models.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.models
}

// Nodes returns the node manager for the current target.
func (a *App) Nodes() *nodes.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodes
}

// Hub returns the log hub.
func (a *App) Hub() *loghub.Hub {
	return a.hub
}

// Jobs returns the job registry.
func (a *App) Jobs() *jobs.Registry {
	return a.jobs
}

// Supervisor returns the job launcher.
func (a *App) Supervisor() *supervisor.Supervisor {
	return a.sup
}

// EmitServerLog publishes a control-plane message into the log hub
// under the server tag.
func (a *App) EmitServerLog(format string, args ...interface{}) {
	a.hub.Emit("[server]", fmt.Sprintf(format, args...))
}

// SwitchTarget makes engineDir the active engine directory, persists
// the choice and rebuilds the collaborators. An empty engineDir
// resets to the built-in directory. Refused while any instance runs.
func (a *App) SwitchTarget(engineDir string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.registry.AnyRunning() {
		return errors.NewBadRequest("Stop all instances before switching the engine directory")
	}
	if engineDir != "" {
		probe := config.NewEnvironment(a.env.BaseDir, engineDir)
		if !probe.IsEngineInstalled() {
			return errors.NewBadRequest(fmt.Sprintf("No engine found at %q", engineDir))
		}
	}
	if err := a.settings.SetActiveEngineDir(engineDir); err != nil {
		return err
	}
	if engineDir != "" {
		if err := a.settings.AddSavedEngineDir(engineDir, a.env.BuiltinEngineDir()); err != nil {
			return err
		}
	}
	a.rebuildLocked(a.env.BaseDir, engineDir, a.settings)
	return nil
}

// Health is the proxied engine health of one instance.
type Health struct {
	Status  string          `json:"status"`
	Healthy bool            `json:"healthy"`
	Stats   json.RawMessage `json:"stats,omitempty"`
}

// CheckHealth probes one instance's stats endpoint. Status is one of
// stopped, running, unhealthy, unreachable.
func (a *App) CheckHealth(ctx context.Context, id string) (Health, error) {
	inst, err := a.Instances().Get(id)
	if err != nil {
		return Health{}, err
	}
	if !inst.Handle.IsRunning() {
		return Health{Status: "stopped"}, nil
	}
	resp, err := a.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("http://%s:%d/system_stats", inst.Host, inst.Port))
	if err != nil {
		return Health{Status: "unreachable"}, nil
	}
	if resp.IsError() {
		return Health{Status: "unhealthy"}, nil
	}
	return Health{Status: "running", Healthy: true, Stats: resp.Body()}, nil
}

// UpdateInstanceGauges refreshes the instance metrics.
func (a *App) UpdateInstanceGauges() {
	reg := a.Instances()
	metrics.InstancesRegistered.Set(float64(len(reg.List())))
	metrics.InstancesRunning.Set(float64(reg.RunningCount()))
}
