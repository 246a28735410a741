/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package nodes manages the engine's custom node packs through git:
// curated catalog, installed listing, install, update and removal.
package nodes

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

// Manager installs and updates custom node packs for one environment.
type Manager struct {
	env *config.Environment
}

// NewManager returns a node manager over env.
func NewManager(env *config.Environment) *Manager {
	return &Manager{env: env}
}

func (m *Manager) nodesDir() string {
	return filepath.Join(m.env.EngineDir, "custom_nodes")
}

// RegistryView is one catalog entry plus its install state.
type RegistryView struct {
	RegistryEntry
	Installed bool `json:"installed"`
}

// Registry returns the curated catalog with install state resolved.
func (m *Manager) Registry() []RegistryView {
	views := make([]RegistryView, 0, len(registry))
	for _, entry := range registry {
		views = append(views, RegistryView{
			RegistryEntry: entry,
			Installed:     m.isInstalled(dirNameForRepo(entry.Repo)),
		})
	}
	return views
}

func (m *Manager) isInstalled(name string) bool {
	info, err := os.Stat(filepath.Join(m.nodesDir(), name))
	return err == nil && info.IsDir()
}

// InstalledNode is one node pack found on disk.
type InstalledNode struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Repo string `json:"repo,omitempty"`
}

// Installed lists the node packs present in the custom_nodes
// directory.
func (m *Manager) Installed() []InstalledNode {
	entries, err := os.ReadDir(m.nodesDir())
	if err != nil {
		return nil
	}
	var nodes []InstalledNode
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "__") {
			continue
		}
		path := filepath.Join(m.nodesDir(), entry.Name())
		nodes = append(nodes, InstalledNode{
			Name: entry.Name(),
			Path: path,
			Repo: m.remoteURL(path),
		})
	}
	return nodes
}

func (m *Manager) remoteURL(dir string) string {
	out, err := exec.Command(m.env.GitPath, "-C", dir, "config", "--get", "remote.origin.url").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Install clones a node pack. The target is either a curated catalog
// id or a full git URL.
func (m *Manager) Install(ctx context.Context, target string, p progress.Sink) error {
	p = progress.Safe(p)
	repo := target
	for _, entry := range registry {
		if entry.ID == target {
			repo = entry.Repo
			break
		}
	}
	if !strings.HasPrefix(repo, "http://") && !strings.HasPrefix(repo, "https://") && !strings.HasPrefix(repo, "git@") {
		return errors.NewBadRequest(fmt.Sprintf("Unknown node %q: not a catalog id or git url", target))
	}

	name := dirNameForRepo(repo)
	dest := filepath.Join(m.nodesDir(), name)
	if m.isInstalled(name) {
		return errors.NewBadRequest(fmt.Sprintf("Node %q is already installed", name))
	}
	if err := os.MkdirAll(m.nodesDir(), 0o755); err != nil {
		return err
	}

	p(10, 100, fmt.Sprintf("Cloning %s", name))
	if err := m.git(ctx, "", "clone", "--depth", "1", repo, dest); err != nil {
		return err
	}
	p(60, 100, "Installing node requirements")
	if err := m.installRequirements(ctx, dest); err != nil {
		return err
	}
	p(100, 100, fmt.Sprintf("Installed %s", name))
	return nil
}

// Update pulls the latest revision of one installed node pack.
func (m *Manager) Update(ctx context.Context, name string, p progress.Sink) error {
	p = progress.Safe(p)
	if err := validName(name); err != nil {
		return err
	}
	dir := filepath.Join(m.nodesDir(), name)
	if !m.isInstalled(name) {
		return errors.NewNotFound(fmt.Sprintf("Node %q is not installed", name))
	}
	p(10, 100, fmt.Sprintf("Updating %s", name))
	if err := m.git(ctx, dir, "pull"); err != nil {
		return err
	}
	if err := m.installRequirements(ctx, dir); err != nil {
		return err
	}
	p(100, 100, fmt.Sprintf("Updated %s", name))
	return nil
}

// UpdateResult is the outcome of one pack within UpdateAll.
type UpdateResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// UpdateAll updates every installed node pack, continuing past
// failures.
func (m *Manager) UpdateAll(ctx context.Context, p progress.Sink) []UpdateResult {
	p = progress.Safe(p)
	installed := m.Installed()
	results := make([]UpdateResult, 0, len(installed))
	for n, node := range installed {
		p(n, len(installed), fmt.Sprintf("Updating %s (%d/%d)", node.Name, n+1, len(installed)))
		err := m.Update(ctx, node.Name, nil)
		result := UpdateResult{Name: node.Name, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
			klog.Warningf("update %s failed: %v", node.Name, err)
		}
		results = append(results, result)
	}
	p(len(installed), len(installed), "Updates finished")
	return results
}

// Remove deletes one installed node pack directory.
func (m *Manager) Remove(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if !m.isInstalled(name) {
		return errors.NewNotFound(fmt.Sprintf("Node %q is not installed", name))
	}
	return os.RemoveAll(filepath.Join(m.nodesDir(), name))
}

func (m *Manager) installRequirements(ctx context.Context, dir string) error {
	requirements := filepath.Join(dir, "requirements.txt")
	if _, err := os.Stat(requirements); err != nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, m.env.PythonPath, "-m", "pip", "install", "-r", requirements)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pip install for %s failed: %v\n%s", filepath.Base(dir), err, tail(string(out)))
	}
	return nil
}

func (m *Manager) git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, m.env.GitPath, args...)
	cmd.Dir = dir
	klog.Infof("running git %s", strings.Join(args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %v\n%s", strings.Join(args, " "), err, tail(string(out)))
	}
	return nil
}

func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return errors.NewBadRequest(fmt.Sprintf("Invalid node name %q", name))
	}
	return nil
}

// dirNameForRepo derives the checkout directory from the repo url.
func dirNameForRepo(repo string) string {
	name := strings.TrimSuffix(filepath.Base(repo), ".git")
	return name
}

func tail(s string) string {
	if len(s) > 2000 {
		return s[len(s)-2000:]
	}
	return s
}
