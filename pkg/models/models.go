/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package models manages the engine's model files: a curated registry
// of downloadable models, a scanner over the local model directories,
// HuggingFace search and resumable-free streaming downloads.
package models

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

const hfAPIBase = "https://huggingface.co"

// Manager scans and mutates the model directories of one environment.
type Manager struct {
	env      *config.Environment
	settings *config.SettingsStore
	client   *resty.Client
}

// NewManager returns a model manager over env. settings contributes
// the extra model directories; it may be nil.
func NewManager(env *config.Environment, settings *config.SettingsStore) *Manager {
	return &Manager{
		env:      env,
		settings: settings,
		client:   resty.New().SetTimeout(30 * time.Second),
	}
}

// RegistryView is a registry entry plus its install state.
type RegistryView struct {
	RegistryEntry
	Installed bool `json:"installed"`
}

// Registry returns the curated catalog with install state resolved
// against the local model directories.
func (m *Manager) Registry() []RegistryView {
	views := make([]RegistryView, 0, len(registry))
	for _, entry := range registry {
		views = append(views, RegistryView{
			RegistryEntry: entry,
			Installed:     m.isInstalled(entry),
		})
	}
	return views
}

// RegistryGet returns one catalog entry by id.
func (m *Manager) RegistryGet(id string) (RegistryView, error) {
	for _, entry := range registry {
		if entry.ID == id {
			return RegistryView{RegistryEntry: entry, Installed: m.isInstalled(entry)}, nil
		}
	}
	return RegistryView{}, errors.NewNotFound(fmt.Sprintf("Model %q not found in registry", id))
}

func (m *Manager) isInstalled(entry RegistryEntry) bool {
	_, err := os.Stat(filepath.Join(m.env.ModelsDir, entry.Category, entry.Filename))
	return err == nil
}

// LocalModel is one file found by the scanner.
type LocalModel struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Path      string  `json:"path"`
	SizeBytes int64   `json:"size_bytes"`
	SizeGB    float64 `json:"size_gb"`
}

// Scan walks the model directories, the extra directories included,
// and returns every model file grouped by category.
func (m *Manager) Scan() map[string][]LocalModel {
	result := make(map[string][]LocalModel)
	roots := []string{m.env.ModelsDir}
	if m.settings != nil {
		roots = append(roots, m.settings.ExtraModelDirs()...)
	}
	for _, root := range roots {
		for _, category := range config.ModelCategories {
			dir := filepath.Join(root, category)
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				info, err := entry.Info()
				if err != nil {
					continue
				}
				result[category] = append(result[category], LocalModel{
					Name:      entry.Name(),
					Category:  category,
					Path:      filepath.Join(dir, entry.Name()),
					SizeBytes: info.Size(),
					SizeGB:    float64(info.Size()) / (1 << 30),
				})
			}
		}
	}
	return result
}

// Delete removes one model file from a category directory. The name
// must be a bare filename; path traversal is rejected.
func (m *Manager) Delete(category, name string) error {
	if !validCategory(category) {
		return errors.NewBadRequest(fmt.Sprintf("Unknown model category %q", category))
	}
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return errors.NewBadRequest(fmt.Sprintf("Invalid model filename %q", name))
	}
	path := filepath.Join(m.env.ModelsDir, category, name)
	if _, err := os.Stat(path); err != nil {
		return errors.NewNotFound(fmt.Sprintf("Model %s/%s not found", category, name))
	}
	return os.Remove(path)
}

func validCategory(category string) bool {
	for _, c := range config.ModelCategories {
		if c == category {
			return true
		}
	}
	return false
}

// SearchResult is one HuggingFace model hit.
type SearchResult struct {
	ID        string   `json:"id"`
	Downloads int      `json:"downloads"`
	Likes     int      `json:"likes"`
	Tags      []string `json:"tags"`
}

// Search queries the HuggingFace model index.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	var results []SearchResult
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search": query,
			"limit":  fmt.Sprintf("%d", limit),
			"sort":   "downloads",
		}).
		SetResult(&results).
		Get(hfAPIBase + "/api/models")
	if err != nil {
		return nil, fmt.Errorf("huggingface search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("huggingface search: status %d", resp.StatusCode())
	}
	return results, nil
}

// DownloadRequest names one file to fetch into a category directory.
type DownloadRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// DownloadResult is the outcome of one requested download.
type DownloadResult struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// Download fetches one file with byte-level progress. Partial files
// are cleaned up on failure.
func (m *Manager) Download(ctx context.Context, req DownloadRequest, p progress.Sink) error {
	p = progress.Safe(p)
	if err := m.validateDownload(&req); err != nil {
		return err
	}
	dir := filepath.Join(m.env.ModelsDir, req.Category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, req.Filename)
	partial := dest + ".part"

	resp, err := m.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(req.URL)
	if err != nil {
		return fmt.Errorf("download %s: %w", req.Filename, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("download %s: status %d", req.Filename, resp.StatusCode())
	}

	out, err := os.Create(partial)
	if err != nil {
		return err
	}
	total := int(resp.RawResponse.ContentLength)
	if err = copyWithProgress(out, body, total, req.Filename, p); err != nil {
		out.Close()
		os.Remove(partial)
		return fmt.Errorf("download %s: %w", req.Filename, err)
	}
	if err = out.Close(); err != nil {
		os.Remove(partial)
		return err
	}
	return os.Rename(partial, dest)
}

func (m *Manager) validateDownload(req *DownloadRequest) error {
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.NewBadRequest(fmt.Sprintf("Invalid download url %q", req.URL))
	}
	if !validCategory(req.Category) {
		return errors.NewBadRequest(fmt.Sprintf("Unknown model category %q", req.Category))
	}
	if req.Filename == "" {
		req.Filename = filepath.Base(parsed.Path)
	}
	if req.Filename == "" || req.Filename == "." || req.Filename != filepath.Base(req.Filename) {
		return errors.NewBadRequest(fmt.Sprintf("Invalid model filename %q", req.Filename))
	}
	return nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int, name string, p progress.Sink) error {
	buf := make([]byte, 1<<20)
	written := 0
	lastReport := time.Now()
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			written += n
			if time.Since(lastReport) > time.Second {
				p(written, total, fmt.Sprintf("Downloading %s", name))
				lastReport = time.Now()
			}
		}
		if err == io.EOF {
			p(written, total, fmt.Sprintf("Downloaded %s", name))
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// DownloadMany fetches every requested file, continuing past
// failures, and returns the per-file outcomes.
func (m *Manager) DownloadMany(ctx context.Context, reqs []DownloadRequest, p progress.Sink) []DownloadResult {
	p = progress.Safe(p)
	results := make([]DownloadResult, 0, len(reqs))
	for n, req := range reqs {
		p(n, len(reqs), fmt.Sprintf("Downloading %s (%d/%d)", req.Filename, n+1, len(reqs)))
		err := m.Download(ctx, req, p)
		result := DownloadResult{Filename: req.Filename, Category: req.Category, OK: err == nil}
		if err != nil {
			result.Error = err.Error()
			klog.Warningf("download failed: %v", err)
		}
		results = append(results, result)
	}
	p(len(reqs), len(reqs), "Downloads finished")
	return results
}

// DownloadFromRegistry fetches one curated catalog entry.
func (m *Manager) DownloadFromRegistry(ctx context.Context, id string, p progress.Sink) error {
	entry, err := m.RegistryGet(id)
	if err != nil {
		return err
	}
	return m.Download(ctx, DownloadRequest{
		URL:      entry.URL,
		Category: entry.Category,
		Filename: entry.Filename,
	}, p)
}
