/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Settings is the persisted user settings document. Top-level keys are
// merged on write, last writer wins per key.
type Settings map[string]interface{}

const (
	settingsKeyEngineDir     = "comfyui_dir"
	settingsKeySavedDirs     = "saved_comfyui_dirs"
	settingsKeyExtraModelDir = "extra_model_dirs"
)

// SettingsStore reads and merge-writes the settings.json document.
// Single-writer is assumed; the mutex only serializes writers inside
// this process.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore returns a store backed by the given file path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Path returns the backing file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads the settings document. A missing or corrupt file yields
// an empty document rather than an error.
func (s *SettingsStore) Load() Settings {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Settings{}
	}
	var settings Settings
	if err = json.Unmarshal(data, &settings); err != nil {
		klog.Warningf("settings file %s is corrupt, starting empty: %v", s.path, err)
		return Settings{}
	}
	return settings
}

// Save merges updates into the existing document and writes it back.
// A nil value deletes the key.
func (s *SettingsStore) Save(updates Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.Load()
	for key, value := range updates {
		if value == nil {
			delete(settings, key)
			continue
		}
		settings[key] = value
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// ActiveEngineDir returns the persisted engine directory override, or
// builtin when unset or when the recorded path no longer holds an
// engine entry file.
func (s *SettingsStore) ActiveEngineDir(builtin string) string {
	dir, _ := s.Load()[settingsKeyEngineDir].(string)
	if dir == "" {
		return builtin
	}
	if _, err := os.Stat(filepath.Join(dir, EngineEntryFile)); err != nil {
		return builtin
	}
	return dir
}

// SetActiveEngineDir persists the engine directory override. An empty
// dir clears the override.
func (s *SettingsStore) SetActiveEngineDir(dir string) error {
	if dir == "" {
		return s.Save(Settings{settingsKeyEngineDir: nil})
	}
	return s.Save(Settings{settingsKeyEngineDir: dir})
}

// SavedEngineDirs returns all saved engine directories. The built-in
// directory is always first.
func (s *SettingsStore) SavedEngineDirs(builtin string) []string {
	dirs := []string{builtin}
	for _, dir := range stringSlice(s.Load()[settingsKeySavedDirs]) {
		if dir != builtin {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// AddSavedEngineDir appends dir to the saved list unless it is already
// present or is the built-in directory.
func (s *SettingsStore) AddSavedEngineDir(dir, builtin string) error {
	if dir == builtin {
		return nil
	}
	saved := stringSlice(s.Load()[settingsKeySavedDirs])
	for _, existing := range saved {
		if existing == dir {
			return nil
		}
	}
	return s.Save(Settings{settingsKeySavedDirs: append(saved, dir)})
}

// RemoveSavedEngineDir deletes dir from the saved list.
func (s *SettingsStore) RemoveSavedEngineDir(dir string) error {
	saved := stringSlice(s.Load()[settingsKeySavedDirs])
	kept := make([]string, 0, len(saved))
	for _, existing := range saved {
		if existing != dir {
			kept = append(kept, existing)
		}
	}
	return s.Save(Settings{settingsKeySavedDirs: kept})
}

// ExtraModelDirs returns the user-added extra model search directories.
func (s *SettingsStore) ExtraModelDirs() []string {
	return stringSlice(s.Load()[settingsKeyExtraModelDir])
}

// AddExtraModelDir appends dir to the extra model directory list.
func (s *SettingsStore) AddExtraModelDir(dir string) error {
	extras := s.ExtraModelDirs()
	for _, existing := range extras {
		if existing == dir {
			return nil
		}
	}
	return s.Save(Settings{settingsKeyExtraModelDir: append(extras, dir)})
}

// RemoveExtraModelDir deletes dir from the extra model directory list.
func (s *SettingsStore) RemoveExtraModelDir(dir string) error {
	extras := s.ExtraModelDirs()
	kept := make([]string, 0, len(extras))
	for _, existing := range extras {
		if existing != dir {
			kept = append(kept, existing)
		}
	}
	return s.Save(Settings{settingsKeyExtraModelDir: kept})
}

// Watch reports external modifications of the settings file until ctx
// is done. Writes performed through this store also fire onChange;
// callers that only care about external editors can debounce.
func (s *SettingsStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				klog.Warningf("settings watcher: %v", err)
			}
		}
	}()
	return nil
}

func stringSlice(value interface{}) []string {
	items, ok := value.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
