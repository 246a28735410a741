/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package instance tracks the set of managed engine instances and
// enforces the intake rules: port uniqueness, the instance cap and
// vram mode validation.
package instance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
)

// Device is the compute device an instance is pinned to: one GPU by
// index, the CPU, or nothing in particular.
type Device struct {
	cpu     bool
	index   int
	present bool
}

// NoDevice leaves device selection to the engine.
func NoDevice() Device { return Device{} }

// CPUDevice hides all GPUs from the instance.
func CPUDevice() Device { return Device{cpu: true, present: true} }

// GPUDevice pins the instance to one GPU index.
func GPUDevice(index int) Device { return Device{index: index, present: true} }

// IsCPU reports whether the device is the CPU.
func (d Device) IsCPU() bool { return d.present && d.cpu }

// GPUIndex returns the pinned GPU index, if any.
func (d Device) GPUIndex() (int, bool) {
	if !d.present || d.cpu {
		return 0, false
	}
	return d.index, true
}

// IsNone reports whether no device was selected.
func (d Device) IsNone() bool { return !d.present }

// ProcessValue returns the CUDA_VISIBLE_DEVICES selection for the
// child process: "cpu", a decimal index, or empty for no selection.
func (d Device) ProcessValue() string {
	switch {
	case !d.present:
		return ""
	case d.cpu:
		return "cpu"
	default:
		return strconv.Itoa(d.index)
	}
}

// MarshalJSON encodes the device as "cpu", a GPU index number, or null.
func (d Device) MarshalJSON() ([]byte, error) {
	switch {
	case !d.present:
		return []byte("null"), nil
	case d.cpu:
		return []byte(`"cpu"`), nil
	default:
		return []byte(strconv.Itoa(d.index)), nil
	}
}

// UnmarshalJSON accepts null, "cpu", a number, or a decimal string.
func (d *Device) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = NoDevice()
		return nil
	case float64:
		if v < 0 || v != float64(int(v)) {
			return fmt.Errorf("invalid gpu index %v", v)
		}
		*d = GPUDevice(int(v))
		return nil
	case string:
		if v == "cpu" {
			*d = CPUDevice()
			return nil
		}
		index, err := strconv.Atoi(v)
		if err != nil || index < 0 {
			return fmt.Errorf("invalid gpu device %q", v)
		}
		*d = GPUDevice(index)
		return nil
	default:
		return fmt.Errorf("invalid gpu device %v", raw)
	}
}

// Spec is the validated intake for one instance.
type Spec struct {
	Port      int      `json:"port"`
	Host      string   `json:"host"`
	VramMode  string   `json:"vram_mode"`
	Device    Device   `json:"gpu_device"`
	GpuLabel  string   `json:"gpu_label"`
	ExtraArgs []string `json:"extra_args"`
}

// Normalize validates the spec and applies the coercions: an empty
// vram mode defaults to normal, and cpu vram mode forces the CPU
// device. Port checks happen in the registry where uniqueness is
// known.
func (s *Spec) Normalize() error {
	if s.VramMode == "" {
		s.VramMode = "normal"
	}
	if _, ok := config.VramModes[s.VramMode]; !ok {
		return errors.NewBadRequest(fmt.Sprintf("Invalid vram_mode %q", s.VramMode))
	}
	if s.VramMode == "cpu" || s.Device.IsCPU() {
		s.VramMode = "cpu"
		s.Device = CPUDevice()
	}
	if s.Port != 0 && (s.Port < 1024 || s.Port > 65535) {
		return errors.NewBadRequest(fmt.Sprintf("Invalid port %d", s.Port))
	}
	for _, arg := range s.ExtraArgs {
		if managedFlag(arg) {
			return errors.NewBadRequest(fmt.Sprintf("Extra arg %q overrides a managed flag; use the port, host or vram_mode fields", arg))
		}
	}
	return nil
}

// managedFlag reports whether an engine flag belongs to the
// supervisor: the listen address, port and vram selection come from
// the spec fields and must not be smuggled in through extra_args.
func managedFlag(arg string) bool {
	flag := arg
	if i := strings.IndexByte(flag, '='); i >= 0 {
		flag = flag[:i]
	}
	if !strings.HasPrefix(flag, "--") {
		return false
	}
	switch flag {
	case "--listen", "--port", "--cpu":
		return true
	}
	return strings.Contains(flag, "vram")
}

// View is the wire representation of one instance.
type View struct {
	ID        string   `json:"id"`
	Port      int      `json:"port"`
	Host      string   `json:"host"`
	URL       string   `json:"url"`
	VramMode  string   `json:"vram_mode"`
	Device    Device   `json:"gpu_device"`
	GpuLabel  string   `json:"gpu_label,omitempty"`
	ExtraArgs []string `json:"extra_args"`
	Running   bool     `json:"running"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	Pid       int      `json:"pid,omitempty"`
}
