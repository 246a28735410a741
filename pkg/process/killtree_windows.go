/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

//go:build windows

package process

import (
	"os"
	"os/exec"
	"strconv"

	"k8s.io/klog/v2"
)

func setProcAttrs(cmd *exec.Cmd) {}

// Windows has no process groups to signal; taskkill /T walks the tree.
func terminateTree(pid int) {
	runTaskkill(pid, false)
}

func killTree(pid int) {
	runTaskkill(pid, true)
}

// processAlive reports whether pid still exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}

func runTaskkill(pid int, force bool) {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}
	if err := exec.Command("taskkill", args...).Run(); err != nil {
		klog.V(4).Infof("taskkill pid %d: %v", pid, err)
	}
}
