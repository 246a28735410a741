/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

//go:build !windows

package process

import (
	"os/exec"

	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

// setProcAttrs puts the child in its own process group so signals can
// reach the whole tree at once.
func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
}

func terminateTree(pid int) {
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		klog.V(4).Infof("terminate group %d: %v", pid, err)
		_ = unix.Kill(pid, unix.SIGTERM)
	}
}

func killTree(pid int) {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		klog.V(4).Infof("kill group %d: %v", pid, err)
		_ = unix.Kill(pid, unix.SIGKILL)
	}
}

// processAlive reports whether pid still exists.
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
