/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package server

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/installer"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/instance"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/options"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/process"
)

// RunCLI executes one of the one-shot command line modes and returns
// the process exit code.
func RunCLI(opts *options.Options) int {
	switch opts.Mode() {
	case options.ModeInstall:
		return runInstall(opts)
	case options.ModeStart:
		return runStart(opts)
	case options.ModeStop:
		return runStop(opts)
	case options.ModePurge:
		return runPurge(opts, false)
	case options.ModePurgeAll:
		return runPurge(opts, true)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", opts.Mode())
		return 1
	}
}

func cliEnvironment(opts *options.Options) *config.Environment {
	return config.NewEnvironment(opts.BaseDir, opts.EngineDir)
}

// printProgress writes install and download progress to stdout for
// interactive use.
func printProgress(current, total int, message string) {
	if total > 0 {
		fmt.Printf("[%3d%%] %s\n", current*100/total, message)
		return
	}
	fmt.Printf("[ -- ] %s\n", message)
}

func runInstall(opts *options.Options) int {
	env := cliEnvironment(opts)
	inst := installer.New(env, config.GetEngineRepo())
	if err := inst.FullInstall(context.Background(), printProgress); err != nil {
		fmt.Fprintf(os.Stderr, "install failed: %v\n", err)
		return 1
	}
	fmt.Printf("installed into %s\n", env.EngineDir)
	return 0
}

// runStart launches one engine instance in the foreground, writing its
// output to stdout, and stops it on SIGINT/SIGTERM.
func runStart(opts *options.Options) int {
	env := cliEnvironment(opts)
	if !env.IsEngineInstalled() {
		fmt.Fprintf(os.Stderr, "engine is not installed in %s, run -install first\n", env.EngineDir)
		return 1
	}

	port := opts.Port
	if port == 0 {
		port = config.DefaultPort
	}
	host := opts.Host
	if host == "" {
		host = config.DefaultHost
	}
	spec := instance.Spec{Port: port, Host: host, VramMode: opts.VramMode}
	if opts.GPU != "" {
		if err := parseGPU(opts.GPU, &spec); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}
	if err := spec.Normalize(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	handle := process.NewHandle(env)
	startOpts := process.StartOptions{
		Host:      spec.Host,
		Port:      spec.Port,
		VramMode:  spec.VramMode,
		GPUDevice: spec.Device.ProcessValue(),
		LogSink: func(tag, message string) {
			fmt.Println(message)
		},
	}
	if !handle.Start(startOpts, printProgress) {
		fmt.Fprintf(os.Stderr, "failed to start: %s\n", handle.LastError())
		return 1
	}
	if err := writePidFile(opts.BaseDir, spec.Port, handle.Pid()); err != nil {
		klog.Warningf("could not write pid file: %v", err)
	}
	defer removePidFile(opts.BaseDir, spec.Port)
	fmt.Printf("running at http://%s:%d, press Ctrl-C to stop\n", spec.Host, spec.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	if !handle.Stop(printProgress) {
		return 1
	}
	return 0
}

// runStop terminates an instance started with -start, located through
// its pid file.
func runStop(opts *options.Options) int {
	port := opts.Port
	if port == 0 {
		port = config.DefaultPort
	}
	pid, err := readPidFile(opts.BaseDir, port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no instance found on port %d: %v\n", port, err)
		return 1
	}
	if err = process.KillTree(pid); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop pid %d: %v\n", pid, err)
		return 1
	}
	removePidFile(opts.BaseDir, port)
	fmt.Printf("stopped instance on port %d\n", port)
	return 0
}

func runPurge(opts *options.Options, all bool) int {
	env := cliEnvironment(opts)
	target := env.EngineDir
	if all {
		target = env.BaseDir
	}
	if !opts.Yes && !confirm(fmt.Sprintf("Remove %s?", target)) {
		fmt.Println("aborted")
		return 1
	}

	inst := installer.New(env, config.GetEngineRepo())
	var err error
	if all {
		err = inst.PurgeAll(printProgress)
	} else {
		err = inst.Purge(printProgress)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "purge failed: %v\n", err)
		return 1
	}
	fmt.Printf("removed %s\n", target)
	return 0
}

// parseGPU interprets the -gpu flag: a GPU index or "cpu".
func parseGPU(value string, spec *instance.Spec) error {
	if value == "cpu" {
		spec.Device = instance.CPUDevice()
		return nil
	}
	index, err := strconv.Atoi(value)
	if err != nil || index < 0 {
		return fmt.Errorf("invalid -gpu value %q, want a GPU index or \"cpu\"", value)
	}
	spec.Device = instance.GPUDevice(index)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func pidFilePath(baseDir string, port int) string {
	return filepath.Join(baseDir, "run", fmt.Sprintf("comfyui_%d.pid", port))
}

func writePidFile(baseDir string, port, pid int) error {
	path := pidFilePath(baseDir, port)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

func readPidFile(baseDir string, port int) (int, error) {
	data, err := os.ReadFile(pidFilePath(baseDir, port))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePidFile(baseDir string, port int) {
	os.Remove(pidFilePath(baseDir, port))
}
