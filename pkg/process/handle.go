/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package process owns the lifecycle of one engine child process:
// spawning with the right flags and environment, pumping its output
// into a log sink, probing readiness and tearing the whole process
// tree down.
package process

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

const (
	readyTimeout   = 120 * time.Second
	readyInterval  = time.Second
	readyHTTPLimit = 2 * time.Second

	terminateWait = 10 * time.Second
	killWait      = 5 * time.Second
	restartPause  = 2 * time.Second
)

// LogSink receives one line of child output together with the
// instance tag it belongs to.
type LogSink func(tag, message string)

// StartOptions carries everything Start needs to spawn one engine
// process.
type StartOptions struct {
	Host      string
	Port      int
	VramMode  string
	ExtraArgs []string

	// GPUDevice selects the CUDA device exposed to the child:
	// a decimal index pins one GPU, "cpu" hides all GPUs and an
	// empty string leaves CUDA_VISIBLE_DEVICES untouched.
	GPUDevice string

	// LogPrefix tags every pumped line, e.g. "[GPU0:8188]".
	LogPrefix string
	LogSink   LogSink
}

// Status values an instance moves through. A failed start leaves the
// handle in StatusError until the next successful start.
const (
	StatusStopped  = "stopped"
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusError    = "error"
)

// Handle supervises a single engine child process. The zero value is
// not usable; construct with NewHandle.
type Handle struct {
	env *config.Environment

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	status  string
	lastErr string
}

// NewHandle returns a handle bound to the given environment.
func NewHandle(env *config.Environment) *Handle {
	return &Handle{env: env, status: StatusStopped}
}

// Status returns the lifecycle status: stopped, starting, running or
// error.
func (h *Handle) Status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// LastError returns the failure message of the last start attempt,
// cleared by the next successful start.
func (h *Handle) LastError() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *Handle) setStatus(status, lastErr string) {
	h.mu.Lock()
	h.status = status
	if status == StatusError {
		h.lastErr = lastErr
	} else if status == StatusRunning {
		h.lastErr = ""
	}
	h.mu.Unlock()
}

// IsRunning reports whether the child process is alive.
func (h *Handle) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runningLocked()
}

func (h *Handle) runningLocked() bool {
	if h.cmd == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Pid returns the child process id, or 0 when not running.
func (h *Handle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.runningLocked() {
		return 0
	}
	return h.cmd.Process.Pid
}

// Start spawns the engine and blocks until it answers HTTP on its
// port, it dies, or the readiness window elapses. A child that is
// still alive after the window counts as started; some engines take
// very long to bind while loading models. Returns false when the
// child could not be spawned or exited during the wait.
func (h *Handle) Start(opts StartOptions, p progress.Sink) bool {
	p = progress.Safe(p)
	sink := opts.LogSink
	if sink == nil {
		sink = func(string, string) {}
	}

	h.mu.Lock()
	if h.runningLocked() {
		h.mu.Unlock()
		klog.Warningf("%s already running, ignoring start", opts.LogPrefix)
		return true
	}

	if !h.env.IsEngineInstalled() {
		h.status = StatusError
		h.lastErr = fmt.Sprintf("engine entry file missing at %s", h.env.EntryPath())
		h.mu.Unlock()
		klog.Errorf("%s engine entry file missing at %s", opts.LogPrefix, h.env.EntryPath())
		return false
	}
	h.status = StatusStarting

	args := []string{h.env.EntryPath(), "--listen", opts.Host, "--port", strconv.Itoa(opts.Port)}
	args = append(args, config.VramModes[opts.VramMode]...)
	args = append(args, opts.ExtraArgs...)

	cmd := exec.Command(h.env.PythonPath, args...)
	cmd.Dir = h.env.EngineDir
	cmd.Env = h.childEnv(opts.GPUDevice)
	setProcAttrs(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.status = StatusError
		h.lastErr = err.Error()
		h.mu.Unlock()
		klog.Errorf("%s stdout pipe: %v", opts.LogPrefix, err)
		return false
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		h.status = StatusError
		h.lastErr = err.Error()
		h.mu.Unlock()
		klog.Errorf("%s stderr pipe: %v", opts.LogPrefix, err)
		return false
	}

	p(0, 100, "Spawning engine process")
	if err = cmd.Start(); err != nil {
		h.status = StatusError
		h.lastErr = err.Error()
		h.mu.Unlock()
		klog.Errorf("%s spawn failed: %v", opts.LogPrefix, err)
		return false
	}

	done := make(chan struct{})
	h.cmd = cmd
	h.done = done
	h.mu.Unlock()

	var pumps sync.WaitGroup
	pumps.Add(2)
	go h.pump(stdout, opts.LogPrefix, sink, &pumps)
	go h.pump(stderr, opts.LogPrefix, sink, &pumps)
	go func() {
		pumps.Wait()
		err := cmd.Wait()
		close(done)
		h.mu.Lock()
		if h.status == StatusRunning {
			h.status = StatusStopped
		}
		h.mu.Unlock()
		if err != nil {
			klog.Infof("%s exited: %v", opts.LogPrefix, err)
		} else {
			klog.Infof("%s exited cleanly", opts.LogPrefix)
		}
	}()

	klog.Infof("%s started pid %d", opts.LogPrefix, cmd.Process.Pid)
	return h.waitReady(opts, done, p)
}

// waitReady polls the engine's stats endpoint until it answers 200 or
// the window elapses. Any other status means the port is answering but
// the engine is not up yet, so polling continues.
func (h *Handle) waitReady(opts StartOptions, done <-chan struct{}, p progress.Sink) bool {
	p = progress.Safe(p)
	client := resty.New().SetTimeout(readyHTTPLimit)
	url := fmt.Sprintf("http://%s:%d/system_stats", opts.Host, opts.Port)
	deadline := time.Now().Add(readyTimeout)
	attempt := 0
	for time.Now().Before(deadline) {
		select {
		case <-done:
			klog.Errorf("%s died while waiting for readiness", opts.LogPrefix)
			h.setStatus(StatusError, "engine process died during startup")
			return false
		default:
		}
		if resp, err := client.R().Get(url); err == nil && resp.StatusCode() == http.StatusOK {
			p(100, 100, "Engine ready")
			klog.Infof("%s ready on port %d", opts.LogPrefix, opts.Port)
			h.setStatus(StatusRunning, "")
			return true
		}
		attempt++
		if attempt%10 == 0 {
			p(attempt, 120, "Waiting for engine to become ready")
		}
		time.Sleep(readyInterval)
	}
	select {
	case <-done:
		h.setStatus(StatusError, "engine process died during startup")
		return false
	default:
		// Still alive but not answering; assume a slow model load.
		klog.Warningf("%s not answering after %s, assuming slow startup", opts.LogPrefix, readyTimeout)
		h.setStatus(StatusRunning, "")
		return true
	}
}

// Stop tears down the process tree: polite terminate first, hard kill
// if the tree ignores it. Returns true when the child is gone.
func (h *Handle) Stop(p progress.Sink) bool {
	p = progress.Safe(p)

	h.mu.Lock()
	cmd, done := h.cmd, h.done
	h.cmd, h.done = nil, nil
	h.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		h.markStopped()
		return true
	}
	select {
	case <-done:
		h.markStopped()
		return true
	default:
	}

	pid := cmd.Process.Pid
	p(0, 100, "Stopping engine process")
	terminateTree(pid)
	select {
	case <-done:
		p(100, 100, "Engine stopped")
		h.markStopped()
		return true
	case <-time.After(terminateWait):
	}

	klog.Warningf("pid %d ignored terminate, killing tree", pid)
	p(50, 100, "Force killing engine process")
	killTree(pid)
	select {
	case <-done:
		p(100, 100, "Engine stopped")
		h.markStopped()
		return true
	case <-time.After(killWait):
		klog.Errorf("pid %d survived kill", pid)
		return false
	}
}

// markStopped records a clean stop. A persisted error status from a
// failed start is kept until the next successful start.
func (h *Handle) markStopped() {
	h.mu.Lock()
	if h.status != StatusError {
		h.status = StatusStopped
	}
	h.mu.Unlock()
}

// Restart stops the child, pauses briefly so the port frees up, then
// starts it again with the given options.
func (h *Handle) Restart(opts StartOptions, p progress.Sink) bool {
	p = progress.Safe(p)
	p(0, 100, "Restarting engine")
	if !h.Stop(p) {
		return false
	}
	time.Sleep(restartPause)
	return h.Start(opts, p)
}

// KillTree terminates the process tree rooted at a pid this process
// does not own, such as one recorded in a pid file. Polite terminate
// first, hard kill if the tree survives the grace period.
func KillTree(pid int) error {
	if !processAlive(pid) {
		return fmt.Errorf("process %d not found", pid)
	}
	terminateTree(pid)
	deadline := time.Now().Add(terminateWait)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	killTree(pid)
	deadline = time.Now().Add(killWait)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("process %d survived kill", pid)
}

func (h *Handle) pump(r io.Reader, prefix string, sink LogSink, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		sink(prefix, line)
	}
}

// childEnv builds the child environment: portable tool directories
// prepended to PATH and CUDA_VISIBLE_DEVICES set per the device
// selection.
func (h *Handle) childEnv(gpuDevice string) []string {
	env := os.Environ()
	if additions := h.env.PathAdditions(); len(additions) > 0 {
		prefix := strings.Join(additions, string(os.PathListSeparator))
		found := false
		for i, kv := range env {
			if strings.HasPrefix(kv, "PATH=") {
				env[i] = "PATH=" + prefix + string(os.PathListSeparator) + kv[len("PATH="):]
				found = true
				break
			}
		}
		if !found {
			env = append(env, "PATH="+prefix)
		}
	}
	switch gpuDevice {
	case "":
	case "cpu":
		env = append(env, "CUDA_VISIBLE_DEVICES=")
	default:
		env = append(env, "CUDA_VISIBLE_DEVICES="+gpuDevice)
	}
	return env
}
