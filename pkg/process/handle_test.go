/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package process

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
)

func TestStartFailsWithoutEngine(t *testing.T) {
	env := config.NewEnvironment(t.TempDir(), "")
	h := NewHandle(env)
	ok := h.Start(StartOptions{Host: "127.0.0.1", Port: 8188, VramMode: "normal", LogPrefix: "[GPU0:8188]"}, nil)
	assert.False(t, ok)
	assert.False(t, h.IsRunning())
	assert.Equal(t, StatusError, h.Status())
	assert.NotEmpty(t, h.LastError())

	// A stop does not clear the failed-start status.
	assert.True(t, h.Stop(nil))
	assert.Equal(t, StatusError, h.Status())
}

func TestStopWhenNeverStarted(t *testing.T) {
	h := NewHandle(config.NewEnvironment(t.TempDir(), ""))
	assert.Equal(t, StatusStopped, h.Status())
	assert.True(t, h.Stop(nil))
	assert.Equal(t, StatusStopped, h.Status())
	assert.Equal(t, 0, h.Pid())
}

func statsEndpoint(t *testing.T, status int) (string, int) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	addr := srv.Listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestWaitReadyOn200(t *testing.T) {
	host, port := statsEndpoint(t, http.StatusOK)
	h := NewHandle(config.NewEnvironment(t.TempDir(), ""))

	ok := h.waitReady(StartOptions{Host: host, Port: port, LogPrefix: "[GPU0:t]"}, make(chan struct{}), nil)
	assert.True(t, ok)
	assert.Equal(t, StatusRunning, h.Status())
}

func TestWaitReadyIgnoresNon200(t *testing.T) {
	host, port := statsEndpoint(t, http.StatusServiceUnavailable)
	h := NewHandle(config.NewEnvironment(t.TempDir(), ""))

	done := make(chan struct{})
	ready := make(chan bool, 1)
	go func() {
		ready <- h.waitReady(StartOptions{Host: host, Port: port, LogPrefix: "[GPU0:t]"}, done, nil)
	}()

	// The port answers immediately but never with 200; readiness must
	// keep polling instead of declaring the engine up.
	select {
	case got := <-ready:
		t.Fatalf("declared ready=%v on a 503 endpoint", got)
	case <-time.After(1500 * time.Millisecond):
	}

	close(done)
	require.False(t, <-ready)
	assert.Equal(t, StatusError, h.Status())
}

func cudaValue(env []string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], "CUDA_VISIBLE_DEVICES=") {
			return strings.TrimPrefix(env[i], "CUDA_VISIBLE_DEVICES="), true
		}
	}
	return "", false
}

func TestChildEnvCudaDevice(t *testing.T) {
	h := NewHandle(config.NewEnvironment(t.TempDir(), ""))

	got, set := cudaValue(h.childEnv("cpu"))
	assert.True(t, set)
	assert.Equal(t, "", got)

	got, set = cudaValue(h.childEnv("1"))
	assert.True(t, set)
	assert.Equal(t, "1", got)
}

func TestChildEnvInheritsWhenNoDevice(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "0,1")
	h := NewHandle(config.NewEnvironment(t.TempDir(), ""))
	got, set := cudaValue(h.childEnv(""))
	assert.True(t, set)
	assert.Equal(t, "0,1", got)
}
