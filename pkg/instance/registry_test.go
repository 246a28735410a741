/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package instance

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/process"
)

func newTestRegistry(t *testing.T) *Registry {
	env := config.NewEnvironment(t.TempDir(), "")
	return NewRegistry(env, config.DefaultHost, func(string, string) {})
}

func TestAddAssignsPortsFromRange(t *testing.T) {
	r := newTestRegistry(t)

	first, err := r.Add(Spec{})
	require.NoError(t, err)
	assert.Equal(t, config.PortRangeStart, first.Port)
	assert.Equal(t, "gpu0_8188", first.ID)

	second, err := r.Add(Spec{})
	require.NoError(t, err)
	assert.Equal(t, config.PortRangeStart+1, second.Port)
}

func TestAddRejectsDuplicatePort(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Add(Spec{Port: 8190})
	require.NoError(t, err)

	_, err = r.Add(Spec{Port: 8190})
	assert.True(t, errors.IsBadRequest(err))
}

func TestAddRejectsInvalidVramMode(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Add(Spec{VramMode: "turbo"})
	assert.True(t, errors.IsBadRequest(err))
}

func TestAddEnforcesInstanceCap(t *testing.T) {
	r := newTestRegistry(t)
	for i := 0; i < config.MaxInstances; i++ {
		_, err := r.Add(Spec{Port: 9000 + i})
		require.NoError(t, err)
	}
	_, err := r.Add(Spec{Port: 9100})
	assert.True(t, errors.IsBadRequest(err))
}

func TestAddRejectsManagedExtraArgs(t *testing.T) {
	r := newTestRegistry(t)
	for _, arg := range []string{"--port", "--port=9999", "--listen", "--listen=0.0.0.0", "--lowvram", "--novram", "--cpu"} {
		_, err := r.Add(Spec{ExtraArgs: []string{arg}})
		assert.True(t, errors.IsBadRequest(err), "arg %q must be rejected", arg)
	}

	_, err := r.Add(Spec{ExtraArgs: []string{"--force-bf16-unet", "--disable-metadata"}})
	assert.NoError(t, err)
}

// newFakeEngineRegistry wires a registry whose instances spawn a shell
// script instead of the engine, so lifecycle paths run against a real
// child process.
func newFakeEngineRegistry(t *testing.T) *Registry {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	env := config.NewEnvironment(t.TempDir(), "")
	require.NoError(t, os.MkdirAll(env.EngineDir, 0o755))
	require.NoError(t, os.WriteFile(env.EntryPath(), []byte("sleep 30\n"), 0o755))
	env.PythonPath = "/bin/sh"
	return NewRegistry(env, config.DefaultHost, func(string, string) {})
}

// readyEndpoint answers the readiness probe for one instance port
// after a fixed delay.
func readyEndpoint(t *testing.T, delay time.Duration) int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	})}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestStartAllOverlapsAndStopAllStopsEverything(t *testing.T) {
	r := newFakeEngineRegistry(t)
	const count = 3
	const readyDelay = 700 * time.Millisecond
	for i := 0; i < count; i++ {
		_, err := r.Add(Spec{Port: readyEndpoint(t, readyDelay)})
		require.NoError(t, err)
	}

	begin := time.Now()
	started, total := r.StartAll(nil)
	elapsed := time.Since(begin)

	assert.Equal(t, count, started)
	assert.Equal(t, count, total)
	assert.Equal(t, count, r.RunningCount())
	// Serial starts would take at least count*readyDelay.
	assert.Less(t, elapsed, 2*readyDelay, "starts did not run concurrently")

	assert.Empty(t, r.StopAll(nil))
	assert.Equal(t, 0, r.RunningCount())
	for _, inst := range r.List() {
		assert.False(t, inst.Handle.IsRunning())
		assert.Equal(t, process.StatusStopped, inst.Handle.Status())
	}
}

func TestCpuVramModeForcesCpuDevice(t *testing.T) {
	r := newTestRegistry(t)
	inst, err := r.Add(Spec{VramMode: "cpu"})
	require.NoError(t, err)
	assert.True(t, inst.Device.IsCPU())
	assert.Equal(t, "cpu_8188", inst.ID)
	assert.Equal(t, "[CPU:8188]", inst.LogPrefix())
}

func TestIDCollisionGetsSuffix(t *testing.T) {
	r := newTestRegistry(t)
	first, err := r.Add(Spec{Port: 9001, Device: GPUDevice(1)})
	require.NoError(t, err)
	require.NoError(t, r.Remove(first.ID, nil))

	// Re-registering on the same port reuses the base id.
	again, err := r.Add(Spec{Port: 9001, Device: GPUDevice(1)})
	require.NoError(t, err)
	assert.Equal(t, "gpu1_9001", again.ID)
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("gpu0_9999")
	assert.True(t, errors.IsNotFound(err))

	_, err = r.Stop("gpu0_9999", nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestRemoveUnregisters(t *testing.T) {
	r := newTestRegistry(t)
	inst, err := r.Add(Spec{Port: 9001})
	require.NoError(t, err)

	require.NoError(t, r.Remove(inst.ID, nil))
	assert.Empty(t, r.List())
	assert.True(t, errors.IsNotFound(r.Remove(inst.ID, nil)))
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	ports := []int{9005, 9001, 9003}
	for _, port := range ports {
		_, err := r.Add(Spec{Port: port})
		require.NoError(t, err)
	}
	list := r.List()
	require.Len(t, list, 3)
	for i, inst := range list {
		assert.Equal(t, ports[i], inst.Port)
	}
	assert.Equal(t, 0, r.RunningCount())
	assert.False(t, r.AnyRunning())
}

func TestDeviceJSONRoundTrip(t *testing.T) {
	tests := []struct {
		device Device
		want   string
	}{
		{NoDevice(), "null"},
		{CPUDevice(), `"cpu"`},
		{GPUDevice(2), "2"},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.device)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))

		var back Device
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, tt.device, back)
	}

	var fromString Device
	require.NoError(t, json.Unmarshal([]byte(`"3"`), &fromString))
	assert.Equal(t, GPUDevice(3), fromString)

	var bad Device
	assert.Error(t, json.Unmarshal([]byte(`"fast"`), &bad))
}
