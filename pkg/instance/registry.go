/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package instance

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/process"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

// Instance is one registered engine instance. The handle outlives
// starts and stops; Running is derived from it.
type Instance struct {
	ID        string
	Host      string
	Port      int
	VramMode  string
	Device    Device
	GpuLabel  string
	ExtraArgs []string
	Handle    *process.Handle
}

// URL is the engine endpoint of this instance.
func (i *Instance) URL() string {
	return fmt.Sprintf("http://%s:%d", i.Host, i.Port)
}

// LogPrefix returns the tag used for every log line of this instance.
func (i *Instance) LogPrefix() string {
	if i.Device.IsCPU() {
		return fmt.Sprintf("[CPU:%d]", i.Port)
	}
	index, _ := i.Device.GPUIndex()
	return fmt.Sprintf("[GPU%d:%d]", index, i.Port)
}

func (i *Instance) startOptions(sink process.LogSink) process.StartOptions {
	return process.StartOptions{
		Host:      i.Host,
		Port:      i.Port,
		VramMode:  i.VramMode,
		ExtraArgs: i.ExtraArgs,
		GPUDevice: i.Device.ProcessValue(),
		LogPrefix: i.LogPrefix(),
		LogSink:   sink,
	}
}

// View returns the wire representation.
func (i *Instance) View() View {
	return View{
		ID:        i.ID,
		Port:      i.Port,
		Host:      i.Host,
		URL:       i.URL(),
		VramMode:  i.VramMode,
		Device:    i.Device,
		GpuLabel:  i.GpuLabel,
		ExtraArgs: i.ExtraArgs,
		Running:   i.Handle.IsRunning(),
		Status:    i.Handle.Status(),
		Error:     i.Handle.LastError(),
		Pid:       i.Handle.Pid(),
	}
}

// Registry owns every registered instance. All mutations hold the
// registry lock only long enough to read or commit state; process
// work happens outside it against the per-instance handle.
type Registry struct {
	mu    sync.Mutex
	env   *config.Environment
	host  string
	sink  process.LogSink
	byID  map[string]*Instance
	order []string
}

// NewRegistry returns an empty registry. Every instance spawned from
// it uses env for paths and sink for log lines.
func NewRegistry(env *config.Environment, host string, sink process.LogSink) *Registry {
	return &Registry{
		env:  env,
		host: host,
		sink: sink,
		byID: make(map[string]*Instance),
	}
}

// SetEnvironment swaps the environment used by future instance
// handles, for engine directory switches. Existing instances keep the
// handle they were created with until restarted through a new Add.
func (r *Registry) SetEnvironment(env *config.Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.env = env
}

// Add registers a new instance. A zero port picks the next free port
// in the automatic range. Fails when the registry is full, the port
// is taken, or the spec does not validate.
func (r *Registry) Add(spec Spec) (*Instance, error) {
	if err := spec.Normalize(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.byID) >= config.MaxInstances {
		return nil, errors.NewBadRequest(fmt.Sprintf("Instance limit reached (%d)", config.MaxInstances))
	}
	if spec.Port == 0 {
		spec.Port = r.nextPortLocked()
	} else if holder := r.portHolderLocked(spec.Port); holder != "" {
		return nil, errors.NewBadRequest(fmt.Sprintf("Port %d already in use by instance %s", spec.Port, holder))
	}

	host := spec.Host
	if host == "" {
		host = r.host
	}
	inst := &Instance{
		ID:        r.deriveIDLocked(spec),
		Host:      host,
		Port:      spec.Port,
		VramMode:  spec.VramMode,
		Device:    spec.Device,
		GpuLabel:  spec.GpuLabel,
		ExtraArgs: spec.ExtraArgs,
		Handle:    process.NewHandle(r.env),
	}
	r.byID[inst.ID] = inst
	r.order = append(r.order, inst.ID)
	klog.Infof("registered instance %s", inst.ID)
	return inst, nil
}

// deriveIDLocked builds the id as gpu<idx>_<port> or cpu_<port>, with
// a numeric suffix on collision.
func (r *Registry) deriveIDLocked(spec Spec) string {
	var base string
	if spec.Device.IsCPU() {
		base = fmt.Sprintf("cpu_%d", spec.Port)
	} else {
		index, _ := spec.Device.GPUIndex()
		base = fmt.Sprintf("gpu%d_%d", index, spec.Port)
	}
	id := base
	for n := 1; ; n++ {
		if _, exists := r.byID[id]; !exists {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func (r *Registry) portHolderLocked(port int) string {
	for _, inst := range r.byID {
		if inst.Port == port {
			return inst.ID
		}
	}
	return ""
}

func (r *Registry) nextPortLocked() int {
	for port := config.PortRangeStart; port <= config.PortRangeEnd; port++ {
		if r.portHolderLocked(port) == "" {
			return port
		}
	}
	return config.PortRangeEnd + 1
}

// NextAvailablePort returns the first free port in the automatic
// range, or the port just past the range when every port is held.
func (r *Registry) NextAvailablePort() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextPortLocked()
}

// Get returns the instance with the given id.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byID[id]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("Instance %q not found", id))
	}
	return inst, nil
}

// List returns all instances in registration order.
func (r *Registry) List() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	instances := make([]*Instance, 0, len(r.order))
	for _, id := range r.order {
		instances = append(instances, r.byID[id])
	}
	return instances
}

// Views returns the wire representation of every instance.
func (r *Registry) Views() []View {
	instances := r.List()
	views := make([]View, 0, len(instances))
	for _, inst := range instances {
		views = append(views, inst.View())
	}
	return views
}

// Start launches the instance's process and blocks until readiness.
func (r *Registry) Start(id string, p progress.Sink) (bool, error) {
	inst, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return inst.Handle.Start(inst.startOptions(r.sink), p), nil
}

// Stop terminates the instance's process tree. Stopping an instance
// that is not running succeeds.
func (r *Registry) Stop(id string, p progress.Sink) (bool, error) {
	inst, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return inst.Handle.Stop(p), nil
}

// Restart stops the instance, waits for the port to free, and starts
// it again.
func (r *Registry) Restart(id string, p progress.Sink) (bool, error) {
	inst, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return inst.Handle.Restart(inst.startOptions(r.sink), p), nil
}

// Remove stops the instance if it is running, then unregisters it.
func (r *Registry) Remove(id string, p progress.Sink) error {
	inst, err := r.Get(id)
	if err != nil {
		return err
	}
	if inst.Handle.IsRunning() && !inst.Handle.Stop(p) {
		return errors.NewInternal(fmt.Sprintf("instance %s did not stop", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	klog.Infof("removed instance %s", id)
	return nil
}

// StartAll starts every stopped instance concurrently and waits for
// all of them. Returns how many instances are running afterwards and
// the total registered.
func (r *Registry) StartAll(p progress.Sink) (started, total int) {
	p = progress.Safe(p)
	instances := r.List()
	p(0, len(instances), "Starting all instances")

	var wg sync.WaitGroup
	for _, inst := range instances {
		if inst.Handle.IsRunning() {
			continue
		}
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			inst.Handle.Start(inst.startOptions(r.sink), nil)
		}(inst)
	}
	wg.Wait()

	for _, inst := range instances {
		if inst.Handle.IsRunning() {
			started++
		}
	}
	p(len(instances), len(instances), "Done")
	return started, len(instances)
}

// StopAll stops every running instance serially in order. Returns the
// ids that did not stop.
func (r *Registry) StopAll(p progress.Sink) []string {
	p = progress.Safe(p)
	instances := r.List()
	var failed []string
	for i, inst := range instances {
		p(i, len(instances), fmt.Sprintf("Stopping %s", inst.ID))
		if !inst.Handle.Stop(nil) {
			failed = append(failed, inst.ID)
		}
	}
	p(len(instances), len(instances), "Done")
	return failed
}

// RunningCount returns how many instances are currently running.
func (r *Registry) RunningCount() int {
	count := 0
	for _, inst := range r.List() {
		if inst.Handle.IsRunning() {
			count++
		}
	}
	return count
}

// AnyRunning reports whether at least one instance is running.
func (r *Registry) AnyRunning() bool {
	return r.RunningCount() > 0
}
