/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package supervisor turns blocking operations into tracked jobs: the
// caller gets a job id back immediately and the work runs on the
// worker pool with progress, panic recovery and outcome accounting.
package supervisor

import (
	"fmt"
	"runtime/debug"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/jobs"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/metrics"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/worker"
)

// JobSpec describes one operation to run asynchronously.
type JobSpec struct {
	// Operation names the job in listings, e.g. "start_instance".
	Operation string
	// Run does the work. Its result lands on the job record; an
	// error marks the job failed.
	Run func(p progress.Sink) (interface{}, error)
}

// LogFunc publishes one operator-visible line about a job, e.g. into
// the log hub under the server tag.
type LogFunc func(format string, args ...interface{})

// Supervisor launches tracked jobs.
type Supervisor struct {
	jobs *jobs.Registry
	pool *worker.Pool
	log  LogFunc
}

// New returns a supervisor over the given registry and pool. A nil
// log keeps job outcomes out of the operator stream.
func New(registry *jobs.Registry, pool *worker.Pool, log LogFunc) *Supervisor {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	return &Supervisor{jobs: registry, pool: pool, log: log}
}

// Jobs exposes the underlying job registry for read access.
func (s *Supervisor) Jobs() *jobs.Registry {
	return s.jobs
}

// Launch creates a job for spec and schedules it. The returned id is
// immediately pollable; the job is pending until a worker picks it up.
func (s *Supervisor) Launch(spec JobSpec) string {
	id := s.jobs.Create(spec.Operation)
	s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				klog.Errorf("job %s (%s) panicked: %v\n%s", id, spec.Operation, r, debug.Stack())
				s.jobs.Fail(id, fmt.Sprintf("internal panic: %v", r))
				s.log("job %s (%s) failed: internal panic", id, spec.Operation)
				metrics.JobsTotal.WithLabelValues(spec.Operation, string(jobs.StatusFailed)).Inc()
			}
		}()
		s.jobs.Start(id)
		s.log("job %s (%s) started", id, spec.Operation)
		result, err := spec.Run(s.jobs.ProgressSink(id))
		if err != nil {
			klog.Warningf("job %s (%s) failed: %v", id, spec.Operation, err)
			s.jobs.Fail(id, err.Error())
			s.log("job %s (%s) failed: %v", id, spec.Operation, err)
			metrics.JobsTotal.WithLabelValues(spec.Operation, string(jobs.StatusFailed)).Inc()
			return
		}
		s.jobs.Complete(id, result)
		s.log("job %s (%s) completed", id, spec.Operation)
		metrics.JobsTotal.WithLabelValues(spec.Operation, string(jobs.StatusCompleted)).Inc()
	})
	return id
}
