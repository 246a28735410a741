/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package jobs tracks asynchronous operations. Every long-running API
// call gets a job record the client polls; the registry caps history
// and prunes the oldest finished jobs first.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/progress"
)

// MaxJobs caps how many job records the registry retains.
const MaxJobs = 100

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress is the latest advisory progress of a job.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Job is one tracked operation. Fields are only mutated under the
// registry lock; Snapshot returns a copy safe to serialize.
type Job struct {
	ID          string      `json:"job_id"`
	Operation   string      `json:"operation"`
	Status      Status      `json:"status"`
	Progress    Progress    `json:"progress"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   float64     `json:"created_at"`
	StartedAt   float64     `json:"started_at,omitempty"`
	CompletedAt float64     `json:"completed_at,omitempty"`
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Aggregate is the result shape of jobs that fan out over many items,
// such as multi-model downloads or update-all.
type Aggregate struct {
	Success int             `json:"success"`
	Failed  int             `json:"failed"`
	Details map[string]bool `json:"details"`
}

// NewAggregate builds an aggregate result from per-item outcomes.
func NewAggregate(details map[string]bool) Aggregate {
	agg := Aggregate{Details: details}
	for _, ok := range details {
		if ok {
			agg.Success++
		} else {
			agg.Failed++
		}
	}
	return agg
}

// Registry holds every tracked job.
type Registry struct {
	mu    sync.Mutex
	byID  map[string]*Job
	order []string
	genID func() string
}

// NewRegistry returns an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]*Job),
		genID: func() string { return uuid.NewString()[:8] },
	}
}

// Create registers a new pending job for the named operation and
// returns its id. Creation prunes history down to the cap, oldest
// finished jobs first; unfinished jobs are never evicted.
func (r *Registry) Create(operation string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	// Short ids can collide; regenerate instead of overwriting a
	// live record.
	id := r.genID()
	for {
		if _, exists := r.byID[id]; !exists {
			break
		}
		id = r.genID()
	}
	job := &Job{
		ID:        id,
		Operation: operation,
		Status:    StatusPending,
		CreatedAt: now(),
	}
	r.byID[job.ID] = job
	r.order = append(r.order, job.ID)
	return job.ID
}

func (r *Registry) pruneLocked() {
	for len(r.byID) >= MaxJobs {
		evicted := false
		for i, id := range r.order {
			if r.byID[id].Status.Terminal() {
				delete(r.byID, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			klog.Warningf("job registry over capacity with no finished jobs to evict")
			return
		}
	}
}

// Start marks the job running.
func (r *Registry) Start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.byID[id]; ok {
		job.Status = StatusRunning
		job.StartedAt = now()
	}
}

// Complete marks the job completed with its result.
func (r *Registry) Complete(id string, result interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.byID[id]; ok {
		job.Status = StatusCompleted
		job.Result = result
		job.CompletedAt = now()
	}
}

// Fail marks the job failed with the given message.
func (r *Registry) Fail(id string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.byID[id]; ok {
		job.Status = StatusFailed
		job.Error = message
		job.CompletedAt = now()
	}
}

// ProgressSink returns a sink that records progress onto the job. It
// is safe to call from any goroutine and tolerates unknown ids.
func (r *Registry) ProgressSink(id string) progress.Sink {
	return func(current, total int, message string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if job, ok := r.byID[id]; ok {
			job.Progress = Progress{Current: current, Total: total, Message: message}
		}
	}
}

// Get returns a snapshot of the job with the given id.
func (r *Registry) Get(id string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok {
		return Job{}, errors.NewNotFound(fmt.Sprintf("Job %q not found", id))
	}
	return *job, nil
}

// List returns snapshots of every job, newest first.
func (r *Registry) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshots := make([]Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		snapshots = append(snapshots, *r.byID[r.order[i]])
	}
	return snapshots
}
