/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package worker runs submitted tasks on a fixed pool of goroutines.
// A pool of size zero runs each task on its own goroutine, which is
// the default for job execution where tasks block on child processes.
package worker

import (
	"sync"

	"k8s.io/klog/v2"
)

// Pool executes submitted tasks.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool builds a pool with size workers and a pending queue of
// queue tasks. size <= 0 yields an unbounded pool.
func NewPool(size, queue int) *Pool {
	p := &Pool{}
	if size <= 0 {
		return p
	}
	if queue < 0 {
		queue = 0
	}
	p.tasks = make(chan func(), queue)
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit schedules a task. On a bounded pool it blocks while the
// queue is full. Submitting to a closed pool drops the task.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		klog.Warningf("task submitted to closed pool, dropping")
		return
	}
	if p.tasks == nil {
		p.wg.Add(1)
		p.mu.Unlock()
		go func() {
			defer p.wg.Done()
			task()
		}()
		return
	}
	p.mu.Unlock()
	p.tasks <- task
}

// Close stops intake and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.tasks != nil {
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
