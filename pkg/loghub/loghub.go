/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package loghub fans engine log lines out to subscribers. Emit
// records history synchronously, so retained lines survive even with
// no run loop attached. A single run loop owns subscriber membership,
// and a sequence watermark taken at attachment keeps replay and live
// delivery gap-free and duplicate-free: a new subscriber sees every
// retained line exactly once, in order, before the live stream.
package loghub

import (
	"context"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/metrics"
)

const (
	// MaxHistory caps the retained ring of log entries.
	MaxHistory = 2000

	emitBuffer       = 4096
	subscriberBuffer = MaxHistory + 256
)

// Entry is one log line from one instance.
type Entry struct {
	Timestamp float64 `json:"timestamp"`
	Tag       string  `json:"tag"`
	Message   string  `json:"message"`

	seq uint64
}

// SubscribeOptions filters what a subscriber receives. Tag limits the
// stream to one instance; Limit bounds the history replay (0 replays
// everything retained) and NoHistory skips the replay entirely.
type SubscribeOptions struct {
	Tag       string
	Limit     int
	NoHistory bool
}

// Subscriber is one attached log consumer. Read Entries until it is
// closed; the hub closes it on shutdown or when the consumer falls
// too far behind.
type Subscriber struct {
	opts SubscribeOptions
	ch   chan Entry

	// afterSeq is the history watermark set at attachment; live
	// dispatch skips entries at or below it so a line queued during
	// registration is never delivered twice.
	afterSeq uint64
}

// Entries is the ordered stream of history followed by live lines.
func (s *Subscriber) Entries() <-chan Entry {
	return s.ch
}

func (s *Subscriber) wants(e Entry) bool {
	return s.opts.Tag == "" || s.opts.Tag == e.Tag
}

// Hub is the many-producer, many-subscriber log broadcaster.
type Hub struct {
	emit       chan Entry
	register   chan *Subscriber
	unregister chan *Subscriber
	done       chan struct{}

	mu      sync.Mutex
	ring    []Entry
	nextSeq uint64

	dropped uint64
}

// NewHub returns a hub; call Run before subscribing.
func NewHub() *Hub {
	return &Hub{
		emit:       make(chan Entry, emitBuffer),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		done:       make(chan struct{}),
	}
}

// Emit records one log line. History always updates, even with no run
// loop attached; only the broadcast is best-effort and never blocks
// the producer.
func (h *Hub) Emit(tag, message string) {
	entry := Entry{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Tag:       tag,
		Message:   strings.TrimRight(message, "\n"),
	}

	h.mu.Lock()
	h.nextSeq++
	entry.seq = h.nextSeq
	h.ring = append(h.ring, entry)
	if len(h.ring) > MaxHistory {
		h.ring = h.ring[len(h.ring)-MaxHistory:]
	}
	h.mu.Unlock()
	metrics.LogLinesTotal.Inc()

	select {
	case h.emit <- entry:
	default:
		metrics.LogDropsTotal.Inc()
		h.mu.Lock()
		h.dropped++
		dropped := h.dropped
		h.mu.Unlock()
		if dropped%1000 == 1 {
			klog.Warningf("log hub overloaded, %d broadcasts dropped", dropped)
		}
	}
}

// Subscribe attaches a consumer. History matching opts is queued
// first, then live lines follow with no gap or duplicate. After the
// hub has shut down the subscriber comes back already closed.
func (h *Hub) Subscribe(opts SubscribeOptions) *Subscriber {
	sub := &Subscriber{opts: opts, ch: make(chan Entry, subscriberBuffer)}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.ch)
	}
	return sub
}

// Unsubscribe detaches a consumer and closes its channel. Safe to
// call after the hub has shut down.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Recent returns up to limit retained entries for the given tag
// (empty tag matches all), oldest first. A limit of 0 returns all.
func (h *Hub) Recent(limit int, tag string) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	var matched []Entry
	for _, e := range h.ring {
		if tag == "" || tag == e.Tag {
			matched = append(matched, e)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// Run owns subscriber membership until ctx is done, then closes every
// subscriber channel.
func (h *Hub) Run(ctx context.Context) {
	subs := make(map[*Subscriber]struct{})
	defer func() {
		close(h.done)
		for sub := range subs {
			close(sub.ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case entry := <-h.emit:
			for sub := range subs {
				if !sub.wants(entry) || entry.seq <= sub.afterSeq {
					continue
				}
				select {
				case sub.ch <- entry:
				default:
					// Consumer fell behind a full buffer; cut it loose.
					klog.Warningf("log subscriber too slow, dropping it")
					close(sub.ch)
					delete(subs, sub)
				}
			}

		case sub := <-h.register:
			entries, watermark := h.replaySet(sub.opts)
			for _, entry := range entries {
				sub.ch <- entry
			}
			sub.afterSeq = watermark
			subs[sub] = struct{}{}

		case sub := <-h.unregister:
			if _, ok := subs[sub]; ok {
				close(sub.ch)
				delete(subs, sub)
			}
		}
	}
}

// replaySet snapshots the history a new subscriber should see and the
// sequence watermark at that moment. Entries already in history are
// covered by the replay; the watermark keeps the broadcast path from
// delivering them a second time.
func (h *Hub) replaySet(opts SubscribeOptions) ([]Entry, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if opts.NoHistory {
		return nil, h.nextSeq
	}
	var matched []Entry
	for _, e := range h.ring {
		if opts.Tag == "" || opts.Tag == e.Tag {
			matched = append(matched, e)
		}
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[len(matched)-opts.Limit:]
	}
	return matched, h.nextSeq
}
