/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package loghub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func waitRetained(t *testing.T, h *Hub, n int) {
	require.Eventually(t, func() bool {
		return len(h.Recent(0, "")) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func collect(t *testing.T, sub *Subscriber, n int) []Entry {
	var entries []Entry
	deadline := time.After(2 * time.Second)
	for len(entries) < n {
		select {
		case e, ok := <-sub.Entries():
			require.True(t, ok, "subscriber closed early")
			entries = append(entries, e)
		case <-deadline:
			t.Fatalf("timed out after %d of %d entries", len(entries), n)
		}
	}
	return entries
}

func TestEmitWithoutRunLoopStillRetained(t *testing.T) {
	h := NewHub()
	h.Emit("[GPU0:8188]", "offline line")

	entries := h.Recent(0, "")
	require.Len(t, entries, 1)
	assert.Equal(t, "offline line", entries[0].Message)
}

func TestHistoryKeepsLinesWhenBroadcastOverloaded(t *testing.T) {
	h := NewHub()
	// No run loop draining, so the broadcast queue fills and drops;
	// history must still retain the newest MaxHistory lines.
	total := emitBuffer + 100
	for i := 0; i < total; i++ {
		h.Emit("[GPU0:8188]", fmt.Sprintf("line %d", i))
	}

	retained := h.Recent(0, "")
	require.Len(t, retained, MaxHistory)
	assert.Equal(t, fmt.Sprintf("line %d", total-1), retained[len(retained)-1].Message)
}

func TestSubscribeRightAfterEmitNoDuplicates(t *testing.T) {
	h := startHub(t)
	h.Emit("[GPU0:8188]", "one")
	h.Emit("[GPU0:8188]", "two")

	// Both lines may still be queued for broadcast when the
	// subscriber attaches; replay covers them, the live path must not
	// deliver them again.
	sub := h.Subscribe(SubscribeOptions{})
	h.Emit("[GPU0:8188]", "three")

	entries := collect(t, sub, 3)
	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"one", "two", "three"}, messages)

	select {
	case e := <-sub.Entries():
		t.Fatalf("duplicate delivery of %q", e.Message)
	case <-time.After(200 * time.Millisecond):
	}
	h.Unsubscribe(sub)
}

func TestSubscribeAfterShutdownReturnsClosed(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()
	<-h.done

	sub := h.Subscribe(SubscribeOptions{})
	select {
	case _, ok := <-sub.Entries():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}
	h.Unsubscribe(sub)
}

func TestRecentFilterAndLimit(t *testing.T) {
	h := startHub(t)
	h.Emit("[GPU0:8188]", "a")
	h.Emit("[GPU1:8189]", "b")
	h.Emit("[GPU0:8188]", "c")
	waitRetained(t, h, 3)

	all := h.Recent(0, "")
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Message)
	assert.Equal(t, "c", all[2].Message)

	gpu0 := h.Recent(0, "[GPU0:8188]")
	require.Len(t, gpu0, 2)
	assert.Equal(t, []string{"a", "c"}, []string{gpu0[0].Message, gpu0[1].Message})

	limited := h.Recent(1, "")
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].Message)
}

func TestHistoryRingCaps(t *testing.T) {
	h := startHub(t)
	for i := 0; i < MaxHistory+50; i++ {
		h.Emit("[GPU0:8188]", fmt.Sprintf("line %d", i))
	}
	waitRetained(t, h, MaxHistory)

	retained := h.Recent(0, "")
	assert.Equal(t, "line 50", retained[0].Message)
	assert.Equal(t, fmt.Sprintf("line %d", MaxHistory+49), retained[len(retained)-1].Message)
}

func TestSubscriberSeesHistoryThenLiveInOrder(t *testing.T) {
	h := startHub(t)
	h.Emit("[GPU0:8188]", "old 1")
	h.Emit("[GPU0:8188]", "old 2")
	waitRetained(t, h, 2)

	sub := h.Subscribe(SubscribeOptions{})
	h.Emit("[GPU0:8188]", "live 1")
	h.Emit("[GPU0:8188]", "live 2")

	entries := collect(t, sub, 4)
	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	assert.Equal(t, []string{"old 1", "old 2", "live 1", "live 2"}, messages)
	h.Unsubscribe(sub)
}

func TestSubscriberTagFilter(t *testing.T) {
	h := startHub(t)
	h.Emit("[GPU0:8188]", "keep")
	h.Emit("[GPU1:8189]", "skip")
	waitRetained(t, h, 2)

	sub := h.Subscribe(SubscribeOptions{Tag: "[GPU0:8188]"})
	h.Emit("[GPU1:8189]", "skip live")
	h.Emit("[GPU0:8188]", "keep live")

	entries := collect(t, sub, 2)
	assert.Equal(t, "keep", entries[0].Message)
	assert.Equal(t, "keep live", entries[1].Message)
	h.Unsubscribe(sub)
}

func TestSubscriberHistoryLimit(t *testing.T) {
	h := startHub(t)
	for i := 0; i < 5; i++ {
		h.Emit("[GPU0:8188]", fmt.Sprintf("line %d", i))
	}
	waitRetained(t, h, 5)

	sub := h.Subscribe(SubscribeOptions{Limit: 2})
	entries := collect(t, sub, 2)
	assert.Equal(t, "line 3", entries[0].Message)
	assert.Equal(t, "line 4", entries[1].Message)
	h.Unsubscribe(sub)
}

func TestSubscriberNoHistory(t *testing.T) {
	h := startHub(t)
	h.Emit("[GPU0:8188]", "old")
	waitRetained(t, h, 1)

	sub := h.Subscribe(SubscribeOptions{NoHistory: true})
	h.Emit("[GPU0:8188]", "live")

	entries := collect(t, sub, 1)
	assert.Equal(t, "live", entries[0].Message)
	h.Unsubscribe(sub)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := startHub(t)
	sub := h.Subscribe(SubscribeOptions{})
	h.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Entries():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	sub := h.Subscribe(SubscribeOptions{})
	cancel()

	select {
	case _, ok := <-sub.Entries():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed on shutdown")
	}
}

func TestManyProducersAllDelivered(t *testing.T) {
	h := startHub(t)
	sub := h.Subscribe(SubscribeOptions{})

	const producers, lines = 4, 50
	for p := 0; p < producers; p++ {
		go func(p int) {
			tag := fmt.Sprintf("[GPU%d:818%d]", p, p+8)
			for i := 0; i < lines; i++ {
				h.Emit(tag, fmt.Sprintf("p%d line %d", p, i))
			}
		}(p)
	}

	entries := collect(t, sub, producers*lines)

	// Per-producer order is preserved even when streams interleave.
	next := make(map[string]int)
	for _, e := range entries {
		var p, i int
		_, err := fmt.Sscanf(e.Message, "p%d line %d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[e.Tag], i, "out of order for %s", e.Tag)
		next[e.Tag]++
	}
	h.Unsubscribe(sub)
}
