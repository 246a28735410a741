/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package log_handlers serves the log buffer over REST and streams
// live lines over a websocket. A websocket client first receives the
// buffered history (unless history=false), then live lines with no
// gap and no duplicates.
package log_handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/loghub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Single-host tool, no cross-origin policy to enforce.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler answers the log routes.
type Handler struct {
	app *app.App
}

// NewHandler returns a log handler over a.
func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

// GetLogs returns the newest buffered lines, oldest first.
func (h *Handler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	tag := c.Query("tag")
	entries := h.app.Hub().Recent(limit, tag)
	c.JSON(http.StatusOK, gin.H{"logs": entries, "count": len(entries)})
}

// wsFrame is one websocket message.
type wsFrame struct {
	Type string       `json:"type"`
	Data loghub.Entry `json:"data"`
}

// StreamLogs upgrades to a websocket and streams log lines. Query
// parameters: history (default true), limit (history lines, default
// 100), tag (filter).
func (h *Handler) StreamLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	opts := loghub.SubscribeOptions{
		Tag:       c.Query("tag"),
		Limit:     limit,
		NoHistory: c.Query("history") == "false",
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		klog.Warningf("websocket upgrade failed: %v", err)
		return
	}

	hub := h.app.Hub()
	sub := hub.Subscribe(opts)
	defer hub.Unsubscribe(sub)
	defer conn.Close()

	// Reader goroutine: discard inbound frames, surface close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-sub.Entries():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsFrame{Type: "log", Data: entry}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
