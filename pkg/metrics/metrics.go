/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package metrics exposes the control plane's Prometheus collectors.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InstancesRunning tracks how many engine instances are up.
	InstancesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "comfyhost",
		Name:      "instances_running",
		Help:      "Number of engine instances currently running.",
	})

	// InstancesRegistered tracks the registry size.
	InstancesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "comfyhost",
		Name:      "instances_registered",
		Help:      "Number of registered engine instances.",
	})

	// JobsTotal counts finished jobs by operation and outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comfyhost",
		Name:      "jobs_total",
		Help:      "Finished asynchronous jobs by operation and status.",
	}, []string{"operation", "status"})

	// LogLinesTotal counts log lines fanned out by the hub.
	LogLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "comfyhost",
		Name:      "log_lines_total",
		Help:      "Engine log lines received by the hub.",
	})

	// LogDropsTotal counts log lines dropped by the hub under load.
	LogDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "comfyhost",
		Name:      "log_drops_total",
		Help:      "Engine log lines dropped because the hub was overloaded.",
	})

	// HTTPRequestsTotal counts API requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "comfyhost",
		Name:      "http_requests_total",
		Help:      "API requests by method and status code.",
	}, []string{"method", "code"})
)

// Handler adapts the Prometheus exposition handler to gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
