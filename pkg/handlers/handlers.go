/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers assembles the HTTP surface: middleware, every route
// group and the metrics endpoint.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/errors"
	install_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/install-handlers"
	instance_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/instance-handlers"
	job_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/job-handlers"
	log_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/log-handlers"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/middleware"
	model_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/model-handlers"
	node_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/node-handlers"
	status_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/status-handlers"
	target_handlers "github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers/target-handlers"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/metrics"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/utils"
)

// InitHttpHandlers builds the Gin engine with logging, recovery and
// optional tracing middleware, mounts every route group and the
// Prometheus endpoint.
func InitHttpHandlers(a *app.App) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.HandleLogging(), gin.Recovery())
	if config.IsTracingEnable() {
		engine.Use(middleware.Tracing("comfyhost"))
	}
	engine.NoRoute(func(c *gin.Context) {
		utils.AbortWithApiError(c, errors.NewNotFound(c.Request.RequestURI+" not found"))
	})

	status_handlers.InitStatusRouters(engine, status_handlers.NewHandler(a))
	install_handlers.InitInstallRouters(engine, install_handlers.NewHandler(a))
	target_handlers.InitTargetRouters(engine, target_handlers.NewHandler(a))
	instance_handlers.InitInstanceRouters(engine, instance_handlers.NewHandler(a))
	model_handlers.InitModelRouters(engine, model_handlers.NewHandler(a))
	node_handlers.InitNodeRouters(engine, node_handlers.NewHandler(a))
	job_handlers.InitJobRouters(engine, job_handlers.NewHandler(a))
	log_handlers.InitLogRouters(engine, log_handlers.NewHandler(a))

	engine.GET("/metrics", metrics.Handler())
	return engine
}
