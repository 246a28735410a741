/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles and runs the control plane: the HTTP
// surface, the log hub, the worker pool and the periodic instance
// health sweep.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/comfyhost/pkg/app"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/config"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/handlers"
	commonklog "github.com/AMD-AIG-AIMA/comfyhost/pkg/klog"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/options"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/trace"
	"github.com/AMD-AIG-AIMA/comfyhost/pkg/worker"
)

type Server struct {
	opts       *options.Options
	app        *app.App
	pool       *worker.Pool
	httpServer *http.Server
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

// NewServer creates and returns a new Server instance.
func NewServer(opts *options.Options) (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	s := &Server{
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init performs the initial setup of the server: logging, the optional
// config file, the tracer and the collaborator set.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	if err := commonklog.Init(s.opts.LogfilePath, s.opts.LogFileSize); err != nil {
		klog.ErrorS(err, "failed to init logs")
		return err
	}
	if err := s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if config.IsTracingEnable() {
		if err := trace.InitTracer("comfyhost"); err != nil {
			klog.Warningf("Failed to init tracer: %v", err)
		}
	} else {
		klog.Info("Tracing is disabled (tracing.enable: false)")
	}

	s.pool = worker.NewPool(config.GetWorkerCount(), config.GetWorkerQueue())
	s.app = app.New(s.opts.BaseDir, s.opts.EngineDir, s.opts.Host, config.GetEngineRepo(), s.pool)
	s.isInited = true
	return nil
}

// initConfig loads the server configuration file when one was given.
// Every key has a default, so running without a config file is fine.
func (s *Server) initConfig() error {
	if s.opts.Config == "" {
		return nil
	}
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = config.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	return nil
}

// Start runs the server until a termination signal arrives, then calls
// Stop.
func (s *Server) Start() error {
	if !s.isInited {
		return fmt.Errorf("please init the server first")
	}

	go s.app.Hub().Run(s.ctx)
	s.watchSettings()
	s.startHealthSweep()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startHttpServer()
	}()

	s.app.EmitServerLog("control plane started")
	select {
	case <-s.ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop shuts everything down in dependency order: instances first,
// then the HTTP surface, the sweep, the pool and the tracer.
func (s *Server) Stop() {
	klog.Info("shutting down...")
	if failed := s.app.Instances().StopAll(nil); len(failed) > 0 {
		klog.Warningf("instances did not stop cleanly: %v", failed)
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			klog.ErrorS(err, "failed to shutdown http server")
		}
	}
	s.cancel()
	s.pool.Close()
	if err := trace.CloseTracer(); err != nil {
		klog.ErrorS(err, "failed to close tracer")
	}
	klog.Info("comfyhost is stopped")
	klog.Flush()
}

// startHttpServer builds the route surface and listens until shutdown.
func (s *Server) startHttpServer() error {
	port := s.opts.APIPort
	if port == 0 {
		port = config.GetApiPort()
	}
	host := s.opts.APIHost
	if host == "" {
		host = config.GetApiHost()
	}
	if port <= 0 {
		return fmt.Errorf("the api server port is not defined")
	}

	handler := handlers.InitHttpHandlers(s.app)
	addr := fmt.Sprintf("%s:%d", host, port)
	s.httpServer = &http.Server{Addr: addr, Handler: handler}
	klog.Infof("http-server listen address: %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		klog.ErrorS(err, "failed to start http server")
		return err
	}
	return nil
}

// startHealthSweep probes every instance on a cron schedule and
// reports unhealthy ones into the log stream.
func (s *Server) startHealthSweep() {
	if !config.IsHealthSweepEnabled() {
		return
	}
	s.cron = cron.New()
	schedule := config.GetHealthSchedule()
	_, err := s.cron.AddFunc(schedule, s.sweepInstances)
	if err != nil {
		klog.ErrorS(err, "failed to schedule health sweep", "schedule", schedule)
		return
	}
	s.cron.Start()
	klog.Infof("health sweep scheduled: %s", schedule)
}

// sweepInstances is one health sweep pass.
func (s *Server) sweepInstances() {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	for _, inst := range s.app.Instances().List() {
		if !inst.Handle.IsRunning() {
			continue
		}
		health, err := s.app.CheckHealth(ctx, inst.ID)
		if err != nil {
			klog.Warningf("health sweep: %s: %v", inst.ID, err)
			continue
		}
		if !health.Healthy {
			s.app.EmitServerLog("instance %s is %s", inst.ID, health.Status)
		}
	}
	s.app.UpdateInstanceGauges()
}

// watchSettings reloads persisted settings edited behind the server's
// back, so an external edit of settings.json is picked up live.
func (s *Server) watchSettings() {
	err := s.app.Settings().Watch(s.ctx, func() {
		klog.Info("settings file changed on disk, reloaded")
	})
	if err != nil {
		klog.Warningf("settings watch unavailable: %v", err)
	}
}
