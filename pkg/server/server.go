/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package server assembles the platform API: configuration, auth, upstream
// clients, the catalog, the stats poller and the HTTP engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/handlers"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/stats"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	opts       *Options
	httpServer *http.Server
	poller     *stats.Poller
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	isInited   bool
}

// NewServer creates and returns a new Server instance.
func NewServer() (*Server, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &Server{
		opts:   &Options{},
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.init(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// init performs the initial setup of the server: flag parsing, configuration
// loading and validation, auth, upstream clients and the HTTP engine.
func (s *Server) init() error {
	gin.SetMode(gin.ReleaseMode)
	if err := s.opts.InitFlags(); err != nil {
		klog.ErrorS(err, "failed to parse flags")
		return err
	}
	if err := s.initConfig(); err != nil {
		klog.ErrorS(err, "failed to init config")
		return err
	}
	if _, err := auth.NewVerifier(s.ctx); err != nil {
		klog.ErrorS(err, "failed to init OIDC verifier")
		return err
	}

	scheduler, err := nomad.NewClient()
	if err != nil {
		klog.ErrorS(err, "failed to init scheduler client")
		return err
	}

	cat := catalog.NewCached(catalog.NewGitCatalog(httpclient.New(httpclient.Options{})))
	if _, err := s.cron.AddFunc(config.GetCatalogRefreshSchedule(), func() {
		cat.Refresh("", "")
	}); err != nil {
		klog.ErrorS(err, "invalid catalog refresh schedule")
		return err
	}

	s.poller = stats.NewPoller(scheduler)

	engine, err := handlers.InitHttpHandlers(s.ctx, &handlers.Dependencies{
		Scheduler: scheduler,
		Catalog:   cat,
		Poller:    s.poller,
	})
	if err != nil {
		klog.ErrorS(err, "failed to init http handlers")
		return err
	}

	port := s.opts.Port
	if port <= 0 {
		port = config.GetServerPort()
	}
	s.httpServer = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: engine}

	s.isInited = true
	return nil
}

// initConfig loads and validates the configuration. Missing required keys
// exit with code 1, a bad production environment with code 2.
func (s *Server) initConfig() error {
	fullPath, err := filepath.Abs(s.opts.Config)
	if err != nil {
		return err
	}
	if err = config.LoadConfig(fullPath); err != nil {
		return fmt.Errorf("config path: %s, err: %v", fullPath, err)
	}
	if err = config.Validate(); err != nil {
		klog.ErrorS(err, "configuration is incomplete")
		os.Exit(1)
	}
	if err = config.ValidateEnvironment(); err != nil {
		klog.ErrorS(err, "environment is incomplete")
		os.Exit(2)
	}
	return nil
}

// Start begins serving: the stats poller, the catalog refresh cron and the
// HTTP server. It blocks until a termination signal arrives, then stops.
func (s *Server) Start() {
	if !s.isInited {
		klog.Errorf("please init api-server first")
		return
	}
	klog.Infof("starting api-server")

	if err := s.poller.Start(s.ctx); err != nil {
		klog.ErrorS(err, "failed to start stats poller")
		os.Exit(-1)
	}
	s.cron.Start()

	go func() {
		klog.Infof("http-server listen addr: %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "failed to start http server")
			os.Exit(-1)
		}
	}()

	<-s.ctx.Done()
	s.Stop()
}

// Stop gracefully shuts down the HTTP server, stops the cron and flushes
// logs.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	klog.Info("shutting down http server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		klog.ErrorS(err, "failed to shutdown http server")
	}
	<-s.cron.Stop().Done()
	s.cancel()
	klog.Info("api-server is stopped")
	klog.Flush()
}
