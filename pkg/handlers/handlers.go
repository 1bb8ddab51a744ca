/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package handlers wires every handler package into one gin engine.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/errors"
	catalog_handlers "github.com/ai4os/ai4-papi/pkg/handlers/catalog-handlers"
	deployment_handlers "github.com/ai4os/ai4-papi/pkg/handlers/deployment-handlers"
	inference_handlers "github.com/ai4os/ai4-papi/pkg/handlers/inference-handlers"
	info_handlers "github.com/ai4os/ai4-papi/pkg/handlers/info-handlers"
	"github.com/ai4os/ai4-papi/pkg/handlers/middleware"
	proxy_handlers "github.com/ai4os/ai4-papi/pkg/handlers/proxy-handlers"
	secret_handlers "github.com/ai4os/ai4-papi/pkg/handlers/secret-handlers"
	snapshot_handlers "github.com/ai4os/ai4-papi/pkg/handlers/snapshot-handlers"
	stats_handlers "github.com/ai4os/ai4-papi/pkg/handlers/stats-handlers"
	tryme_handlers "github.com/ai4os/ai4-papi/pkg/handlers/tryme-handlers"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/oscar"
	"github.com/ai4os/ai4-papi/pkg/quota"
	"github.com/ai4os/ai4-papi/pkg/registry"
	"github.com/ai4os/ai4-papi/pkg/secrets"
	"github.com/ai4os/ai4-papi/pkg/stats"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Dependencies are the shared clients and services the handlers plug into.
// The server builds them once at startup.
type Dependencies struct {
	Scheduler *nomad.Client
	Catalog   catalog.Catalog
	Poller    *stats.Poller
}

// InitHttpHandlers initializes the HTTP handlers for the API server.
// It creates a new gin engine, sets up logging, recovery and CORS middleware,
// and registers every API route group.
func InitHttpHandlers(_ context.Context, deps *Dependencies) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(utils.Logger(), gin.Recovery(), middleware.CORS())
	engine.NoRoute(func(c *gin.Context) {
		utils.AbortWithApiError(c, errors.NewNotFound(c.Request.RequestURI+" not found"))
	})

	hc := httpclient.New(httpclient.Options{})
	ledger := quota.NewLedger(deps.Scheduler)
	harbor := registry.NewClient(hc)

	deployment_handlers.InitDeploymentRouters(engine,
		deployment_handlers.NewHandler(deps.Scheduler, deps.Catalog, ledger))
	catalog_handlers.InitCatalogRouters(engine, catalog_handlers.NewHandler(deps.Catalog))
	secret_handlers.InitSecretRouters(engine, secret_handlers.NewHandler(secrets.NewClient(hc)))
	snapshot_handlers.InitSnapshotRouters(engine, snapshot_handlers.NewHandler(deps.Scheduler, harbor))
	tryme_handlers.InitTryMeRouters(engine,
		tryme_handlers.NewHandler(deps.Scheduler, deps.Catalog, deps.Poller))
	inference_handlers.InitInferenceRouters(engine, inference_handlers.NewHandler(oscar.NewClient(hc)))
	stats_handlers.InitStatsRouters(engine, stats_handlers.NewHandler(stats.NewHistorical(), deps.Poller))
	proxy_handlers.InitProxyRouters(engine, proxy_handlers.NewHandler())
	info_handlers.InitInfoRouters(engine, info_handlers.NewHandler(hc))

	return engine, nil
}
