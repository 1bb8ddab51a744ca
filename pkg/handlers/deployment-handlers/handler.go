/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package deployment_handlers serves the /v1/deployments API: long-running
// module and tool deployments plus batch jobs, all brokered onto the
// Scheduler.
package deployment_handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/quota"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Scheduler is the slice of the Scheduler client the deployment handlers
// need.
type Scheduler interface {
	ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error)
	GetJob(ctx context.Context, namespace, id string) (*nomad.Job, error)
	GetAllocations(ctx context.Context, namespace, id string) ([]nomad.Allocation, error)
	GetLatestEvaluation(ctx context.Context, namespace, id string) (*nomad.Evaluation, error)
	ParseJob(ctx context.Context, hcl string) (*nomad.Job, error)
	SubmitJob(ctx context.Context, job *nomad.Job) error
	DeregisterJob(ctx context.Context, namespace, id string, purge bool) error
}

// Handler handles HTTP requests for deployment resources.
type Handler struct {
	scheduler Scheduler
	catalog   catalog.Catalog
	ledger    *quota.Ledger
}

// NewHandler creates a new deployment handler.
func NewHandler(scheduler Scheduler, cat catalog.Catalog, ledger *quota.Ledger) *Handler {
	return &Handler{
		scheduler: scheduler,
		catalog:   cat,
		ledger:    ledger,
	}
}

// handle is a common handler wrapper for HTTP requests.
func handle(c *gin.Context, fn func(c *gin.Context) (interface{}, error)) {
	result, err := fn(c)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(200, result)
}

// handleCreated is handle with a 201, for the creation endpoints.
func handleCreated(c *gin.Context, fn func(c *gin.Context) (interface{}, error)) {
	result, err := fn(c)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	c.JSON(201, result)
}
