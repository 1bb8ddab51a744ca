/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package tryme_handlers serves the /v1/try_me API: short-lived,
// resource-capped demo sessions of catalog modules running in a dedicated
// pool.
package tryme_handlers

import (
	"context"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/stats"
	"github.com/ai4os/ai4-papi/pkg/template"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

//go:embed etc/tryme.hcl
var templateFS embed.FS

const (
	jobPrefix = "try"
	priority  = 25
)

// Scheduler is the slice of the Scheduler client the try-me handlers need.
type Scheduler interface {
	ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error)
	GetJob(ctx context.Context, namespace, id string) (*nomad.Job, error)
	GetAllocations(ctx context.Context, namespace, id string) ([]nomad.Allocation, error)
	ParseJob(ctx context.Context, hcl string) (*nomad.Job, error)
	SubmitJob(ctx context.Context, job *nomad.Job) error
	DeregisterJob(ctx context.Context, namespace, id string, purge bool) error
}

// StatsSource provides the cluster occupation snapshot the headroom gate
// reads.
type StatsSource interface {
	Current() *stats.Snapshot
}

// Handler handles HTTP requests for try-me sessions.
type Handler struct {
	scheduler Scheduler
	catalog   catalog.Catalog
	stats     StatsSource
}

// NewHandler creates a new try-me handler.
func NewHandler(scheduler Scheduler, cat catalog.Catalog, source StatsSource) *Handler {
	return &Handler{scheduler: scheduler, catalog: cat, stats: source}
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

// Create starts a try-me session for a catalog module.
func (h *Handler) Create(c *gin.Context) {
	handle(c, h.create)
}

// List returns the caller's live try-me sessions.
func (h *Handler) List(c *gin.Context) {
	handle(c, h.list)
}

// Delete stops one try-me session.
func (h *Handler) Delete(c *gin.Context) {
	handle(c, h.delete)
}

// CreateRequest is the body of the try-me creation endpoint.
type CreateRequest struct {
	ModuleName string `json:"module_name"`
	Title      string `json:"title"`
}

func (h *Handler) create(c *gin.Context) (interface{}, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, err
	}
	var req CreateRequest
	if _, err := utils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, err
	}
	if req.ModuleName == "" {
		return nil, errors.NewBadRequest("missing field: module_name")
	}

	namespace := config.GetTryMeNamespace()

	if err := h.checkConcurrency(c.Request.Context(), namespace, info.Subject); err != nil {
		return nil, err
	}
	if err := h.checkHeadroom(); err != nil {
		return nil, err
	}

	meta, err := h.catalog.Metadata(c.Request.Context(), catalog.KindModule, req.ModuleName)
	if err != nil {
		return nil, err
	}

	jobUUID := fmt.Sprintf("%s-%s", jobPrefix, uuid.NewString())
	vars := map[string]string{
		"JOB_UUID":     jobUUID,
		"NAMESPACE":    namespace,
		"PRIORITY":     strconv.Itoa(priority),
		"OWNER":        info.Subject,
		"OWNER_NAME":   hclEscape(info.Name),
		"OWNER_EMAIL":  hclEscape(info.Email),
		"TITLE":        hclEscape(utils.Truncate(req.Title, 45)),
		"HOSTNAME":     jobUUID,
		"POOL":         namespace,
		"BASE_DOMAIN":  config.GetDeploymentDomain(config.GetTryMeVO()),
		"DOCKER_IMAGE": meta.DockerImage,
		"WALL_TIME":    strconv.Itoa(config.GetTryMeWallTimeMinutes()),
	}
	tpl, err := templateFS.ReadFile("etc/tryme.hcl")
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("missing embedded template: %v", err))
	}
	rendered, err := template.Render(string(tpl), vars)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("try-me template: %v", err))
	}

	job, err := h.scheduler.ParseJob(c.Request.Context(), rendered)
	if err != nil {
		return nil, err
	}
	if job.Meta == nil {
		job.Meta = map[string]string{}
	}
	job.Meta[nomad.MetaOwner] = info.Subject
	if err := h.scheduler.SubmitJob(c.Request.Context(), job); err != nil {
		return nil, err
	}
	klog.Infof("try-me %s submitted: owner=%s module=%s", jobUUID, info.Subject, req.ModuleName)

	endpoint := fmt.Sprintf("https://%s.%s", jobUUID, vars["BASE_DOMAIN"])
	return gin.H{"job_ID": jobUUID, "status": nomad.StatusQueued, "endpoint": endpoint}, nil
}

func hclEscape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return template.EscapeValue(v)
}

// checkConcurrency enforces the per-user and per-pool session caps.
func (h *Handler) checkConcurrency(ctx context.Context, namespace, subject string) error {
	mine, err := h.scheduler.ListJobs(ctx, namespace, subject, jobPrefix)
	if err != nil {
		return err
	}
	if limit := config.GetTryMePerUser(); limit > 0 && len(mine) >= limit {
		return errors.NewQuotaExceeded("tryme-concurrency", limit, len(mine))
	}
	all, err := h.scheduler.ListJobs(ctx, namespace, "", jobPrefix)
	if err != nil {
		return err
	}
	if limit := config.GetTryMePerVO(); limit > 0 && len(all) >= limit {
		return errors.NewQuotaExceeded("tryme-pool", limit, len(all))
	}
	return nil
}

// checkHeadroom refuses new sessions when the try-me pool is close to
// saturated, so interactive users do not pile onto a full pool.
func (h *Handler) checkHeadroom() error {
	snapshot := h.stats.Current()
	if snapshot == nil {
		// no poll yet; admission falls back to the concurrency caps
		return nil
	}
	ceiling := config.GetTryMeUsageCeiling()
	pool := config.GetTryMeNamespace()
	var cpuTotal, cpuUsed, ramTotal, ramUsed int64
	for _, node := range snapshot.Nodes {
		if node.Pool != pool || node.Status != stats.NodeReady {
			continue
		}
		cpuTotal += node.CPUTotal
		cpuUsed += node.CPUUsed
		ramTotal += node.RAMTotalMB
		ramUsed += node.RAMUsedMB
	}
	if cpuTotal == 0 || ramTotal == 0 {
		return errors.NewBackendError("no ready nodes in the try-me pool")
	}
	if float64(cpuUsed)/float64(cpuTotal) > ceiling || float64(ramUsed)/float64(ramTotal) > ceiling {
		return errors.NewQuotaExceeded("tryme-headroom", int(ceiling*100), int(float64(cpuUsed)/float64(cpuTotal)*100))
	}
	return nil
}

func (h *Handler) list(c *gin.Context) (interface{}, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, err
	}
	stubs, err := h.scheduler.ListJobs(c.Request.Context(), config.GetTryMeNamespace(), info.Subject, jobPrefix)
	if err != nil {
		return nil, err
	}
	return stubs, nil
}

func (h *Handler) delete(c *gin.Context) (interface{}, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, err
	}
	namespace := config.GetTryMeNamespace()
	id := c.Param("uuid")
	job, err := h.scheduler.GetJob(c.Request.Context(), namespace, id)
	if err != nil {
		return nil, err
	}
	if job.Meta[nomad.MetaOwner] != info.Subject {
		return nil, errors.NewForbidden("session belongs to another user")
	}
	// try-me sessions are throwaway, purge unconditionally
	if err := h.scheduler.DeregisterJob(c.Request.Context(), namespace, id, true); err != nil {
		return nil, err
	}
	return gin.H{"status": "deleted"}, nil
}
