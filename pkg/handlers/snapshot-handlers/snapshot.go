/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package snapshot_handlers serves the /v1/snapshots API: committing a
// running deployment's container into the Registry, listing the stored
// snapshots and deleting them.
package snapshot_handlers

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/registry"
	"github.com/ai4os/ai4-papi/pkg/template"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

//go:embed etc/snapshot.hcl
var templateFS embed.FS

const (
	snapshotPrefix   = "snapshot"
	snapshotPriority = 50
	timestampLayout  = "2006-01-02_15-04-05"
)

// Registry is the slice of the Registry client the snapshot handlers need.
type Registry interface {
	ListSnapshots(ctx context.Context, subject string) ([]registry.Snapshot, error)
	DeleteSnapshot(ctx context.Context, subject, snapshotID string) error
	CheckQuota(ctx context.Context, subject string) error
	ImageRef(subject, snapshotID string) string
}

// Scheduler is the slice of the Scheduler client the snapshot handlers
// need.
type Scheduler interface {
	ListJobs(ctx context.Context, namespace, owner, prefix string) ([]nomad.JobStub, error)
	GetJob(ctx context.Context, namespace, id string) (*nomad.Job, error)
	GetAllocations(ctx context.Context, namespace, id string) ([]nomad.Allocation, error)
	ParseJob(ctx context.Context, hcl string) (*nomad.Job, error)
	SubmitJob(ctx context.Context, job *nomad.Job) error
}

// Handler handles HTTP requests for snapshot resources.
type Handler struct {
	scheduler Scheduler
	registry  Registry
	now       func() time.Time
}

// NewHandler creates a new snapshot handler.
func NewHandler(scheduler Scheduler, reg Registry) *Handler {
	return &Handler{scheduler: scheduler, registry: reg, now: time.Now}
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

func requestContext(c *gin.Context) (*auth.UserInfo, string, string, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, "", "", err
	}
	vo := c.Query("vo")
	if vo == "" {
		return nil, "", "", errors.NewBadRequest("missing query parameter: vo")
	}
	if err := auth.CheckVOMembership(vo, info); err != nil {
		return nil, "", "", err
	}
	namespace := config.GetNamespace(vo)
	if namespace == "" {
		return nil, "", "", errors.NewBadRequest("VO has no namespace mapping: " + vo)
	}
	return info, vo, namespace, nil
}

// CreateRequest is the body of the snapshot creation endpoint.
type CreateRequest struct {
	DeploymentUUID string `json:"deployment_uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
}

// List returns the user's snapshots, both stored and in flight.
func (h *Handler) List(c *gin.Context) {
	handle(c, h.list)
}

// Create submits a snapshot job for a running deployment.
func (h *Handler) Create(c *gin.Context) {
	handle(c, h.create)
}

// Delete removes one stored snapshot from the Registry.
func (h *Handler) Delete(c *gin.Context) {
	handle(c, h.delete)
}

func (h *Handler) create(c *gin.Context) (interface{}, error) {
	info, vo, namespace, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	var req CreateRequest
	if _, err := utils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, err
	}
	if req.DeploymentUUID == "" {
		return nil, errors.NewBadRequest("missing field: deployment_uuid")
	}

	job, err := h.scheduler.GetJob(c.Request.Context(), namespace, req.DeploymentUUID)
	if err != nil {
		return nil, err
	}
	if job.Meta[nomad.MetaOwner] != info.Subject {
		return nil, errors.NewForbidden("deployment belongs to another user")
	}
	allocs, err := h.scheduler.GetAllocations(c.Request.Context(), namespace, req.DeploymentUUID)
	if err != nil {
		return nil, err
	}
	alloc := nomad.SelectAllocation(allocs)
	if alloc == nil || alloc.ClientStatus != nomad.AllocStatusRunning {
		return nil, errors.NewBadRequest("deployment is not running, nothing to snapshot")
	}

	if err := checkContainerSize(job); err != nil {
		return nil, err
	}
	if err := h.registry.CheckQuota(c.Request.Context(), info.Subject); err != nil {
		return nil, err
	}

	snapshotID := fmt.Sprintf("%s_%s", req.DeploymentUUID, h.now().UTC().Format(timestampLayout))
	if err := h.checkCollision(c.Request.Context(), info.Subject, snapshotID); err != nil {
		return nil, err
	}

	rendered, err := h.renderSnapshotJob(info, vo, namespace, snapshotID, req, alloc.NodeID)
	if err != nil {
		return nil, err
	}
	parsed, err := h.scheduler.ParseJob(c.Request.Context(), rendered)
	if err != nil {
		return nil, err
	}
	if parsed.Meta == nil {
		parsed.Meta = map[string]string{}
	}
	parsed.Meta[nomad.MetaOwner] = info.Subject
	if err := h.scheduler.SubmitJob(c.Request.Context(), parsed); err != nil {
		return nil, err
	}
	klog.Infof("snapshot %s submitted: owner=%s deployment=%s node=%s",
		snapshotID, info.Subject, req.DeploymentUUID, alloc.NodeID)
	return gin.H{"snapshot_ID": snapshotID, "status": nomad.StatusQueued}, nil
}

// checkContainerSize rejects deployments whose disk can outgrow what a
// snapshot job will commit; the same limit is enforced again at commit time
// inside the job.
func checkContainerSize(job *nomad.Job) error {
	limit := config.GetSnapshotContainerLimit()
	for _, tg := range job.TaskGroups {
		if tg.EphemeralDisk == nil {
			continue
		}
		if size := tg.EphemeralDisk.SizeMB * 1024 * 1024; size > limit {
			return errors.NewSnapshotTooLarge(fmt.Sprintf(
				"deployment disk (%d MB) exceeds the snapshot container limit (%d bytes)",
				tg.EphemeralDisk.SizeMB, limit))
		}
	}
	return nil
}

// checkCollision rejects a second snapshot of the same deployment within
// the same second; the ID doubles as the image tag and tags are immutable.
func (h *Handler) checkCollision(ctx context.Context, subject, snapshotID string) error {
	stored, err := h.registry.ListSnapshots(ctx, subject)
	if err != nil {
		return err
	}
	for _, s := range stored {
		if s.ID == snapshotID {
			return errors.NewBadRequest("a snapshot with this timestamp already exists, retry in a second")
		}
	}
	return nil
}

func (h *Handler) renderSnapshotJob(info *auth.UserInfo, vo, namespace, snapshotID string,
	req CreateRequest, nodeID string) (string, error) {

	tpl, err := templateFS.ReadFile("etc/snapshot.hcl")
	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("missing embedded template: %v", err))
	}
	esc := func(s string) string {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		return template.EscapeValue(s)
	}
	vars := map[string]string{
		"JOB_UUID":        fmt.Sprintf("%s-%s", snapshotPrefix, snapshotID),
		"NAMESPACE":       namespace,
		"PRIORITY":        fmt.Sprintf("%d", snapshotPriority),
		"OWNER":           info.Subject,
		"OWNER_NAME":      esc(info.Name),
		"OWNER_EMAIL":     esc(info.Email),
		"TITLE":           esc(utils.Truncate(req.Title, 45)),
		"DESCRIPTION":     esc(utils.Truncate(req.Description, 1000)),
		"SNAPSHOT_ID":     snapshotID,
		"TARGET_JOB_UUID": req.DeploymentUUID,
		"TARGET_NODE_ID":  nodeID,
		"SNAPSHOT_IMAGE":  h.registry.ImageRef(info.Subject, snapshotID),
		"CONTAINER_LIMIT": fmt.Sprintf("%d", config.GetSnapshotContainerLimit()),
		"VO":              vo,
		"TODAY":           h.now().UTC().Format("2006-01-02"),

		"HARBOR_ENDPOINT":       config.GetHarborEndpoint(),
		"HARBOR_ROBOT_USER":     config.GetHarborRobotUser(),
		"HARBOR_ROBOT_PASSWORD": esc(config.GetHarborRobotPassword()),
	}
	rendered, err := template.Render(string(tpl), vars)
	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("snapshot template: %v", err))
	}
	return rendered, nil
}

// SnapshotView merges stored snapshots with jobs still committing.
type SnapshotView struct {
	registry.Snapshot
	Status   string `json:"status"`
	ErrorMsg string `json:"error_msg,omitempty"`
}

func (h *Handler) list(c *gin.Context) (interface{}, error) {
	info, _, namespace, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	stored, err := h.registry.ListSnapshots(c.Request.Context(), info.Subject)
	if err != nil {
		return nil, err
	}
	views := make([]SnapshotView, 0, len(stored))
	for _, s := range stored {
		views = append(views, SnapshotView{Snapshot: s, Status: "complete"})
	}

	// in-flight snapshot jobs are shown too, so a failed commit surfaces
	stubs, err := h.scheduler.ListJobs(c.Request.Context(), namespace, info.Subject, snapshotPrefix)
	if err != nil {
		klog.Warningf("failed to list snapshot jobs: %v", err)
		return views, nil
	}
	for _, stub := range stubs {
		snapshotID := stub.Meta["snapshot_id"]
		if snapshotID == "" || inStored(stored, snapshotID) {
			continue
		}
		view := SnapshotView{Status: nomad.StatusQueued}
		view.ID = snapshotID
		view.Title = stub.Meta["title"]
		view.Description = stub.Meta["description"]
		view.PushTime = time.Unix(0, stub.SubmitTime)
		if status, errMsg := h.jobStatus(c.Request.Context(), namespace, stub.ID); status != "" {
			view.Status = status
			view.ErrorMsg = errMsg
		}
		views = append(views, view)
	}
	return views, nil
}

func inStored(stored []registry.Snapshot, id string) bool {
	for _, s := range stored {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (h *Handler) jobStatus(ctx context.Context, namespace, jobID string) (string, string) {
	job, err := h.scheduler.GetJob(ctx, namespace, jobID)
	if err != nil {
		return "", ""
	}
	allocs, err := h.scheduler.GetAllocations(ctx, namespace, jobID)
	if err != nil {
		return "", ""
	}
	return nomad.DeriveStatus(job, allocs, nil)
}

func (h *Handler) delete(c *gin.Context) (interface{}, error) {
	info, _, _, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	snapshotID := c.Param("id")
	if err := h.registry.DeleteSnapshot(c.Request.Context(), info.Subject, snapshotID); err != nil {
		return nil, err
	}
	klog.Infof("snapshot %s deleted: owner=%s", snapshotID, info.Subject)
	return gin.H{"status": "deleted"}, nil
}
