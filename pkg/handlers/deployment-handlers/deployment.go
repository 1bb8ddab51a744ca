/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package deployment_handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/nomad"
	"github.com/ai4os/ai4-papi/pkg/quota"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// metaKind marks which deployment family a job belongs to, so the three
// list endpoints can share one Scheduler query.
const metaKind = "kind"

// CreateRequest is the body of the deployment creation endpoints.
type CreateRequest struct {
	ModuleName string           `json:"module_name"`
	Conf       catalog.UserConf `json:"user_conf"`
}

// Deployment is the user-facing view of a Scheduler job.
type Deployment struct {
	JobID        string            `json:"job_ID"`
	Name         string            `json:"name"`
	Kind         string            `json:"kind"`
	Status       string            `json:"status"`
	Owner        string            `json:"owner"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	DockerImage  string            `json:"docker_image"`
	SubmitTime   time.Time         `json:"submit_time"`
	Resources    quota.Request     `json:"resources"`
	GPUModel     string            `json:"gpu_model,omitempty"`
	Endpoints    map[string]string `json:"endpoints,omitempty"`
	MainEndpoint string            `json:"main_endpoint,omitempty"`
	ErrorMsg     string            `json:"error_msg,omitempty"`
}

// CreateModule deploys a catalog module as a long-running service.
func (h *Handler) CreateModule(c *gin.Context) {
	handleCreated(c, func(c *gin.Context) (interface{}, error) { return h.create(c, catalog.KindModule) })
}

// CreateTool deploys a catalog tool.
func (h *Handler) CreateTool(c *gin.Context) {
	handleCreated(c, func(c *gin.Context) (interface{}, error) { return h.create(c, catalog.KindTool) })
}

// CreateBatch submits a batch-inference run of a catalog module.
func (h *Handler) CreateBatch(c *gin.Context) {
	handleCreated(c, func(c *gin.Context) (interface{}, error) { return h.create(c, KindBatch) })
}

func (h *Handler) ListModules(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) { return h.list(c, catalog.KindModule) })
}

func (h *Handler) ListTools(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) { return h.list(c, catalog.KindTool) })
}

func (h *Handler) ListBatch(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) { return h.list(c, KindBatch) })
}

func (h *Handler) GetDeployment(c *gin.Context) {
	handle(c, h.get)
}

func (h *Handler) DeleteDeployment(c *gin.Context) {
	handle(c, h.delete)
}

// requestContext resolves the caller and the VO every deployment endpoint
// requires.
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

func (h *Handler) create(c *gin.Context, kind catalog.Kind) (interface{}, error) {
	info, vo, _, err := requestContext(c)
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
	if req.Conf == nil {
		req.Conf = catalog.UserConf{}
	}

	schema, err := h.schema(c.Request.Context(), kind, req.ModuleName)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(schema, req.Conf); err != nil {
		return nil, err
	}
	conf := catalog.Merge(schema, req.Conf)

	if err := checkImageAllowed(confString(conf, "general", "docker_image")); err != nil {
		return nil, err
	}

	cpu, gpu, ram, disk, err := quotaRequest(conf)
	if err != nil {
		return nil, err
	}
	if err := h.ledger.Check(c.Request.Context(), info.Subject, vo,
		quota.Request{CPU: cpu, GPU: gpu, MemoryMB: ram, DiskMB: disk}); err != nil {
		return nil, err
	}

	jobUUID := fmt.Sprintf("%s-%s", config.GetJobPrefix(), uuid.NewString())
	vars, err := h.substitutions(info, vo, jobUUID, kind, conf)
	if err != nil {
		return nil, err
	}
	rendered, err := renderJob(kind, vars)
	if err != nil {
		return nil, err
	}

	job, err := h.scheduler.ParseJob(c.Request.Context(), rendered)
	if err != nil {
		return nil, err
	}
	// ownership and kind are stamped server side, whatever the template says
	if job.Meta == nil {
		job.Meta = map[string]string{}
	}
	job.Meta[nomad.MetaOwner] = info.Subject
	job.Meta[metaKind] = string(kind)
	if job.Meta["hostname"] == "" {
		job.Meta["hostname"] = vars["HOSTNAME"]
	}
	if job.Meta["main_service"] == "" {
		job.Meta["main_service"] = vars["SERVICE"]
	}

	if err := h.scheduler.SubmitJob(c.Request.Context(), job); err != nil {
		return nil, err
	}
	klog.Infof("deployment %s submitted: owner=%s vo=%s kind=%s module=%s",
		jobUUID, info.Subject, vo, kind, req.ModuleName)

	// the endpoint URLs are a pure function of the VO domain and the
	// hostname, so they can be predicted before the job is even placed
	eps := endpoints(job, vo)
	return gin.H{
		"job_ID":        jobUUID,
		"status":        nomad.StatusQueued,
		"endpoints":     eps,
		"main_endpoint": eps[mainServiceName(job)],
	}, nil
}

func (h *Handler) schema(ctx context.Context, kind catalog.Kind, name string) (catalog.ConfSchema, error) {
	if kind == KindBatch {
		return catalog.BatchSchema(ctx, h.catalog, name)
	}
	return catalog.ConfigSchema(ctx, h.catalog, kind, name)
}

func (h *Handler) substitutions(info *auth.UserInfo, vo, jobUUID string, kind catalog.Kind,
	conf map[string]map[string]interface{}) (map[string]string, error) {
	if kind == KindBatch {
		return batchSubstitutions(info, vo, jobUUID, conf)
	}
	return buildSubstitutions(info, vo, jobUUID, conf)
}

func checkImageAllowed(image string) error {
	allowList := config.GetImageAllowList()
	if len(allowList) == 0 {
		return nil
	}
	if !catalog.AllowedImage(image, allowList) {
		return errors.NewForbidden(fmt.Sprintf("docker image %q is not in an allowed registry", image))
	}
	return nil
}

func (h *Handler) list(c *gin.Context, kind catalog.Kind) (interface{}, error) {
	info, vo, namespace, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	stubs, err := h.scheduler.ListJobs(c.Request.Context(), namespace, info.Subject, config.GetJobPrefix())
	if err != nil {
		return nil, err
	}
	deployments := []Deployment{}
	for _, stub := range stubs {
		if stub.Meta[metaKind] != string(kind) {
			continue
		}
		dep, err := h.describe(c.Request.Context(), namespace, vo, stub.ID)
		if err != nil {
			// jobs can vanish between list and read
			klog.Warningf("skipping deployment %s: %v", stub.ID, err)
			continue
		}
		deployments = append(deployments, *dep)
	}
	return deployments, nil
}

func (h *Handler) get(c *gin.Context) (interface{}, error) {
	info, vo, namespace, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	id := c.Param("uuid")
	dep, err := h.describe(c.Request.Context(), namespace, vo, id)
	if err != nil {
		return nil, err
	}
	if dep.Owner != info.Subject {
		return nil, errors.NewForbidden("deployment belongs to another user")
	}
	return dep, nil
}

func (h *Handler) delete(c *gin.Context) (interface{}, error) {
	info, vo, namespace, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	id := c.Param("uuid")
	dep, err := h.describe(c.Request.Context(), namespace, vo, id)
	if err != nil {
		return nil, err
	}
	if dep.Owner != info.Subject {
		return nil, errors.NewForbidden("deployment belongs to another user")
	}
	// a plain stop leaves failed or finished jobs lingering in the
	// Scheduler; escalate those to a purge
	purge := nomad.NeedsPurge(dep.Status)
	if err := h.scheduler.DeregisterJob(c.Request.Context(), namespace, id, purge); err != nil {
		return nil, err
	}
	klog.Infof("deployment %s deleted: owner=%s purge=%t", id, info.Subject, purge)
	return gin.H{"status": "deleted"}, nil
}

// describe assembles the full user-facing view of one job.
func (h *Handler) describe(ctx context.Context, namespace, vo, id string) (*Deployment, error) {
	job, err := h.scheduler.GetJob(ctx, namespace, id)
	if err != nil {
		return nil, err
	}
	allocs, err := h.scheduler.GetAllocations(ctx, namespace, id)
	if err != nil {
		return nil, err
	}
	var eval *nomad.Evaluation
	if len(allocs) == 0 {
		// evaluations only matter for jobs that never got placed
		if eval, err = h.scheduler.GetLatestEvaluation(ctx, namespace, id); err != nil {
			klog.Warningf("no evaluation for job %s: %v", id, err)
			eval = nil
		}
	}

	status, errorMsg := nomad.DeriveStatus(job, allocs, eval)
	cpu, ram, disk := nomad.ResourceTotals(job)
	gpus, gpuModel := nomad.GPURequest(job)

	dep := &Deployment{
		JobID:       job.ID,
		Name:        job.Name,
		Kind:        job.Meta[metaKind],
		Status:      status,
		Owner:       job.Meta[nomad.MetaOwner],
		Title:       job.Meta["title"],
		Description: job.Meta["description"],
		DockerImage: dockerImage(job),
		SubmitTime:  time.Unix(0, job.SubmitTime),
		Resources:   quota.Request{CPU: cpu, GPU: gpus, MemoryMB: ram, DiskMB: disk},
		GPUModel:    gpuModel,
		ErrorMsg:    errorMsg,
	}
	dep.Endpoints = endpoints(job, vo)
	dep.MainEndpoint = dep.Endpoints[mainServiceName(job)]
	return dep, nil
}

func dockerImage(job *nomad.Job) string {
	for _, tg := range job.TaskGroups {
		for _, task := range tg.Tasks {
			if task.Name == "main" {
				if image, ok := task.Config["image"].(string); ok {
					return image
				}
			}
		}
	}
	return ""
}

// endpoints derives the public URLs of a deployment from the VO's base
// domain, the job hostname and the declared services.
func endpoints(job *nomad.Job, vo string) map[string]string {
	base := config.GetDeploymentDomain(vo)
	hostname := job.Meta["hostname"]
	if base == "" || hostname == "" {
		return nil
	}
	main := mainServiceName(job)
	out := map[string]string{}
	for _, tg := range job.TaskGroups {
		for _, svc := range tg.Services {
			if svc.Name == main {
				out[svc.Name] = fmt.Sprintf("https://%s.%s", hostname, base)
			} else {
				out[svc.Name] = fmt.Sprintf("https://%s-%s.%s", svc.Name, hostname, base)
			}
		}
	}
	return out
}

// mainServiceName maps the user's chosen service to the Scheduler service
// that fronts it: jupyter and vscode both run behind the IDE port.
func mainServiceName(job *nomad.Job) string {
	switch strings.ToLower(job.Meta["main_service"]) {
	case "jupyter", "vscode":
		return "ide"
	case "deepaas":
		return "deepaas"
	default:
		return "ui"
	}
}
