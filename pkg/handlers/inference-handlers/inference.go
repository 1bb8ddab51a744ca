/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package inference_handlers serves the /v1/inference API: serverless
// services on the VO's Function Platform cluster. The caller's own token is
// forwarded, so the cluster applies its own authorization on top of ours.
package inference_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/oscar"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Handler handles HTTP requests for inference services.
type Handler struct {
	oscar *oscar.Client
}

// NewHandler creates a new inference handler.
func NewHandler(client *oscar.Client) *Handler {
	return &Handler{oscar: client}
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
	return info, vo, auth.RawToken(c), nil
}

// ServiceRequest is the user-editable part of a service definition.
type ServiceRequest struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	CPU         string            `json:"cpu"`
	Memory      string            `json:"memory"`
	Script      string            `json:"script"`
	Environment map[string]string `json:"environment"`
}

func (h *Handler) ListServices(c *gin.Context) { handle(c, h.listServices) }
func (h *Handler) GetService(c *gin.Context)   { handle(c, h.getService) }
func (h *Handler) CreateService(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) { return h.upsertService(c, false) })
}
func (h *Handler) UpdateService(c *gin.Context) {
	handle(c, func(c *gin.Context) (interface{}, error) { return h.upsertService(c, true) })
}
func (h *Handler) DeleteService(c *gin.Context) { handle(c, h.deleteService) }
func (h *Handler) InvokeService(c *gin.Context) { handle(c, h.invokeService) }
func (h *Handler) ServiceLogs(c *gin.Context)   { handle(c, h.serviceLogs) }

func (h *Handler) listServices(c *gin.Context) (interface{}, error) {
	_, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	return h.oscar.ListServices(c.Request.Context(), vo, token)
}

func (h *Handler) getService(c *gin.Context) (interface{}, error) {
	_, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	return h.oscar.GetService(c.Request.Context(), vo, token, c.Param("name"))
}

// upsertService builds the full service definition from the base skeleton
// plus the user's fields, then creates or replaces it.
func (h *Handler) upsertService(c *gin.Context, update bool) (interface{}, error) {
	info, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	var req ServiceRequest
	if _, err := utils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, err
	}
	if req.Name == "" || req.Image == "" {
		return nil, errors.NewBadRequest("missing field: name and image are required")
	}
	if allowList := config.GetImageAllowList(); len(allowList) > 0 && !catalog.AllowedImage(req.Image, allowList) {
		return nil, errors.NewForbidden(fmt.Sprintf("docker image %q is not in an allowed registry", req.Image))
	}

	service := &oscar.Service{
		Name:         req.Name,
		Image:        req.Image,
		CPU:          req.CPU,
		Memory:       req.Memory,
		Script:       req.Script,
		AllowedUsers: []string{info.Subject},
	}
	if service.CPU == "" {
		service.CPU = "1.0"
	}
	if service.Memory == "" {
		service.Memory = "2Gi"
	}
	service.Environment.Vars = req.Environment

	if update {
		err = h.oscar.UpdateService(c.Request.Context(), vo, token, service)
	} else {
		err = h.oscar.CreateService(c.Request.Context(), vo, token, service)
	}
	if err != nil {
		return nil, err
	}
	klog.Infof("inference service %s upserted: owner=%s vo=%s update=%t", req.Name, info.Subject, vo, update)
	return service, nil
}

func (h *Handler) deleteService(c *gin.Context) (interface{}, error) {
	_, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	if err := h.oscar.DeleteService(c.Request.Context(), vo, token, c.Param("name")); err != nil {
		return nil, err
	}
	return gin.H{"status": "deleted"}, nil
}

func (h *Handler) invokeService(c *gin.Context) (interface{}, error) {
	_, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	var payload interface{}
	if _, err := utils.ParseRequestBody(c.Request, &payload); err != nil {
		return nil, err
	}
	out, err := h.oscar.Invoke(c.Request.Context(), vo, token, c.Param("name"), payload)
	if err != nil {
		return nil, err
	}
	c.Data(200, "application/json", out)
	return nil, nil
}

func (h *Handler) serviceLogs(c *gin.Context) (interface{}, error) {
	_, vo, token, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	return h.oscar.Logs(c.Request.Context(), vo, token, c.Param("name"))
}
