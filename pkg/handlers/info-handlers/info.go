/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package info_handlers serves the /v1/info API: deployable configuration
// schemas and the module-interest mail relay.
package info_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Handler handles HTTP requests for platform information.
type Handler struct {
	httpClient httpclient.Interface
}

// NewHandler creates a new info handler.
func NewHandler(hc httpclient.Interface) *Handler {
	return &Handler{httpClient: hc}
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

// Conf returns the user-facing parameter schemas of every deployable kind.
// The schemas are static, so this endpoint needs no authentication.
func (h *Handler) Conf(c *gin.Context) { handle(c, h.conf) }

func (h *Handler) conf(c *gin.Context) (interface{}, error) {
	return catalog.KindSchemas()
}

// SignupRequest is the body of the module-interest signup endpoint.
type SignupRequest struct {
	ModuleName string `json:"module_name"`
	Message    string `json:"message"`
}

// Signup relays a module-interest notification to the mail bridge.
func (h *Handler) Signup(c *gin.Context) { handle(c, h.signup) }

func (h *Handler) signup(c *gin.Context) (interface{}, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, err
	}
	var req SignupRequest
	if _, err := utils.ParseRequestBody(c.Request, &req); err != nil {
		return nil, err
	}
	if req.ModuleName == "" {
		return nil, errors.NewBadRequest("missing field: module_name")
	}

	endpoint := config.GetMailEndpoint()
	if endpoint == "" {
		return nil, errors.NewBackendError("no mail bridge configured")
	}
	body := map[string]string{
		"subject": fmt.Sprintf("Module interest: %s", req.ModuleName),
		"from":    info.Email,
		"name":    info.Name,
		"message": utils.Truncate(req.Message, 2000),
	}
	res, err := h.httpClient.Post(c.Request.Context(), endpoint, body,
		"Authorization", "Bearer "+config.GetMailingToken())
	if err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("mail bridge unreachable: %v", err))
	}
	if !res.IsSuccess() {
		return nil, errors.NewBackendError(fmt.Sprintf("mail bridge returned %d: %s", res.StatusCode, res.Body))
	}
	klog.Infof("signup mail relayed: owner=%s module=%s", info.Subject, req.ModuleName)
	return gin.H{"status": "sent"}, nil
}
