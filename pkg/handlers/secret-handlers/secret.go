/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package secret_handlers serves the /v1/secrets API. PAPI is the only
// holder of the store token; users reach their own subtree and nothing
// else.
package secret_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/secrets"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// Handler handles HTTP requests for secret resources.
type Handler struct {
	secrets *secrets.Client
}

// NewHandler creates a new secret handler.
func NewHandler(client *secrets.Client) *Handler {
	return &Handler{secrets: client}
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

func requestContext(c *gin.Context) (*auth.UserInfo, string, error) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		return nil, "", err
	}
	vo := c.Query("vo")
	if vo == "" {
		return nil, "", errors.NewBadRequest("missing query parameter: vo")
	}
	if err := auth.CheckVOMembership(vo, info); err != nil {
		return nil, "", err
	}
	return info, vo, nil
}

// List returns the caller's secrets under an optional subpath.
func (h *Handler) List(c *gin.Context) {
	handle(c, h.list)
}

// Create stores one secret at the given subpath.
func (h *Handler) Create(c *gin.Context) {
	handle(c, h.create)
}

// Delete removes one secret.
func (h *Handler) Delete(c *gin.Context) {
	handle(c, h.delete)
}

func (h *Handler) list(c *gin.Context) (interface{}, error) {
	info, vo, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	return h.secrets.List(c.Request.Context(), vo, info.Subject, c.Query("subpath"))
}

func (h *Handler) create(c *gin.Context) (interface{}, error) {
	info, vo, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	subpath := c.Query("secret_path")
	if subpath == "" {
		return nil, errors.NewBadRequest("missing query parameter: secret_path")
	}
	var value map[string]interface{}
	if _, err := utils.ParseRequestBody(c.Request, &value); err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, errors.NewBadRequest("secret value must be a non-empty JSON object")
	}
	if err := h.secrets.Put(c.Request.Context(), vo, info.Subject, subpath, value); err != nil {
		return nil, err
	}
	return gin.H{"status": "created"}, nil
}

func (h *Handler) delete(c *gin.Context) (interface{}, error) {
	info, vo, err := requestContext(c)
	if err != nil {
		return nil, err
	}
	subpath := c.Query("secret_path")
	if subpath == "" {
		return nil, errors.NewBadRequest("missing query parameter: secret_path")
	}
	if err := h.secrets.Delete(c.Request.Context(), vo, info.Subject, subpath); err != nil {
		return nil, err
	}
	return gin.H{"status": "deleted"}, nil
}
