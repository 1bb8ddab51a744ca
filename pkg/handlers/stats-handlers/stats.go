/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package stats_handlers serves the /v1/deployments/stats API: per-user
// accounting aggregates from the accounting CSV exports and live cluster
// occupation from the background poller.
package stats_handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/stats"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

// HistoricalSource is the slice of the accounting reader the handlers need.
type HistoricalSource interface {
	ClusterAggregate(namespace string) (stats.Row, error)
	Timeseries(namespace string) ([]stats.Row, error)
	UserAggregate(namespace, owner string) (stats.Row, error)
}

// LiveSource provides the latest cluster occupation snapshot.
type LiveSource interface {
	Current() *stats.Snapshot
}

// Handler handles HTTP requests for deployment statistics.
type Handler struct {
	historical HistoricalSource
	live       LiveSource
}

// NewHandler creates a new stats handler.
func NewHandler(historical HistoricalSource, live LiveSource) *Handler {
	return &Handler{historical: historical, live: live}
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

// UserStats returns the caller's accounting aggregate in a VO.
func (h *Handler) UserStats(c *gin.Context) { handle(c, h.userStats) }

// ClusterStats returns the VO-wide aggregate, the usage timeseries and the
// live occupation snapshot.
func (h *Handler) ClusterStats(c *gin.Context) { handle(c, h.clusterStats) }

// GPUStats returns the live per-model GPU occupation.
func (h *Handler) GPUStats(c *gin.Context) { handle(c, h.gpuStats) }

func requestNamespace(c *gin.Context) (*auth.UserInfo, string, error) {
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
	namespace := config.GetNamespace(vo)
	if namespace == "" {
		return nil, "", errors.NewBadRequest("VO has no namespace: " + vo)
	}
	return info, namespace, nil
}

func (h *Handler) userStats(c *gin.Context) (interface{}, error) {
	info, namespace, err := requestNamespace(c)
	if err != nil {
		return nil, err
	}
	return h.historical.UserAggregate(namespace, info.Subject)
}

func (h *Handler) clusterStats(c *gin.Context) (interface{}, error) {
	_, namespace, err := requestNamespace(c)
	if err != nil {
		return nil, err
	}
	aggregate, err := h.historical.ClusterAggregate(namespace)
	if err != nil {
		return nil, err
	}
	timeseries, err := h.historical.Timeseries(namespace)
	if err != nil {
		return nil, err
	}
	out := gin.H{"aggregate": aggregate, "timeseries": timeseries}
	if snapshot := h.live.Current(); snapshot != nil {
		out["live"] = snapshot
		if usage, ok := snapshot.PerNamespace[namespace]; ok {
			out["namespace_usage"] = usage
		}
	}
	return out, nil
}

func (h *Handler) gpuStats(c *gin.Context) (interface{}, error) {
	if _, _, err := requestNamespace(c); err != nil {
		return nil, err
	}
	snapshot := h.live.Current()
	if snapshot == nil {
		return nil, errors.NewBackendError("cluster has not been polled yet")
	}
	return snapshot.GPUPerModel, nil
}
