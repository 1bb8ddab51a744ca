/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package proxy_handlers serves the /v1/proxies API: a chat-completion relay
// to the platform's LLM gateway. PAPI holds the gateway credential so that
// dashboard users never see it. Supports streaming via SSE (Server-Sent
// Events).
package proxy_handlers

import (
	"context"
	"embed"
	goerrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/utils"
)

//go:embed etc/models.yaml
var modelsFS embed.FS

const chatTimeout = 300 * time.Second

// Model describes one model served by the LLM gateway.
type Model struct {
	Name          string `yaml:"name" json:"name"`
	Family        string `yaml:"family" json:"family"`
	License       string `yaml:"license" json:"license"`
	ContextWindow int    `yaml:"context_window" json:"context_window"`
	NeedsToken    bool   `yaml:"needs_token" json:"needs_token"`
}

// ChatRequest is the body of the chat proxy endpoint.
type ChatRequest struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Stream      bool                           `json:"stream"`
	Temperature float64                        `json:"temperature"`
	TopP        float64                        `json:"top_p"`
	MaxTokens   int                            `json:"max_tokens"`
}

// Handler handles HTTP requests for the LLM proxy.
type Handler struct {
	newClient func() *openai.Client

	loadOnce sync.Once
	models   []Model
	loadErr  error
}

// NewHandler creates a new proxy handler.
func NewHandler() *Handler {
	return &Handler{newClient: gatewayClient}
}

func gatewayClient() *openai.Client {
	cfg := openai.DefaultConfig(config.GetLLMAPIKey())
	cfg.BaseURL = config.GetLLMGateway() + "/v1"
	return openai.NewClientWithConfig(cfg)
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

// ListModels returns the model catalog of the LLM gateway.
func (h *Handler) ListModels(c *gin.Context) { handle(c, h.listModels) }

func (h *Handler) listModels(c *gin.Context) (interface{}, error) {
	if _, err := auth.GetUserInfo(c); err != nil {
		return nil, err
	}
	return h.loadModels()
}

func (h *Handler) loadModels() ([]Model, error) {
	h.loadOnce.Do(func() {
		raw, err := modelsFS.ReadFile("etc/models.yaml")
		if err != nil {
			h.loadErr = errors.NewInternalError(fmt.Sprintf("missing embedded model list: %v", err))
			return
		}
		if err := yaml.Unmarshal(raw, &h.models); err != nil {
			h.loadErr = errors.NewInternalError(fmt.Sprintf("malformed model list: %v", err))
		}
	})
	return h.models, h.loadErr
}

// Chat relays a chat completion to the LLM gateway, streaming when asked.
func (h *Handler) Chat(c *gin.Context) {
	info, err := auth.GetUserInfo(c)
	if err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	var req ChatRequest
	if _, err := utils.ParseRequestBody(c.Request, &req); err != nil {
		utils.AbortWithApiError(c, err)
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		utils.AbortWithApiError(c, errors.NewBadRequest("missing field: model and messages are required"))
		return
	}
	if config.GetLLMGateway() == "" {
		utils.AbortWithApiError(c, errors.NewBackendError("no LLM gateway configured"))
		return
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   req.Stream,
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if req.TopP > 0 {
		chatReq.TopP = float32(req.TopP)
	}
	if req.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = req.MaxTokens
	}

	if req.Stream {
		h.streamChat(c, chatReq, info.Subject)
	} else {
		h.nonStreamChat(c, chatReq, info.Subject)
	}
}

// streamChat forwards the gateway's SSE stream chunk by chunk.
func (h *Handler) streamChat(c *gin.Context, req openai.ChatCompletionRequest, subject string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	stream, err := h.newClient().CreateChatCompletionStream(ctx, req)
	if err != nil {
		c.SSEvent("error", fmt.Sprintf("failed to create stream: %v", err))
		return
	}
	defer stream.Close()

	flusher, _ := c.Writer.(interface{ Flush() })

	for {
		response, err := stream.Recv()
		if goerrors.Is(err, io.EOF) {
			c.SSEvent("message", "[DONE]")
			if flusher != nil {
				flusher.Flush()
			}
			break
		}
		if err != nil {
			klog.ErrorS(err, "error reading gateway stream", "model", req.Model)
			c.SSEvent("error", fmt.Sprintf("stream error: %v", err))
			return
		}
		if len(response.Choices) > 0 {
			c.SSEvent("message", response)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}

	klog.Infof("streaming chat completed: owner=%s model=%s", subject, req.Model)
}

func (h *Handler) nonStreamChat(c *gin.Context, req openai.ChatCompletionRequest, subject string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	resp, err := h.newClient().CreateChatCompletion(ctx, req)
	if err != nil {
		utils.AbortWithApiError(c, errors.NewBackendError(fmt.Sprintf("LLM gateway: %v", err)))
		return
	}
	c.JSON(200, resp)
	klog.Infof("chat completed: owner=%s model=%s", subject, req.Model)
}
