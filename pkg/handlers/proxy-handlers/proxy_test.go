/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package proxy_handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/config"
)

func newTestHandler(t *testing.T, gateway http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(gateway)
	t.Cleanup(srv.Close)
	config.SetValue("llm.gateway", srv.URL)
	return &Handler{newClient: func() *openai.Client {
		cfg := openai.DefaultConfig("test-key")
		cfg.BaseURL = srv.URL + "/v1"
		return openai.NewClientWithConfig(cfg)
	}}
}

func testContext(t *testing.T, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest("POST", "/v1/proxies/llm/chat", &buf)
	auth.SetUserInfo(c, &auth.UserInfo{Subject: "alice@x"})
	return c, w
}

func TestListModels(t *testing.T) {
	h := NewHandler()
	models, err := h.loadModels()
	require.NoError(t, err)
	require.NotEmpty(t, models)
	assert.Equal(t, "Llama-3.1-8B-Instruct", models[0].Name)
	assert.Equal(t, 131072, models[0].ContextWindow)
}

func TestChatNonStream(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Llama-3.1-8B-Instruct", req.Model)
		resp := openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "hello back"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	c, w := testContext(t, ChatRequest{
		Model:    "Llama-3.1-8B-Instruct",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hello"}},
	})
	h.Chat(c)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "hello back")
}

func TestChatStreamRelaysChunks(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunk := openai.ChatCompletionStreamResponse{
			Model: "Llama-3.1-8B-Instruct",
			Choices: []openai.ChatCompletionStreamChoice{
				{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "partial"}},
			},
		}
		raw, _ := json.Marshal(chunk)
		_, _ = w.Write([]byte("data: " + string(raw) + "\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	})

	c, w := testContext(t, ChatRequest{
		Model:    "Llama-3.1-8B-Instruct",
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hello"}},
		Stream:   true,
	})
	h.Chat(c)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "partial")
	assert.Contains(t, w.Body.String(), "[DONE]")
}

func TestChatMissingModel(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the gateway")
	})

	c, w := testContext(t, ChatRequest{
		Messages: []openai.ChatCompletionMessage{{Role: "user", Content: "hello"}},
	})
	h.Chat(c)

	assert.Equal(t, 400, w.Code)
}
