/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package info_handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/auth"
	"github.com/ai4os/ai4-papi/pkg/catalog"
	"github.com/ai4os/ai4-papi/pkg/config"
	"github.com/ai4os/ai4-papi/pkg/errors"
	"github.com/ai4os/ai4-papi/pkg/httpclient"
)

func testContext(t *testing.T, body interface{}) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest("POST", "/v1/info/signup", &buf)
	auth.SetUserInfo(c, &auth.UserInfo{Subject: "alice@x", Name: "Alice", Email: "alice@example.org"})
	return c
}

func TestConfExposesAllKinds(t *testing.T) {
	h := NewHandler(httpclient.New(httpclient.Options{}))
	out, err := h.conf(testContext(t, nil))
	require.NoError(t, err)

	schemas := out.(map[string]catalog.ConfSchema)
	for _, kind := range []string{"modules", "tools", "batch"} {
		require.Contains(t, schemas, kind)
		assert.Contains(t, schemas[kind], "general")
	}
}

func TestSignupRelaysMail(t *testing.T) {
	t.Setenv("MAILING_TOKEN", "mail-secret")
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer mail-secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)
	config.SetValue("mail.endpoint", srv.URL)

	h := NewHandler(httpclient.New(httpclient.Options{}))
	c := testContext(t, SignupRequest{ModuleName: "demo-module", Message: "please notify me"})
	out, err := h.signup(c)
	require.NoError(t, err)

	assert.Equal(t, gin.H{"status": "sent"}, out)
	assert.Equal(t, "Module interest: demo-module", got["subject"])
	assert.Equal(t, "alice@example.org", got["from"])
}

func TestSignupRequiresModuleName(t *testing.T) {
	h := NewHandler(httpclient.New(httpclient.Options{}))
	c := testContext(t, SignupRequest{Message: "hello"})
	_, err := h.signup(c)
	require.Error(t, err)
	assert.True(t, errors.IsBadRequest(err))
}

func TestSignupWithoutBridge(t *testing.T) {
	config.SetValue("mail.endpoint", "")
	h := NewHandler(httpclient.New(httpclient.Options{}))
	c := testContext(t, SignupRequest{ModuleName: "demo-module"})
	_, err := h.signup(c)
	require.Error(t, err)
	assert.True(t, errors.IsBackendError(err))
}
