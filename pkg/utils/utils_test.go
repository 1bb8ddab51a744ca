/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4os/ai4-papi/pkg/errors"
)

func TestParseRequestBody(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"t1"}`))
	var p payload
	body, err := ParseRequestBody(req, &p)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t1"}`, string(body))
	assert.Equal(t, "t1", p.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	body, err = ParseRequestBody(req, &p)
	require.NoError(t, err)
	assert.Nil(t, body)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	_, err = ParseRequestBody(req, &p)
	assert.True(t, errors.IsBadRequest(err))
}

func TestReadBodyRejectsOversize(t *testing.T) {
	big := bytes.Repeat([]byte("a"), int(DefaultMaxRequestBodyBytes)+1)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(big))
	_, err := ReadBody(req)
	require.Error(t, err)
	assert.Equal(t, errors.RequestEntityTooLarge, errors.ReasonForError(err))
}

func TestValidHostname(t *testing.T) {
	assert.True(t, ValidHostname("demo123"))
	assert.False(t, ValidHostname("demo.app"))
	assert.False(t, ValidHostname("demo-app"))
	assert.False(t, ValidHostname(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 45))
	assert.Equal(t, strings.Repeat("x", 45), Truncate(strings.Repeat("x", 100), 45))
}

func TestObscureRoundTrip(t *testing.T) {
	for _, pw := range []string{"", "hunter2", "pässwörd with spaces"} {
		obscured, err := Obscure(pw)
		require.NoError(t, err)
		got, err := Reveal(obscured)
		require.NoError(t, err)
		assert.Equal(t, pw, got)
	}
}

func TestAbortWithApiError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"typed", errors.NewWorkloadNotFound("no such job"), http.StatusNotFound, errors.WorkloadNotFound},
		{"quota", errors.NewQuotaExceeded("GPU", 1, 1), http.StatusTooManyRequests, `\"resource\":\"GPU\"`},
		{"untyped is masked", assertErr{}, http.StatusInternalServerError, "see server logs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			AbortWithApiError(c, tt.err)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "secret internal detail" }
