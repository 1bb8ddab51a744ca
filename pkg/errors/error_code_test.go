/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
		code   int
	}{
		{"bad request", NewBadRequest("cpu_num out of range"), BadRequest, http.StatusBadRequest},
		{"workload not found", NewWorkloadNotFound("no job"), WorkloadNotFound, http.StatusNotFound},
		{"quota", NewQuotaExceeded("GPU", 1, 1), QuotaExceeded, http.StatusTooManyRequests},
		{"backend", NewBackendError("scheduler said no"), BackendError, http.StatusBadGateway},
		{"timeout", NewTimeout("deadline exceeded"), Timeout, http.StatusGatewayTimeout},
		{"plain error", fmt.Errorf("boom"), "", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, ReasonForError(tt.err))
			assert.Equal(t, tt.code, CodeForError(tt.err))
		})
	}
}

func TestWrappedErrorsKeepReason(t *testing.T) {
	err := fmt.Errorf("create deployment: %w", NewForbidden("not the owner"))
	assert.True(t, IsForbidden(err))
	assert.True(t, IsPapi(err))
	assert.Equal(t, http.StatusForbidden, CodeForError(err))
}

func TestIsNotFoundCoversDomainReasons(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("x")))
	assert.True(t, IsNotFound(NewWorkloadNotFound("x")))
	assert.True(t, IsNotFound(NewCatalogItemNotFound("x")))
	assert.False(t, IsNotFound(NewBadRequest("x")))
	assert.NoError(t, IgnoreNotFound(NewWorkloadNotFound("x")))
	assert.Error(t, IgnoreNotFound(NewBadRequest("x")))
}

func TestQuotaExceededMessageNamesResource(t *testing.T) {
	err := NewQuotaExceeded("GPU", 1, 1)
	assert.Contains(t, err.Error(), `"resource":"GPU"`)
	assert.Contains(t, err.Error(), `"limit":1`)
	assert.Contains(t, err.Error(), `"current":1`)
}

func TestIsForbiddenCoversSecretPaths(t *testing.T) {
	assert.True(t, IsForbidden(NewSecretPathForbidden("outside user subtree")))
	assert.Equal(t, "", GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, Forbidden, GetErrorCode(NewForbidden("x")))
}
