/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	goerrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/ai4os/ai4-papi/pkg/errors"
)

type PapiApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (err *PapiApiError) Error() string {
	return err.ErrorMessage
}

// AbortWithApiError converts any error into the single JSON error body and
// aborts the request. Controllers return typed errors; this is the only
// place status codes are decided.
func AbortWithApiError(c *gin.Context, err error) {
	if err != nil {
		// associate the error with the request for the logging middleware
		_ = c.Error(err)
	}
	rsp := cvtToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

func cvtToErrResponse(err error) PapiApiError {
	var result *PapiApiError
	if goerrors.As(err, &result) {
		return *result
	}
	var statusErr *errors.StatusError
	if !goerrors.As(err, &statusErr) {
		// unexpected errors never leak detail to the client
		statusErr = errors.NewInternalError("unexpected error, see server logs")
	}
	return PapiApiError{
		HttpCode:     statusErr.Code,
		ErrorCode:    statusErr.Reason,
		ErrorMessage: statusErr.Message,
	}
}
