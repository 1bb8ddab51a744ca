/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/ai4os/ai4-papi/pkg/errors"
)

const (
	DefaultMaxRequestBodyBytes = int64(2 * 1024 * 1024)
)

var hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ReadBody reads the HTTP request body with a size limit to prevent excessive
// memory consumption. The request body is closed after reading.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{
		R: req.Body,
		N: DefaultMaxRequestBodyBytes + 1,
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, errors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, errors.NewRequestEntityTooLarge(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// ParseRequestBody reads the request body and unmarshals it into the provided
// struct. An empty body yields nil body and nil error.
func ParseRequestBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = json.Unmarshal(body, bodyStruct); err != nil {
		return body, errors.NewBadRequest(err.Error())
	}
	return body, nil
}

// Truncate shortens s to at most max bytes. Job titles and descriptions are
// capped before substitution so they fit the scheduler's metadata limits.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ValidHostname reports whether s is usable as a deployment hostname label.
// Only alphanumerics are allowed; dots or dashes would escape the per-VO
// domain pattern.
func ValidHostname(s string) bool {
	return hostnameRe.MatchString(s)
}

// SanitizeSubject turns an OIDC subject into a registry repository name.
func SanitizeSubject(subject string) string {
	return strings.ReplaceAll(subject, "@", "_at_")
}
