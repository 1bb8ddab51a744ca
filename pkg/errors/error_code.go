/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const PapiPrefix = "Papi."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Deployment-related errors
   02: Catalog-related errors
   03: Secret-related errors
   04: Snapshot-related errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError         = PapiPrefix + "00001"
	BadRequest            = PapiPrefix + "00002"
	Forbidden             = PapiPrefix + "00003"
	NotFound              = PapiPrefix + "00004"
	Unauthorized          = PapiPrefix + "00005"
	RequestEntityTooLarge = PapiPrefix + "00006"
	BackendError          = PapiPrefix + "00007"
	Timeout               = PapiPrefix + "00008"
)

// deployment: 01xxx
const (
	WorkloadNotFound = PapiPrefix + "01001"
	QuotaExceeded    = PapiPrefix + "01002"
)

// catalog: 02xxx
const (
	CatalogItemNotFound = PapiPrefix + "02001"
)

// secret: 03xxx
const (
	SecretPathForbidden = PapiPrefix + "03001"
)

// snapshot: 04xxx
const (
	SnapshotTooLarge = PapiPrefix + "04001"
)

// StatusError carries an HTTP status code and a stable reason code alongside
// the human-readable message. It is the only error type the HTTP edge
// understands; everything else is treated as an internal error.
type StatusError struct {
	Code    int
	Reason  string
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// ReasonForError returns the reason code of err, or "" when err does not
// wrap a StatusError.
func ReasonForError(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Reason
	}
	return ""
}

// CodeForError returns the HTTP status code of err, defaulting to 500.
func CodeForError(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return http.StatusInternalServerError
}

// IsPapi returns true if the error carries a PAPI reason code.
func IsPapi(err error) bool {
	return strings.HasPrefix(ReasonForError(err), PapiPrefix)
}

func IsBadRequest(err error) bool {
	return ReasonForError(err) == BadRequest
}

func IsInternal(err error) bool {
	return ReasonForError(err) == InternalError
}

func IsForbidden(err error) bool {
	reason := ReasonForError(err)
	return reason == Forbidden || reason == SecretPathForbidden
}

func IsUnauthorized(err error) bool {
	return ReasonForError(err) == Unauthorized
}

func IsNotFound(err error) bool {
	reason := ReasonForError(err)
	return reason == NotFound || reason == WorkloadNotFound || reason == CatalogItemNotFound
}

func IsQuotaExceeded(err error) bool {
	return ReasonForError(err) == QuotaExceeded
}

func IsBackendError(err error) bool {
	return ReasonForError(err) == BackendError
}

func IsTimeout(err error) bool {
	return ReasonForError(err) == Timeout
}

func IsSnapshotTooLarge(err error) bool {
	return ReasonForError(err) == SnapshotTooLarge
}

func IgnoreNotFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if !IsPapi(err) {
		return ""
	}
	return ReasonForError(err)
}

func NewBadRequest(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadRequest,
		Reason:  BadRequest,
		Message: fmt.Sprintf("Bad request. %s", message),
	}
}

func NewInternalError(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}
}

func NewForbidden(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusForbidden,
		Reason:  Forbidden,
		Message: message,
	}
}

func NewNotFound(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}
}

func NewUnauthorized(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
	}
}

func NewRequestEntityTooLarge(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusRequestEntityTooLarge,
		Reason:  RequestEntityTooLarge,
		Message: message,
	}
}

// NewBackendError wraps an upstream failure. The upstream message is passed
// through verbatim so users see what the Scheduler/Registry/Secret Store said.
func NewBackendError(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadGateway,
		Reason:  BackendError,
		Message: message,
	}
}

func NewTimeout(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusGatewayTimeout,
		Reason:  Timeout,
		Message: message,
	}
}

func NewWorkloadNotFound(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  WorkloadNotFound,
		Message: message,
	}
}

// NewQuotaExceeded names the constrained resource together with the cap and
// the caller's current usage.
func NewQuotaExceeded(resource string, limit, current int) *StatusError {
	return &StatusError{
		Code:   http.StatusTooManyRequests,
		Reason: QuotaExceeded,
		Message: fmt.Sprintf(
			`quota exceeded: "resource":%q,"limit":%d,"current":%d`,
			resource, limit, current),
	}
}

func NewCatalogItemNotFound(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusNotFound,
		Reason:  CatalogItemNotFound,
		Message: message,
	}
}

func NewSecretPathForbidden(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusForbidden,
		Reason:  SecretPathForbidden,
		Message: message,
	}
}

func NewSnapshotTooLarge(message string) *StatusError {
	return &StatusError{
		Code:    http.StatusBadRequest,
		Reason:  SnapshotTooLarge,
		Message: fmt.Sprintf("too-large: %s", message),
	}
}
