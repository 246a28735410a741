/*
 * Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package errors defines the unified API error type returned by every
// HTTP handler. Validation failures map to 400, unknown ids to 404 and
// anything unexpected to a generic 500 with the cause in the detail
// field.
package errors

import (
	"errors"
	"net/http"
)

// ApiError is the wire representation of a handler failure. HttpCode
// selects the response status and is not serialized.
type ApiError struct {
	HttpCode int    `json:"-"`
	Reason   string `json:"error"`
	Detail   string `json:"detail,omitempty"`
}

// Error returns the error message string.
func (e *ApiError) Error() string {
	if e.Detail != "" {
		return e.Reason + ": " + e.Detail
	}
	return e.Reason
}

// NewBadRequest returns a 400 error for a validation failure.
func NewBadRequest(reason string) *ApiError {
	return &ApiError{HttpCode: http.StatusBadRequest, Reason: reason}
}

// NewNotFound returns a 404 error for an unknown resource id.
func NewNotFound(reason string) *ApiError {
	return &ApiError{HttpCode: http.StatusNotFound, Reason: reason}
}

// NewInternal returns a 500 error. The cause goes into the detail
// field; the reason stays generic so internals do not leak into
// client-facing messages.
func NewInternal(detail string) *ApiError {
	return &ApiError{HttpCode: http.StatusInternalServerError, Reason: "Internal server error", Detail: detail}
}

// FromError converts any error into an ApiError. Errors that already
// carry a status pass through unchanged; everything else becomes a 500.
func FromError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternal(err.Error())
}

// IsBadRequest reports whether err maps to a 400 response.
func IsBadRequest(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.HttpCode == http.StatusBadRequest
}

// IsNotFound reports whether err maps to a 404 response.
func IsNotFound(err error) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.HttpCode == http.StatusNotFound
}
