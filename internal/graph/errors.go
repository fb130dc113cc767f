// Package graph implements the Microsoft Graph API client used to treat a
// SharePoint-hosted Excel workbook as a row store. It owns request plumbing
// (auth header, workbook-session header, JSON bodies) and error
// classification; session lifecycle and retries live in the session package.
//
// Error semantics:
//   - Every non-2xx response becomes an *APIError carrying the HTTP status,
//     the Graph error code when the body is parseable, the raw body, and a
//     Retryable flag decided at construction time. Callers never re-derive
//     retryability from the status afterwards.
//   - Transport failures (connection reset, timeout) also become *APIError
//     values with StatusCode 0 and Retryable=true, except when the request
//     context was cancelled, in which case the context error is returned
//     untouched.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a typed failure from the Graph API or its transport.
type APIError struct {
	// StatusCode is the HTTP status, or 0 for transport-level failures.
	StatusCode int
	// Code is the Graph error code ("itemNotFound", "throttled", ...)
	// when the error body was parseable, otherwise "".
	Code string
	// Message is a human-readable description, taken from the error body
	// when available.
	Message string
	// Body is the raw response body, kept for display in the UI layer.
	Body string
	// Retryable reports whether the failure is transient. It is fixed when
	// the error is constructed and drives the session manager's retry loop.
	Retryable bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("graph: %s", e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("graph: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph: %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err is a transient Graph failure worth another
// attempt. Anything that is not an *APIError (context cancellation, caller
// bugs) is permanent.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// retryableStatus classifies an HTTP status. Timeouts, throttling, and
// server-side failures are transient; everything else (notably the 4xx
// client errors) is permanent.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}

// graphErrorBody matches the standard Graph error envelope
// {"error": {"code": "...", "message": "..."}}.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newAPIError builds an APIError from a non-2xx response. The body is parsed
// as the Graph error envelope when possible and kept verbatim either way.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{
		StatusCode: status,
		Message:    http.StatusText(status),
		Body:       string(body),
		Retryable:  retryableStatus(status),
	}
	var parsed graphErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != "" {
		e.Code = parsed.Error.Code
		if parsed.Error.Message != "" {
			e.Message = parsed.Error.Message
		}
	}
	return e
}

// newTransportError wraps a network-level failure (dial, reset, timeout) as a
// retryable APIError with no HTTP status.
func newTransportError(err error) *APIError {
	return &APIError{
		Message:   err.Error(),
		Retryable: true,
	}
}
