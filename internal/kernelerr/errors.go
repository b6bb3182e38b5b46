// Package kernelerr provides the kernel's unified error taxonomy. Every
// component in the runtime returns one of these ten kinds rather than ad-hoc
// errors, so the HTTP gateway can map any error to a status code without
// knowing which component produced it.
package kernelerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one of the kernel's error kinds.
type Code string

const (
	InvalidInput         Code = "INVALID_INPUT"
	NotFound             Code = "NOT_FOUND"
	Unauthenticated      Code = "UNAUTHENTICATED"
	Unauthorized         Code = "UNAUTHORIZED"
	RateLimited          Code = "RATE_LIMITED"
	Timeout              Code = "TIMEOUT"
	Conflict             Code = "CONFLICT"
	DependencyMissing    Code = "DEPENDENCY_MISSING"
	AdapterError         Code = "ADAPTER_ERROR"
	PluginLifecycleError Code = "PLUGIN_LIFECYCLE_ERROR"

	// UnknownService is a NotFound variant kept distinct so ServiceRegistry
	// callers can tell "no such service" apart from "no such storage key".
	UnknownService Code = "UNKNOWN_SERVICE"
)

var httpStatusByCode = map[Code]int{
	InvalidInput:         http.StatusBadRequest,
	NotFound:             http.StatusNotFound,
	UnknownService:       http.StatusNotFound,
	Unauthenticated:      http.StatusUnauthorized,
	Unauthorized:         http.StatusForbidden,
	RateLimited:          http.StatusTooManyRequests,
	Timeout:              http.StatusGatewayTimeout,
	Conflict:             http.StatusConflict,
	DependencyMissing:    http.StatusInternalServerError,
	AdapterError:         http.StatusInternalServerError,
	PluginLifecycleError: http.StatusInternalServerError,
}

// KernelError is a structured error carrying an HTTP-mappable kind.
type KernelError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *KernelError) Unwrap() error { return e.Err }

// WithDetails attaches freeform diagnostic context to the error.
func (e *KernelError) WithDetails(key string, value interface{}) *KernelError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New builds a KernelError of the given kind with the code's fixed HTTP status.
func New(code Code, message string) *KernelError {
	return &KernelError{Code: code, Message: message, HTTPStatus: statusFor(code)}
}

// Wrap builds a KernelError that preserves an underlying cause.
func Wrap(code Code, message string, err error) *KernelError {
	return &KernelError{Code: code, Message: message, HTTPStatus: statusFor(code), Err: err}
}

func statusFor(code Code) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// As extracts a *KernelError from an error chain.
func As(err error) (*KernelError, bool) {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// HTTPStatus returns the status code the gateway should respond with for err.
// Unrecognized errors map to 500, matching the spec's "any other error to 500" rule.
func HTTPStatus(err error) int {
	if ke, ok := As(err); ok {
		return ke.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is reports whether err is a KernelError of the given code.
func Is(err error, code Code) bool {
	ke, ok := As(err)
	return ok && ke.Code == code
}

// Convenience constructors, one per kind, matching the spec's §7 taxonomy.

func NewInvalidInput(field, reason string) *KernelError {
	return New(InvalidInput, "invalid input").WithDetails("field", field).WithDetails("reason", reason)
}

func NewNotFound(resource, id string) *KernelError {
	return New(NotFound, "resource not found").WithDetails("resource", resource).WithDetails("id", id)
}

func NewUnknownService(name string) *KernelError {
	return New(UnknownService, "service not registered").WithDetails("service", name)
}

func NewUnauthenticated(reason string) *KernelError {
	return New(Unauthenticated, reason)
}

func NewUnauthorized(action string) *KernelError {
	return New(Unauthorized, "insufficient scope").WithDetails("action", action)
}

func NewRateLimited(bucket string, retryAfterSeconds int) *KernelError {
	return New(RateLimited, "rate limit exceeded").
		WithDetails("bucket", bucket).
		WithDetails("retry_after", retryAfterSeconds)
}

func NewTimeout(operation string) *KernelError {
	return New(Timeout, "operation timed out").WithDetails("operation", operation)
}

func NewConflict(message string) *KernelError {
	return New(Conflict, message)
}

func NewDependencyMissing(plugin, dependency string) *KernelError {
	return New(DependencyMissing, "dependency not loaded").
		WithDetails("plugin", plugin).
		WithDetails("dependency", dependency)
}

func NewAdapterError(operation string, err error) *KernelError {
	return Wrap(AdapterError, "storage adapter failure", err).WithDetails("operation", operation)
}

func NewPluginLifecycleError(plugin, hook string, err error) *KernelError {
	return Wrap(PluginLifecycleError, "plugin lifecycle hook failed", err).
		WithDetails("plugin", plugin).
		WithDetails("hook", hook)
}
