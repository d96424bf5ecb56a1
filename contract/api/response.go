// Package api defines the JSON envelopes services return over HTTP.
package api

import (
	"time"

	"github.com/next-trace/scg-contracts/contract/apperror"
)

// Response is the standard API envelope. Exactly one of Data or Error is meaningful,
// selected by Success.
type Response[T any] struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Data      *T           `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	TraceID   string       `json:"traceId,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Path    string `json:"path,omitempty"`
}

// NewErrorDetail builds an ErrorDetail; path may be empty.
func NewErrorDetail(code, message string, status int, path string) ErrorDetail {
	return ErrorDetail{Code: code, Message: message, Status: status, Path: path}
}

// ErrorDetailOf describes a business error at path.
func ErrorDetailOf(err *apperror.BusinessError, path string) ErrorDetail {
	return NewErrorDetail(err.Code(), err.Message(), err.Status(), path)
}

var now = func() time.Time { return time.Now().UTC() }

// Success wraps data.
func Success[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data, Timestamp: now()}
}

// SuccessWithMessage wraps data with a message.
func SuccessWithMessage[T any](data T, message string) Response[T] {
	r := Success(data)
	r.Message = message

	return r
}

// Empty is a success without data.
func Empty[T any]() Response[T] {
	return Response[T]{Success: true, Timestamp: now()}
}

// Message is a success carrying only a message.
func Message[T any](message string) Response[T] {
	r := Empty[T]()
	r.Message = message

	return r
}

// Error is a failure response; path may be empty.
func Error[T any](code, message string, status int, path string) Response[T] {
	return ErrorOf[T](NewErrorDetail(code, message, status, path))
}

// ErrorOf wraps an existing ErrorDetail.
func ErrorOf[T any](detail ErrorDetail) Response[T] {
	return Response[T]{Success: false, Error: &detail, Timestamp: now()}
}

// SuccessWithTrace is Success carrying a distributed trace id.
func SuccessWithTrace[T any](data T, traceID string) Response[T] {
	r := Success(data)
	r.TraceID = traceID

	return r
}

// ErrorWithTrace is ErrorOf carrying a distributed trace id.
func ErrorWithTrace[T any](detail ErrorDetail, traceID string) Response[T] {
	r := ErrorOf[T](detail)
	r.TraceID = traceID

	return r
}
