// Package apperror defines the business error taxonomy shared by services:
// stable error codes carrying an HTTP status, and BusinessError values built from them.
package apperror

import "net/http"

// ErrorCode identifies a business failure. Services define their own codes next to
// the global ones, e.g. ACCOUNT_001.
type ErrorCode interface {
	Code() string
	Message() string
	Status() int
}

// Code is the standard ErrorCode implementation. It is also an error, so a code
// can be matched with errors.Is against any BusinessError carrying it.
type Code struct {
	code    string
	message string
	status  int
}

var _ ErrorCode = Code{}

// NewCode defines an error code.
func NewCode(code, message string, status int) Code {
	return Code{code: code, message: message, status: status}
}

func (c Code) Code() string    { return c.code }
func (c Code) Message() string { return c.message }
func (c Code) Status() int     { return c.status }
func (c Code) Error() string   { return c.code }

// Global codes shared by every service.
var (
	// server
	InternalServerError = NewCode("GLOBAL_001", "Internal server error.", http.StatusInternalServerError)
	ServiceUnavailable  = NewCode("GLOBAL_002", "Service temporarily unavailable.", http.StatusServiceUnavailable)
	DatabaseError       = NewCode("GLOBAL_003", "Database error.", http.StatusInternalServerError)
	ExternalAPIError    = NewCode("GLOBAL_004", "External service call failed.", http.StatusBadGateway)
	ExternalAPITimeout  = NewCode("GLOBAL_005", "External service timed out.", http.StatusGatewayTimeout)

	// request
	BadRequest           = NewCode("GLOBAL_100", "Bad request.", http.StatusBadRequest)
	InvalidInputValue    = NewCode("GLOBAL_101", "Invalid input value.", http.StatusBadRequest)
	InvalidTypeValue     = NewCode("GLOBAL_102", "Invalid data type.", http.StatusBadRequest)
	MissingParameter     = NewCode("GLOBAL_103", "Required parameter is missing.", http.StatusBadRequest)
	InvalidJSONFormat    = NewCode("GLOBAL_104", "Malformed JSON.", http.StatusBadRequest)
	MethodNotAllowed     = NewCode("GLOBAL_105", "HTTP method not supported.", http.StatusMethodNotAllowed)
	UnsupportedMediaType = NewCode("GLOBAL_106", "Media type not supported.", http.StatusUnsupportedMediaType)

	// authentication and authorization
	Unauthorized       = NewCode("GLOBAL_200", "Authentication required.", http.StatusUnauthorized)
	InvalidToken       = NewCode("GLOBAL_201", "Invalid token.", http.StatusUnauthorized)
	ExpiredToken       = NewCode("GLOBAL_202", "Token expired.", http.StatusUnauthorized)
	TokenMissing       = NewCode("GLOBAL_203", "Token missing.", http.StatusUnauthorized)
	InvalidCredentials = NewCode("GLOBAL_204", "Invalid credentials.", http.StatusUnauthorized)
	Forbidden          = NewCode("GLOBAL_210", "Access forbidden.", http.StatusForbidden)
	AccessDenied       = NewCode("GLOBAL_211", "No permission for this resource.", http.StatusForbidden)

	// resources
	ResourceNotFound      = NewCode("GLOBAL_300", "Resource not found.", http.StatusNotFound)
	EndpointNotFound      = NewCode("GLOBAL_301", "API endpoint not found.", http.StatusNotFound)
	Conflict              = NewCode("GLOBAL_310", "Resource conflict.", http.StatusConflict)
	DuplicateResource     = NewCode("GLOBAL_311", "Resource already exists.", http.StatusConflict)
	OptimisticLockFailure = NewCode("GLOBAL_312", "Concurrent modification, please retry.", http.StatusConflict)

	// business rules
	BusinessException     = NewCode("GLOBAL_400", "Business rule violated.", http.StatusUnprocessableEntity)
	InvalidState          = NewCode("GLOBAL_401", "Operation not allowed in the current state.", http.StatusUnprocessableEntity)
	OperationNotPermitted = NewCode("GLOBAL_402", "Operation not permitted.", http.StatusUnprocessableEntity)

	// inter-service communication
	ServiceCommunicationError = NewCode("GLOBAL_500", "Inter-service communication failed.", http.StatusServiceUnavailable)
	CircuitBreakerOpen        = NewCode("GLOBAL_501", "Service temporarily blocked, try again later.", http.StatusServiceUnavailable)
	RetryExhausted            = NewCode("GLOBAL_502", "Retry limit exceeded.", http.StatusServiceUnavailable)
)

// GlobalCodes lists every global code in declaration order.
func GlobalCodes() []Code {
	return []Code{
		InternalServerError, ServiceUnavailable, DatabaseError, ExternalAPIError, ExternalAPITimeout,
		BadRequest, InvalidInputValue, InvalidTypeValue, MissingParameter, InvalidJSONFormat,
		MethodNotAllowed, UnsupportedMediaType,
		Unauthorized, InvalidToken, ExpiredToken, TokenMissing, InvalidCredentials, Forbidden, AccessDenied,
		ResourceNotFound, EndpointNotFound, Conflict, DuplicateResource, OptimisticLockFailure,
		BusinessException, InvalidState, OperationNotPermitted,
		ServiceCommunicationError, CircuitBreakerOpen, RetryExhausted,
	}
}
