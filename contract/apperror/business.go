package apperror

import "errors"

// BusinessError is a failure the caller can act on. Its message defaults to the
// code's message and its HTTP status always comes from the code.
type BusinessError struct {
	code  ErrorCode
	msg   string
	cause error
}

// New returns a BusinessError with the code's default message.
func New(code ErrorCode) *BusinessError {
	return &BusinessError{code: code, msg: code.Message()}
}

// WithMessage returns a BusinessError with a custom message.
func WithMessage(code ErrorCode, msg string) *BusinessError {
	return &BusinessError{code: code, msg: msg}
}

// Wrap returns a BusinessError with the code's default message caused by cause.
func Wrap(code ErrorCode, cause error) *BusinessError {
	return &BusinessError{code: code, msg: code.Message(), cause: cause}
}

// WrapMessage returns a BusinessError with a custom message caused by cause.
func WrapMessage(code ErrorCode, msg string, cause error) *BusinessError {
	return &BusinessError{code: code, msg: msg, cause: cause}
}

func (e *BusinessError) Error() string { return e.code.Code() + ": " + e.msg }

// Message is the human readable message without the code prefix.
func (e *BusinessError) Message() string { return e.msg }

func (e *BusinessError) ErrorCode() ErrorCode { return e.code }

func (e *BusinessError) Code() string { return e.code.Code() }

func (e *BusinessError) Status() int { return e.code.Status() }

func (e *BusinessError) Unwrap() error { return e.cause }

// Is matches any ErrorCode, or BusinessError, with the same code string.
func (e *BusinessError) Is(target error) bool {
	switch t := target.(type) {
	case *BusinessError:
		return t.Code() == e.Code()
	case ErrorCode:
		return t.Code() == e.Code()
	default:
		return false
	}
}

// As returns the first BusinessError in err's chain.
func As(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}

	return nil, false
}
