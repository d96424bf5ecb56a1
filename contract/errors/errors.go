package errors

import stderrors "errors"

// Error codes for the event contracts. Keep stable; used across adapters, bus and consumers.
const (
	ErrCodeHandlerTypeMismatch = "servicebus.handler_type_mismatch"
	ErrCodeAsyncNotConfigured  = "servicebus.async_not_configured"
	ErrCodePublishFailed       = "servicebus.publish_failed"
	ErrCodeSerializationFailed = "servicebus.serialization_failed"
	ErrCodeEventExpired        = "servicebus.event_expired"
	ErrCodeDuplicateEvent      = "servicebus.duplicate_event"
	ErrCodeRetryExhausted      = "servicebus.retry_exhausted"
	ErrCodeUnknownEventType    = "servicebus.unknown_event_type"
	ErrCodeRegistrationExists  = "servicebus.registration_exists"
	ErrCodeInvalidArgument     = "servicebus.invalid_argument"
	ErrCodeInvalidConfig       = "servicebus.invalid_config"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrAsyncNotConfigured  = Code(ErrCodeAsyncNotConfigured)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrEventExpired        = Code(ErrCodeEventExpired)
	ErrDuplicateEvent      = Code(ErrCodeDuplicateEvent)
	ErrRetryExhausted      = Code(ErrCodeRetryExhausted)
	ErrUnknownEventType    = Code(ErrCodeUnknownEventType)
	ErrRegistrationExists  = Code(ErrCodeRegistrationExists)
	ErrInvalidArgument     = Code(ErrCodeInvalidArgument)
	ErrInvalidConfig       = Code(ErrCodeInvalidConfig)
)

// permanentError marks a failure that redelivery cannot fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return "permanent: " + p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so consumers stop redelivering the event.
// A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked with Permanent.
// Serialization failures are always permanent: a payload that cannot be decoded
// will not decode on the next attempt either.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var p *permanentError
	if stderrors.As(err, &p) {
		return true
	}

	return stderrors.Is(err, ErrSerializationFailed)
}

// IsRetriable reports whether err is a non-nil failure that a redelivery may fix.
func IsRetriable(err error) bool { return err != nil && !IsPermanent(err) }
