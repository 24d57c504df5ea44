// Package apperror classifies failures so transports can map them to a status
// and a client-safe message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindUpstream      Kind = "upstream"
	KindUnexpected    Kind = "unexpected"
)

const (
	CodeMissingAudio            = "missing-audio"
	CodeEmptyAudio              = "empty-audio"
	CodeMissingTranscript       = "missing-transcript"
	CodeMissingPatientName      = "missing-patient-name"
	CodeInvalidVisitType        = "invalid-visit-type"
	CodeInvalidSampleRate       = "invalid-sample-rate"
	CodeInvalidSamples          = "invalid-samples"
	CodeUnsupportedSampleFormat = "unsupported-sample-format"
	CodeInvalidJSON             = "invalid-json"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// StatusCode is the upstream HTTP status for KindUpstream.
	StatusCode int
	// Body is the raw upstream response body. Never sent to clients outside debug surfaces.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstream && e.Err != nil:
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	case e.Kind == KindUpstream:
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// ValidationCause is Validation keeping the underlying parse error for logs.
func ValidationCause(code, message string, err error) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Err: err}
}

func Upstream(statusCode int, body string, err error) *Error {
	return &Error{
		Kind:       KindUpstream,
		Message:    fmt.Sprintf("upstream returned status %d", statusCode),
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}

func Configuration(message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: err}
}

func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// As extracts an *Error from err. Unclassified errors are reported as KindUnexpected.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected("unexpected failure", err)
}

func IsValidation(err error, code string) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == KindValidation && (code == "" || appErr.Code == code)
}

// HTTPStatus maps err to the status a handler should respond with.
// Upstream failures keep the upstream status so callers can tell an auth
// failure from a bad request.
func HTTPStatus(err error) int {
	appErr := As(err)
	if appErr == nil {
		return http.StatusOK
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		if appErr.StatusCode >= 400 && appErr.StatusCode <= 599 {
			return appErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
