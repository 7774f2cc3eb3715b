/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a failure kind, a user-facing message and an HTTP status.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"syncroom/internal/pkg/logx"
)

// Kind classifies a failure by its consequence for the session that caused it.
type Kind string

const (
	// KindValidation rejects the request and leaves state unchanged; the session stays connected.
	KindValidation Kind = "ValidationFailure"

	// KindProtocol is fatal to the offending session; its connection is dropped.
	KindProtocol Kind = "ProtocolViolation"

	// KindCapacity rejects a join before any state is mutated.
	KindCapacity Kind = "CapacityExceeded"

	// KindTransient drops the affected session while every other session carries on.
	KindTransient Kind = "TransientNetworkFailure"

	// KindInternal covers server faults.
	KindInternal Kind = "Internal"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Kind is the failure class used to decide session-level consequences.
	Kind Kind

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code used when the error is returned over REST.
	Status int
}

// Error implements the standard Go error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error code %d (%s): %s", e.Code, e.Kind, e.Message)
}

// Is matches any *CustomError carrying the same code, so errors.Is works against
// templates built with NewError.
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError constructs a *CustomError from a predefined error code.
// details are printf arguments for message templates that contain verbs.
// Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// IsCode reports whether err (or anything it wraps) is a CustomError with the given code.
func IsCode(err error, code int) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code == code
	}
	return false
}

// KindOf returns the failure kind of err. Plain errors are KindInternal.
func KindOf(err error) Kind {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Kind
	}
	return KindInternal
}

// From converts any error into a *CustomError, wrapping unclassified errors as ErrUnknown.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}
	return NewError(ErrUnknown, err)
}
