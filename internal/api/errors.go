package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

const defaultUserMessage = "An unexpected error has occurred"

// Error is an API failure that knows how it is presented to the client. Detail
// is meant for developers, UserMessage for end users.
type Error struct {
	Status      int
	UserMessage string
	Detail      string
	StackTrace  string
	Headers     map[string]string
	HideLogs    bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.UserMessage, e.Detail, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.UserMessage, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHeader returns e with an extra response header.
func (e *Error) WithHeader(key, value string) *Error {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// NewError builds an Error and captures the current stack.
func NewError(status int, userMessage, detail string) *Error {
	return &Error{
		Status:      status,
		UserMessage: userMessage,
		Detail:      detail,
		StackTrace:  string(debug.Stack()),
	}
}

// ValueValidationError reports a bad input value. Either argument may be
// empty.
func ValueValidationError(found, expected string) *Error {
	var detail string
	switch {
	case found == "" && expected == "":
	case expected == "":
		detail = "Found unexpected value: " + found
	case found == "":
		detail = "Expected: " + expected
	default:
		detail = fmt.Sprintf("Found unexpected value: %s. Expected %s.", found, expected)
	}
	return &Error{
		Status:      http.StatusBadRequest,
		UserMessage: "Unexpected value Error",
		Detail:      detail,
		HideLogs:    true,
	}
}

// ConfigurationError reports settings the request cannot be served with.
func ConfigurationError(err error) *Error {
	return NewError(http.StatusInternalServerError, defaultUserMessage, "Issue found with configuration.").Wrap(err)
}

// ExternalConnectionError reports an upstream that could not be reached.
func ExternalConnectionError(url string, err error) *Error {
	if url == "" {
		url = "an external api."
	}
	return NewError(http.StatusServiceUnavailable,
		"A temporary error occurred. Please try again.",
		"Could not connect to "+url,
	).Wrap(err)
}

func internalError(err error) *Error {
	return NewError(http.StatusInternalServerError, defaultUserMessage, "unexpected server error").Wrap(err)
}
