// Package errs defines the coded failure type shared by the automation layer.
// Every failure a scenario can report carries one Code plus the context a
// reader needs to diagnose it: selector, expected vs observed, wait timeout,
// and a summary of the DOM at the moment of failure.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Code is a failure category.
type Code string

const (
	LocatorNotFound    Code = "locator_not_found"
	AssertionMismatch  Code = "assertion_mismatch"
	NavigationTimeout  Code = "navigation_timeout"
	AmbiguousMatch     Code = "ambiguous_match"
	FailedPrecondition Code = "failed_precondition"
	InvalidArgument    Code = "invalid_argument"
	Unavailable        Code = "unavailable"
	Internal           Code = "internal"
)

// Error is a coded failure with optional locator context.
type Error struct {
	Code     Code
	Message  string
	Selector string
	Expected string
	Observed string
	Timeout  time.Duration
	Snapshot string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.codeOrInternal()))
	b.WriteString(": ")
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("failure")
	}
	if e.Selector != "" {
		fmt.Fprintf(&b, " [selector %s]", e.Selector)
	}
	if e.Expected != "" || e.Observed != "" {
		fmt.Fprintf(&b, " (expected %q, observed %q)", e.Expected, e.Observed)
	}
	if e.Timeout > 0 {
		fmt.Fprintf(&b, " after %s", e.Timeout)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) codeOrInternal() Code {
	if e.Code == "" {
		return Internal
	}
	return e.Code
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// NotFound reports an element that never appeared within the wait.
func NotFound(selector string, timeout time.Duration, cause error) error {
	return &Error{
		Code:     LocatorNotFound,
		Message:  "element not found",
		Selector: selector,
		Timeout:  timeout,
		Err:      cause,
	}
}

// Mismatch reports an element whose value did not match.
func Mismatch(selector, message, expected, observed string) error {
	return &Error{
		Code:     AssertionMismatch,
		Message:  message,
		Selector: selector,
		Expected: expected,
		Observed: observed,
	}
}

// Navigation reports a URL that never reached the expected route.
func Navigation(route, observedURL string, timeout time.Duration, cause error) error {
	return &Error{
		Code:     NavigationTimeout,
		Message:  "url did not reach route",
		Expected: route,
		Observed: observedURL,
		Timeout:  timeout,
		Err:      cause,
	}
}

// Ambiguous reports a name lookup that resolved to zero or several elements.
func Ambiguous(selector, name string, matches int) error {
	return &Error{
		Code:     AmbiguousMatch,
		Message:  fmt.Sprintf("name %q matched %d elements", name, matches),
		Selector: selector,
		Expected: "1",
		Observed: fmt.Sprintf("%d", matches),
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.codeOrInternal()
	}
	return Internal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the short failure message without locator context.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// As returns the coded error in err's chain, if any.
func As(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case LocatorNotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
