package service

import (
	"context"
	"errors"
	"net/http"
)

// ErrorKind classifies service failures for transport mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindUpstream
	KindUpstreamTimeout
)

// HTTPStatus maps the kind to a response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure with a client-safe message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// ErrUpstreamTimeout marks an external call that hit its deadline.
var ErrUpstreamTimeout = errors.New("upstream timeout")

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func authenticationError(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func authorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func notFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// upstreamError wraps an external failure, promoting deadline hits to
// KindUpstreamTimeout.
func upstreamError(msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUpstreamTimeout) {
		return &Error{Kind: KindUpstreamTimeout, Message: msg + " timed out", Err: errors.Join(ErrUpstreamTimeout, err)}
	}
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}
