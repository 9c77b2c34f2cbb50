// SPDX-License-Identifier: MIT

// Package apierr defines the error taxonomy surfaced by the HTTP API.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	// KindBadRequest marks invalid client input.
	KindBadRequest Kind = iota
	// KindNotFound marks a missing resource, e.g. no HLS manifest.
	KindNotFound
	// KindBadGateway marks upstream extractor or media-origin failures.
	KindBadGateway
	// KindInternal marks local failures such as a missing binary.
	KindInternal
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindNotFound:
		return "NOT_FOUND"
	case KindBadGateway:
		return "BAD_GATEWAY"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a typed error carrying the kind and a short user-visible message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err to w as a short plain-text body with the mapped status.
func Respond(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	msg := http.StatusText(Status(kind))
	var e *Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	http.Error(w, msg, Status(kind))
}
