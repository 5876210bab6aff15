// Package wireerr maps Go errors onto the wire-level error taxonomy used by
// error response payloads (proto.ErrorPayload.Kind).
package wireerr

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Kind is one of the taxonomy values a client can branch on.
type Kind string

const (
	NotFound         Kind = "not_found"
	PermissionDenied Kind = "permission_denied"
	AlreadyExists    Kind = "already_exists"
	InvalidInput     Kind = "invalid_input"
	Unsupported      Kind = "unsupported"
	TimedOut         Kind = "timed_out"
	Interrupted      Kind = "interrupted"
	BrokenPipe       Kind = "broken_pipe"
	IO               Kind = "io"
	Decode           Kind = "decode"
	Encode           Kind = "encode"
	Auth             Kind = "auth"
	Protocol         Kind = "protocol"
	Other            Kind = "other"
)

// Error is the Go-side representation of an error response payload.
type Error struct {
	Kind        Kind
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// New builds an Error directly from a kind and message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

// FromErr classifies an arbitrary Go error into a wire Kind, preferring
// os/fs sentinel errors and falling back to Other.
func FromErr(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Kind: NotFound, Description: err.Error()}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: PermissionDenied, Description: err.Error()}
	case errors.Is(err, fs.ErrExist):
		return &Error{Kind: AlreadyExists, Description: err.Error()}
	case errors.Is(err, os.ErrDeadlineExceeded):
		return &Error{Kind: TimedOut, Description: err.Error()}
	case errors.Is(err, io.ErrClosedPipe), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{Kind: BrokenPipe, Description: err.Error()}
	default:
		return &Error{Kind: Other, Description: err.Error()}
	}
}
