// Copyright 2026 by Corey Pennycuff

// Package compress implements a pluggable, streaming data-compression
// library built around a from-scratch DEFLATE (RFC 1951) codec and its
// gzip (RFC 1952) framing wrapper. It exposes three interchangeable
// surfaces: one-shot buffer-to-buffer helpers, incremental push-style
// Encoder/Decoder handles, and pull/push callback-driven loops.
package compress

import "fmt"

// Status is the stable result code returned by every operation in this
// library. The zero value is OK.
type Status int

const (
	OK Status = iota
	InvalidArg
	Memory
	Limit
	Corrupt
	Unsupported
	Internal
	IO
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case InvalidArg:
		return "InvalidArg"
	case Memory:
		return "Memory"
	case Limit:
		return "Limit"
	case Corrupt:
		return "Corrupt"
	case Unsupported:
		return "Unsupported"
	case Internal:
		return "Internal"
	case IO:
		return "IO"
	default:
		return "Unknown"
	}
}

// maxDetailBytes bounds the advisory detail string captured alongside a
// Status, matching the fixed-capacity inline buffer of the original design.
const maxDetailBytes = 256

// Error pairs a Status with a short, advisory detail string. Detail is
// truncated at maxDetailBytes; it exists for diagnostics only and callers
// must not pattern-match on its contents, only on Status.
type Error struct {
	Status Status
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Detail)
}

// newError builds an *Error with a formatted, capped detail string.
func newError(status Status, format string, args ...any) *Error {
	d := fmt.Sprintf(format, args...)
	if len(d) > maxDetailBytes {
		d = d[:maxDetailBytes]
	}
	return &Error{Status: status, Detail: d}
}

// NewError is newError exported for the methods/* packages, which capture
// their own status/detail pairs but live outside this package to avoid an
// import cycle with the root registry.
func NewError(status Status, format string, args ...any) *Error {
	return newError(status, format, args...)
}

// StatusOf extracts the Status carried by err, defaulting to Internal for
// errors that did not originate in this library (so callers can always
// switch on a Status without a second type-assertion).
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Status
	}
	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
