// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrMalformedCatalog  = errors.New("malformed command catalog")
	ErrIndexOutOfRange   = errors.New("command index out of range")
	ErrCommandNotFound   = errors.New("command not found")
	ErrOutOfRange        = errors.New("value out of range")
	ErrNoAddressSelected = errors.New("no address selected")
	ErrTransportFailure  = errors.New("transport failure")
)

// MalformedError describes why a catalog source could not be loaded
type MalformedError struct {
	Index  int // record index, -1 when the whole source is unreadable
	Field  string
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := "malformed command catalog"
	if e.Index >= 0 {
		msg += fmt.Sprintf(": record %d", e.Index)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedCatalog
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedCatalog
}

// OutOfRangeError reports a missing or out-of-bounds address or extra value
type OutOfRangeError struct {
	Field   string // "address" or "value"
	Value   int
	Min     int
	Max     int
	Missing bool
}

func (e *OutOfRangeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s required: must be between %d and %d", e.Field, e.Min, e.Max)
	}
	return fmt.Sprintf("%s %d out of range: must be between %d and %d", e.Field, e.Value, e.Min, e.Max)
}

// Is matches ErrOutOfRange
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// TransportError wraps a write failure during a fire. Frames before Seq were sent.
type TransportError struct {
	Target string
	Seq    int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to write frame %d to %s: %v", e.Seq, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransportFailure
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailure
}
