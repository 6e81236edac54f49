// Package status defines the closed result taxonomy shared by every HN4
// component. Operations return a *status.Error wrapping one Code rather
// than a bare integer, so callers can both switch on the taxonomy and
// inspect the underlying cause.
package status

import (
	"errors"
	"fmt"
)

// Code is one member of the closed result taxonomy.
type Code int

const (
	OK Code = iota
	InfoHealed
	InfoSparse

	InvalidArgument
	Geometry
	AlignmentFail
	NoMem
	HWIO
	DataRot
	MediaToxic
	AtomicsTimeout
	ParityBroken
	ProfileMismatch
	AccessDenied
	NotFound
	Tombstone
	PhantomBlock
	GravityCollapse
	Tampered
	TimeParadox
	VersionIncompat
	IDMismatch
	BitmapCorrupt
	GenerationSkew
)

var names = map[Code]string{
	OK:              "OK",
	InfoHealed:      "INFO_HEALED",
	InfoSparse:      "INFO_SPARSE",
	InvalidArgument: "INVALID_ARGUMENT",
	Geometry:        "GEOMETRY",
	AlignmentFail:   "ALIGNMENT_FAIL",
	NoMem:           "NOMEM",
	HWIO:            "HW_IO",
	DataRot:         "DATA_ROT",
	MediaToxic:      "MEDIA_TOXIC",
	AtomicsTimeout:  "ATOMICS_TIMEOUT",
	ParityBroken:    "PARITY_BROKEN",
	ProfileMismatch: "PROFILE_MISMATCH",
	AccessDenied:    "ACCESS_DENIED",
	NotFound:        "NOT_FOUND",
	Tombstone:       "TOMBSTONE",
	PhantomBlock:    "PHANTOM_BLOCK",
	GravityCollapse: "GRAVITY_COLLAPSE",
	Tampered:        "TAMPERED",
	TimeParadox:     "TIME_PARADOX",
	VersionIncompat: "VERSION_INCOMPAT",
	IDMismatch:      "ID_MISMATCH",
	BitmapCorrupt:   "BITMAP_CORRUPT",
	GenerationSkew:  "GENERATION_SKEW",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Success reports whether c is OK or one of the INFO_* success variants.
func (c Code) Success() bool {
	return c == OK || c == InfoHealed || c == InfoSparse
}

// Critical reports whether c is one of the array-I/O critical failures that
// force the offending device OFFLINE.
func (c Code) Critical() bool {
	switch c {
	case HWIO, DataRot, MediaToxic, AtomicsTimeout:
		return true
	default:
		return false
	}
}

// Error wraps a Code with an optional underlying cause.
type Error struct {
	Code  Code
	Cause error
}

func New(c Code) *Error {
	return &Error{Code: c}
}

func Wrap(c Code, cause error) *Error {
	return &Error{Code: c, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// From extracts the Code carried by err, or OK if err is nil, or
// InvalidArgument if err is a foreign (non-status) error.
func From(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return InvalidArgument
}

// Is reports whether err carries code c.
func Is(err error, c Code) bool {
	return From(err) == c
}
