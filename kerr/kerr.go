// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package kerr defines the error-kind taxonomy shared by every
// package in this module: a fixed set of sentinel errors, one per
// Kind, meant for errors.Is/errors.As dispatch at a call site, not
// for switching on by value deep in a callee. Each package still
// defines its own package-prefixed wrapping (collider.ErrInvalidState,
// asset.ErrInvalidState, ...); those sentinels are the same error
// values as the ones here, so a caller can match against either the
// package-local name or the shared Kind.
package kerr

import "errors"

// Kind classifies why an operation failed.
type Kind int

const (
	IoError        Kind = iota // file missing/truncated/permission
	FormatError                // bad magic, version mismatch, bounds
	InvalidState               // query before rebuild, double-free, reload of unknown asset
	OutOfMemory                // allocator policy signaled explicitly
	SystemError                // wrapped OS-level failure
	NotImplemented             // explicit sentinel for stub schemes/paths
	ProcessPipeEof             // child process pipe closed
	NotEnoughData              // deserializer underflow
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "IoError"
	case FormatError:
		return "FormatError"
	case InvalidState:
		return "InvalidState"
	case OutOfMemory:
		return "OutOfMemory"
	case SystemError:
		return "SystemError"
	case NotImplemented:
		return "NotImplemented"
	case ProcessPipeEof:
		return "ProcessPipeEof"
	case NotEnoughData:
		return "NotEnoughData"
	default:
		return "Kind(?)"
	}
}

// One sentinel per Kind, for errors.Is against a bare Kind failure
// with no further context to wrap.
var (
	ErrIoError        = errors.New("io error")
	ErrFormatError    = errors.New("format error")
	ErrInvalidState   = errors.New("invalid state")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrSystemError    = errors.New("system error")
	ErrNotImplemented = errors.New("not implemented")
	ErrProcessPipeEof = errors.New("process pipe eof")
	ErrNotEnoughData  = errors.New("not enough data")
)

var sentinels = [...]error{
	IoError:        ErrIoError,
	FormatError:    ErrFormatError,
	InvalidState:   ErrInvalidState,
	OutOfMemory:    ErrOutOfMemory,
	SystemError:    ErrSystemError,
	NotImplemented: ErrNotImplemented,
	ProcessPipeEof: ErrProcessPipeEof,
	NotEnoughData:  ErrNotEnoughData,
}

// Sentinel returns the shared error value for k, for a package that
// wants to re-export it under a package-prefixed name (e.g.
// `var ErrInvalidState = kerr.Sentinel(kerr.InvalidState)`).
func Sentinel(k Kind) error { return sentinels[k] }

// Wrap attaches k's sentinel to err, so errors.Is(result, sentinel)
// succeeds while errors.Unwrap still reaches err itself.
func Wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{k: k, err: err}
}

type wrapped struct {
	k   Kind
	err error
}

func (w *wrapped) Error() string { return w.k.String() + ": " + w.err.Error() }
func (w *wrapped) Unwrap() []error { return []error{sentinels[w.k], w.err} }
