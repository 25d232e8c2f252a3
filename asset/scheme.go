// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"fmt"
	"io"
	"reflect"

	"github.com/kestrel3d/kestrel/kerr"
)

// Reserved scheme indices, by subsystem, matching the ABI between an
// offline authoring tool and this engine (§6).
const (
	SchemeRaw      uint16 = iota // opaque bytes
	SchemePack                   // opaque container
	SchemeTextPack               // localization strings
	SchemeCollider

	SchemeShader
	SchemeTexture
	SchemeModel
	SchemeSkeleton
	SchemeAnimation
	SchemeObject
	SchemeFont

	SchemeSound
)

// ErrInvalidState reports a precondition violation in the asset
// manager: an unknown scheme, a double-remove, a scheme/type mismatch
// at Get, or a reload of an unknown asset. It is package kerr's
// InvalidState sentinel, so callers may match against either name.
var ErrInvalidState = kerr.Sentinel(kerr.InvalidState)

// Scheme describes one decoder identity: which pipeline thread drains
// its custom-load/custom-done work, how to turn a decompressed body
// into a published value, and (optionally) the Go type Get callers
// must agree on.
type Scheme struct {
	Index       uint16
	ThreadIndex int

	// Load decodes body (already decompressed, with the header and
	// dependency-name table already consumed) into the value Get will
	// later return. It runs on the worker goroutine draining
	// ThreadIndex's custom-load queue.
	Load func(rec *Record, body io.Reader) (data any, err error)

	// Done releases whatever Load published, run when a non-fabricated
	// record is being destroyed. May be nil.
	Done func(data any)

	// DataType, if set, is the Go type Get[T] enforces for this
	// scheme: a Get call whose T does not match is rejected with
	// ErrInvalidState rather than returning a wrongly-typed zero
	// value. Left nil, Get performs no extra check beyond the type
	// assertion a caller's own cast would do anyway.
	DataType reflect.Type
}

func (m *Manager) RegisterScheme(s Scheme) error {
	if s.Load == nil && s.DataType == nil && s.Done == nil {
		return fmt.Errorf("%w: scheme %d has none of Load, Done or DataType", ErrInvalidState, s.Index)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemes[s.Index] = s
	return nil
}

// Get returns the value a scheme loader published for name, type-
// asserted to T. It reports ErrInvalidState if the record's scheme
// declared a DataType that does not match T — resolving the open
// question of when a scheme/type mismatch surfaces: at first Get,
// not at registration, since registration has no way to know every
// consumer type a scheme will ever be read as.
func Get[T any](m *Manager, name Name) (T, error) {
	var zero T
	rec, ok := m.lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: unknown asset", ErrInvalidState)
	}
	m.mu.Lock()
	sch, ok := m.schemes[rec.Scheme]
	m.mu.Unlock()
	if ok && sch.DataType != nil {
		want := reflect.TypeOf((*T)(nil)).Elem()
		if want != sch.DataType {
			return zero, fmt.Errorf("%w: scheme %d publishes %s, not %s", ErrInvalidState, rec.Scheme, sch.DataType, want)
		}
	}
	v, _ := rec.Data().(T)
	return v, nil
}
