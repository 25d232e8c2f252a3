// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"io"
	"sync"
)

// status holds a Record's lifecycle bits.
type status uint8

const (
	statusProcessing status = 1 << iota
	statusReady
	statusError
	statusDepsResolved
	statusFabricated
)

// Record is one tracked asset: its identity, scheme, dependency sets,
// status bits and the opaque data a scheme loader publishes.
//
// Invariants: Ready implies not Processing; Fabricated implies the
// load pipeline never runs for this record; once references drops to
// zero and Processing is false the record is scheduled for
// destruction; Name never changes after creation; IntlName may be
// reassigned to a different record over time but always resolves
// through the Manager's alias index while any record references it.
type Record struct {
	mu sync.Mutex

	Name     Name
	IntlName Name // 0 = none
	Scheme   uint16
	Flags    uint32
	TextName string

	deps    map[Name]struct{}
	newDeps map[Name]struct{}

	refs   int32
	status status
	data   any

	// pendingBody holds the decompressed-or-original payload between
	// LOAD_FILE/DECOMPRESS and the scheme's CUSTOM_LOAD step; cleared
	// once the scheme loader has consumed it.
	pendingBody io.Reader
}

func newRecord(name Name, textName string) *Record {
	return &Record{Name: name, TextName: textName}
}

// Ready reports whether the record's data is published and usable.
func (r *Record) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&statusReady != 0
}

// Processing reports whether the record is still moving through the
// load pipeline.
func (r *Record) Processing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&statusProcessing != 0
}

// Error reports whether loading this record failed.
func (r *Record) Error() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&statusError != 0
}

// Fabricated reports whether the record bypasses the load pipeline.
func (r *Record) Fabricated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status&statusFabricated != 0
}

// References returns the current reference count.
func (r *Record) References() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// Data returns the opaque value a scheme loader published (or
// Manager.Set stored), or nil if the record is not yet Ready.
func (r *Record) Data() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// depsReadyOrError reports whether every dependency in deps is
// either Ready or Error, per the index lookup given.
func depsReadyOrError(deps map[Name]struct{}, index func(Name) (*Record, bool)) bool {
	for d := range deps {
		rec, ok := index(d)
		if !ok {
			continue // dependency already gone: treat as resolved
		}
		if !rec.Ready() && !rec.Error() {
			return false
		}
	}
	return true
}
