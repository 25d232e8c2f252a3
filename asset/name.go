// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package asset implements the engine's asset manager: a concurrent
// hash index of named records, a scheme-dispatched load pipeline
// driven by two owned worker goroutines plus per-thread custom-load
// queues drained by the frame pipeline's own stages, and a
// line-oriented TCP hot-reload channel.
package asset

import "hash/fnv"

// Name is a stable hashed asset name, the key used throughout the
// index and the dependency sets. The hash is stdlib FNV-1a: the pack
// carries no dedicated hashing library, and the original engine's own
// hash is likewise an unspecified implementation detail (§6 only
// requires that a name hash to a stable integer).
type Name uint32

// Hash returns the Name a textual asset name hashes to.
func Hash(textName string) Name {
	h := fnv.New32a()
	h.Write([]byte(textName))
	return Name(h.Sum32())
}
