// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rqueue

import (
	"fmt"
	"sync"
)

// ProvisionalGraphics caches transient graphics resources — textures,
// framebuffers, uniform buffers — keyed by a textual key typically
// derived from resolution, pixel format and count. It is shared by
// every screen-space effect builder in this package so that two
// effects asking for, say, a half-resolution single-channel target on
// the same frame get back the same texture instead of allocating
// twice.
//
// A miss invokes the caller-supplied initializer exactly once; later
// Get calls with the same key return the cached value without
// calling init again, even if init is different between calls (doing
// so is a caller bug, not something ProvisionalGraphics detects).
type ProvisionalGraphics struct {
	mu    sync.Mutex
	cache map[string]any
}

// NewProvisionalGraphics returns an empty cache.
func NewProvisionalGraphics() *ProvisionalGraphics {
	return &ProvisionalGraphics{cache: map[string]any{}}
}

// Len reports the number of distinct keys currently cached.
func (p *ProvisionalGraphics) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

// Evict drops a single cached entry, for resources that must be
// rebuilt when a render target's format or resolution changes.
func (p *ProvisionalGraphics) Evict(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, key)
}

// Clear drops every cached entry.
func (p *ProvisionalGraphics) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = map[string]any{}
}

// Get returns the resource stored under key, calling init and
// caching its result on a miss. It panics if key was already
// populated by a Get call of a different type T, since that means
// two effect builders collided on the same key for different kinds
// of resource.
func Get[T any](p *ProvisionalGraphics, key string, init func() T) T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.cache[key]; ok {
		t, ok := v.(T)
		if !ok {
			panic(fmt.Sprintf("rqueue: provisional key %q reused with a different type", key))
		}
		return t
	}
	v := init()
	p.cache[key] = v
	return v
}

// Key derives a ProvisionalGraphics key from resolution, pixel
// format and a resource count/index, the standard naming scheme the
// effect builders in this package use for their own transient
// textures.
func Key(name string, width, height, format, count int) string {
	return fmt.Sprintf("%s:%dx%d:%d:%d", name, width, height, format, count)
}
