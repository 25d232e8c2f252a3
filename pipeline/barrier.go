// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package pipeline

import "sync"

// Barrier is a cyclic rendezvous point for a fixed number of
// participants: Wait blocks until every one of them has called it,
// then all are released together and the barrier immediately resets
// for its next round. It is the Go stand-in for the original
// engine's arity-4 threadsStateBarier, reused across the lifecycle's
// three synchronization rounds (engine-init, application-init,
// gameloop-exit).
type Barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	arity int
	count int
	gen   int
}

// NewBarrier returns a Barrier that releases once arity goroutines
// have called Wait.
func NewBarrier(arity int) *Barrier {
	b := &Barrier{arity: arity}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the caller until arity goroutines (across the
// barrier's lifetime, this call included) have called Wait in the
// current round.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.arity {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
