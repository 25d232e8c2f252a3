// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package pipeline

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// sem is a binary semaphore (capacity 1), the Go stand-in for the
// original engine's semaphoreClass(initial, 1) used to hand off
// control between the control, graphicsPrepare and sound stages each
// tick. It is built on golang.org/x/sync/semaphore rather than a
// hand-rolled channel, matching the eight-semaphore table in §4.4.
// Post never blocks: posting a semaphore that is already signaled
// leaves it signaled once, so the extra posts that stages make on
// their way out during shutdown are harmless.
type sem struct {
	w *semaphore.Weighted
}

func newSem(initial int) sem {
	w := semaphore.NewWeighted(1)
	if initial == 0 {
		w.Acquire(context.Background(), 1)
	}
	return sem{w: w}
}

func (s sem) Post() {
	s.w.TryAcquire(1)
	s.w.Release(1)
}

func (s sem) Wait() { s.w.Acquire(context.Background(), 1) }
