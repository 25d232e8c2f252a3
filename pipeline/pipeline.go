// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package pipeline implements the engine's frame pipeline: four
// cooperating stages (control, graphicsPrepare, graphicsDispatch and
// sound) synchronized by one rendezvous barrier and a handful of
// binary semaphores, exactly as the original engine's gameloop did.
// control runs on the caller's own goroutine; the other three are
// spawned and joined by the Pipeline itself.
package pipeline

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const prefix = "pipeline: "

// Thread indices that asset schemes register against, matching the
// stage whose gameloop is responsible for draining that scheme's
// custom-load work.
const (
	ControlThread = iota
	PrepareThread
	DispatchThread
	SoundThread
)

// AssetDrainer lets the pipeline drive an asset manager's per-stage
// work queues without importing the concrete asset package.
type AssetDrainer interface {
	// ProcessControlThread performs one unit of control-thread asset
	// work and reports whether there was any to do.
	ProcessControlThread() bool
	// ProcessCustomThread performs one unit of custom-load work for
	// the scheme bound to threadIndex and reports whether there was
	// any to do.
	ProcessCustomThread(threadIndex int) bool
	// CountTotal reports how many assets are still tracked, used by
	// Finalize to know when it is safe to tear down.
	CountTotal() int
}

// Hooks bundles every application callback a gameloop dispatches. A
// nil hook is simply skipped.
type Hooks struct {
	ControlInitialize func()
	ControlUpdate     func()
	ControlAssets     func()
	ControlFinalize   func()

	PrepareInitialize func()
	Prepare           func()
	PrepareEmit       func()
	PrepareFinalize   func()

	DispatchInitialize func()
	Render             func()
	RenderGUI          func() // skipped when Stereo is true
	Swap               func()
	DispatchFinalize   func()

	SoundInitialize func()
	Sound           func()
	SoundEmit       func()
	SoundFinalize   func()
}

// Pipeline drives the four-stage frame loop described above.
type Pipeline struct {
	Hooks  Hooks
	Assets AssetDrainer
	Stereo bool

	ControlTickPeriod time.Duration
	SoundTickPeriod   time.Duration

	barrier *Barrier
	// group supervises the three worker stage goroutines
	// (graphicsPrepare, graphicsDispatch, sound) with
	// golang.org/x/sync/errgroup: the first non-nil error any of
	// them returns is what Finalize's Wait surfaces.
	group errgroup.Group

	graphicsPrepareSem  sem
	graphicsDispatchSem sem

	emitGraphicsStartSem  sem
	emitGraphicsAssetsSem sem
	emitGraphicsEndSem    sem

	emitSoundStartSem  sem
	emitSoundAssetsSem sem
	emitSoundEndSem    sem

	stopping    atomic.Bool
	emitIsReady atomic.Bool

	TimeControlTick  TimingBuffer
	TimeControlWait  TimingBuffer
	TimeControlEmit  TimingBuffer
	TimeControlSleep TimingBuffer

	TimePrepareWait TimingBuffer
	TimePrepareTick TimingBuffer
	TimePrepareEmit TimingBuffer

	TimeDispatchWait TimingBuffer
	TimeDispatchTick TimingBuffer
	TimeDispatchSwap TimingBuffer

	TimeSoundEmit  TimingBuffer
	TimeSoundTick  TimingBuffer
	TimeSoundSleep TimingBuffer
}

// New creates a Pipeline. Tick periods default to 60Hz; set
// ControlTickPeriod/SoundTickPeriod before Start to change them.
func New(hooks Hooks) *Pipeline {
	return &Pipeline{
		Hooks:   hooks,
		barrier: NewBarrier(4),

		graphicsPrepareSem:  newSem(1),
		graphicsDispatchSem: newSem(0),

		emitGraphicsStartSem:  newSem(0),
		emitGraphicsAssetsSem: newSem(0),
		emitGraphicsEndSem:    newSem(0),

		emitSoundStartSem:  newSem(0),
		emitSoundAssetsSem: newSem(0),
		emitSoundEndSem:    newSem(0),

		ControlTickPeriod: time.Second / 60,
		SoundTickPeriod:   time.Second / 60,
	}
}

// Stopping reports whether Stop has been called.
func (p *Pipeline) Stopping() bool { return p.stopping.Load() }

// Stop requests every gameloop to exit at its next opportunity. It
// is idempotent and safe to call from any goroutine, including from
// within a gameloop or hook itself.
func (p *Pipeline) Stop() { p.stopping.Store(true) }

// Initialize spawns the graphicsPrepare, graphicsDispatch and sound
// stages. Each begins running its own engine-init stage immediately,
// then blocks at the first barrier round waiting for Start to catch
// up.
func (p *Pipeline) Initialize() {
	log.Printf(prefix + "initializing engine")
	p.group.Go(func() error {
		return p.runWorker("graphicsPrepare", p.Hooks.PrepareInitialize, p.prepareGameloop, p.Hooks.PrepareFinalize)
	})
	p.group.Go(func() error {
		return p.runWorker("graphicsDispatch", p.Hooks.DispatchInitialize, p.dispatchGameloop, p.Hooks.DispatchFinalize)
	})
	p.group.Go(func() error {
		return p.runWorker("sound", p.Hooks.SoundInitialize, p.soundGameloop, p.Hooks.SoundFinalize)
	})
	log.Printf(prefix + "engine initialized")
}

// Start runs the control stage on the caller's goroutine: it signals
// the rendezvous barrier twice (once for engine-init completion,
// once for application-init completion), enters the control
// gameloop, and returns once Stop causes every stage's gameloop to
// exit and its application-finalize callback to run. Workers may
// still be draining assets in their own finalize stage when Start
// returns; call Finalize to wait for that, tear down fully, and
// collect any worker-stage error via errgroup. A panic in the
// control gameloop itself is returned directly from Start, since
// control never passes through the worker errgroup.
func (p *Pipeline) Start() error {
	log.Printf(prefix + "starting engine")

	p.runHook("control initialization (application)", p.Hooks.ControlInitialize)
	p.barrier.Wait() // round 1: engine-init completion
	p.barrier.Wait() // round 2: application-init completion

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf(prefix+"exception caught in gameloop in control: %v", r)
				p.Stop()
				err = fmt.Errorf(prefix+"control gameloop: %v", r)
			}
			p.emitGraphicsAssetsSem.Post()
			p.emitSoundAssetsSem.Post()
		}()
		p.controlGameloop()
		return nil
	}()

	p.barrier.Wait() // round 3: gameloop exit
	p.runHook("control finalization (application)", p.Hooks.ControlFinalize)

	log.Printf(prefix + "engine stopped")
	return err
}

// Finalize drains any asset still tracked by Assets, waits for the
// three worker stages to finish their own finalize work, and
// returns the first error any of them reported (via the errgroup in
// Initialize), or nil if all three exited cleanly. It must run after
// Start has returned.
func (p *Pipeline) Finalize() error {
	log.Printf(prefix + "finalizing engine")
	if p.Assets != nil {
		for p.Assets.CountTotal() > 0 {
			if !p.Assets.ProcessCustomThread(ControlThread) {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}
	err := p.group.Wait()
	log.Printf(prefix + "engine finalized")
	return err
}

// runWorker executes one of the three non-control stages' full
// lifecycle: its own init hook, the two engine/application-init
// barrier rounds, the gameloop (with the same exception discipline
// as control), the gameloop-exit barrier round, and its finalize
// hook. Its return value is what the errgroup in Initialize collects.
func (p *Pipeline) runWorker(name string, init func(), gameloop func() error, finalize func()) error {
	p.runHook(name+" initialization (application)", init)
	p.barrier.Wait() // round 1
	p.barrier.Wait() // round 2

	err := gameloop()

	p.barrier.Wait() // round 3
	p.runHook(name+" finalization (application)", finalize)
	return err
}

// logPipelineException logs a panic recovered from a stage's
// gameloop, in the same form as runHook's log line.
func logPipelineException(stage string, r any) {
	log.Printf(prefix+"exception caught in gameloop in %s: %v", stage, r)
}

// runHook calls fn, if set, recovering and logging any panic as the
// original engine's per-stage try/catch blocks did, and stopping the
// engine so no other stage waits forever on this one.
func (p *Pipeline) runHook(logName string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf(prefix+"exception caught in %s: %v", logName, r)
			p.Stop()
		}
	}()
	fn()
}

// tickOrSkip advances *cursor by one period, sleeping out the
// remainder of the current tick if ahead of schedule, or skipping
// forward (and logging it) if more than two periods behind.
func tickOrSkip(cursor *time.Time, period time.Duration, now time.Time, name string) {
	delay := now.Sub(*cursor)
	if delay < 0 {
		delay = 0
	}
	if delay > 2*period {
		skip := int64(delay/period) + 1
		log.Printf(prefix+"skipping %d %s ticks", skip, name)
		*cursor = cursor.Add(time.Duration(skip) * period)
		return
	}
	if delay < period {
		time.Sleep(period - delay)
	}
	*cursor = cursor.Add(period)
}
