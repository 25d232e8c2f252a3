// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package pipeline

import (
	"fmt"
	"time"
)

// controlGameloop is the control stage's per-tick body: dispatch the
// update callback, signal the emit stages and wait for them to
// finish with the previous snapshot, run asset/emit bookkeeping, and
// pace itself to ControlTickPeriod. Any panic unwinds out of this
// function into Start's recover, which stops the engine; the deferred
// semaphore posts there unblock graphicsPrepare/sound regardless of
// how the loop exited.
func (p *Pipeline) controlGameloop() {
	tick := time.Now()
	for !p.Stopping() {
		t1 := time.Now()
		if p.Hooks.ControlUpdate != nil {
			p.Hooks.ControlUpdate()
		}
		t2 := time.Now()

		p.emitIsReady.Store(true)
		p.emitGraphicsStartSem.Wait()
		p.emitSoundStartSem.Wait()
		p.emitIsReady.Store(false)
		t3 := time.Now()

		if p.Hooks.ControlAssets != nil {
			p.Hooks.ControlAssets()
		}
		if p.Assets != nil {
			for p.Assets.ProcessControlThread() {
			}
		}
		p.emitGraphicsAssetsSem.Post()
		p.emitSoundAssetsSem.Post()

		p.emitGraphicsEndSem.Wait()
		p.emitSoundEndSem.Wait()
		t4 := time.Now()

		tickOrSkip(&tick, p.ControlTickPeriod, t4, "control")
		t5 := time.Now()

		p.TimeControlTick.Add(uint64(t2.Sub(t1)))
		p.TimeControlWait.Add(uint64(t3.Sub(t2)))
		p.TimeControlEmit.Add(uint64(t4.Sub(t3)))
		p.TimeControlSleep.Add(uint64(t5.Sub(t4)))
	}
}

// prepareGameloop is the graphicsPrepare stage's per-tick body: wait
// for graphicsDispatch to free the back snapshot, run the prepare
// callback and any scheme custom-load work bound to this stage, hand
// the result to graphicsDispatch, and — when control has signaled
// that an emit round is due — run the emit callback against the
// result and wait for control to process its assets before looping.
func (p *Pipeline) prepareGameloop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPipelineException("graphicsPrepare", r)
			p.Stop()
			err = fmt.Errorf(prefix+"graphicsPrepare gameloop: %v", r)
		}
		p.emitGraphicsStartSem.Post()
		p.emitGraphicsEndSem.Post()
		p.graphicsDispatchSem.Post()
	}()

	for !p.Stopping() {
		t1 := time.Now()
		p.graphicsPrepareSem.Wait()
		t2 := time.Now()

		if p.Hooks.Prepare != nil {
			p.Hooks.Prepare()
		}
		p.graphicsDispatchSem.Post()
		if p.Assets != nil {
			for p.Assets.ProcessCustomThread(PrepareThread) {
			}
		}
		t3 := time.Now()

		if p.emitIsReady.Load() {
			p.emitGraphicsStartSem.Post()
			if p.Hooks.PrepareEmit != nil {
				p.Hooks.PrepareEmit()
			}
			p.emitGraphicsEndSem.Post()
			p.emitGraphicsAssetsSem.Wait()
		}
		t4 := time.Now()

		p.TimePrepareWait.Add(uint64(t2.Sub(t1)))
		p.TimePrepareTick.Add(uint64(t3.Sub(t2)))
		p.TimePrepareEmit.Add(uint64(t4.Sub(t3)))
	}
	return nil
}

// dispatchGameloop is the graphicsDispatch stage's per-tick body:
// wait for graphicsPrepare to hand over a ready snapshot, render it
// (plus the GUI pass when not stereo), free graphicsPrepare to start
// the next one, run this stage's scheme custom-load work, and swap.
func (p *Pipeline) dispatchGameloop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPipelineException("graphicsDispatch", r)
			p.Stop()
			err = fmt.Errorf(prefix+"graphicsDispatch gameloop: %v", r)
		}
		p.graphicsPrepareSem.Post()
	}()

	for !p.Stopping() {
		t1 := time.Now()
		p.graphicsDispatchSem.Wait()
		t2 := time.Now()

		if p.Hooks.Render != nil {
			p.Hooks.Render()
		}
		if !p.Stereo && p.Hooks.RenderGUI != nil {
			p.Hooks.RenderGUI()
		}
		p.graphicsPrepareSem.Post()
		if p.Assets != nil {
			for p.Assets.ProcessCustomThread(DispatchThread) {
			}
		}
		t3 := time.Now()

		if p.Hooks.Swap != nil {
			p.Hooks.Swap()
		}
		t4 := time.Now()

		p.TimeDispatchWait.Add(uint64(t2.Sub(t1)))
		p.TimeDispatchTick.Add(uint64(t3.Sub(t2)))
		p.TimeDispatchSwap.Add(uint64(t4.Sub(t3)))
	}
	return nil
}

// soundGameloop is the sound stage's per-tick body: when control has
// signaled an emit round, run the emit callback and wait for control
// to process its assets; otherwise (and afterward) drain this
// stage's scheme custom-load work, run the sound callback, and pace
// itself to SoundTickPeriod.
func (p *Pipeline) soundGameloop() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPipelineException("sound", r)
			p.Stop()
			err = fmt.Errorf(prefix+"sound gameloop: %v", r)
		}
		p.emitSoundStartSem.Post()
		p.emitSoundEndSem.Post()
	}()

	tick := time.Now()
	for !p.Stopping() {
		t1 := time.Now()
		if p.emitIsReady.Load() {
			p.emitSoundStartSem.Post()
			if p.Hooks.SoundEmit != nil {
				p.Hooks.SoundEmit()
			}
			p.emitSoundEndSem.Post()
			p.emitSoundAssetsSem.Wait()
		}
		t2 := time.Now()

		if p.Assets != nil {
			for p.Assets.ProcessCustomThread(SoundThread) {
			}
		}
		if p.Hooks.Sound != nil {
			p.Hooks.Sound()
		}
		t3 := time.Now()

		tickOrSkip(&tick, p.SoundTickPeriod, t3, "sound")
		t4 := time.Now()

		p.TimeSoundEmit.Add(uint64(t2.Sub(t1)))
		p.TimeSoundTick.Add(uint64(t3.Sub(t2)))
		p.TimeSoundSleep.Add(uint64(t4.Sub(t3)))
	}
	return nil
}
