// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package audio

import (
	"sync"
	"unsafe"
)

// Source streams interleaved float32 PCM samples into buf, returning
// how many it produced. more is false once the source has no further
// samples to contribute (after this call's output is consumed), at
// which point the Mixer drops it.
type Source interface {
	Stream(buf []float32) (n int, more bool)
}

// Mixer is an io.Reader suitable for oto.Context.NewPlayer: each Read
// pulls PCM from every active Source, sums them, and clamps to
// [-1, 1]. It is the sound stage's sole bridge between the engine's
// voices and the audio backend, grounded on the same pull-then-copy
// shape as a software rasterizer's scanline buffer.
type Mixer struct {
	mu      sync.Mutex
	voices  []Source
	volume  float32
	scratch []float32
}

// NewMixer returns an empty Mixer at unity master volume.
func NewMixer() *Mixer {
	return &Mixer{volume: 1}
}

// AddVoice registers src as an active sound source. It is safe to
// call concurrently with Read.
func (m *Mixer) AddVoice(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append(m.voices, src)
}

// RemoveVoice unregisters src, if present.
func (m *Mixer) RemoveVoice(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.voices {
		if v == src {
			m.voices = append(m.voices[:i], m.voices[i+1:]...)
			return
		}
	}
}

// VoiceCount returns the number of currently active voices.
func (m *Mixer) VoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// SetMasterVolume scales every mixed sample by v.
func (m *Mixer) SetMasterVolume(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

// Read implements io.Reader, producing len(p)/4 float32LE samples:
// it mixes every active voice into a scratch buffer, drops voices
// that report they are exhausted, applies the master volume, clamps,
// and reinterprets the result as bytes. p's length need not be a
// multiple of 4; any trailing partial sample is left untouched and
// reported as not consumed.
func (m *Mixer) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}

	m.mu.Lock()
	if cap(m.scratch) < n {
		m.scratch = make([]float32, n)
	}
	out := m.scratch[:n]
	for i := range out {
		out[i] = 0
	}

	live := m.voices[:0]
	for _, v := range m.voices {
		var buf [256]float32
		remaining := n
		off := 0
		more := true
		for remaining > 0 && more {
			chunk := len(buf)
			if chunk > remaining {
				chunk = remaining
			}
			var got int
			got, more = v.Stream(buf[:chunk])
			for i := 0; i < got; i++ {
				out[off+i] += buf[i]
			}
			off += got
			remaining -= got
			if got == 0 {
				break
			}
		}
		if more {
			live = append(live, v)
		}
	}
	m.voices = live
	vol := m.volume
	m.mu.Unlock()

	for i, s := range out {
		s *= vol
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = s
	}

	nbytes := n * 4
	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&out[0]))[:nbytes])
	return nbytes, nil
}
