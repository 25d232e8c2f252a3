// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package audio implements the sound stage's PCM output: a Mixer
// that sums active Sources into a single stream, and a Device that
// opens the host audio backend and drives that stream continuously.
// It follows the same oto/v3 wiring as a software synthesizer's
// output stage — a context opened once at the configured sample
// rate, one long-lived player reading from an io.Reader that never
// itself blocks on hardware.
package audio

import (
	"time"

	"github.com/ebitengine/oto/v3"
)

// Device owns the platform audio backend and the single player that
// continuously streams a Mixer's output to it.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
	mixer  *Mixer
}

// NewDevice opens the audio backend at sampleRate/channels and
// returns a Device ready to Start. Opening blocks until the backend
// reports it is ready, per oto's NewContext contract.
func NewDevice(sampleRate, channels int) (*Device, error) {
	mixer := NewMixer()
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(mixer)
	return &Device{ctx: ctx, player: player, mixer: mixer}, nil
}

// Mixer returns the device's Mixer, for the sound stage to register
// and remove voices against.
func (d *Device) Mixer() *Mixer { return d.mixer }

// Start begins playback.
func (d *Device) Start() { d.player.Play() }

// Stop pauses playback; the mixer keeps its registered voices, so a
// later Start resumes where they left off.
func (d *Device) Stop() {
	if d.player.IsPlaying() {
		d.player.Pause()
	}
}

// Close releases the player. The Device must not be used after
// Close.
func (d *Device) Close() error {
	return d.player.Close()
}
