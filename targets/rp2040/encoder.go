//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/encoders"

	"ppmtx/config"
	"ppmtx/mix"
)

// encoderInput turns detents of the rotary encoder into input events. The
// encoder adjusts the DIG mix when one is configured, otherwise it steps the
// first multi-position channel.
type encoderInput struct {
	dev  *encoders.QuadratureDevice
	last int
	kind mix.EventKind
	ch   uint8
	post func(mix.Event) bool
}

// newEncoderInput returns nil when the model gives the encoder nothing to do
func newEncoderInput(cfg *config.Config, post func(mix.Event) bool) *encoderInput {
	e := &encoderInput{post: post}
	switch {
	case cfg.Model.Mix.DIG.Channel != 0:
		e.kind = mix.EventDIGMix
	case len(cfg.Model.Mix.Multi) > 0:
		e.kind = mix.EventMultiPosition
		e.ch = cfg.Model.Mix.Multi[0].Channel
	default:
		return nil
	}

	e.dev = encoders.NewQuadratureViaInterrupt(
		machine.Pin(cfg.Radio.EncoderA), machine.Pin(cfg.Radio.EncoderB))
	e.dev.Configure(encoders.QuadratureConfig{Precision: 4})
	return e
}

// poll runs from the tick interrupt. Movement is only consumed once the
// event was queued.
func (e *encoderInput) poll() {
	pos := e.dev.Position()
	delta := pos - e.last
	if delta == 0 {
		return
	}
	if delta > 127 {
		delta = 127
	} else if delta < -127 {
		delta = -127
	}
	if e.post(mix.Event{Kind: e.kind, Channel: e.ch, Delta: int8(delta)}) {
		e.last += delta
	}
}
