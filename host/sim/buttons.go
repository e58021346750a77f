package sim

import (
	"sync/atomic"

	"ppmtx/config"
	"ppmtx/core"
)

// Buttons is a simulated GPIO bank for the radio's push buttons. Pins idle
// high like a pulled-up input and read low while held.
type Buttons struct {
	held  [32]uint32 // atomic, by pin
	radio *config.Radio
}

// NewButtons creates released buttons for radio
func NewButtons(radio *config.Radio) *Buttons {
	return &Buttons{radio: radio}
}

func (b *Buttons) ConfigureInputPullUp(pin core.GPIOPin) error {
	if int(pin) >= len(b.held) {
		return ErrNoSuchPin
	}
	return nil
}

func (b *Buttons) GetPin(pin core.GPIOPin) (bool, error) {
	if int(pin) >= len(b.held) {
		return false, ErrNoSuchPin
	}
	return atomic.LoadUint32(&b.held[pin]) == 0, nil
}

// Hold presses or releases the button wired to the event named event.
// It reports whether such a button exists.
func (b *Buttons) Hold(event string, down bool) bool {
	for _, btn := range b.radio.Buttons {
		if btn.Event != event || int(btn.Pin) >= len(b.held) {
			continue
		}
		var v uint32
		if down {
			v = 1
		}
		atomic.StoreUint32(&b.held[btn.Pin], v)
		return true
	}
	return false
}
