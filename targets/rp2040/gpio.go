//go:build rp2040

package main

import (
	"errors"
	"machine"

	"ppmtx/core"
)

// RP2040 has GPIO0-GPIO29
const numGPIO = 30

var errGPIOPin = errors.New("invalid GPIO pin")

// RPGPIODriver implements core.GPIODriver for the button inputs. GetPin runs
// from the tick interrupt, so configured pins live in a fixed array.
type RPGPIODriver struct {
	configured uint32 // bit per pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	if pin >= numGPIO {
		return errGPIOPin
	}
	if d.configured&(1<<pin) != 0 {
		return nil
	}
	// GPIO numbers map directly to machine.Pin on RP2040
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	d.configured |= 1 << pin
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	if pin >= numGPIO || d.configured&(1<<pin) == 0 {
		return false, errGPIOPin
	}
	return machine.Pin(pin).Get(), nil
}
