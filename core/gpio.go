// Push buttons on GPIO inputs, debounced from the tick
package core

import "errors"

const (
	// MaxButtons is the number of buttons a bank can hold
	MaxButtons = 8

	// DebounceTicks is how many consecutive ticks a new level must hold
	// before the button changes state
	DebounceTicks = 5
)

var ErrTooManyButtons = errors.New("gpio: too many buttons")

// button is one active-low input with a pull-up
type button struct {
	pin     GPIOPin
	pressed bool
	count   uint8 // ticks the pin has disagreed with pressed
}

// ButtonBank polls push buttons on every tick and reports debounced presses.
// Poll and the press callback run in interrupt context.
type ButtonBank struct {
	gpio    GPIODriver
	buttons [MaxButtons]button
	n       int
	onPress func(idx int)
	errors  uint32
}

// NewButtonBank creates an empty bank. onPress receives the index Add
// returned for the button that went down.
func NewButtonBank(gpio GPIODriver, onPress func(idx int)) *ButtonBank {
	return &ButtonBank{gpio: gpio, onPress: onPress}
}

// Add configures pin as a button input and returns its index
func (b *ButtonBank) Add(pin GPIOPin) (int, error) {
	if b.n == MaxButtons {
		return 0, ErrTooManyButtons
	}
	if err := b.gpio.ConfigureInputPullUp(pin); err != nil {
		return 0, err
	}
	b.buttons[b.n] = button{pin: pin}
	b.n++
	return b.n - 1, nil
}

// Len returns the number of buttons
func (b *ButtonBank) Len() int {
	return b.n
}

// Sample polls every button once. A level must hold for DebounceTicks
// consecutive polls before the state flips; a flip to pressed calls onPress.
func (b *ButtonBank) Sample() {
	for i := 0; i < b.n; i++ {
		btn := &b.buttons[i]
		level, err := b.gpio.GetPin(btn.pin)
		if err != nil {
			b.errors++
			continue
		}

		down := !level
		if down == btn.pressed {
			btn.count = 0
			continue
		}
		btn.count++
		if btn.count < DebounceTicks {
			continue
		}
		btn.pressed = down
		btn.count = 0
		if down && b.onPress != nil {
			b.onPress(i)
		}
	}
}

// Pressed returns the debounced state of button idx
func (b *ButtonBank) Pressed(idx int) bool {
	state := disableInterrupts()
	p := b.buttons[idx].pressed
	restoreInterrupts(state)
	return p
}

// Errors returns how many pin reads failed
func (b *ButtonBank) Errors() uint32 {
	state := disableInterrupts()
	n := b.errors
	restoreInterrupts(state)
	return n
}
