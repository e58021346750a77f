//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo sets up USB CDC-ACM on RP2040; machine.Serial is the CDC port
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// usbPort adapts machine.Serial to tx.Port
type usbPort struct{}

// Buffered returns the number of bytes available to read from USB
func (usbPort) Buffered() int {
	return machine.Serial.Buffered()
}

// Read drains up to len(b) buffered bytes without blocking
func (usbPort) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) && machine.Serial.Buffered() > 0 {
		c, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (usbPort) Write(b []byte) (int, error) {
	return machine.Serial.Write(b)
}
