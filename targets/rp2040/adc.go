//go:build rp2040

package main

import (
	"errors"
	"machine"

	"ppmtx/core"
)

var errADCChannel = errors.New("unsupported ADC channel")

// RpAdcDriver implements core.ADCDriver on the RP2040 ADC. Channels 0-3 are
// GPIO26-29. Reads happen from the tick interrupt, so nothing here blocks on
// a lock.
type RpAdcDriver struct {
	channels [4]*machine.ADC
}

// NewRPAdcDriver initializes the ADC block
func NewRPAdcDriver() *RpAdcDriver {
	machine.InitADC()
	return &RpAdcDriver{}
}

// ConfigureChannel sets up the pin of one external channel
func (d *RpAdcDriver) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= len(d.channels) {
		return errADCChannel
	}
	if d.channels[ch] != nil {
		return nil
	}

	adc := &machine.ADC{Pin: adcPin(ch)}
	if err := adc.Configure(machine.ADCConfig{}); err != nil {
		return err
	}
	d.channels[ch] = adc
	return nil
}

// ReadRaw returns a 12-bit sample (0-4095)
func (d *RpAdcDriver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if int(ch) >= len(d.channels) || d.channels[ch] == nil {
		return 0, errADCChannel
	}
	// machine.ADC scales results to 16 bits
	return core.ADCValue(d.channels[ch].Get() >> 4), nil
}

func adcPin(ch core.ADCChannelID) machine.Pin {
	switch ch {
	case 1:
		return machine.ADC1
	case 2:
		return machine.ADC2
	case 3:
		return machine.ADC3
	}
	return machine.ADC0
}
