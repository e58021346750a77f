package core

// Oversampled analog inputs.
// The clock tick takes one sample per axis; each axis keeps the last
// Oversample readings and exposes their sum (the "oversampled" value) and the
// most recent single reading (the "instantaneous" value).

import "errors"

// Oversample is how many samples make one oversampled value
const Oversample = 4

// OversampleMax is the largest oversampled value
const OversampleMax = ADCMax * Oversample

// MaxAnalogInputs bounds the number of sampled axes
const MaxAnalogInputs = 8

var ErrTooManyInputs = errors.New("adc: too many analog inputs")

// AnalogIn is one sampled axis
type AnalogIn struct {
	Channel ADCChannelID

	samples [Oversample]ADCValue
	pos     uint8
	sum     uint32
	last    ADCValue

	// InvalidCount counts failed reads; a failing input holds its last value
	InvalidCount uint32
}

// AnalogBank samples a fixed set of axes from the tick interrupt
type AnalogBank struct {
	inputs [MaxAnalogInputs]AnalogIn
	count  uint8
}

// NewAnalogBank creates an empty bank
func NewAnalogBank() *AnalogBank {
	return &AnalogBank{}
}

// Add configures ch on the ADC driver and returns the axis index
func (b *AnalogBank) Add(ch ADCChannelID) (int, error) {
	if b.count >= MaxAnalogInputs {
		return 0, ErrTooManyInputs
	}
	if err := MustADC().ConfigureChannel(ch); err != nil {
		return 0, err
	}
	idx := int(b.count)
	b.inputs[idx] = AnalogIn{Channel: ch}
	b.count++

	// Prime the oversampling window so the first frame sees a sane value
	value, err := MustADC().ReadRaw(ch)
	if err == nil {
		b.inputs[idx].fill(value)
	}
	return idx, nil
}

// Sample reads one sample for every axis. Runs in interrupt context.
func (b *AnalogBank) Sample() {
	for i := uint8(0); i < b.count; i++ {
		ain := &b.inputs[i]
		value, err := MustADC().ReadRaw(ain.Channel)
		if err != nil {
			ain.InvalidCount++
			continue
		}
		if value > ADCMax {
			value = ADCMax
		}
		ain.push(value)
	}
}

// Oversampled returns the sum of the last Oversample readings of axis idx
func (b *AnalogBank) Oversampled(idx int) uint16 {
	state := disableInterrupts()
	v := b.inputs[idx].sum
	restoreInterrupts(state)
	return uint16(v)
}

// Instant returns the latest single reading of axis idx
func (b *AnalogBank) Instant(idx int) uint16 {
	state := disableInterrupts()
	v := b.inputs[idx].last
	restoreInterrupts(state)
	return uint16(v)
}

// Count returns the number of configured axes
func (b *AnalogBank) Count() int {
	return int(b.count)
}

func (a *AnalogIn) push(v ADCValue) {
	a.sum -= uint32(a.samples[a.pos])
	a.samples[a.pos] = v
	a.sum += uint32(v)
	a.last = v
	a.pos++
	if a.pos >= Oversample {
		a.pos = 0
	}
}

func (a *AnalogIn) fill(v ADCValue) {
	for i := range a.samples {
		a.samples[i] = v
	}
	a.sum = uint32(v) * Oversample
	a.last = v
	a.pos = 0
}
