package sim

import (
	"errors"
	"sync/atomic"

	"ppmtx/config"
	"ppmtx/core"
)

// StickMax is full deflection of a simulated stick, in per mille
const StickMax = 1000

var (
	ErrNoSuchChannel = errors.New("sim: no such ADC channel")
	ErrNoSuchPin     = errors.New("sim: no such GPIO pin")
)

// Sticks is a simulated ADC. Each axis is a stick position that the
// keyboard moves and a spring pulls back to center; readings follow the
// radio's calibration so full deflection gives full scale.
type Sticks struct {
	raw   [core.MaxAnalogInputs]uint32 // atomic, single readings by ADC channel
	cal   [config.NumAxes]config.CalibrationPoint
	chans [config.NumAxes]uint8
	pos   [config.NumAxes]int32
}

// NewSticks creates centered sticks for radio
func NewSticks(radio *config.Radio) *Sticks {
	s := &Sticks{cal: radio.Calibration, chans: radio.ADCChannels}
	for axis := config.Axis(0); axis < config.NumAxes; axis++ {
		s.Set(axis, 0)
	}
	return s
}

func (s *Sticks) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= len(s.raw) {
		return ErrNoSuchChannel
	}
	return nil
}

func (s *Sticks) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if int(ch) >= len(s.raw) {
		return 0, ErrNoSuchChannel
	}
	return core.ADCValue(atomic.LoadUint32(&s.raw[ch])), nil
}

// Set moves axis to pos per mille, clamped to +-StickMax
func (s *Sticks) Set(axis config.Axis, pos int32) {
	if pos > StickMax {
		pos = StickMax
	}
	if pos < -StickMax {
		pos = -StickMax
	}
	s.pos[axis] = pos

	cal := s.cal[axis]
	mid := int32(cal.Mid)
	v := mid
	if pos > 0 {
		v = mid + (int32(cal.Right)-mid)*pos/StickMax
	} else if pos < 0 {
		v = mid - (mid-int32(cal.Left))*(-pos)/StickMax
	}
	atomic.StoreUint32(&s.raw[s.chans[axis]], uint32(v/core.Oversample))
}

// Move pushes axis by delta per mille
func (s *Sticks) Move(axis config.Axis, delta int32) {
	s.Set(axis, s.pos[axis]+delta)
}

// Release lets the spring pull axis back toward center by rate per mille
func (s *Sticks) Release(axis config.Axis, rate int32) {
	pos := s.pos[axis]
	switch {
	case pos > rate:
		s.Set(axis, pos-rate)
	case pos < -rate:
		s.Set(axis, pos+rate)
	default:
		s.Set(axis, 0)
	}
}

// Position returns the stick position of axis in per mille
func (s *Sticks) Position(axis config.Axis) int32 {
	return s.pos[axis]
}
