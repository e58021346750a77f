package config

import (
	"errors"
	"fmt"

	"ppmtx/core"
)

// Validation errors. Validate wraps them with the offending field.
var (
	ErrChannelCount   = errors.New("config: channel count out of range")
	ErrFrameTooShort  = errors.New("config: frame too short for channel count")
	ErrFrameTooLong   = errors.New("config: frame too long for sync timebase")
	ErrCalibration    = errors.New("config: calibration points out of order")
	ErrPercent        = errors.New("config: percentage out of range")
	ErrMixChannel     = errors.New("config: mix channel out of range")
	ErrMixConflict    = errors.New("config: channel claimed by two mixes")
	ErrMultiPositions = errors.New("config: bad multi-position list")
	ErrButtons        = errors.New("config: bad button list")
)

// MaxFrameUS is the longest frame whose sync pulse still fits the coarse
// 16-bit timebase
const MaxFrameUS = 32000

// Validate checks every precondition the real-time path relies on.
// A configuration that passes can never produce a negative sync pulse or a
// division by zero.
func (c *Config) Validate() error {
	if err := c.Radio.validate(); err != nil {
		return err
	}
	return c.Model.validate()
}

func (r *Radio) validate() error {
	for i, cal := range r.Calibration {
		if cal.Left > cal.Mid || cal.Mid > cal.Right {
			return fmt.Errorf("%s: %w", Axis(i), ErrCalibration)
		}
		if cal.Mid-cal.Left <= cal.Dead || cal.Right-cal.Mid <= cal.Dead {
			return fmt.Errorf("%s: span inside dead zone: %w", Axis(i), ErrCalibration)
		}
		if cal.Right > core.OversampleMax {
			return fmt.Errorf("%s: right %d above %d: %w", Axis(i), cal.Right, core.OversampleMax, ErrCalibration)
		}
	}

	if len(r.Buttons) > core.MaxButtons {
		return fmt.Errorf("%d buttons: %w", len(r.Buttons), ErrButtons)
	}
	for i, b := range r.Buttons {
		if b.Event == "" {
			return fmt.Errorf("button %d: no event: %w", i, ErrButtons)
		}
		if b.Pin == r.PPMPin || b.Pin == r.EncoderA || b.Pin == r.EncoderB {
			return fmt.Errorf("button %d: pin %d in use: %w", i, b.Pin, ErrButtons)
		}
		for _, other := range r.Buttons[:i] {
			if other.Pin == b.Pin {
				return fmt.Errorf("button %d: pin %d used twice: %w", i, b.Pin, ErrButtons)
			}
		}
	}
	return nil
}

func (m *Model) validate() error {
	if m.Channels < 1 || m.Channels > MaxChannels {
		return fmt.Errorf("channels %d: %w", m.Channels, ErrChannelCount)
	}
	if m.FrameUS > MaxFrameUS {
		return fmt.Errorf("frame %dus: %w", m.FrameUS, ErrFrameTooLong)
	}
	need := uint32(m.Channels)*core.MaxPulseUS + core.MinSyncUS
	if need > m.FrameUS {
		return fmt.Errorf("frame %dus, need %dus: %w", m.FrameUS, need, ErrFrameTooShort)
	}
	return m.Mix.validate(int(m.Channels))
}

func (mc *MixConfig) validate(channels int) error {
	if mc.EndpointMax > EndpointMaxLimit {
		return fmt.Errorf("endpoint_max %d: %w", mc.EndpointMax, ErrPercent)
	}
	for ch := 0; ch < channels; ch++ {
		for side, ep := range mc.Endpoint[ch] {
			if ep > mc.EndpointMax {
				return fmt.Errorf("endpoint ch%d side %d = %d: %w", ch+1, side, ep, ErrPercent)
			}
		}
		if abs8(mc.Subtrim[ch]) > TrimLimit {
			return fmt.Errorf("subtrim ch%d: %w", ch+1, ErrPercent)
		}
		if mc.Speed[ch] < 1 || mc.Speed[ch] > PercentLimit {
			return fmt.Errorf("speed ch%d = %d: %w", ch+1, mc.Speed[ch], ErrPercent)
		}
		if abs8(mc.Values[ch]) > PercentLimit {
			return fmt.Errorf("value ch%d: %w", ch+1, ErrPercent)
		}
	}
	for i, t := range mc.Trim {
		if abs8(t) > TrimLimit {
			return fmt.Errorf("trim %s: %w", Axis(i), ErrPercent)
		}
	}
	for i := range mc.DualRate {
		if mc.DualRate[i] > PercentLimit {
			return fmt.Errorf("dual_rate %d: %w", i, ErrPercent)
		}
		if abs8(mc.Expo[i]) > ExpoLimit {
			return fmt.Errorf("expo %d: %w", i, ErrPercent)
		}
	}
	if mc.SteerReturn < 1 || mc.SteerReturn > PercentLimit {
		return fmt.Errorf("steer_return %d: %w", mc.SteerReturn, ErrPercent)
	}
	if mc.ABS > ABSFast {
		return fmt.Errorf("abs mode %d: %w", mc.ABS, ErrPercent)
	}
	if abs8(mc.FourWS.Mix) > PercentLimit || abs8(mc.DIG.Mix) > PercentLimit {
		return fmt.Errorf("mix percentage: %w", ErrPercent)
	}

	// Channels 1 and 2 are steering and throttle; mixes claim 3..N
	var claimed [MaxChannels + 1]string
	claim := func(name string, ch uint8) error {
		if ch == 0 {
			return nil
		}
		if ch < 3 || int(ch) > channels {
			return fmt.Errorf("%s channel %d: %w", name, ch, ErrMixChannel)
		}
		if claimed[ch] != "" {
			return fmt.Errorf("channel %d by %s and %s: %w", ch, claimed[ch], name, ErrMixConflict)
		}
		claimed[ch] = name
		return nil
	}
	if err := claim("4ws", mc.FourWS.Channel); err != nil {
		return err
	}
	if err := claim("dig", mc.DIG.Channel); err != nil {
		return err
	}
	if err := claim("brake", mc.Brake.Channel); err != nil {
		return err
	}
	for _, mp := range mc.Multi {
		if err := claim("multi_position", mp.Channel); err != nil {
			return err
		}
		if mp.Channel == 0 {
			continue
		}
		if len(mp.Positions) == 0 || len(mp.Positions) > MaxPositions {
			return fmt.Errorf("channel %d: %d positions: %w", mp.Channel, len(mp.Positions), ErrMultiPositions)
		}
		for _, p := range mp.Positions {
			if abs8(p) > PercentLimit {
				return fmt.Errorf("channel %d position %d: %w", mp.Channel, p, ErrPercent)
			}
		}
	}
	return nil
}

func abs8(v int8) int {
	if v < 0 {
		return -int(v)
	}
	return int(v)
}
