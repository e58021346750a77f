package mix

// Mixing engine.
// Once per frame: read the sticks, shape steering and throttle, derive the
// mixed and generic channels, then push endpoint/trim/reverse-adjusted
// values into the generator's staging frame and close it with CalcSync.

import (
	"sync/atomic"

	"ppmtx/config"
	"ppmtx/core"
)

// MaxChannels is the largest number of output channels
const MaxChannels = config.MaxChannels

// Input supplies oversampled stick readings, indexed by config.Axis
type Input interface {
	Oversampled(idx int) uint16
}

// Output receives one frame of channel values
type Output interface {
	StagingFree() bool
	Channels() int
	SetChannelCount(n int)
	SetChannel(ch int, value int16)
	CalcSync()
	FrameUS() uint32
}

// Engine computes channel values. It is not safe for concurrent use; Calc,
// Override and HandleEvent must all run in task context.
type Engine struct {
	cfg *config.Config
	in  Input
	out Output

	// Per-channel state carried between frames
	last    [MaxChannels]int16 // speed-limited value before endpoints
	outputs [MaxChannels]int16 // last values written to the generator
	multi   [MaxChannels]uint8 // multi-position index
	abs     ABS

	crab     bool
	brakeCut bool
	digMix   int8
	fourMix  int8

	override     [MaxChannels]int16
	overrideMask uint8

	frames  uint32
	skipped uint32 // atomic
}

// NewEngine creates an engine reading cfg, which must have passed Validate
func NewEngine(cfg *config.Config, in Input, out Output) *Engine {
	e := &Engine{cfg: cfg, in: in, out: out}
	e.Reset()
	return e
}

// Reset reloads runtime state from the configuration (model change)
func (e *Engine) Reset() {
	mc := &e.cfg.Model.Mix
	e.last = [MaxChannels]int16{}
	e.outputs = [MaxChannels]int16{}
	e.multi = [MaxChannels]uint8{}
	e.abs.Reset()
	e.crab = mc.FourWS.Crab
	e.brakeCut = mc.DIG.BrakeCut
	e.digMix = mc.DIG.Mix
	e.fourMix = mc.FourWS.Mix
	e.overrideMask = 0
}

// Config returns the configuration the engine reads
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Override forces channel ch (1-based) to value for the next computed frame
// only. The value is in -5000..5000 and still passes endpoint/trim/reverse.
func (e *Engine) Override(ch int, value int16) {
	if ch < 1 || ch > MaxChannels {
		return
	}
	e.override[ch-1] = value
	e.overrideMask |= 1 << uint(ch-1)
}

// HandleEvent applies a discrete input event
func (e *Engine) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventMultiPosition:
		if mp := e.multiPosition(ev.Channel); mp != nil {
			i := ev.Channel - 1
			e.multi[i] = stepPosition(e.multi[i], ev.Delta, len(mp.Positions))
		}
	case EventCrab:
		e.crab = !e.crab
	case EventBrakeCut:
		e.brakeCut = !e.brakeCut
	case EventDIGMix:
		e.digMix = addPercent(e.digMix, ev.Delta)
	case EventFourWSMix:
		e.fourMix = addPercent(e.fourMix, ev.Delta)
	}
}

func (e *Engine) multiPosition(ch uint8) *config.MultiPosition {
	if ch == 0 {
		return nil
	}
	for i := range e.cfg.Model.Mix.Multi {
		mp := &e.cfg.Model.Mix.Multi[i]
		if mp.Channel == ch && len(mp.Positions) > 0 {
			return mp
		}
	}
	return nil
}

// Calc computes one frame. It returns false, leaving all state untouched,
// when the generator has not yet consumed the previous frame.
func (e *Engine) Calc() bool {
	if !e.out.StagingFree() {
		atomic.AddUint32(&e.skipped, 1)
		return false
	}

	cfg := e.cfg
	mc := &cfg.Model.Mix
	n := int(cfg.Model.Channels)
	frameUS := e.out.FrameUS()

	// Steering: calibrate, expo, dual rate, turn/return speed
	steer := Calibrate(e.in.Oversampled(int(config.AxisSteering)), cfg.Radio.Calibration[config.AxisSteering])
	steer = Expo(steer, mc.Expo[config.RateSteering])
	steer = DualRate(steer, mc.DualRate[config.RateSteering])
	steer = SteeringSpeed(e.last[0], steer, mc.Speed[0], mc.SteerReturn, frameUS)
	e.last[0] = steer

	// Throttle: forward and back have their own expo and rate
	thr := Calibrate(e.in.Oversampled(int(config.AxisThrottle)), cfg.Radio.Calibration[config.AxisThrottle])
	if thr >= 0 {
		thr = Expo(thr, mc.Expo[config.RateForward])
		thr = DualRate(thr, mc.DualRate[config.RateForward])
	} else {
		thr = Expo(thr, mc.Expo[config.RateBack])
		thr = DualRate(thr, mc.DualRate[config.RateBack])
	}
	thr = ThrottleSpeed(e.last[1], thr, mc.Speed[1], mc.ForwardOnly, frameUS)
	e.last[1] = thr

	thr = e.abs.Apply(thr, mc.ABS, frameUS)

	var values [MaxChannels]int16
	values[0] = steer
	values[1] = thr

	// Generic channels 3..N from stored percentages or position lists
	for ch := 3; ch <= n; ch++ {
		i := ch - 1
		target := Percent(mc.Values[i])
		if mp := e.multiPosition(uint8(ch)); mp != nil {
			target = Percent(mp.Positions[e.multi[i]])
		}
		e.last[i] = SpeedLimit(e.last[i], target, mc.Speed[i], frameUS)
		values[i] = e.last[i]
	}

	// Mixes claim their channels last
	if ch := int(mc.FourWS.Channel); ch > 0 && ch <= n {
		values[0], values[ch-1] = FourWS(steer, e.fourMix, e.crab)
	}
	if ch := int(mc.Brake.Channel); ch > 0 && ch <= n {
		values[ch-1] = BrakeChannel(thr)
		if mc.Brake.ThrottleOnly && values[1] < 0 {
			values[1] = 0
		}
	}
	if ch := int(mc.DIG.Channel); ch > 0 && ch <= n {
		values[1], values[ch-1] = DIG(values[1], e.digMix, e.brakeCut)
	}

	if n != e.out.Channels() {
		e.out.SetChannelCount(n)
	}
	for ch := 1; ch <= n; ch++ {
		i := ch - 1
		v := values[i]
		if e.overrideMask&(1<<uint(i)) != 0 {
			v = e.override[i]
			core.RecordTiming(core.EvtOverride, uint8(ch), uint32(int32(v)), e.frames)
		}
		out := ChannelParams(ch, v, mc)
		e.outputs[i] = out
		e.out.SetChannel(ch, out)
	}
	e.overrideMask = 0

	e.out.CalcSync()
	e.frames++
	return true
}

// Outputs returns the channel values written by the last Calc
func (e *Engine) Outputs() [MaxChannels]int16 {
	return e.outputs
}

// Frames returns how many frames Calc has produced
func (e *Engine) Frames() uint32 {
	return e.frames
}

// Skipped returns how many Calc calls found the staging frame busy
func (e *Engine) Skipped() uint32 {
	return atomic.LoadUint32(&e.skipped)
}

// Crab reports whether 4WS crab mode is on
func (e *Engine) Crab() bool {
	return e.crab
}

// BrakeCut reports whether DIG brake cutoff is on
func (e *Engine) BrakeCut() bool {
	return e.brakeCut
}

// MultiIndex returns the selected position of channel ch
func (e *Engine) MultiIndex(ch int) int {
	if ch < 1 || ch > MaxChannels {
		return 0
	}
	return int(e.multi[ch-1])
}
