package core

// PPM signal generator.
// The active frame is streamed by the period-elapsed interrupt, one pulse per
// interrupt. The mixer fills the staging frame and flags it ready; only the
// interrupt, when it reaches the sync pulse, copies staging to active and
// clears the flag. That flag is the only synchronization between the two
// contexts.

import "sync/atomic"

const (
	// MaxChannels is the largest number of servo channels in a frame
	MaxChannels = 8

	// MarkUS is the fixed sync edge at the start of every pulse
	MarkUS = 300

	// DefaultFrameUS is the default total frame length
	DefaultFrameUS = 22500

	// MinSyncUS is the shortest sync pulse (mark + space) a receiver still
	// recognises as frame start
	MinSyncUS = 3000
)

// MarkTicks is the mark length in fine ticks
var MarkTicks = uint16(TicksFromUS(MarkUS))

// ChannelFrame holds pulse spaces in fine ticks.
// Index 0 is the sync pulse, 1..N the servo channels.
type ChannelFrame [MaxChannels + 1]uint16

// SignalGenerator emits PPM frames through a PulseTimer
type SignalGenerator struct {
	timer      PulseTimer
	channels   uint8 // interrupt: channels in the active frame
	nstaging   uint8 // task: channels in the staging frame
	frameTicks uint32
	mark       uint16

	active  ChannelFrame // owned by the interrupt once enabled
	staging ChannelFrame // owned by the mixer while ready == 0

	ready    uint32 // atomic: staging holds a complete frame
	enabled  uint32 // atomic
	boundary uint32 // atomic: a sync pulse was loaded since last FrameBoundary
	frames   uint32 // atomic: frames started

	idx uint8 // interrupt only: index of the pulse currently running
}

// NewSignalGenerator creates a disabled generator for channels servo
// channels, a constant frame of frameTicks and a mark of markTicks.
func NewSignalGenerator(timer PulseTimer, channels int, frameTicks uint32, markTicks uint16) *SignalGenerator {
	if channels < 1 {
		channels = 1
	}
	if channels > MaxChannels {
		channels = MaxChannels
	}
	return &SignalGenerator{
		timer:      timer,
		channels:   uint8(channels),
		nstaging:   uint8(channels),
		frameTicks: frameTicks,
		mark:       markTicks,
	}
}

// Channels returns the number of servo channels in the staging frame
func (g *SignalGenerator) Channels() int {
	return int(g.nstaging)
}

// SetChannelCount changes the number of servo channels. The new count
// travels with the staging frame and takes effect at its swap.
// Only valid while StagingFree.
func (g *SignalGenerator) SetChannelCount(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxChannels {
		n = MaxChannels
	}
	g.nstaging = uint8(n)
}

// FrameTicks returns the constant frame length in fine ticks
func (g *SignalGenerator) FrameTicks() uint32 {
	return g.frameTicks
}

// FrameUS returns the constant frame length in microseconds
func (g *SignalGenerator) FrameUS() uint32 {
	return TicksToUS(g.frameTicks)
}

// StagingFree reports whether the mixer may write the staging frame
func (g *SignalGenerator) StagingFree() bool {
	return atomic.LoadUint32(&g.ready) == 0
}

// SetChannel writes channel ch (1-based) of the staging frame from a channel
// value in 0.1us units around 1500us. Only valid while StagingFree.
func (g *SignalGenerator) SetChannel(ch int, value int16) {
	g.staging[ch] = uint16(TicksFromValue(value) - uint32(g.mark))
}

// SetSpace writes the raw space of pulse ch (1-based) in fine ticks
func (g *SignalGenerator) SetSpace(ch int, space uint16) {
	g.staging[ch] = space
}

// CalcSync sets the staging sync pulse so the frame keeps its constant
// length, then hands the frame to the interrupt. The first call enables
// the output.
func (g *SignalGenerator) CalcSync() {
	used := uint32(0)
	for i := 1; i <= int(g.nstaging); i++ {
		used += uint32(g.mark) + uint32(g.staging[i])
	}
	// frame = sync mark + sync space + used; configuration guarantees it fits
	g.staging[0] = uint16(g.frameTicks - used - uint32(g.mark))

	atomic.StoreUint32(&g.ready, 1)

	if atomic.LoadUint32(&g.enabled) == 0 {
		g.enable()
	}
}

// enable starts streaming after the first complete frame
func (g *SignalGenerator) enable() {
	g.active = g.staging
	g.channels = g.nstaging
	g.idx = 0
	atomic.StoreUint32(&g.ready, 0)
	atomic.StoreUint32(&g.enabled, 1)
	RecordTiming(EvtGeneratorEnable, g.channels, uint32(g.active[0]), g.frameTicks)

	g.timer.Load(TimebaseSync, uint32(g.mark)+uint32(g.active[0]), g.mark)
	g.timer.Enable()
	g.timer.ForceUpdate()
}

// OnPeriodElapsed is the timer interrupt body. The pulse loaded by the
// previous call has just started; load the one after it.
func (g *SignalGenerator) OnPeriodElapsed() {
	if atomic.LoadUint32(&g.enabled) == 0 {
		return
	}

	if g.idx < g.channels {
		g.idx++
		g.timer.Load(TimebaseServo, uint32(g.mark)+uint32(g.active[g.idx]), g.mark)
		return
	}

	// Channel sequence exhausted: next pulse is the sync of a new frame
	g.idx = 0
	if atomic.LoadUint32(&g.ready) != 0 {
		g.active = g.staging
		g.channels = g.nstaging
		atomic.StoreUint32(&g.ready, 0)
		RecordTiming(EvtFrameSwap, 0, uint32(g.active[0]), atomic.LoadUint32(&g.frames))
	}
	g.timer.Load(TimebaseSync, uint32(g.mark)+uint32(g.active[0]), g.mark)
	atomic.AddUint32(&g.frames, 1)
	atomic.StoreUint32(&g.boundary, 1)
}

// FrameBoundary reports (and clears) whether a new frame was started
func (g *SignalGenerator) FrameBoundary() bool {
	return atomic.SwapUint32(&g.boundary, 0) != 0
}

// Ready reports whether a staged frame waits for the next sync
func (g *SignalGenerator) Ready() bool {
	return atomic.LoadUint32(&g.ready) != 0
}

// Enabled reports whether the output has started
func (g *SignalGenerator) Enabled() bool {
	return atomic.LoadUint32(&g.enabled) != 0
}

// Frames returns the number of frames started since enable
func (g *SignalGenerator) Frames() uint32 {
	return atomic.LoadUint32(&g.frames)
}

// Active returns a snapshot of the frame being streamed
func (g *SignalGenerator) Active() ChannelFrame {
	state := disableInterrupts()
	f := g.active
	restoreInterrupts(state)
	return f
}

// Staging returns a copy of the staging frame (task context only)
func (g *SignalGenerator) Staging() ChannelFrame {
	return g.staging
}

// PulseUS converts a frame entry to the full pulse width in microseconds
func (g *SignalGenerator) PulseUS(f ChannelFrame, idx int) uint32 {
	return TicksToUS(uint32(g.mark) + uint32(f[idx]))
}

// Channel value range, in 0.1us around 1500us
const (
	// ValueMax is nominal full deflection (+-500us)
	ValueMax = 5000

	// OutputLimit is the final clamp after endpoint, trim and subtrim
	OutputLimit = 8000
)

// MaxPulseUS is the widest channel pulse the generator can be asked for
const MaxPulseUS = 1500 + OutputLimit/10
