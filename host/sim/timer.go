package sim

import (
	"sync"

	"ppmtx/core"
)

// Pulse is one PPM pulse as the timer emitted it, in fine ticks
type Pulse struct {
	Timebase core.Timebase
	Period   uint32
	Mark     uint16
}

// PulseTimer stands in for the PPM output timer. It holds the pulse being
// emitted and the one loaded for the next update event, and raises the
// period-elapsed interrupt whenever simulated time crosses a period end.
type PulseTimer struct {
	mu       sync.Mutex
	enabled  bool
	forced   bool
	pending  Pulse
	current  Pulse
	elapsed  uint32
	building []Pulse
	frame    []Pulse

	irq func()
}

// NewPulseTimer creates a stopped timer. SetInterrupt must be called before
// the generator enables it.
func NewPulseTimer() *PulseTimer {
	return &PulseTimer{}
}

// SetInterrupt installs the period-elapsed handler
func (p *PulseTimer) SetInterrupt(irq func()) {
	p.irq = irq
}

func (p *PulseTimer) Load(tb core.Timebase, period uint32, mark uint16) {
	p.mu.Lock()
	p.pending = Pulse{Timebase: tb, Period: period, Mark: mark}
	p.mu.Unlock()
}

func (p *PulseTimer) Enable() {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
}

// ForceUpdate takes effect on the next Advance
func (p *PulseTimer) ForceUpdate() {
	p.mu.Lock()
	p.forced = true
	p.mu.Unlock()
}

// Advance runs the timer for ticks fine ticks
func (p *PulseTimer) Advance(ticks uint32) {
	for {
		p.mu.Lock()
		if !p.enabled {
			p.mu.Unlock()
			return
		}
		if p.forced {
			p.forced = false
			p.mu.Unlock()
			p.update()
			continue
		}
		remaining := p.current.Period - p.elapsed
		if ticks < remaining {
			p.elapsed += ticks
			p.mu.Unlock()
			return
		}
		ticks -= remaining
		p.elapsed = 0
		p.mu.Unlock()
		p.update()
	}
}

// update starts the loaded pulse and raises the interrupt, which loads the
// one after it
func (p *PulseTimer) update() {
	p.mu.Lock()
	p.current = p.pending
	if p.current.Period == 0 {
		p.current.Period = 1
	}
	if p.current.Timebase == core.TimebaseSync && len(p.building) > 0 {
		p.frame = p.building
		p.building = nil
	}
	p.building = append(p.building, p.current)
	p.mu.Unlock()

	if p.irq != nil {
		core.Interrupt(p.irq)
	}
}

// LastFrame returns the pulses of the last complete frame, sync first
func (p *PulseTimer) LastFrame() []Pulse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Pulse(nil), p.frame...)
}

// Enabled reports whether the generator started the timer
func (p *PulseTimer) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}
