// Package sim runs the transmitter on a desktop. A simulated PPM timer,
// sticks and buttons stand in for the hardware; the caller provides time.
package sim

import (
	"time"

	"ppmtx/config"
	"ppmtx/core"
	"ppmtx/mix"
	"ppmtx/tx"
)

// IdleSleep is how long the idle task gives the host CPU away per pass
const IdleSleep = 200 * time.Microsecond

// Sim owns a transmitter and its simulated hardware
type Sim struct {
	TX      *tx.Transmitter
	Timer   *PulseTimer
	Sticks  *Sticks
	Buttons *Buttons

	last time.Time
	acc  time.Duration
}

// New builds a transmitter for cfg on simulated hardware
func New(cfg *config.Config) (*Sim, error) {
	sticks := NewSticks(&cfg.Radio)
	core.SetADCDriver(sticks)
	buttons := NewButtons(&cfg.Radio)
	core.SetGPIODriver(buttons)

	timer := NewPulseTimer()
	t, err := tx.New(cfg, tx.Options{
		Timer: timer,
		Idle: func() {
			time.Sleep(IdleSleep)
		},
	})
	if err != nil {
		return nil, err
	}
	timer.SetInterrupt(t.OnPeriodElapsed)

	return &Sim{TX: t, Timer: timer, Sticks: sticks, Buttons: buttons}, nil
}

// Start runs the task set in the background
func (s *Sim) Start() {
	go s.TX.Run()
}

// Stop halts the task set
func (s *Sim) Stop() {
	s.TX.Halt()
}

// Step advances simulated time to follow the wall clock
func (s *Sim) Step(now time.Time) {
	if s.last.IsZero() {
		s.last = now
		return
	}
	s.acc += now.Sub(s.last)
	s.last = now

	const tickDur = core.TickPeriodUS * time.Microsecond
	ticks := int(s.acc / tickDur)
	s.acc %= tickDur

	// Never replay more than a frame or so after a stall
	if ticks > 50 {
		ticks = 50
	}
	s.StepMs(ticks)
}

// StepMs advances simulated time by n clock ticks
func (s *Sim) StepMs(n int) {
	for i := 0; i < n; i++ {
		core.Interrupt(s.TX.Tick)
		s.Timer.Advance(core.TicksFromUS(core.TickPeriodUS))
	}
}

// Post delivers an input event the way an encoder interrupt would
func (s *Sim) Post(ev mix.Event) bool {
	var ok bool
	core.Interrupt(func() {
		ok = s.TX.PostEvent(ev)
	})
	return ok
}
