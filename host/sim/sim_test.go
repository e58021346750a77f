package sim

import (
	"testing"
	"time"

	"ppmtx/config"
	"ppmtx/core"
)

func TestPulseTimerStreamsFrames(t *testing.T) {
	timer := NewPulseTimer()
	frameTicks := core.TicksFromUS(core.DefaultFrameUS)
	gen := core.NewSignalGenerator(timer, 4, frameTicks, core.MarkTicks)
	timer.SetInterrupt(gen.OnPeriodElapsed)

	gen.SetChannel(1, 0)
	gen.SetChannel(2, 5000)
	gen.SetChannel(3, -5000)
	gen.SetChannel(4, 2500)
	gen.CalcSync()
	if !timer.Enabled() {
		t.Fatal("Generator did not enable the timer")
	}

	timer.Advance(3 * frameTicks)

	frame := timer.LastFrame()
	if len(frame) != 5 {
		t.Fatalf("Expected sync and 4 channels, got %+v", frame)
	}
	if frame[0].Timebase != core.TimebaseSync {
		t.Error("Frame does not start with the sync pulse")
	}
	var sum uint32
	for _, p := range frame {
		sum += p.Period
		if p.Mark != core.MarkTicks {
			t.Errorf("Pulse mark %d, want %d", p.Mark, core.MarkTicks)
		}
	}
	if sum != frameTicks {
		t.Errorf("Frame lasts %d ticks, want %d", sum, frameTicks)
	}
	wantUS := []uint32{1500, 2000, 1000, 1750}
	for i, us := range wantUS {
		if got := core.TicksToUS(frame[i+1].Period); got != us {
			t.Errorf("Channel %d: %dus, want %dus", i+1, got, us)
		}
	}
	if gen.Frames() < 3 {
		t.Errorf("Expected at least 3 frames, got %d", gen.Frames())
	}
}

func TestPulseTimerIdleUntilEnabled(t *testing.T) {
	timer := NewPulseTimer()
	fired := 0
	timer.SetInterrupt(func() { fired++ })
	timer.Load(core.TimebaseServo, 100, 10)
	timer.Advance(1000)
	if fired != 0 {
		t.Errorf("Disabled timer raised %d interrupts", fired)
	}
}

func TestSticks(t *testing.T) {
	cfg := config.DefaultConfig()
	s := NewSticks(&cfg.Radio)
	cal := cfg.Radio.Calibration[config.AxisSteering]
	ch := core.ADCChannelID(cfg.Radio.ADCChannels[config.AxisSteering])

	read := func() uint32 {
		v, err := s.ReadRaw(ch)
		if err != nil {
			t.Fatalf("ReadRaw failed: %v", err)
		}
		return uint32(v) * core.Oversample
	}

	if got := read(); got != uint32(cal.Mid)/core.Oversample*core.Oversample {
		t.Errorf("Centered stick reads %d", got)
	}

	s.Set(config.AxisSteering, StickMax*2)
	if s.Position(config.AxisSteering) != StickMax {
		t.Errorf("Position not clamped: %d", s.Position(config.AxisSteering))
	}
	if got := read(); got != uint32(cal.Right)/core.Oversample*core.Oversample {
		t.Errorf("Full right reads %d, want about %d", got, cal.Right)
	}

	s.Set(config.AxisSteering, -StickMax)
	if got := read(); got != uint32(cal.Left)/core.Oversample*core.Oversample {
		t.Errorf("Full left reads %d, want about %d", got, cal.Left)
	}

	s.Release(config.AxisSteering, 600)
	if s.Position(config.AxisSteering) != -400 {
		t.Errorf("Spring moved stick to %d, want -400", s.Position(config.AxisSteering))
	}
	s.Release(config.AxisSteering, 600)
	if s.Position(config.AxisSteering) != 0 {
		t.Errorf("Spring should stop at center, got %d", s.Position(config.AxisSteering))
	}

	if _, err := s.ReadRaw(core.MaxAnalogInputs); err != ErrNoSuchChannel {
		t.Errorf("Expected ErrNoSuchChannel, got %v", err)
	}
}

func TestSimRunsTransmitter(t *testing.T) {
	s, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for s.TX.Generator().Frames() < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("Only %d frames after 5s", s.TX.Generator().Frames())
		}
		s.StepMs(1)
		time.Sleep(100 * time.Microsecond)
	}

	frame := s.Timer.LastFrame()
	var sum uint32
	for _, p := range frame {
		sum += p.Period
	}
	if want := core.TicksFromUS(core.DefaultFrameUS); sum != want {
		t.Errorf("Frame lasts %d ticks, want %d", sum, want)
	}
	if len(frame) != 4 {
		t.Errorf("Expected sync and 3 channels, got %d pulses", len(frame))
	}
}

func TestSimButtons(t *testing.T) {
	s, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	bank := s.TX.Buttons()
	if bank == nil {
		t.Fatal("Simulated buttons not wired")
	}

	if s.Buttons.Hold("4ws_mix", true) {
		t.Error("Held a button that is not configured")
	}
	if !s.Buttons.Hold("crab", true) {
		t.Fatal("No crab button")
	}
	s.StepMs(core.DebounceTicks)
	if !bank.Pressed(0) || bank.Pressed(1) {
		t.Errorf("Expected only crab pressed, got %v %v", bank.Pressed(0), bank.Pressed(1))
	}

	s.Buttons.Hold("crab", false)
	s.StepMs(core.DebounceTicks)
	if bank.Pressed(0) {
		t.Error("Crab still pressed after release")
	}
}
