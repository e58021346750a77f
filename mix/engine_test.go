package mix

import (
	"testing"

	"ppmtx/config"
	"ppmtx/core"
)

// fakeInput returns fixed oversampled readings per axis
type fakeInput struct {
	raw [config.NumAxes]uint16
}

func (f *fakeInput) Oversampled(idx int) uint16 {
	return f.raw[idx]
}

// fakeOutput records what the engine writes
type fakeOutput struct {
	busy     bool
	channels int
	values   [MaxChannels + 1]int16
	syncs    int
	frameUS  uint32
}

func (f *fakeOutput) StagingFree() bool { return !f.busy }
func (f *fakeOutput) Channels() int { return f.channels }
func (f *fakeOutput) SetChannelCount(n int) { f.channels = n }
func (f *fakeOutput) SetChannel(ch int, v int16) { f.values[ch] = v }
func (f *fakeOutput) CalcSync() { f.syncs++ }
func (f *fakeOutput) FrameUS() uint32 { return f.frameUS }

// testConfig uses a simple 0..1000 calibration with center 500
func testConfig(channels uint8) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model.Channels = channels
	for i := range cfg.Radio.Calibration {
		cfg.Radio.Calibration[i] = config.CalibrationPoint{Left: 0, Mid: 500, Right: 1000}
	}
	return cfg
}

func centered() *fakeInput {
	return &fakeInput{raw: [config.NumAxes]uint16{500, 500, 500}}
}

func TestEngineBasicFrame(t *testing.T) {
	cfg := testConfig(4)
	cfg.Model.Mix.Values[2] = 50
	cfg.Model.Mix.Values[3] = -100

	in := &fakeInput{raw: [config.NumAxes]uint16{1000, 250, 500}}
	out := &fakeOutput{channels: 3, frameUS: 22500}
	e := NewEngine(cfg, in, out)

	if !e.Calc() {
		t.Fatal("Calc returned false with free staging")
	}

	if out.channels != 4 {
		t.Errorf("Channel count not applied: %d", out.channels)
	}
	want := [MaxChannels + 1]int16{0, 5000, -2500, 2500, -5000}
	if out.values != want {
		t.Errorf("Got %v, want %v", out.values, want)
	}
	if out.syncs != 1 {
		t.Errorf("Expected one CalcSync, got %d", out.syncs)
	}
}

func TestEngineSkipsBusyStaging(t *testing.T) {
	cfg := testConfig(2)
	cfg.Model.Mix.Speed[0] = 10
	in := &fakeInput{raw: [config.NumAxes]uint16{1000, 500, 500}}
	out := &fakeOutput{channels: 2, frameUS: 20000, busy: true}
	e := NewEngine(cfg, in, out)

	if e.Calc() {
		t.Fatal("Calc wrote a frame while staging was busy")
	}
	if out.syncs != 0 || e.Skipped() != 1 {
		t.Errorf("Busy staging touched: syncs=%d skipped=%d", out.syncs, e.Skipped())
	}

	// Speed state did not advance on the skipped pass
	out.busy = false
	e.Calc()
	if out.values[1] != 200 {
		t.Errorf("Expected first limited step 200, got %d", out.values[1])
	}
}

func TestEngineSteeringSpeedAcrossFrames(t *testing.T) {
	cfg := testConfig(2)
	cfg.Model.Mix.Speed[0] = 50 // 1000 per 20ms frame
	in := &fakeInput{raw: [config.NumAxes]uint16{1000, 500, 500}}
	out := &fakeOutput{channels: 2, frameUS: 20000}
	e := NewEngine(cfg, in, out)

	for i, want := range []int16{1000, 2000, 3000, 4000, 5000, 5000} {
		e.Calc()
		if out.values[1] != want {
			t.Errorf("Frame %d: got %d, want %d", i, out.values[1], want)
		}
	}
}

func TestEngineOverrideOneFrame(t *testing.T) {
	cfg := testConfig(3)
	out := &fakeOutput{channels: 3, frameUS: 22500}
	e := NewEngine(cfg, centered(), out)

	e.Override(3, 4000)
	e.Calc()
	if out.values[3] != 4000 {
		t.Errorf("Override not applied: %d", out.values[3])
	}
	e.Calc()
	if out.values[3] != 0 {
		t.Errorf("Override lasted more than one frame: %d", out.values[3])
	}

	// Overrides still pass through reverse
	cfg.Model.Mix.Reverse = 1 << 2
	e.Override(3, 4000)
	e.Calc()
	if out.values[3] != -4000 {
		t.Errorf("Override should be reversed: %d", out.values[3])
	}

	e.Override(0, 100)
	e.Override(9, 100)
}

func TestEngineOverrideSurvivesSkippedFrame(t *testing.T) {
	cfg := testConfig(3)
	out := &fakeOutput{channels: 3, frameUS: 22500, busy: true}
	e := NewEngine(cfg, centered(), out)

	e.Override(3, -3000)
	e.Calc()
	out.busy = false
	e.Calc()
	if out.values[3] != -3000 {
		t.Errorf("Override lost on skipped frame: %d", out.values[3])
	}
}

func TestEngineFourWSAndCrab(t *testing.T) {
	cfg := testConfig(3)
	cfg.Model.Mix.FourWS = config.FourWSMix{Channel: 3, Mix: 50}
	in := &fakeInput{raw: [config.NumAxes]uint16{1000, 500, 500}}
	out := &fakeOutput{channels: 3, frameUS: 22500}
	e := NewEngine(cfg, in, out)

	e.Calc()
	if out.values[1] != 5000 || out.values[3] != -2500 {
		t.Errorf("4WS: got front %d rear %d", out.values[1], out.values[3])
	}

	e.HandleEvent(Event{Kind: EventCrab})
	e.Calc()
	if !e.Crab() || out.values[3] != 2500 {
		t.Errorf("Crab: got rear %d", out.values[3])
	}

	e.HandleEvent(Event{Kind: EventFourWSMix, Delta: -100})
	e.Calc()
	if out.values[1] != 2500 || out.values[3] != 5000 {
		t.Errorf("4WS mix -50: got front %d rear %d", out.values[1], out.values[3])
	}
}

func TestEngineDIGAndBrake(t *testing.T) {
	cfg := testConfig(4)
	cfg.Model.Mix.DIG = config.DIGMix{Channel: 3, Mix: 50}
	cfg.Model.Mix.Brake = config.BrakeMix{Channel: 4}
	in := &fakeInput{raw: [config.NumAxes]uint16{500, 1000, 500}}
	out := &fakeOutput{channels: 4, frameUS: 22500}
	e := NewEngine(cfg, in, out)

	e.Calc()
	if out.values[2] != 5000 || out.values[3] != 2500 || out.values[4] != -5000 {
		t.Errorf("DIG forward: got %v", out.values)
	}

	e.HandleEvent(Event{Kind: EventBrakeCut})
	e.Calc()
	if out.values[3] != 0 {
		t.Errorf("DIG brake cut: got %d", out.values[3])
	}

	// Full brake drives the brake servo to the other end
	in.raw[config.AxisThrottle] = 0
	e.Calc()
	if out.values[4] != 5000 {
		t.Errorf("Brake channel: got %d", out.values[4])
	}

	cfg.Model.Mix.Brake.ThrottleOnly = true
	e.Calc()
	if out.values[2] != 0 || out.values[3] != 0 {
		t.Errorf("Throttle only: motors should ignore brake, got %d/%d", out.values[2], out.values[3])
	}
}

func TestEngineMultiPosition(t *testing.T) {
	cfg := testConfig(3)
	cfg.Model.Mix.Multi = []config.MultiPosition{{Channel: 3, Positions: []int8{-100, 0, 100}}}
	out := &fakeOutput{channels: 3, frameUS: 22500}
	e := NewEngine(cfg, centered(), out)

	for i, want := range []int16{-5000, 0, 5000, -5000} {
		e.Calc()
		if out.values[3] != want {
			t.Errorf("Position %d: got %d, want %d", i, out.values[3], want)
		}
		e.HandleEvent(Event{Kind: EventMultiPosition, Channel: 3, Delta: 1})
	}

	// Events for channels without a position list are ignored
	e.HandleEvent(Event{Kind: EventMultiPosition, Channel: 2, Delta: 1})
	if e.MultiIndex(2) != 0 {
		t.Error("Channel 2 has no position list")
	}
}

func TestEngineABS(t *testing.T) {
	cfg := testConfig(2)
	cfg.Model.Mix.ABS = config.ABSNormal
	in := &fakeInput{raw: [config.NumAxes]uint16{500, 0, 500}}
	out := &fakeOutput{channels: 2, frameUS: 20000}
	e := NewEngine(cfg, in, out)

	halved := 0
	for i := 0; i < 20; i++ {
		e.Calc()
		switch out.values[2] {
		case -5000:
		case -2500:
			halved++
		default:
			t.Fatalf("Frame %d: unexpected brake %d", i, out.values[2])
		}
	}
	if halved == 0 {
		t.Error("ABS never pulsed")
	}
}

func TestEngineDrivesGenerator(t *testing.T) {
	timer := &nullTimer{}
	gen := core.NewSignalGenerator(timer, 2, core.TicksFromUS(core.DefaultFrameUS), core.MarkTicks)

	cfg := testConfig(4)
	cfg.Model.Mix.Values[2] = 100
	cfg.Model.Mix.Values[3] = -100
	e := NewEngine(cfg, centered(), gen)

	if !e.Calc() {
		t.Fatal("First frame not written")
	}
	if !gen.Enabled() {
		t.Fatal("First CalcSync should enable the generator")
	}
	if gen.Channels() != 4 {
		t.Errorf("Generator channel count %d", gen.Channels())
	}

	active := gen.Active()
	var total uint32
	for i := 0; i <= 4; i++ {
		total += uint32(core.MarkTicks) + uint32(active[i])
	}
	if total != gen.FrameTicks() {
		t.Errorf("Frame sum %d, want %d", total, gen.FrameTicks())
	}
	if us := gen.PulseUS(active, 3); us != 2000 {
		t.Errorf("Channel 3 pulse %dus, want 2000", us)
	}
	if us := gen.PulseUS(active, 4); us != 1000 {
		t.Errorf("Channel 4 pulse %dus, want 1000", us)
	}

	// Staging frame is free after enable, so the next frame is accepted and
	// the one after is refused until the interrupt swaps at sync.
	if !e.Calc() {
		t.Error("Second frame refused")
	}
	if e.Calc() {
		t.Error("Third frame accepted before swap")
	}
}

type nullTimer struct{}

func (nullTimer) Load(core.Timebase, uint32, uint16) {}
func (nullTimer) Enable() {}
func (nullTimer) ForceUpdate() {}
