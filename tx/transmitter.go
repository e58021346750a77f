// Package tx assembles the transmitter: it owns the scheduler, the clock,
// the PPM generator, the sampled inputs and the mixing engine, and runs the
// fixed task set on top of them.
package tx

import (
	"errors"
	"fmt"
	"sync/atomic"

	"ppmtx/config"
	"ppmtx/core"
	"ppmtx/mix"
	"ppmtx/protocol"
)

// Task periods in clock ticks (ms)
const (
	InputPeriodMs     = 10
	TelemetryPeriodMs = 100
)

var (
	ErrNoPulseTimer = errors.New("tx: no PPM pulse timer")
	ErrNoADC        = errors.New("tx: no ADC driver")
	ErrButtonEvent  = errors.New("tx: unknown button event")
)

// Port carries telemetry. Reads must not block: Buffered tells how many
// bytes a Read can return right away.
type Port interface {
	Buffered() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Options selects the hardware a Transmitter runs on
type Options struct {
	// Timer emits the PPM pulses. Defaults to the registered core pulse timer.
	Timer core.PulseTimer

	// Port is the telemetry link. Nil disables telemetry.
	Port Port

	// Idle runs on every pass of the idle task
	Idle func()
}

// Transmitter is the top-level context object. Everything the interrupt
// handlers and tasks share is reachable from here and nowhere else.
type Transmitter struct {
	cfg    *config.Config
	sched  *core.Scheduler
	clock  *core.Clock
	gen    *core.SignalGenerator
	inputs *core.AnalogBank
	engine *mix.Engine

	buttons      *core.ButtonBank
	buttonEvents [core.MaxButtons]mix.Event

	port   Port
	link   *protocol.Link
	txBuf  *protocol.ScratchOutput
	rxBuf  *protocol.FifoBuffer
	events eventQueue
	idle   func()

	inputTask     core.Task
	mixTask       core.Task
	telemetryTask core.Task
	idleTask      core.Task

	idleLoops uint32 // atomic
	errors    uint32 // atomic
}

// New validates cfg and builds a transmitter around it. The ADC driver must
// already be registered with core.SetADCDriver.
func New(cfg *config.Config, opts Options) (*Transmitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timer := opts.Timer
	if timer == nil {
		if !core.HasPulseTimer() {
			return nil, ErrNoPulseTimer
		}
		timer = core.MustPulseTimer()
	}
	if !core.HasADC() {
		return nil, ErrNoADC
	}

	t := &Transmitter{
		cfg:    cfg,
		sched:  core.NewScheduler(),
		inputs: core.NewAnalogBank(),
		port:   opts.Port,
		idle:   opts.Idle,
	}

	// Axes are added in config.Axis order so the bank index is the axis
	for axis := config.Axis(0); axis < config.NumAxes; axis++ {
		ch := core.ADCChannelID(cfg.Radio.ADCChannels[axis])
		if _, err := t.inputs.Add(ch); err != nil {
			return nil, fmt.Errorf("tx: %s input on ADC %d: %w", axis, ch, err)
		}
	}

	t.gen = core.NewSignalGenerator(timer, int(cfg.Model.Channels),
		core.TicksFromUS(cfg.Model.FrameUS), core.MarkTicks)
	t.engine = mix.NewEngine(cfg, t.inputs, t.gen)

	t.clock = core.NewClock(t.sched)
	t.clock.AddSampler(t.inputs)
	t.clock.WakeOnFrame(t.gen, &t.mixTask)

	if err := t.addButtons(); err != nil {
		return nil, err
	}

	if t.port != nil {
		t.txBuf = protocol.NewScratchOutput()
		t.rxBuf = protocol.NewFifoBuffer(protocol.MessageMax)
		t.link = protocol.NewLink(t.txBuf, t.handleMessage)
	}

	t.registerTasks()

	core.DebugPrintln("[TX] model " + cfg.Model.Name +
		" channels=" + core.Itoa(int(cfg.Model.Channels)) +
		" frame=" + core.Itoa(int(cfg.Model.FrameUS)) + "us")
	return t, nil
}

// addButtons maps the configured buttons to events. Without a GPIO driver
// the buttons are skipped.
func (t *Transmitter) addButtons() error {
	if len(t.cfg.Radio.Buttons) == 0 {
		return nil
	}
	if !core.HasGPIO() {
		core.DebugPrintln("[TX] no GPIO driver, buttons disabled")
		return nil
	}

	t.buttons = core.NewButtonBank(core.MustGPIO(), t.onButton)
	for _, b := range t.cfg.Radio.Buttons {
		kind, ok := mix.ParseEventKind(b.Event)
		if !ok {
			return fmt.Errorf("%q: %w", b.Event, ErrButtonEvent)
		}
		idx, err := t.buttons.Add(core.GPIOPin(b.Pin))
		if err != nil {
			return fmt.Errorf("tx: button on pin %d: %w", b.Pin, err)
		}
		delta := b.Delta
		if delta == 0 {
			delta = 1
		}
		t.buttonEvents[idx] = mix.Event{Kind: kind, Channel: b.Channel, Delta: delta}
	}
	t.clock.AddSampler(t.buttons)
	return nil
}

// onButton runs from the tick interrupt
func (t *Transmitter) onButton(idx int) {
	t.PostEvent(t.buttonEvents[idx])
}

func (t *Transmitter) registerTasks() {
	t.inputTask.Name = "input"
	t.mixTask.Name = "mix"
	t.telemetryTask.Name = "telemetry"
	t.idleTask.Name = "idle"

	t.sched.Register(&t.inputTask, t.inputLoop)
	t.sched.Register(&t.mixTask, t.mixLoop)
	if t.port != nil {
		t.sched.Register(&t.telemetryTask, t.telemetryLoop)
		t.clock.Every(&t.telemetryTask, TelemetryPeriodMs)
	}
	t.sched.Register(&t.idleTask, t.idleLoop)

	t.clock.Every(&t.inputTask, InputPeriodMs)

	// The first frame is computed right away; it enables the generator,
	// after which frame boundaries drive the mix task.
	t.sched.Awake(&t.mixTask)
	t.sched.Awake(&t.idleTask)
}

// Run starts the scheduler and blocks until Halt
func (t *Transmitter) Run() {
	t.sched.Start()
}

// Halt releases Run
func (t *Transmitter) Halt() {
	t.sched.Halt()
}

// Tick is the 1ms clock interrupt body
func (t *Transmitter) Tick() {
	t.clock.Tick()
}

// OnPeriodElapsed is the PPM timer interrupt body
func (t *Transmitter) OnPeriodElapsed() {
	t.gen.OnPeriodElapsed()
}

// PostEvent queues an input event for the input task. Callable from
// interrupt context; returns false when the queue is full.
func (t *Transmitter) PostEvent(ev mix.Event) bool {
	return t.events.push(ev)
}

// inputLoop applies queued events and link commands every InputPeriodMs
func (t *Transmitter) inputLoop() {
	for {
		for {
			ev, ok := t.events.pop()
			if !ok {
				break
			}
			t.engine.HandleEvent(ev)
		}
		t.pollLink()
		t.sched.Stop()
	}
}

// mixLoop computes one frame per frame boundary
func (t *Transmitter) mixLoop() {
	for {
		if !t.engine.Calc() {
			core.RecordTiming(core.EvtStagingBusy, t.mixTask.ID, t.engine.Skipped(), t.gen.Frames())
		}
		t.sched.Stop()
	}
}

func (t *Transmitter) telemetryLoop() {
	for {
		t.sendTelemetry()
		t.sched.Stop()
	}
}

// idleLoop is always ready so dispatch never starves
func (t *Transmitter) idleLoop() {
	for {
		atomic.AddUint32(&t.idleLoops, 1)
		if t.idle != nil {
			t.idle()
		}
		t.sched.Pause()
	}
}

// Config returns the active configuration
func (t *Transmitter) Config() *config.Config {
	return t.cfg
}

// Scheduler returns the task scheduler
func (t *Transmitter) Scheduler() *core.Scheduler {
	return t.sched
}

// Clock returns the tick clock
func (t *Transmitter) Clock() *core.Clock {
	return t.clock
}

// Generator returns the PPM generator
func (t *Transmitter) Generator() *core.SignalGenerator {
	return t.gen
}

// Engine returns the mixing engine. Only use it from task context.
func (t *Transmitter) Engine() *mix.Engine {
	return t.engine
}

// Inputs returns the sampled analog axes
func (t *Transmitter) Inputs() *core.AnalogBank {
	return t.inputs
}

// Buttons returns the button bank, nil without buttons
func (t *Transmitter) Buttons() *core.ButtonBank {
	return t.buttons
}

// Link returns the telemetry link, nil without a port
func (t *Transmitter) Link() *protocol.Link {
	return t.link
}

// IdleLoops returns how often the idle task ran
func (t *Transmitter) IdleLoops() uint32 {
	return atomic.LoadUint32(&t.idleLoops)
}

// DroppedEvents returns how many events found the queue full
func (t *Transmitter) DroppedEvents() uint32 {
	return atomic.LoadUint32(&t.events.dropped)
}

// Errors returns the number of telemetry port failures
func (t *Transmitter) Errors() uint32 {
	return atomic.LoadUint32(&t.errors)
}
