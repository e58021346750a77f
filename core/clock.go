package core

// Clock/Tick: the periodic interrupt that advances wall-clock time, triggers
// ADC sampling and wakes tasks that need periodic service.

import "sync/atomic"

// Timer is a scheduled wakeup, kept in a list sorted by WakeTime (ms)
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Timer handler results
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// FrameSource reports PPM frame boundaries seen by the signal generator
type FrameSource interface {
	// FrameBoundary returns true once per sync pulse emitted since the last call
	FrameBoundary() bool
}

// Sampler polls inputs once per tick, from interrupt context
type Sampler interface {
	Sample()
}

// Clock drives time from a periodic hardware interrupt
type Clock struct {
	millis    uint32 // atomic
	timerList *Timer

	sched     *Scheduler
	samplers  [MaxSamplers]Sampler
	nSamplers int
	frames    FrameSource
	frameTask *Task
}

// NewClock creates a clock that wakes tasks on sched
func NewClock(sched *Scheduler) *Clock {
	return &Clock{sched: sched}
}

// MaxSamplers bounds the inputs polled from the tick
const MaxSamplers = 4

// AddSampler attaches an input polled on every tick, in the order added.
// Call before the tick interrupt is enabled.
func (c *Clock) AddSampler(s Sampler) {
	if c.nSamplers == MaxSamplers {
		panic("clock: too many samplers")
	}
	c.samplers[c.nSamplers] = s
	c.nSamplers++
}

// WakeOnFrame wakes task on the first tick after each PPM frame boundary
func (c *Clock) WakeOnFrame(frames FrameSource, task *Task) {
	c.frames = frames
	c.frameTask = task
}

// Millis returns the monotonic millisecond counter
func (c *Clock) Millis() uint32 {
	return atomic.LoadUint32(&c.millis)
}

// Every wakes task every periodMs milliseconds, starting one period from now
func (c *Clock) Every(task *Task, periodMs uint32) *Timer {
	t := &Timer{
		WakeTime: c.Millis() + periodMs,
	}
	t.Handler = func(t *Timer) uint8 {
		c.sched.Awake(task)
		t.WakeTime += periodMs
		return SF_RESCHEDULE
	}
	c.ScheduleTimer(t)
	return t
}

// ScheduleTimer adds a timer to the schedule
func (c *Clock) ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	c.insertTimer(t)
}

// insertTimer inserts a timer in sorted order by WakeTime
func (c *Clock) insertTimer(t *Timer) {
	if c.timerList == nil || before(t.WakeTime, c.timerList.WakeTime) {
		t.Next = c.timerList
		c.timerList = t
		return
	}

	current := c.timerList
	for current.Next != nil && before(current.Next.WakeTime, t.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// before compares wrapping millisecond timestamps
func before(a, b uint32) bool {
	return int32(a-b) < 0
}

// Tick is the interrupt body of the periodic clock.
// It must run to completion quickly and never block.
func (c *Clock) Tick() {
	now := atomic.AddUint32(&c.millis, 1)
	addSystemTicks(TicksFromUS(TickPeriodUS))

	for _, s := range c.samplers[:c.nSamplers] {
		s.Sample()
	}

	// Process all timers with WakeTime <= now
	for c.timerList != nil && !before(now, c.timerList.WakeTime) {
		timer := c.timerList
		c.timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			c.insertTimer(timer)
		}
	}

	if c.frames != nil && c.frames.FrameBoundary() {
		c.sched.Awake(c.frameTask)
	}
}
