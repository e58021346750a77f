package core

// Cooperative task scheduler.
// A fixed ring of tasks registered at startup; one task runs at a time and
// gives up the CPU only at Pause or Stop. Each task owns its own goroutine
// (and therefore its own stack); switching hands a baton from the yielding
// goroutine to the resumed one, so exactly one task body executes at any instant.

import (
	"errors"
	"runtime"
	"sync/atomic"
)

// Task states
const (
	TaskDispatched = 0 // Consumed from the ready set; must be re-armed to run again
	TaskReady      = 1 // Will be selected by the next dispatch that reaches it
)

var (
	ErrStarved        = errors.New("scheduler: no task ready")
	ErrTaskReturned   = errors.New("scheduler: task entry returned")
	ErrNotStarted     = errors.New("scheduler: yield outside of a task")
	ErrAlreadyStarted = errors.New("scheduler: register after start")
)

// Task is one cooperatively scheduled activity
type Task struct {
	ID   uint8
	Name string

	state uint32 // atomic: TaskReady / TaskDispatched
	next  *Task  // next task in the ring

	entry   func()
	resume  chan struct{}
	started bool
	runs    uint32 // number of times dispatched, for diagnostics
}

// State returns the task's readiness state
func (t *Task) State() uint32 {
	return atomic.LoadUint32(&t.state)
}

// Runs returns how many times the task has been dispatched
func (t *Task) Runs() uint32 {
	return atomic.LoadUint32(&t.runs)
}

// Scheduler owns the task ring
type Scheduler struct {
	tail    *Task // last registered task; tail.next is the first
	current *Task
	count   uint8
	started bool
	halt    chan struct{}
	halted  uint32

	// MaxIdleScans bounds how many full ring scans dispatch may spend without
	// finding a ready task before OnStarved is called. Zero spins forever.
	MaxIdleScans uint32

	// OnStarved is called when MaxIdleScans is exceeded. Defaults to a panic.
	// If it returns, dispatch keeps scanning.
	OnStarved func()
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		halt: make(chan struct{}),
	}
}

// Register inserts a task into the ring in the not-yet-runnable state.
// Only valid before Start; registering the same task twice is a no-op.
func (s *Scheduler) Register(t *Task, entry func()) error {
	if s.started {
		return ErrAlreadyStarted
	}
	if t.resume != nil {
		return nil
	}

	t.ID = s.count
	t.entry = entry
	t.resume = make(chan struct{}, 1)
	atomic.StoreUint32(&t.state, TaskDispatched)
	s.count++

	if s.tail == nil {
		t.next = t
	} else {
		t.next = s.tail.next
		s.tail.next = t
	}
	s.tail = t
	return nil
}

// Awake marks a task ready. Callable from interrupt or task context;
// it never switches execution by itself.
func (s *Scheduler) Awake(t *Task) {
	atomic.StoreUint32(&t.state, TaskReady)
}

// Current returns the task that owns the CPU
func (s *Scheduler) Current() *Task {
	return s.current
}

// Pause re-arms the current task and yields; it runs again without any
// external wake once the dispatch walk comes back around to it.
func (s *Scheduler) Pause() {
	cur := s.current
	if cur == nil {
		panic(ErrNotStarted)
	}
	atomic.StoreUint32(&cur.state, TaskReady)
	s.yield(cur)
}

// Stop yields without re-arming. The current task sleeps until some other
// task or an interrupt calls Awake on it.
func (s *Scheduler) Stop() {
	cur := s.current
	if cur == nil {
		panic(ErrNotStarted)
	}
	s.yield(cur)
}

// Start dispatches the first ready task and blocks the calling goroutine
// until Halt. There must always be at least one task that stays ready
// (the idle task), otherwise dispatch spins.
func (s *Scheduler) Start() {
	if s.tail == nil {
		panic(ErrStarved)
	}
	s.started = true
	next := s.dispatch(s.tail)
	if next == nil {
		return
	}
	s.switchTo(next)
	<-s.halt
}

// Halt releases the goroutine blocked in Start. The running task retires at
// its next Pause or Stop and no task is dispatched again.
func (s *Scheduler) Halt() {
	if atomic.CompareAndSwapUint32(&s.halted, 0, 1) {
		close(s.halt)
	}
}

// Halted reports whether Halt was called
func (s *Scheduler) Halted() bool {
	return atomic.LoadUint32(&s.halted) != 0
}

// yield is the shared tail of Pause and Stop
func (s *Scheduler) yield(cur *Task) {
	next := s.dispatch(cur)
	if next == nil {
		runtime.Goexit()
	}
	if next == cur {
		return
	}
	s.switchTo(next)
	<-cur.resume
}

// dispatch walks the ring starting after from and consumes the first ready
// task. It returns nil once the scheduler is halted.
func (s *Scheduler) dispatch(from *Task) *Task {
	var scans uint32
	for {
		if s.Halted() {
			return nil
		}
		t := from.next
		for {
			if atomic.CompareAndSwapUint32(&t.state, TaskReady, TaskDispatched) {
				atomic.AddUint32(&t.runs, 1)
				return t
			}
			if t == from {
				break
			}
			t = t.next
		}

		// Nothing ready: let interrupts (goroutines on the host, IRQs on
		// hardware) get a chance to wake someone, then scan again.
		runtime.Gosched()
		scans++
		if s.MaxIdleScans != 0 && scans >= s.MaxIdleScans {
			RecordTiming(EvtStarved, from.ID, scans, 0)
			scans = 0
			if s.OnStarved != nil {
				s.OnStarved()
			} else {
				panic(ErrStarved)
			}
		}
	}
}

// switchTo makes t current and resumes it where it last yielded
func (s *Scheduler) switchTo(t *Task) {
	s.current = t
	RecordTiming(EvtTaskSwitch, t.ID, t.Runs(), 0)
	if !t.started {
		t.started = true
		go s.run(t)
		return
	}
	t.resume <- struct{}{}
}

func (s *Scheduler) run(t *Task) {
	t.entry()
	panic(ErrTaskReturned)
}
