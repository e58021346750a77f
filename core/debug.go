package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	ID        uint8  // Channel or task id
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtGeneratorEnable = 1 // First frame computed, PPM output started
	EvtFrameSwap       = 2 // Staging frame copied to active at sync
	EvtStagingBusy     = 3 // Mixer found the previous frame still unconsumed
	EvtStarved         = 4 // Dispatch found no ready task
	EvtOverride        = 5 // Channel value forced by override hook
	EvtTaskSwitch      = 6 // Scheduler resumed a different task
	EvtPulseTooShort   = 7 // Pulse timer rejected a pulse below its overhead
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled uint32

	// Timing capture ring buffer. Slots are claimed atomically so both
	// interrupt and task context may record.
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint32
	timingEnabled  uint32 = 1

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	if enabled {
		atomic.StoreUint32(&debugEnabled, 1)
	} else {
		atomic.StoreUint32(&debugEnabled, 0)
	}
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return atomic.LoadUint32(&debugEnabled) != 0
}

// InitAsyncDebug starts the async debug output goroutine.
// Call this from main() after SetDebugWriter.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker(debugChan)
}

func debugOutputWorker(ch chan string) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context; use DebugAsync or RecordTiming.
func DebugPrintln(msg string) {
	if IsDebugEnabled() && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// Drops the message when the queue is full.
func DebugAsync(msg string) {
	if debugChan == nil || !IsDebugEnabled() {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordTiming captures a timing event in the ring buffer
func RecordTiming(eventType, id uint8, value1, value2 uint32) {
	if atomic.LoadUint32(&timingEnabled) == 0 {
		return
	}
	idx := (atomic.AddUint32(&timingRingHead, 1) - 1) % TimingRingSize
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		ID:        id,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
}

// SetTimingEnabled turns timing capture on or off
func SetTimingEnabled(enabled bool) {
	if enabled {
		atomic.StoreUint32(&timingEnabled, 1)
	} else {
		atomic.StoreUint32(&timingEnabled, 0)
	}
}

// TimingEvents returns the recorded events, oldest first.
// Call only after time-critical code has stopped.
func TimingEvents() []TimingEvent {
	head := atomic.LoadUint32(&timingRingHead)
	events := make([]TimingEvent, 0, TimingRingSize)
	for i := uint32(0); i < TimingRingSize; i++ {
		evt := timingRing[(head+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + timingEventName(evt.EventType) +
			" id=" + itoa(int(evt.ID)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

func timingEventName(t uint8) string {
	switch t {
	case EvtGeneratorEnable:
		return "GEN_ENABLE"
	case EvtFrameSwap:
		return "FRAME_SWAP"
	case EvtStagingBusy:
		return "STAGING_BUSY"
	case EvtStarved:
		return "STARVED!"
	case EvtOverride:
		return "OVERRIDE"
	case EvtTaskSwitch:
		return "TASK_SWITCH"
	case EvtPulseTooShort:
		return "PULSE_SHORT"
	}
	return "UNKNOWN"
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	atomic.StoreUint32(&timingRingHead, 0)
}
