package tx

import (
	"sync/atomic"

	"ppmtx/mix"
)

// EventQueueSize is the capacity of the interrupt-to-task event queue
const EventQueueSize = 16

// eventQueue carries input events from interrupt context to the input task.
// There is one producer (an interrupt handler) and one consumer (the input
// task). A full queue drops the new event.
type eventQueue struct {
	buf     [EventQueueSize]mix.Event
	head    uint32 // atomic: next slot to write
	tail    uint32 // atomic: next slot to read
	dropped uint32 // atomic
}

func (q *eventQueue) push(ev mix.Event) bool {
	head := atomic.LoadUint32(&q.head)
	if head-atomic.LoadUint32(&q.tail) >= EventQueueSize {
		atomic.AddUint32(&q.dropped, 1)
		return false
	}
	q.buf[head%EventQueueSize] = ev
	atomic.StoreUint32(&q.head, head+1)
	return true
}

func (q *eventQueue) pop() (mix.Event, bool) {
	tail := atomic.LoadUint32(&q.tail)
	if tail == atomic.LoadUint32(&q.head) {
		return mix.Event{}, false
	}
	ev := q.buf[tail%EventQueueSize]
	atomic.StoreUint32(&q.tail, tail+1)
	return ev, true
}
