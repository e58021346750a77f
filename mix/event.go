package mix

// EventKind identifies a discrete input event
type EventKind uint8

const (
	EventNone EventKind = iota
	EventMultiPosition  // step the multi-position channel Channel by Delta
	EventCrab           // toggle 4WS crab mode
	EventBrakeCut       // toggle DIG brake cutoff
	EventDIGMix         // adjust the DIG mix by Delta
	EventFourWSMix      // adjust the 4WS mix by Delta
)

// Event is a debounced button or encoder event from the input collaborator
type Event struct {
	Kind    EventKind
	Channel uint8
	Delta   int8
}

func (k EventKind) String() string {
	switch k {
	case EventMultiPosition:
		return "multi_position"
	case EventCrab:
		return "crab"
	case EventBrakeCut:
		return "brake_cut"
	case EventDIGMix:
		return "dig_mix"
	case EventFourWSMix:
		return "4ws_mix"
	}
	return "none"
}

// ParseEventKind is the inverse of EventKind.String
func ParseEventKind(s string) (EventKind, bool) {
	for k := EventMultiPosition; k <= EventFourWSMix; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return EventNone, false
}

// stepPosition moves idx by delta over n positions, wrapping at both ends
func stepPosition(idx uint8, delta int8, n int) uint8 {
	if n <= 0 {
		return 0
	}
	p := (int(idx) + int(delta)) % n
	if p < 0 {
		p += n
	}
	return uint8(p)
}

// addPercent adds delta to v within -100..100
func addPercent(v, delta int8) int8 {
	r := int(v) + int(delta)
	if r > 100 {
		r = 100
	}
	if r < -100 {
		r = -100
	}
	return int8(r)
}
