package protocol

import "fmt"

// Message IDs
const (
	MsgChannels uint8 = 1 // tx -> host: current frame
	MsgStatus   uint8 = 2 // tx -> host: counters
	MsgOverride uint8 = 3 // host -> tx: force one channel for one frame
	MsgEvent    uint8 = 4 // host -> tx: inject an input event
)

// MaxChannels bounds the channel list of a Channels message
const MaxChannels = 8

// Channels reports the frame being streamed
type Channels struct {
	Count     uint8
	SyncTicks uint32
	Values    [MaxChannels]int16
}

// Status reports transmitter counters
type Status struct {
	UptimeMs uint32
	Frames   uint32 // sync pulses emitted
	Skipped  uint32 // mix passes that found the staging frame busy
	Mixed    uint32 // frames computed by the mixing engine
}

// Override forces Channel (1-based) to Value for the next frame
type Override struct {
	Channel uint8
	Value   int16
}

// Event is an input event sent from the host
type Event struct {
	Kind    uint8
	Channel uint8
	Delta   int8
}

func (c *Channels) Encode(output OutputBuffer) {
	EncodeVLQUint(output, uint32(c.Count))
	EncodeVLQUint(output, c.SyncTicks)
	for i := 0; i < int(c.Count) && i < MaxChannels; i++ {
		EncodeVLQInt(output, int32(c.Values[i]))
	}
}

func (c *Channels) Decode(data *[]byte) error {
	count, err := DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > MaxChannels {
		return fmt.Errorf("channels message: %d channels", count)
	}
	c.Count = uint8(count)
	if c.SyncTicks, err = DecodeVLQUint(data); err != nil {
		return err
	}
	c.Values = [MaxChannels]int16{}
	for i := 0; i < int(count); i++ {
		v, err := DecodeVLQInt(data)
		if err != nil {
			return err
		}
		c.Values[i] = int16(v)
	}
	return nil
}

func (s *Status) Encode(output OutputBuffer) {
	EncodeVLQUint(output, s.UptimeMs)
	EncodeVLQUint(output, s.Frames)
	EncodeVLQUint(output, s.Skipped)
	EncodeVLQUint(output, s.Mixed)
}

func (s *Status) Decode(data *[]byte) error {
	for _, field := range []*uint32{&s.UptimeMs, &s.Frames, &s.Skipped, &s.Mixed} {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*field = v
	}
	return nil
}

func (o *Override) Encode(output OutputBuffer) {
	EncodeVLQUint(output, uint32(o.Channel))
	EncodeVLQInt(output, int32(o.Value))
}

func (o *Override) Decode(data *[]byte) error {
	ch, err := DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if ch < 1 || ch > MaxChannels {
		return fmt.Errorf("override message: channel %d", ch)
	}
	v, err := DecodeVLQInt(data)
	if err != nil {
		return err
	}
	o.Channel = uint8(ch)
	o.Value = int16(v)
	return nil
}

func (e *Event) Encode(output OutputBuffer) {
	EncodeVLQUint(output, uint32(e.Kind))
	EncodeVLQUint(output, uint32(e.Channel))
	EncodeVLQInt(output, int32(e.Delta))
}

func (e *Event) Decode(data *[]byte) error {
	kind, err := DecodeVLQUint(data)
	if err != nil {
		return err
	}
	ch, err := DecodeVLQUint(data)
	if err != nil {
		return err
	}
	delta, err := DecodeVLQInt(data)
	if err != nil {
		return err
	}
	e.Kind = uint8(kind)
	e.Channel = uint8(ch)
	e.Delta = int8(delta)
	return nil
}

// Encoder is a message body that can be sent with Link.Send
type Encoder interface {
	Encode(output OutputBuffer)
}

// SendMessage sends msg as message id
func (l *Link) SendMessage(id uint8, msg Encoder) error {
	return l.Send(id, msg.Encode)
}
