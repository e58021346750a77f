package tx

import (
	"sync/atomic"

	"ppmtx/core"
	"ppmtx/mix"
	"ppmtx/protocol"
)

// pollLink moves received bytes into the link and handles complete frames
func (t *Transmitter) pollLink() {
	if t.port == nil {
		return
	}

	var chunk [32]byte
	for t.port.Buffered() > 0 && t.rxBuf.Free() > 0 {
		n := len(chunk)
		if free := t.rxBuf.Free(); free < n {
			n = free
		}
		read, err := t.port.Read(chunk[:n])
		if err != nil {
			atomic.AddUint32(&t.errors, 1)
			break
		}
		if read == 0 {
			break
		}
		t.rxBuf.Write(chunk[:read])
	}

	if t.rxBuf.Available() > 0 {
		t.link.Receive(t.rxBuf)
	}
}

// handleMessage runs in task context from pollLink
func (t *Transmitter) handleMessage(msgID uint8, data *[]byte) error {
	switch msgID {
	case protocol.MsgOverride:
		var o protocol.Override
		if err := o.Decode(data); err != nil {
			return err
		}
		t.engine.Override(int(o.Channel), o.Value)

	case protocol.MsgEvent:
		var ev protocol.Event
		if err := ev.Decode(data); err != nil {
			return err
		}
		t.engine.HandleEvent(mix.Event{
			Kind:    mix.EventKind(ev.Kind),
			Channel: ev.Channel,
			Delta:   ev.Delta,
		})

	default:
		return protocol.ErrUnknownMessage
	}
	return nil
}

// sendTelemetry reports the current frame and counters
func (t *Transmitter) sendTelemetry() {
	active := t.gen.Active()
	outputs := t.engine.Outputs()

	channels := protocol.Channels{
		Count:     t.cfg.Model.Channels,
		SyncTicks: uint32(core.MarkTicks) + uint32(active[0]),
	}
	copy(channels.Values[:], outputs[:])

	status := protocol.Status{
		UptimeMs: t.clock.Millis(),
		Frames:   t.gen.Frames(),
		Skipped:  t.engine.Skipped(),
		Mixed:    t.engine.Frames(),
	}

	t.txBuf.Reset()
	t.link.SendMessage(protocol.MsgChannels, &channels)
	t.link.SendMessage(protocol.MsgStatus, &status)
	t.flush()
}

func (t *Transmitter) flush() {
	if t.txBuf.Dropped() > 0 {
		atomic.AddUint32(&t.errors, 1)
	}
	out := t.txBuf.Result()
	if len(out) == 0 {
		return
	}
	if _, err := t.port.Write(out); err != nil {
		atomic.AddUint32(&t.errors, 1)
		core.DebugPrintln("[TX] telemetry write failed: " + err.Error())
	}
	t.txBuf.Reset()
}
