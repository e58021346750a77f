package protocol

import (
	"errors"
	"testing"
)

type received struct {
	id   uint8
	args []int32
}

// collectingHandler decodes n VLQ arguments per message
func collectingHandler(n int, got *[]received) MessageHandler {
	return func(msgID uint8, data *[]byte) error {
		r := received{id: msgID}
		for i := 0; i < n; i++ {
			v, err := DecodeVLQInt(data)
			if err != nil {
				return err
			}
			r.args = append(r.args, v)
		}
		*got = append(*got, r)
		return nil
	}
}

func sendPair(l *Link, id uint8, a, b int32) {
	l.Send(id, func(output OutputBuffer) {
		EncodeVLQInt(output, a)
		EncodeVLQInt(output, b)
	})
}

func TestLinkFrameLayout(t *testing.T) {
	out := NewScratchOutput()
	l := NewLink(out, nil)
	if err := l.Send(MsgOverride, func(output OutputBuffer) {
		EncodeVLQInt(output, 2)
	}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	frame := out.Result()
	if len(frame) != 7 {
		t.Fatalf("Expected 7 byte frame, got %v", frame)
	}
	if frame[FramePositionLen] != 7 {
		t.Errorf("Length byte %d, want 7", frame[0])
	}
	if frame[FramePositionSeq] != FrameSeqMarker {
		t.Errorf("First sequence byte 0x%02X, want 0x%02X", frame[1], FrameSeqMarker)
	}
	if frame[2] != MsgOverride || frame[3] != 2 {
		t.Errorf("Unexpected payload %v", frame[2:4])
	}
	crc := CRC16(frame[:4])
	if frame[4] != uint8(crc>>8) || frame[5] != uint8(crc) {
		t.Errorf("Bad CRC bytes %02X%02X, want %04X", frame[4], frame[5], crc)
	}
	if frame[6] != FrameValueSync {
		t.Errorf("Frame not terminated by sync byte: %v", frame)
	}
}

func TestLinkSequenceWraps(t *testing.T) {
	out := NewScratchOutput()
	l := NewLink(out, nil)

	for i := 0; i < 18; i++ {
		out.Reset()
		l.Send(MsgStatus, nil)
		want := uint8(i%16) | FrameSeqMarker
		if seq := out.Result()[FramePositionSeq]; seq != want {
			t.Errorf("Frame %d: sequence 0x%02X, want 0x%02X", i, seq, want)
		}
	}
}

func TestLinkRoundTrip(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	sendPair(tx, MsgOverride, 1, -5000)
	sendPair(tx, MsgOverride, 8, 8000)

	var got []received
	rx := NewLink(nil, collectingHandler(2, &got))
	in := NewSliceInputBuffer(append([]byte(nil), out.Result()...))
	rx.Receive(in)

	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %+v", got)
	}
	if got[0].args[0] != 1 || got[0].args[1] != -5000 {
		t.Errorf("First message %+v", got[0])
	}
	if got[1].args[0] != 8 || got[1].args[1] != 8000 {
		t.Errorf("Second message %+v", got[1])
	}
	if in.Available() != 0 {
		t.Errorf("%d bytes left unconsumed", in.Available())
	}
	if rx.Received() != 2 || rx.Errors() != 0 || rx.Lost() != 0 {
		t.Errorf("Counters: received=%d errors=%d lost=%d", rx.Received(), rx.Errors(), rx.Lost())
	}
}

func TestLinkPartialFrame(t *testing.T) {
	out := NewScratchOutput()
	sendPair(NewLink(out, nil), MsgEvent, 3, 1)
	frame := out.Result()

	var got []received
	rx := NewLink(nil, collectingHandler(2, &got))
	fifo := NewFifoBuffer(128)

	fifo.Write(frame[:4])
	rx.Receive(fifo)
	if len(got) != 0 {
		t.Fatal("Partial frame delivered")
	}
	if fifo.Available() != 4 {
		t.Fatalf("Partial frame consumed: %d bytes left", fifo.Available())
	}

	fifo.Write(frame[4:])
	rx.Receive(fifo)
	if len(got) != 1 || got[0].args[0] != 3 {
		t.Fatalf("Frame not delivered after completion: %+v", got)
	}
	if fifo.Available() != 0 {
		t.Error("Complete frame left in the buffer")
	}
}

func TestLinkResyncAfterCorruption(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	sendPair(tx, MsgOverride, 1, 100)
	sendPair(tx, MsgOverride, 2, 200)

	stream := append([]byte{0x00, 0x33}, out.Result()...)
	// Flip a payload bit in the first frame
	stream[2+3] ^= 0x01

	var got []received
	rx := NewLink(nil, collectingHandler(2, &got))
	rx.Receive(NewSliceInputBuffer(stream))

	if len(got) != 1 || got[0].args[0] != 2 {
		t.Fatalf("Expected only the second frame, got %+v", got)
	}
	if rx.Errors() == 0 {
		t.Error("Garbage not counted")
	}
}

func TestLinkRejectsBadCRC(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	sendPair(tx, MsgOverride, 1, 100)
	sendPair(tx, MsgOverride, 2, 200)

	stream := append([]byte(nil), out.Result()...)
	stream[3] ^= 0x01

	var got []received
	rx := NewLink(nil, collectingHandler(2, &got))
	rx.Receive(NewSliceInputBuffer(stream))

	if len(got) != 1 || got[0].args[0] != 2 {
		t.Fatalf("Expected only the intact frame, got %+v", got)
	}
	if rx.Errors() == 0 {
		t.Error("CRC failure not counted")
	}
}

func TestLinkCountsLostFrames(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	var frames [][]byte
	for i := 0; i < 5; i++ {
		out.Reset()
		sendPair(tx, MsgStatus, int32(i), 0)
		frames = append(frames, append([]byte(nil), out.Result()...))
	}

	var got []received
	rx := NewLink(nil, collectingHandler(2, &got))
	var stream []byte
	for _, i := range []int{0, 1, 4} {
		stream = append(stream, frames[i]...)
	}
	rx.Receive(NewSliceInputBuffer(stream))

	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	if rx.Lost() != 2 {
		t.Errorf("Expected 2 lost frames, got %d", rx.Lost())
	}
}

func TestLinkHandlerError(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	tx.SendFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, 9)
		EncodeVLQUint(output, uint32(MsgOverride))
		EncodeVLQInt(output, 1)
	})

	var ids []uint8
	rx := NewLink(nil, func(msgID uint8, data *[]byte) error {
		ids = append(ids, msgID)
		if msgID == 9 {
			return ErrUnknownMessage
		}
		_, err := DecodeVLQInt(data)
		return err
	})
	rx.Receive(NewSliceInputBuffer(out.Result()))

	if len(ids) != 1 || ids[0] != 9 {
		t.Errorf("Expected the frame abandoned after message 9, handled %v", ids)
	}
	if rx.Errors() != 1 {
		t.Errorf("Expected 1 error, got %d", rx.Errors())
	}
}

func TestLinkHandlerPanic(t *testing.T) {
	out := NewScratchOutput()
	tx := NewLink(out, nil)
	sendPair(tx, MsgEvent, 1, 2)
	sendPair(tx, MsgEvent, 3, 4)

	calls := 0
	rx := NewLink(nil, func(msgID uint8, data *[]byte) error {
		calls++
		if calls == 1 {
			panic("bad message")
		}
		*data = nil
		return nil
	})
	rx.Receive(NewSliceInputBuffer(out.Result()))

	if rx.Errors() != 1 {
		t.Errorf("Expected the panic counted as 1 error, got %d", rx.Errors())
	}
	if calls != 2 {
		t.Errorf("Expected the second frame to be handled, %d calls", calls)
	}
}

func TestLinkFrameTooLong(t *testing.T) {
	out := NewScratchOutput()
	l := NewLink(out, nil)
	err := l.Send(MsgChannels, func(output OutputBuffer) {
		output.Output(make([]byte, FrameLengthMax))
	})
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}
