package protocol

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrFrameTooLong   = errors.New("protocol: frame too long")
	ErrUnknownMessage = errors.New("protocol: unknown message")
)

// MessageHandler decodes the arguments of one message and advances data
// past them. Returning an error abandons the rest of the frame.
type MessageHandler func(msgID uint8, data *[]byte) error

// Link frames messages in both directions. Telemetry is fire-and-forget:
// there is no acknowledgement, the sequence nibble only reveals lost frames.
type Link struct {
	output  OutputBuffer
	handler MessageHandler

	synchronized uint32 // atomic bool
	txSeq        uint32 // atomic, next outgoing sequence nibble
	rxSeq        uint32 // atomic, last received sequence byte
	rxFrames     uint32 // atomic
	rxLost       uint32 // atomic: frames missing from the sequence
	rxErrors     uint32 // atomic: bad frames and handler errors
}

// NewLink creates a link writing to output and delivering received messages
// to handler
func NewLink(output OutputBuffer, handler MessageHandler) *Link {
	return &Link{
		output:       output,
		handler:      handler,
		synchronized: 1,
		rxSeq:        0xFF,
	}
}

// Receive parses every complete frame in input and pops what it consumed.
// A partial frame at the end stays queued for the next call.
func (l *Link) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !l.isSynchronized() {
			// Drop everything up to the next sync byte
			syncPos := -1
			for i, b := range data {
				if b == FrameValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			l.setSynchronized(true)
			continue
		}

		if data[0] == FrameValueSync {
			data = data[1:]
			continue
		}

		if len(data) < FrameLengthMin {
			break
		}

		frameLen := int(data[FramePositionLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			l.badFrame()
			continue
		}

		seq := data[FramePositionSeq]
		if seq&^FrameSeqMask != FrameSeqMarker {
			l.badFrame()
			continue
		}

		if len(data) < frameLen {
			break
		}

		if data[frameLen-FrameTrailerSync] != FrameValueSync {
			l.badFrame()
			continue
		}

		frameCRC := uint16(data[frameLen-FrameTrailerCRC])<<8 |
			uint16(data[frameLen-FrameTrailerCRC+1])
		if frameCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
			l.badFrame()
			continue
		}

		payload := data[FrameHeaderSize : frameLen-FrameTrailerSize]
		data = data[frameLen:]

		l.countSequence(seq)
		if err := l.parseFrame(payload); err != nil {
			atomic.AddUint32(&l.rxErrors, 1)
		}
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

// countSequence tracks gaps in the received sequence nibble
func (l *Link) countSequence(seq uint8) {
	atomic.AddUint32(&l.rxFrames, 1)
	prev := atomic.SwapUint32(&l.rxSeq, uint32(seq))
	if prev == 0xFF {
		return
	}
	gap := (uint32(seq) - prev - 1) & FrameSeqMask
	atomic.AddUint32(&l.rxLost, gap)
}

func (l *Link) badFrame() {
	atomic.AddUint32(&l.rxErrors, 1)
	l.setSynchronized(false)
}

// parseFrame dispatches each message in a frame payload
func (l *Link) parseFrame(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("protocol: handler panic: %v", r)
		}
	}()

	for len(payload) > 0 {
		msgID, err := DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if l.handler == nil {
			return nil
		}
		if err := l.handler(uint8(msgID), &payload); err != nil {
			return err
		}
	}
	return nil
}

// Send writes one frame holding a single message
func (l *Link) Send(msgID uint8, args func(output OutputBuffer)) error {
	return l.SendFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(msgID))
		if args != nil {
			args(output)
		}
	})
}

// SendFrame writes one frame whose payload is produced by body. An
// oversized frame is left unterminated in the output; the receiver drops it.
func (l *Link) SendFrame(body func(output OutputBuffer)) error {
	cursor := l.output.CurPosition()

	seq := uint8(atomic.AddUint32(&l.txSeq, 1)-1)&FrameSeqMask | FrameSeqMarker
	l.output.Output([]byte{0, seq})

	body(l.output)

	length := len(l.output.DataSince(cursor)) + FrameTrailerSize
	if length > FrameLengthMax {
		return ErrFrameTooLong
	}
	l.output.Update(cursor+FramePositionLen, uint8(length))

	crc := CRC16(l.output.DataSince(cursor))
	l.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		FrameValueSync,
	})
	return nil
}

// Received returns the number of valid frames received
func (l *Link) Received() uint32 {
	return atomic.LoadUint32(&l.rxFrames)
}

// Lost returns the number of frames skipped in the received sequence
func (l *Link) Lost() uint32 {
	return atomic.LoadUint32(&l.rxLost)
}

// Errors returns the number of rejected frames and failed messages
func (l *Link) Errors() uint32 {
	return atomic.LoadUint32(&l.rxErrors)
}

// Reset resynchronizes and restarts the sequence counters
func (l *Link) Reset() {
	atomic.StoreUint32(&l.synchronized, 1)
	atomic.StoreUint32(&l.txSeq, 0)
	atomic.StoreUint32(&l.rxSeq, 0xFF)
}

func (l *Link) isSynchronized() bool {
	return atomic.LoadUint32(&l.synchronized) != 0
}

func (l *Link) setSynchronized(val bool) {
	if val {
		atomic.StoreUint32(&l.synchronized, 1)
	} else {
		atomic.StoreUint32(&l.synchronized, 0)
	}
}
