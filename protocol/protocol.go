// Package protocol implements the telemetry link between the transmitter
// and a host: VLQ-encoded messages inside CRC-checked, sync-terminated frames.
package protocol

// Version of the telemetry message set
const Version = "1"

// Frame layout: [len][seq] payload [crc hi][crc lo][sync]
const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64

	FramePositionLen = 0
	FramePositionSeq = 1
	FrameTrailerCRC  = 3
	FrameTrailerSync = 1

	FrameValueSync = 0x7E

	// The high nibble of the sequence byte is fixed, the low nibble counts
	FrameSeqMarker = 0x10
	FrameSeqMask   = 0x0F

	// MessageMax is the size of a scratch output buffer
	MessageMax = 256
)
