//go:build js && wasm

// Browser bridge for the telemetry link. A page reading the transmitter over
// WebSerial feeds received bytes in and gets decoded reports back, and can
// encode override and event frames to write out.
package main

import (
	"encoding/hex"
	"syscall/js"

	"ppmtx/core"
	"ppmtx/mix"
	"ppmtx/protocol"
)

// Receive state persists across feed calls so frames may span chunks
var (
	rxBuf   = protocol.NewFifoBuffer(4 * protocol.MessageMax)
	rxLink  *protocol.Link
	reports []interface{}

	txOut  = protocol.NewScratchOutput()
	txLink = protocol.NewLink(txOut, nil)
)

func main() {
	rxLink = protocol.NewLink(nil, handleMessage)

	js.Global().Set("ppmtxWasm", js.ValueOf(map[string]interface{}{
		"feed":           js.FuncOf(feedWrapper),
		"crc16":          js.FuncOf(crc16Wrapper),
		"encodeOverride": js.FuncOf(encodeOverrideWrapper),
		"encodeEvent":    js.FuncOf(encodeEventWrapper),
		"counters":       js.FuncOf(countersWrapper),
		"version":        protocol.Version,
	}))

	// Keep the program running
	select {}
}

// feedWrapper appends received bytes and decodes every complete frame
// Args: hexString (string)
// Returns: [{type: "channels", pulses: [us...], sync: us} | {type: "status", ...}]
func feedWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return makeError("invalid hex string: " + err.Error())
	}

	reports = reports[:0]
	for len(data) > 0 {
		n := rxBuf.Write(data)
		data = data[n:]
		rxLink.Receive(rxBuf)
		if n == 0 {
			// Buffer full of garbage the link could not consume
			rxBuf.Reset()
		}
	}
	return js.ValueOf(reports)
}

func handleMessage(msgID uint8, data *[]byte) error {
	switch msgID {
	case protocol.MsgChannels:
		var c protocol.Channels
		if err := c.Decode(data); err != nil {
			return err
		}
		pulses := make([]interface{}, c.Count)
		for i := range pulses {
			pulses[i] = 1500 + float64(c.Values[i])/10
		}
		reports = append(reports, map[string]interface{}{
			"type":   "channels",
			"pulses": pulses,
			"sync":   int(core.TicksToUS(c.SyncTicks)),
		})

	case protocol.MsgStatus:
		var s protocol.Status
		if err := s.Decode(data); err != nil {
			return err
		}
		reports = append(reports, map[string]interface{}{
			"type":    "status",
			"uptime":  int(s.UptimeMs),
			"frames":  int(s.Frames),
			"skipped": int(s.Skipped),
			"mixed":   int(s.Mixed),
		})

	default:
		return protocol.ErrUnknownMessage
	}
	return nil
}

// crc16Wrapper calculates CRC16 checksum
// Args: hexString (string)
// Returns: number (uint16)
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(int(protocol.CRC16(data)))
}

// encodeOverrideWrapper builds an override frame
// Args: channel (1-based), value (0.1us around 1500us)
// Returns: hex string of the frame
func encodeOverrideWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("missing arguments")
	}
	ch := args[0].Int()
	if ch < 1 || ch > protocol.MaxChannels {
		return makeError("channel out of range")
	}
	return encodeFrame(protocol.MsgOverride, &protocol.Override{
		Channel: uint8(ch),
		Value:   int16(args[1].Int()),
	})
}

// encodeEventWrapper builds an event frame
// Args: kind (string, e.g. "crab"), channel, delta
// Returns: hex string of the frame
func encodeEventWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("missing event kind")
	}
	kind, ok := mix.ParseEventKind(args[0].String())
	if !ok {
		return makeError("unknown event kind " + args[0].String())
	}
	ev := &protocol.Event{Kind: uint8(kind), Delta: 1}
	if len(args) > 1 {
		ev.Channel = uint8(args[1].Int())
	}
	if len(args) > 2 {
		ev.Delta = int8(args[2].Int())
	}
	return encodeFrame(protocol.MsgEvent, ev)
}

func encodeFrame(id uint8, msg protocol.Encoder) interface{} {
	txOut.Reset()
	if err := txLink.SendMessage(id, msg); err != nil {
		return makeError(err.Error())
	}
	return js.ValueOf(hex.EncodeToString(txOut.Result()))
}

// countersWrapper returns the receive side link counters
func countersWrapper(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(map[string]interface{}{
		"received": int(rxLink.Received()),
		"lost":     int(rxLink.Lost()),
		"errors":   int(rxLink.Errors()),
	})
}

func makeError(msg string) js.Value {
	return js.ValueOf(map[string]interface{}{"error": msg})
}
