package monitor

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"ppmtx/core"
	"ppmtx/host/serial"
	"ppmtx/protocol"
)

// Monitor decodes transmitter telemetry and sends overrides and events
type Monitor struct {
	port io.ReadWriter
	rx   *protocol.FifoBuffer

	// mu guards the link's send side and out
	mu   sync.Mutex
	link *protocol.Link
	out  *protocol.ScratchOutput

	state    sync.Mutex
	channels protocol.Channels
	status   protocol.Status
	reports  uint32

	// OnChannels and OnStatus are called from Poll for every report
	OnChannels func(protocol.Channels)
	OnStatus   func(protocol.Status)
}

// New creates a monitor on an open port
func New(port io.ReadWriter) *Monitor {
	m := &Monitor{
		port: port,
		rx:   protocol.NewFifoBuffer(4 * protocol.MessageMax),
		out:  protocol.NewScratchOutput(),
	}
	m.link = protocol.NewLink(m.out, m.handleMessage)
	return m
}

// Connect opens device and returns a monitor on it. Close the returned
// port when done.
func Connect(cfg *serial.Config) (*Monitor, serial.Port, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	return New(port), port, nil
}

// Poll reads whatever the port delivers in one read and handles every
// complete frame. A read timeout is not an error.
func (m *Monitor) Poll() error {
	var buf [protocol.MessageMax]byte
	n := len(buf)
	if free := m.rx.Free(); free < n {
		n = free
	}
	read, err := m.port.Read(buf[:n])
	if read > 0 {
		m.rx.Write(buf[:read])
		m.link.Receive(m.rx)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read telemetry: %w", err)
	}
	return nil
}

// Run polls until stop is closed or the port fails
func (m *Monitor) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := m.Poll(); err != nil {
			return err
		}
	}
}

// Hold re-sends an override every period until stop is closed, keeping the
// channel forced on every frame
func (m *Monitor) Hold(channel uint8, value int16, period time.Duration, stop <-chan struct{}) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		if err := m.SendOverride(channel, value); err != nil {
			return err
		}
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) handleMessage(msgID uint8, data *[]byte) error {
	switch msgID {
	case protocol.MsgChannels:
		var c protocol.Channels
		if err := c.Decode(data); err != nil {
			return err
		}
		m.state.Lock()
		m.channels = c
		m.reports++
		m.state.Unlock()
		if m.OnChannels != nil {
			m.OnChannels(c)
		}

	case protocol.MsgStatus:
		var s protocol.Status
		if err := s.Decode(data); err != nil {
			return err
		}
		m.state.Lock()
		m.status = s
		m.state.Unlock()
		if m.OnStatus != nil {
			m.OnStatus(s)
		}

	default:
		return protocol.ErrUnknownMessage
	}
	return nil
}

// SendOverride forces channel (1-based) to value on the next frame
func (m *Monitor) SendOverride(channel uint8, value int16) error {
	if channel < 1 || channel > protocol.MaxChannels {
		return fmt.Errorf("override: channel %d out of range", channel)
	}
	return m.send(protocol.MsgOverride, &protocol.Override{Channel: channel, Value: value})
}

// SendEvent injects an input event
func (m *Monitor) SendEvent(kind uint8, channel uint8, delta int8) error {
	return m.send(protocol.MsgEvent, &protocol.Event{Kind: kind, Channel: channel, Delta: delta})
}

func (m *Monitor) send(id uint8, msg protocol.Encoder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.out.Reset()
	if err := m.link.SendMessage(id, msg); err != nil {
		return fmt.Errorf("failed to encode message %d: %w", id, err)
	}
	if _, err := m.port.Write(m.out.Result()); err != nil {
		return fmt.Errorf("failed to send message %d: %w", id, err)
	}
	return nil
}

// Latest returns the most recent reports
func (m *Monitor) Latest() (protocol.Channels, protocol.Status) {
	m.state.Lock()
	defer m.state.Unlock()
	return m.channels, m.status
}

// Reports returns how many channel reports were received
func (m *Monitor) Reports() uint32 {
	m.state.Lock()
	defer m.state.Unlock()
	return m.reports
}

// Link returns the underlying link for its counters
func (m *Monitor) Link() *protocol.Link {
	return m.link
}

// PulseUS converts a channel value to the pulse width in microseconds
func PulseUS(v int16) float64 {
	return 1500 + float64(v)/10
}

// FormatChannels renders a report as "CH1 1500.0 CH2 ..." in microseconds
func FormatChannels(c protocol.Channels) string {
	s := ""
	for i := 0; i < int(c.Count); i++ {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("CH%d %6.1f", i+1, PulseUS(c.Values[i]))
	}
	s += fmt.Sprintf(" SYNC %dus", core.TicksToUS(c.SyncTicks))
	return s
}
