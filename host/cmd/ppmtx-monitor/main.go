package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"ppmtx/config"
	"ppmtx/host/monitor"
	"ppmtx/host/serial"
	"ppmtx/mix"
	"ppmtx/protocol"
)

var (
	device     = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	configPath = flag.String("config", "", "Model configuration JSON to compare against")
	override   = flag.String("override", "", "Force a channel for one frame, as ch=value (value -5000..5000)")
	hold       = flag.Bool("hold", false, "Keep re-sending -override until exit")
	event      = flag.String("event", "", "Send an input event, as kind[:channel[:delta]]")
	count      = flag.Int("count", 0, "Exit after this many channel reports (0 = run until interrupted)")
	verbose    = flag.Bool("verbose", false, "Also print status reports")
)

func main() {
	flag.Parse()

	fmt.Println("ppmtx monitor - transmitter telemetry (protocol v" + protocol.Version + ")")

	var model *config.Model
	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		model = &cfg.Model
		fmt.Printf("Model %s: %d channels, %dus frame\n", model.Name, model.Channels, model.FrameUS)
	}

	serialCfg := serial.DefaultConfig(*device)
	serialCfg.Baud = *baud

	fmt.Printf("Connecting to transmitter on %s...\n", *device)
	mon, port, err := monitor.Connect(serialCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	stop := make(chan struct{})
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	go func() {
		<-interrupted
		close(stop)
	}()

	reports := 0
	mon.OnChannels = func(c protocol.Channels) {
		line := monitor.FormatChannels(c)
		if model != nil && c.Count != model.Channels {
			line += fmt.Sprintf("  (expected %d channels)", model.Channels)
		}
		fmt.Println(line)

		reports++
		if *count > 0 && reports == *count {
			select {
			case <-stop:
			default:
				close(stop)
			}
		}
	}
	if *verbose {
		mon.OnStatus = func(s protocol.Status) {
			fmt.Printf("  uptime=%dms frames=%d mixed=%d skipped=%d link_errors=%d lost=%d\n",
				s.UptimeMs, s.Frames, s.Mixed, s.Skipped, mon.Link().Errors(), mon.Link().Lost())
		}
	}

	if *event != "" {
		kind, ch, delta, err := parseEvent(*event)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := mon.SendEvent(uint8(kind), ch, delta); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sent %s event\n", kind)
	}

	if *override != "" {
		ch, value, err := parseOverride(*override)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *hold {
			go func() {
				if err := mon.Hold(ch, value, 10*time.Millisecond, stop); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
			}()
			fmt.Printf("Holding CH%d at %.1fus\n", ch, monitor.PulseUS(value))
		} else {
			if err := mon.SendOverride(ch, value); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Sent override CH%d=%.1fus\n", ch, monitor.PulseUS(value))
		}
	}

	if err := mon.Run(stop); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parseOverride parses "ch=value"
func parseOverride(s string) (uint8, int16, error) {
	chStr, valueStr, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("override %q: expected ch=value", s)
	}
	ch, err := strconv.ParseUint(strings.TrimSpace(chStr), 10, 8)
	if err != nil || ch < 1 || ch > protocol.MaxChannels {
		return 0, 0, fmt.Errorf("override %q: channel must be 1..%d", s, protocol.MaxChannels)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(valueStr), 10, 16)
	if err != nil || value < -mix.ValueMax || value > mix.ValueMax {
		return 0, 0, fmt.Errorf("override %q: value must be %d..%d", s, -mix.ValueMax, mix.ValueMax)
	}
	return uint8(ch), int16(value), nil
}

// parseEvent parses "kind[:channel[:delta]]"
func parseEvent(s string) (mix.EventKind, uint8, int8, error) {
	parts := strings.Split(s, ":")
	kind, ok := mix.ParseEventKind(parts[0])
	if !ok {
		return 0, 0, 0, fmt.Errorf("event %q: unknown kind %q", s, parts[0])
	}

	var ch uint64
	var delta int64 = 1
	var err error
	if len(parts) > 1 {
		if ch, err = strconv.ParseUint(parts[1], 10, 8); err != nil {
			return 0, 0, 0, fmt.Errorf("event %q: bad channel: %w", s, err)
		}
	}
	if len(parts) > 2 {
		if delta, err = strconv.ParseInt(parts[2], 10, 8); err != nil {
			return 0, 0, 0, fmt.Errorf("event %q: bad delta: %w", s, err)
		}
	}
	return kind, uint8(ch), int8(delta), nil
}
