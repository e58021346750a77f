package config

import (
	"encoding/json"

	"ppmtx/core"
)

// MaxChannels is the number of servo channels a model can use
const MaxChannels = core.MaxChannels

// Setting ranges
const (
	DefaultEndpointMax = 120
	EndpointMaxLimit   = 150
	TrimLimit          = 99
	ExpoLimit          = 99
	PercentLimit       = 100
	MaxPositions       = 8

	// TrimStep converts trim and subtrim steps to channel value units (1us)
	TrimStep = 10
)

// LoadConfig parses a JSON configuration and returns it with defaults applied.
// The result is not validated; call Validate before entering the real-time path.
func LoadConfig(jsonData []byte) (*Config, error) {
	config := DefaultConfig()

	// Decode over the defaults so omitted sections keep them
	if err := json.Unmarshal(jsonData, config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	return config, nil
}

// applyDefaults fills in settings that were decoded as zero but cannot be zero
func applyDefaults(config *Config) {
	model := &config.Model

	if model.Channels == 0 {
		model.Channels = 3
	}
	if model.FrameUS == 0 {
		model.FrameUS = core.DefaultFrameUS
	}
	if model.Name == "" {
		model.Name = "MODEL"
	}

	mix := &model.Mix
	if mix.EndpointMax == 0 {
		mix.EndpointMax = DefaultEndpointMax
	}
	for i := range mix.Speed {
		if mix.Speed[i] == 0 {
			mix.Speed[i] = PercentLimit
		}
	}
	if mix.SteerReturn == 0 {
		mix.SteerReturn = PercentLimit
	}
}

// DefaultConfig returns a 3-channel car setup with a nominal calibration for a
// 12-bit ADC oversampled 4 times
func DefaultConfig() *Config {
	cfg := &Config{
		Radio: Radio{
			ADCChannels: [NumAxes]uint8{0, 1, 2},
			PPMPin:      15,
			EncoderA:    10,
			EncoderB:    11,
			Buttons: []Button{
				{Pin: 12, Event: "crab"},
				{Pin: 13, Event: "brake_cut"},
			},
		},
		Model: Model{
			Name:     "MODEL",
			Channels: 3,
			FrameUS:  core.DefaultFrameUS,
		},
	}

	for i := range cfg.Radio.Calibration {
		cfg.Radio.Calibration[i] = CalibrationPoint{
			Left:  400,
			Mid:   8190,
			Right: 15980,
			Dead:  40,
		}
	}

	mix := &cfg.Model.Mix
	mix.EndpointMax = DefaultEndpointMax
	for i := range mix.Endpoint {
		mix.Endpoint[i] = [2]uint8{100, 100}
	}
	mix.DualRate = [3]uint8{100, 100, 100}
	for i := range mix.Speed {
		mix.Speed[i] = PercentLimit
	}
	mix.SteerReturn = PercentLimit

	return cfg
}

// Marshal encodes the configuration as indented JSON
func (c *Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
