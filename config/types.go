package config

// Axis identifies an analog input
type Axis uint8

const (
	AxisSteering Axis = iota
	AxisThrottle
	AxisAux
	NumAxes
)

func (a Axis) String() string {
	switch a {
	case AxisSteering:
		return "steering"
	case AxisThrottle:
		return "throttle"
	case AxisAux:
		return "aux"
	}
	return "unknown"
}

// Side indexes the two halves of an axis
const (
	SideLeft  = 0 // negative values: left / brake
	SideRight = 1 // positive values: right / forward
)

// Indexes into the dual-rate and expo triples
const (
	RateSteering = 0
	RateForward  = 1
	RateBack     = 2
)

// ABSMode selects the simulated anti-lock braking pulse cycle
type ABSMode uint8

const (
	ABSOff ABSMode = iota
	ABSSlow
	ABSNormal
	ABSFast
)

// CalibrationPoint holds the raw oversampled ADC boundaries of one axis
type CalibrationPoint struct {
	Left  uint16 `json:"left"`
	Mid   uint16 `json:"mid"`
	Right uint16 `json:"right"`
	Dead  uint16 `json:"dead"`
}

// FourWSMix splits steering into front (channel 1) and rear channels
type FourWSMix struct {
	Channel uint8 `json:"channel"` // rear steering channel, 0 = off
	Mix     int8  `json:"mix"`     // >0 rear follows at mix%, <0 front reduced to (100+mix)%
	Crab    bool  `json:"crab"`    // rear steers the same direction as front
}

// DIGMix splits throttle into two motor channels (channel 2 and Channel)
type DIGMix struct {
	Channel  uint8 `json:"channel"`   // second motor channel, 0 = off
	Mix      int8  `json:"mix"`       // >0 reduces the second motor, <0 the first
	BrakeCut bool  `json:"brake_cut"` // double the reduction to get contra-rotation
}

// BrakeMix derives a brake servo channel from the braking half of throttle
type BrakeMix struct {
	Channel      uint8 `json:"channel"`       // 0 = off
	ThrottleOnly bool  `json:"throttle_only"` // remove the braking half from channel 2
}

// MultiPosition is a channel cycled through preset percentages
type MultiPosition struct {
	Channel   uint8  `json:"channel"`
	Positions []int8 `json:"positions"`
}

// MixConfig is the per-model mixing configuration
type MixConfig struct {
	Reverse     uint8                 `json:"reverse"` // bit ch-1 set = channel reversed
	Endpoint    [MaxChannels][2]uint8 `json:"endpoint"`
	EndpointMax uint8                 `json:"endpoint_max"`
	Subtrim     [MaxChannels]int8     `json:"subtrim"`
	Trim        [2]int8               `json:"trim"` // steering, throttle
	DualRate    [3]uint8              `json:"dual_rate"`
	Expo        [3]int8               `json:"expo"`
	Speed       [MaxChannels]uint8    `json:"speed"` // speed[0] is steering turn speed
	SteerReturn uint8                 `json:"steer_return"`
	ForwardOnly bool                  `json:"forward_only"`
	ABS         ABSMode               `json:"abs"`
	FourWS      FourWSMix             `json:"four_ws"`
	DIG         DIGMix                `json:"dig"`
	Brake       BrakeMix              `json:"brake"`
	Multi       []MultiPosition       `json:"multi_position"`
	Values      [MaxChannels]int8     `json:"values"` // percent for channels 3..N
}

// Model is one stored vehicle setup
type Model struct {
	Name     string    `json:"name"`
	Channels uint8     `json:"channels"`
	FrameUS  uint32    `json:"frame_us"`
	Mix      MixConfig `json:"mix"`
}

// Button maps a push button to the input event it raises
type Button struct {
	Pin     uint8  `json:"pin"`
	Event   string `json:"event"` // event kind name, e.g. "crab"
	Channel uint8  `json:"channel,omitempty"`
	Delta   int8   `json:"delta,omitempty"`
}

// Radio holds the transmitter-wide settings
type Radio struct {
	Calibration [NumAxes]CalibrationPoint `json:"calibration"`
	ADCChannels [NumAxes]uint8            `json:"adc_channels"`
	PPMPin      uint8                     `json:"ppm_pin"`
	EncoderA    uint8                     `json:"encoder_a"`
	EncoderB    uint8                     `json:"encoder_b"`
	Buttons     []Button                  `json:"buttons"`
}

// Config is the whole configuration handed to the core
type Config struct {
	Radio Radio `json:"radio"`
	Model Model `json:"model"`
}

// Reversed reports whether channel ch (1-based) has its reverse bit set
func (m *MixConfig) Reversed(ch int) bool {
	return m.Reverse&(1<<uint(ch-1)) != 0
}
