package domain

import (
	"math"
)

const (
	MAX_SPEED = 6
)

type RFEvent int

const (
	RF_EVENT_NONE RFEvent = iota
	RF_EVENT_STEP_DOWN
	RF_EVENT_STEP_UP
	RF_EVENT_POWER_TOGGLE
)

func (e RFEvent) String() string {
	switch e {
	case RF_EVENT_STEP_DOWN:
		return "step_down"
	case RF_EVENT_STEP_UP:
		return "step_up"
	case RF_EVENT_POWER_TOGGLE:
		return "power_toggle"
	default:
		return "none"
	}
}

// FanState is the best-effort estimate of the physical fan state.
// The device has no feedback channel, so it can drift after restarts
// or missed RF messages.
type FanState struct {
	On         bool `json:"on"`
	Speed      int  `json:"speed"`
	Percentage int  `json:"percentage"`
}

func NewFanState(on bool, speed int) FanState {
	speed = clamp(speed, 0, MAX_SPEED)
	if !on {
		speed = 0
	}
	return FanState{
		On:         on,
		Speed:      speed,
		Percentage: SpeedToPercentage(speed),
	}
}

// RFPayloads are the three RF code signatures of the fan remote.
type RFPayloads struct {
	PowerToggle string
	StepUp      string
	StepDown    string
}

// RFCommand is the RfSend envelope expected by the RF bridge.
type RFCommand struct {
	Data     string `json:"Data"`
	Bits     int    `json:"Bits"`
	Protocol int    `json:"Protocol"`
	Pulse    int    `json:"Pulse"`
	Repeat   int    `json:"Repeat"`
}

// RFProtocol holds the envelope fields that do not change between commands.
type RFProtocol struct {
	Bits     int
	Protocol int
	Pulse    int
	Repeat   int
}

func DefaultRFProtocol() RFProtocol {
	return RFProtocol{
		Bits:     18,
		Protocol: 8,
		Pulse:    320,
		Repeat:   2,
	}
}

func (p RFProtocol) Command(code string) RFCommand {
	return RFCommand{
		Data:     code,
		Bits:     p.Bits,
		Protocol: p.Protocol,
		Pulse:    p.Pulse,
		Repeat:   p.Repeat,
	}
}

// PercentageToSpeed maps a percentage to a discrete speed in [1, MAX_SPEED].
// Ties are rounded half to even (25% => 2, 75% => 4).
func PercentageToSpeed(percentage int) int {
	percentage = clamp(percentage, 0, 100)
	speed := int(math.RoundToEven(float64(percentage) / 100 * MAX_SPEED))
	return clamp(speed, 1, MAX_SPEED)
}

func SpeedToPercentage(speed int) int {
	speed = clamp(speed, 0, MAX_SPEED)
	return int(math.Round(float64(speed) / MAX_SPEED * 100))
}

// PercentageStep is the percentage covered by one speed level.
func PercentageStep() float64 {
	return 100.0 / MAX_SPEED
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
