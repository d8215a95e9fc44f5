// Package logic contains the pure decision logic of the cabin monitor:
// sensor smoothing, detection counting and the alert policy.
// This package has NO external dependencies (no I2C, MQTT, HTTP, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// BoundingBox is the pixel rectangle of a detection within its frame.
type BoundingBox struct {
	X int
	Y int
	W int
	H int
}

// Detection is one classified object reported by the vision pipeline for a single frame.
type Detection struct {
	Label      string
	Confidence float64
	Box        BoundingBox
}

// DetectionCount is the number of living entities of interest seen in a frame.
type DetectionCount struct {
	People  int
	Animals int
}

// Total returns people plus animals.
func (c DetectionCount) Total() int {
	return c.People + c.Animals
}

// Occupied reports whether at least one person or animal is present.
func (c DetectionCount) Occupied() bool {
	return c.People > 0 || c.Animals > 0
}

// Smoothed is the output of a sliding window: the moving average of the
// values and the moving average of the per-step rates (units per second).
type Smoothed struct {
	Value float64
	Rate  float64
}

// SmoothedEnvironment holds the smoothed state of every monitored quantity.
type SmoothedEnvironment struct {
	CO2         Smoothed
	Temperature Smoothed
	Humidity    Smoothed
}

// Thresholds configures the alert policy.
type Thresholds struct {
	// CO2Max is the CO2 concentration (ppm) above which the cabin is unsafe.
	CO2Max float64
	// TempMax is the temperature (°C) above which the cabin is unsafe.
	TempMax float64
	// MinInterval is the minimum time between two alerts.
	MinInterval time.Duration
}

// Default thresholds.
const (
	DefaultCO2Max      = 1900
	DefaultTempMax     = 40
	DefaultMinInterval = 5 * time.Second
	DefaultWindowSize  = 10
)

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CO2Max:      DefaultCO2Max,
		TempMax:     DefaultTempMax,
		MinInterval: DefaultMinInterval,
	}
}

// Exceeded returns the names of the quantities above their threshold,
// in the order "co2", "temperature". Empty when the cabin is within limits.
func (t Thresholds) Exceeded(env SmoothedEnvironment) []string {
	var over []string
	if env.CO2.Value > t.CO2Max {
		over = append(over, "co2")
	}
	if env.Temperature.Value > t.TempMax {
		over = append(over, "temperature")
	}
	return over
}

// PolicyState is the state of the alert policy.
type PolicyState string

const (
	StateReady    PolicyState = "READY"
	StateCooldown PolicyState = "COOLDOWN"
)
