// Package sensor reads cabin air quality (CO2, temperature, relative humidity)
// with hardware abstraction.
// The real implementation drives a Sensirion SCD30 over Linux I2C, optionally
// watching its data-ready pin through the GPIO character device.
// The fake implementation allows testing without hardware.
package sensor

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotReady is returned when the sensor has no new measurement yet.
	ErrNotReady = errors.New("sensor: no new measurement available")

	// ErrCRC is returned when a word read from the sensor fails its checksum.
	ErrCRC = errors.New("sensor: crc mismatch")
)

// Reading is one environmental measurement.
type Reading struct {
	CO2         float64 // ppm
	Temperature float64 // °C
	Humidity    float64 // %RH
	Time        time.Time
}

// Reader reads environmental measurements.
type Reader interface {
	// Read returns the latest measurement.
	// Returns ErrNotReady if the device has nothing new since the last read.
	Read(ctx context.Context) (Reading, error)

	// Close releases sensor resources.
	Close() error
}
