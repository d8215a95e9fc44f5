package sensor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Address is the SCD30 I2C address.
const Address = 0x61

// SCD30 commands.
const (
	cmdStartContinuous  uint16 = 0x0010
	cmdStopContinuous   uint16 = 0x0104
	cmdSetInterval      uint16 = 0x4600
	cmdGetDataReady     uint16 = 0x0202
	cmdReadMeasurement  uint16 = 0x0300
	measurementFrameLen        = 18
)

// Bus is a write-then-read transaction channel to a single I2C device.
type Bus interface {
	// Tx writes w (if non-empty) then reads len(r) bytes into r (if non-empty).
	Tx(w, r []byte) error
	Close() error
}

// ReadyLine reports the SCD30 RDY pin level.
type ReadyLine interface {
	Ready() (bool, error)
	Close() error
}

// SCD30Options configures measurement.
type SCD30Options struct {
	// Interval is the measurement interval, 2s..1800s.
	Interval time.Duration
	// AmbientPressure in mbar for pressure compensation; 0 disables it.
	AmbientPressure uint16
}

// SCD30 reads measurements from a Sensirion SCD30 module.
type SCD30 struct {
	bus   Bus
	ready ReadyLine
	now   func() time.Time
}

// NewSCD30 configures the measurement interval and starts continuous measurement.
// ready may be nil, in which case data readiness is polled over I2C.
func NewSCD30(bus Bus, ready ReadyLine, opts SCD30Options) (*SCD30, error) {
	interval := opts.Interval
	if interval < 2*time.Second {
		interval = 2 * time.Second
	}
	if interval > 1800*time.Second {
		interval = 1800 * time.Second
	}

	s := &SCD30{bus: bus, ready: ready, now: time.Now}

	if err := s.command(cmdSetInterval, uint16(interval/time.Second)); err != nil {
		return nil, fmt.Errorf("set measurement interval: %w", err)
	}
	if err := s.command(cmdStartContinuous, opts.AmbientPressure); err != nil {
		return nil, fmt.Errorf("start continuous measurement: %w", err)
	}
	return s, nil
}

// Read returns the latest measurement, or ErrNotReady if none is pending.
func (s *SCD30) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	ready, err := s.dataReady()
	if err != nil {
		return Reading{}, fmt.Errorf("data ready: %w", err)
	}
	if !ready {
		return Reading{}, ErrNotReady
	}

	frame := make([]byte, measurementFrameLen)
	if err := s.bus.Tx(encodeCommand(cmdReadMeasurement), frame); err != nil {
		return Reading{}, fmt.Errorf("read measurement: %w", err)
	}

	co2, temp, hum, err := decodeMeasurement(frame)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		CO2:         co2,
		Temperature: temp,
		Humidity:    hum,
		Time:        s.now(),
	}, nil
}

// Close stops continuous measurement and releases the bus and ready line.
func (s *SCD30) Close() error {
	var errs []error
	if err := s.bus.Tx(encodeCommand(cmdStopContinuous), nil); err != nil {
		errs = append(errs, fmt.Errorf("stop measurement: %w", err))
	}
	if s.ready != nil {
		if err := s.ready.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ready line: %w", err))
		}
	}
	if err := s.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	return errors.Join(errs...)
}

func (s *SCD30) dataReady() (bool, error) {
	if s.ready != nil {
		return s.ready.Ready()
	}

	buf := make([]byte, 3)
	if err := s.bus.Tx(encodeCommand(cmdGetDataReady), buf); err != nil {
		return false, err
	}
	word, err := checkedWord(buf)
	if err != nil {
		return false, err
	}
	return word == 1, nil
}

func (s *SCD30) command(cmd, arg uint16) error {
	return s.bus.Tx(encodeCommandArg(cmd, arg), nil)
}

func encodeCommand(cmd uint16) []byte {
	return []byte{byte(cmd >> 8), byte(cmd)}
}

func encodeCommandArg(cmd, arg uint16) []byte {
	a := []byte{byte(arg >> 8), byte(arg)}
	return []byte{byte(cmd >> 8), byte(cmd), a[0], a[1], crc8(a)}
}

// decodeMeasurement parses the 18-byte frame: three big-endian float32 values
// (CO2, temperature, humidity), each sent as two CRC-protected 16-bit words.
func decodeMeasurement(frame []byte) (co2, temp, hum float64, err error) {
	if len(frame) != measurementFrameLen {
		return 0, 0, 0, fmt.Errorf("measurement frame: got %d bytes, want %d", len(frame), measurementFrameLen)
	}

	var values [3]float64
	for i := range values {
		chunk := frame[i*6 : i*6+6]
		hi, err := checkedWord(chunk[0:3])
		if err != nil {
			return 0, 0, 0, err
		}
		lo, err := checkedWord(chunk[3:6])
		if err != nil {
			return 0, 0, 0, err
		}
		v := float64(math.Float32frombits(uint32(hi)<<16 | uint32(lo)))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, fmt.Errorf("measurement frame: non-finite value at word %d", i)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}

func checkedWord(b []byte) (uint16, error) {
	if crc8(b[:2]) != b[2] {
		return 0, ErrCRC
	}
	return binary.BigEndian.Uint16(b[:2]), nil
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
