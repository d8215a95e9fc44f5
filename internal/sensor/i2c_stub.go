//go:build !linux

package sensor

import "errors"

// I2CBus is not available on non-Linux platforms.
type I2CBus struct{}

// OpenI2C returns an error on non-Linux platforms.
func OpenI2C(device string, addr uint16) (*I2CBus, error) {
	return nil, errors.New("sensor: i2c not supported on this platform (requires Linux)")
}

// Tx is not implemented on non-Linux platforms.
func (b *I2CBus) Tx(w, r []byte) error {
	return errors.New("sensor: i2c not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *I2CBus) Close() error {
	return nil
}
