//go:build !linux

package sensor

import "errors"

// ReadyPin is not available on non-Linux platforms.
type ReadyPin struct{}

// OpenReadyPin returns an error on non-Linux platforms.
func OpenReadyPin(chipName string, offset int) (*ReadyPin, error) {
	return nil, errors.New("sensor: gpio not supported on this platform (requires Linux)")
}

// Ready is not implemented on non-Linux platforms.
func (p *ReadyPin) Ready() (bool, error) {
	return false, errors.New("sensor: gpio not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *ReadyPin) Close() error {
	return nil
}
