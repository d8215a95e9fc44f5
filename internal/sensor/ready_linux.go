//go:build linux

package sensor

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ReadyPin watches the SCD30 RDY output through the Linux GPIO character device.
// RDY is driven high while a new measurement is waiting to be read.
type ReadyPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// OpenReadyPin requests offset on chip (e.g. "gpiochip0") as an input with pull-down.
func OpenReadyPin(chipName string, offset int) (*ReadyPin, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request RDY pin %d: %w", offset, err)
	}

	return &ReadyPin{chip: chip, line: line}, nil
}

// Ready reports whether RDY is high.
func (p *ReadyPin) Ready() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read RDY pin: %w", err)
	}
	return v == 1, nil
}

// Close leaves the pin as an input with pull-down (the Pi boot default) and
// releases it.
func (p *ReadyPin) Close() error {
	var errs []error
	if p.line != nil {
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure RDY pin: %w", err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close RDY pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
