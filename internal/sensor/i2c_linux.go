//go:build linux

package sensor

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl request from linux/i2c-dev.h.
const i2cSlave = 0x0703

// readDelay is the minimum pause the SCD30 needs between a command and its response.
const readDelay = 3 * time.Millisecond

// I2CBus talks to one device on a Linux /dev/i2c-N adapter.
type I2CBus struct {
	mu sync.Mutex
	f  *os.File
}

// OpenI2C opens the adapter device (e.g. /dev/i2c-1) and binds it to addr.
func OpenI2C(device string, addr uint16) (*I2CBus, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set i2c address 0x%02x: %w", addr, err)
	}
	return &I2CBus{f: f}, nil
}

// Tx writes w then, after a short delay, reads len(r) bytes.
func (b *I2CBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(w) > 0 {
		if _, err := b.f.Write(w); err != nil {
			return fmt.Errorf("i2c write: %w", err)
		}
	}
	if len(r) > 0 {
		time.Sleep(readDelay)
		if _, err := io.ReadFull(b.f, r); err != nil {
			return fmt.Errorf("i2c read: %w", err)
		}
	}
	return nil
}

// Close closes the adapter device.
func (b *I2CBus) Close() error {
	return b.f.Close()
}
