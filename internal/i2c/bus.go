package i2c

import (
	periphi2c "periph.io/x/conn/v3/i2c"
)

// readChunkSize bounds a single read transaction; Atlas Scientific replies
// never exceed this, matching the Python I2CBusIo's read_chunk_size.
const readChunkSize = 32

// RawBus is the minimal device-agnostic I2C surface the session layer needs:
// no retries, no payload interpretation, no knowledge of the Atlas
// Scientific wire format.
type RawBus interface {
	Ping(addr Address) bool
	Read(addr Address) ([]byte, error)
	Write(addr Address, data []byte) error
}

// PeriphBus adapts a periph.io/x/conn/v3/i2c.Bus to RawBus.
type PeriphBus struct {
	bus periphi2c.Bus
}

// NewPeriphBus wraps an already-opened periph.io I2C bus (typically from
// periph.io/x/conn/v3/i2c/i2creg.Open, after periph.io/x/host/v3.Init()).
func NewPeriphBus(bus periphi2c.Bus) *PeriphBus {
	return &PeriphBus{bus: bus}
}

// Ping probes addr with a single chunk read; it reports whether any device
// acknowledged the address. The read error itself is not returned.
func (b *PeriphBus) Ping(addr Address) bool {
	_, err := b.read(addr)
	return err == nil
}

func (b *PeriphBus) Read(addr Address) ([]byte, error) {
	return b.read(addr)
}

func (b *PeriphBus) read(addr Address) ([]byte, error) {
	buf := make([]byte, readChunkSize)
	dev := &periphi2c.Dev{Bus: b.bus, Addr: uint16(addr)}
	if err := dev.Tx(nil, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *PeriphBus) Write(addr Address, data []byte) error {
	dev := &periphi2c.Dev{Bus: b.bus, Addr: uint16(addr)}
	return dev.Tx(data, nil)
}
