package i2c

import "fmt"

// Address is a validated 7-bit I2C device address (0-127).
type Address int

// NewAddress validates v as a 7-bit I2C address.
func NewAddress(v int) (Address, error) {
	if v < 0 || v > 127 {
		return 0, fmt.Errorf("i2c: address %d out of range 0-127", v)
	}
	return Address(v), nil
}

// MaxAddress is the highest valid 7-bit address, used when scanning the bus.
const MaxAddress = 127
