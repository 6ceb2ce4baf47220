// Package atlas implements the Atlas Scientific device driver: identity
// handshake, capability-aware read/compensate/calibrate/configure
// operations, the NOT_READY retry/backoff state machine, and the device bus
// that discovers and caches attached devices.
package atlas

import (
	"time"

	"atlas-scientific-service/internal/capabilities"
	"atlas-scientific-service/internal/i2c"
	"atlas-scientific-service/internal/protocol"
)

// DeviceInfo is the identity a device reports once, at attach time.
type DeviceInfo struct {
	Address         i2c.Address
	DeviceType      string
	FirmwareVersion string
}

// Sample is one measured value, carrying enough metadata for a caller to
// render or validate it without consulting the capability table again.
type Sample struct {
	Symbol    string
	UnitCode  string
	Value     string
	ValueType protocol.ValueType
	Timestamp time.Time
}

// CompensationFactor is one environmental correction applied before a read.
type CompensationFactor struct {
	Factor string
	Symbol string
	Value  string
}

// CalibrationPoint is one step of a device's calibration workflow.
type CalibrationPoint struct {
	Point       string
	ActualValue string
	HasValue    bool // false means the point was given no actual_value at all
}

// ConfigurationParameter is a single persistent device setting to write.
type ConfigurationParameter struct {
	Parameter string
	Value     string
}

// OutputUnit re-exports the capability table's output description; samples
// and enabled-output listings are expressed in terms of it directly.
type OutputUnit = capabilities.OutputUnit
