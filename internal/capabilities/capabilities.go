// Package capabilities is the static per-device-type capability table: what
// outputs, compensation factors, calibration points and configuration
// parameters each supported Atlas Scientific device type exposes.
package capabilities

import (
	"strings"
	"time"

	"atlas-scientific-service/internal/atlaserr"
	"atlas-scientific-service/internal/protocol"
)

// OutputUnit is one measurement a device can report.
type OutputUnit struct {
	Symbol    string
	Unit      string
	UnitCode  string
	ValueType protocol.ValueType
}

// CompensationCapability is an environmental factor a device's readings can
// be corrected for.
type CompensationCapability struct {
	Factor    string // lowercased, used as the lookup key
	Symbol    string
	Unit      string
	Command   string
	ValueType protocol.ValueType
}

// CalibrationCapability is one step of a device's calibration workflow.
type CalibrationCapability struct {
	ID          string
	Description string
	ValueType   protocol.ValueType
	SubCommand  string // empty means the step takes no sub-command
	NextPoints  []string
}

// CalibrationWorkflow is a device's full calibration sequence.
type CalibrationWorkflow struct {
	Latency     time.Duration
	StartPoints []string
	Points      []CalibrationCapability
}

// FindPoint looks up a calibration point by id, case-insensitively.
func (w *CalibrationWorkflow) FindPoint(id string) (CalibrationCapability, bool) {
	for _, p := range w.Points {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return CalibrationCapability{}, false
}

// ConfigurationCapability is a persistent device setting.
type ConfigurationCapability struct {
	Parameter string // lowercased, used as the lookup key
	Command   string // lowercased wire token
	ValueType protocol.ValueType
}

// ReadCapability describes a device's measurement output.
type ReadCapability struct {
	Latency time.Duration
	Outputs []OutputUnit
}

// DeviceCapabilities is the full capability set for one device type. A nil
// field means the device type doesn't support that concern at all.
type DeviceCapabilities struct {
	Read          *ReadCapability
	Compensation  map[string]CompensationCapability
	Calibration   *CalibrationWorkflow
	Configuration map[string]ConfigurationCapability
}

var table map[string]DeviceCapabilities

// Lookup returns the capability set for deviceType, or UnsupportedDevice if
// it isn't one of the registered types.
func Lookup(deviceType string) (DeviceCapabilities, error) {
	caps, ok := table[deviceType]
	if !ok {
		return DeviceCapabilities{}, atlaserr.UnsupportedDevice(deviceType)
	}
	return caps, nil
}

func output(symbol, unit string, vt protocol.ValueType, unitCodeOverride string) OutputUnit {
	code := unitCodeOverride
	if code == "" {
		code = symbol
	}
	return OutputUnit{Symbol: symbol, Unit: unit, UnitCode: strings.ToUpper(code), ValueType: vt}
}

func compensation(factor, symbol, unit, command string, vt protocol.ValueType) CompensationCapability {
	return CompensationCapability{
		Factor:    strings.ToLower(factor),
		Symbol:    symbol,
		Unit:      unit,
		Command:   command,
		ValueType: vt,
	}
}

func configuration(parameter, command string, vt protocol.ValueType) ConfigurationCapability {
	return ConfigurationCapability{
		Parameter: strings.ToLower(parameter),
		Command:   strings.ToLower(command),
		ValueType: vt,
	}
}

func compensationMap(cs ...CompensationCapability) map[string]CompensationCapability {
	m := make(map[string]CompensationCapability, len(cs))
	for _, c := range cs {
		m[c.Factor] = c
	}
	return m
}

func configurationMap(cs ...ConfigurationCapability) map[string]ConfigurationCapability {
	m := make(map[string]ConfigurationCapability, len(cs))
	for _, c := range cs {
		m[c.Parameter] = c
	}
	return m
}

// nameAndLED is the configuration block every device type shares.
func nameAndLED() map[string]ConfigurationCapability {
	return configurationMap(
		configuration("Name", "name", protocol.ValueString),
		configuration("LED", "L", protocol.ValueBool),
	)
}

func init() {
	table = map[string]DeviceCapabilities{
		"pH": {
			Read: &ReadCapability{
				Latency: 900 * time.Millisecond,
				Outputs: []OutputUnit{
					output("pH", "Power of Hydrogen", protocol.ValueFloat, ""),
				},
			},
			Compensation: compensationMap(
				compensation("Temperature", "°C", "degrees Celsius", "T", protocol.ValueFloat),
			),
			Calibration: &CalibrationWorkflow{
				Latency:     900 * time.Millisecond,
				StartPoints: []string{"mid"},
				Points: []CalibrationCapability{
					{ID: "mid", Description: "Single point calibration at midpoint", ValueType: protocol.ValueFloat, SubCommand: "mid", NextPoints: []string{"low", "Complete"}},
					{ID: "low", Description: "Two point calibration at lowpoint", ValueType: protocol.ValueFloat, SubCommand: "low", NextPoints: []string{"high", "Complete"}},
					{ID: "high", Description: "Three point calibration at highpoint", ValueType: protocol.ValueFloat, SubCommand: "high", NextPoints: []string{"Complete"}},
				},
			},
			Configuration: nameAndLED(),
		},
		"ORP": {
			Read: &ReadCapability{
				Latency: 900 * time.Millisecond,
				Outputs: []OutputUnit{
					output("mV", "millivolt", protocol.ValueFloat, ""),
				},
			},
			Calibration: &CalibrationWorkflow{
				Latency:     900 * time.Millisecond,
				StartPoints: []string{"any"},
				Points: []CalibrationCapability{
					{ID: "any", Description: "calibrates the ORP circuit to a set value", ValueType: protocol.ValueFloat, NextPoints: []string{"Complete"}},
				},
			},
			Configuration: nameAndLED(),
		},
		"DO": {
			Read: &ReadCapability{
				Latency: 600 * time.Millisecond,
				Outputs: []OutputUnit{
					output("%", "Percent saturation", protocol.ValueFloat, ""),
					output("mg/L", "milligram per litre", protocol.ValueFloat, "mg"),
				},
			},
			Compensation: compensationMap(
				compensation("Salinity", "μS", "microsiemens", "S", protocol.ValueFloat),
				compensation("Pressure", "kPa", "kilopascal", "P", protocol.ValueFloat),
				compensation("Temperature", "°C", "degrees Celsius", "T", protocol.ValueFloat),
			),
			Calibration: &CalibrationWorkflow{
				Latency:     1300 * time.Millisecond,
				StartPoints: []string{"atmospheric"},
				Points: []CalibrationCapability{
					{ID: "atmospheric", Description: "Calibrate to atmospheric oxygen levels", ValueType: protocol.ValueNone, NextPoints: []string{"0", "Complete"}},
					{ID: "0", Description: "Calibrate device to 0% dissolved oxygen", ValueType: protocol.ValueNone, SubCommand: "0", NextPoints: []string{"Complete"}},
				},
			},
			Configuration: nameAndLED(),
		},
		"EC": {
			Read: &ReadCapability{
				Latency: 600 * time.Millisecond,
				Outputs: []OutputUnit{
					output("EC", "Conductivity", protocol.ValueFloat, "EC"),
					output("T.D.S.", "Total Dissolved Solids", protocol.ValueFloat, "TDS"),
					output("μS", "microsiemens", protocol.ValueFloat, "S"),
					output("S.G.", "Specific Gravity", protocol.ValueFloat, "SG"),
				},
			},
			Compensation: compensationMap(
				compensation("Temperature", "°C", "degrees Celsius", "T", protocol.ValueFloat),
			),
			Calibration: &CalibrationWorkflow{
				Latency:     600 * time.Millisecond,
				StartPoints: []string{"dry"},
				Points: []CalibrationCapability{
					{ID: "dry", Description: "Dry calibration", ValueType: protocol.ValueNone, SubCommand: "dry", NextPoints: []string{"any", "low"}},
					{ID: "any", Description: "Single point calibration of any known conductivity", ValueType: protocol.ValueFloat, NextPoints: []string{"Complete"}},
					{ID: "low", Description: "Low end calibration of any known low conductivity", ValueType: protocol.ValueFloat, SubCommand: "low", NextPoints: []string{"high"}},
					{ID: "high", Description: "High end calibration of any known high conductivity", ValueType: protocol.ValueFloat, SubCommand: "high", NextPoints: []string{"Complete"}},
				},
			},
			Configuration: configurationMap(
				configuration("Name", "name", protocol.ValueString),
				configuration("LED", "L", protocol.ValueBool),
				configuration("K", "K", protocol.ValueFloat),
			),
		},
		"CO2": {
			Read: &ReadCapability{
				Latency: 900 * time.Millisecond,
				Outputs: []OutputUnit{
					output("ppm", "Gaseous CO2", protocol.ValueInt, "ppm"),
					output("°C", "Internal device temperature", protocol.ValueFloat, "t"),
				},
			},
			Configuration: nameAndLED(),
		},
		// RTD is absent from the Python capability table (it predates the
		// probe); values below follow spec.md's table directly.
		"RTD": {
			Read: &ReadCapability{
				Latency: 900 * time.Millisecond,
				Outputs: []OutputUnit{
					output("°C", "Temperature", protocol.ValueFloat, ""),
				},
			},
			Calibration: &CalibrationWorkflow{
				Latency:     900 * time.Millisecond,
				StartPoints: []string{"any"},
				Points: []CalibrationCapability{
					{ID: "any", Description: "calibrates the RTD probe to a known temperature", ValueType: protocol.ValueFloat, NextPoints: []string{"Complete"}},
				},
			},
			Configuration: nameAndLED(),
		},
	}
}
