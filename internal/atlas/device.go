package atlas

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"atlas-scientific-service/internal/atlaserr"
	"atlas-scientific-service/internal/atlaslog"
	"atlas-scientific-service/internal/capabilities"
	"atlas-scientific-service/internal/i2c"
	"atlas-scientific-service/internal/protocol"
)

// defaultCommandLatency is the nominal wait for identity, output
// enable/disable, compensation-set and configuration-set commands: 0.3s,
// confirmed against original_source/.../test_ph_device.py.
const defaultCommandLatency = 300 * time.Millisecond

// Device is a single attached Atlas Scientific sensor, bound to one I2C
// address and one capability set for its lifetime.
type Device struct {
	address  i2c.Address
	sessions *i2c.SessionProvider
	clock    Clock
	sleeper  Sleeper
	log      *atlaslog.Logger
	timeout  time.Duration

	info DeviceInfo
	caps capabilities.DeviceCapabilities

	// enabledOutputs is nil until the first query (or until invalidated by
	// a toggle); this matches original_source's current_output_measurements
	// lazy cache.
	enabledOutputs []OutputUnit
}

func newDevice(ctx context.Context, addr i2c.Address, sessions *i2c.SessionProvider, clock Clock, sleeper Sleeper, log *atlaslog.Logger, timeout time.Duration) (*Device, error) {
	d := &Device{
		address:  addr,
		sessions: sessions,
		clock:    clock,
		sleeper:  sleeper,
		log:      log.With("address", int(addr)),
		timeout:  timeout,
	}

	sess, err := sessions.Acquire(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	resp, err := d.transact(sess, "i", defaultCommandLatency)
	if err != nil {
		return nil, err
	}

	deviceType, err := resp.GetField("device_type", 1)
	if err != nil {
		return nil, err
	}
	version, err := resp.GetField("version", 2)
	if err != nil {
		return nil, err
	}

	caps, err := capabilities.Lookup(deviceType)
	if err != nil {
		return nil, err
	}

	d.info = DeviceInfo{Address: addr, DeviceType: deviceType, FirmwareVersion: version}
	d.caps = caps
	return d, nil
}

// transact writes cmd (NUL-terminated) once, then reads on the wait
// schedule [latency, latency/3, latency/3, latency/3], retrying the read
// (never the write) while the device reports NOT_READY. Up to 4 read
// attempts; exhausting them surfaces DeviceNotReady.
func (d *Device) transact(sess *i2c.Session, cmd string, latency time.Duration) (*protocol.Response, error) {
	if err := sess.Write([]byte(cmd + "\x00")); err != nil {
		return nil, err
	}

	schedule := [4]time.Duration{latency, latency / 3, latency / 3, latency / 3}

	for _, wait := range schedule {
		d.sleeper.Sleep(wait)

		raw, err := sess.Read()
		if err != nil {
			return nil, err
		}
		resp, err := protocol.Parse(raw, d.clock.Now())
		if err != nil {
			return nil, err
		}

		switch resp.Status {
		case protocol.StatusOK, protocol.StatusAck:
			return resp, nil
		case protocol.StatusSyntax:
			return nil, atlaserr.CommandRejected(cmd)
		case protocol.StatusNotReady:
			continue
		}
	}
	return nil, atlaserr.DeviceNotReady(cmd)
}

// GetDeviceInfo returns the identity captured at attach time; never touches
// the bus.
func (d *Device) GetDeviceInfo() DeviceInfo { return d.info }

// GetSupportedOutputMeasurements lists every output this device type can
// report, regardless of which are currently enabled.
func (d *Device) GetSupportedOutputMeasurements() []OutputUnit {
	if d.caps.Read == nil {
		return nil
	}
	return d.caps.Read.Outputs
}

func (d *Device) readLatency() time.Duration {
	if d.caps.Read != nil {
		return d.caps.Read.Latency
	}
	return defaultCommandLatency
}

// getEnabledOutputsLocked assumes sess already holds the address lock for
// this call. A device with zero or one possible output skips the wire
// round-trip entirely: there's nothing to toggle.
func (d *Device) getEnabledOutputsLocked(sess *i2c.Session) ([]OutputUnit, error) {
	if d.enabledOutputs != nil {
		return d.enabledOutputs, nil
	}
	if d.caps.Read == nil {
		d.enabledOutputs = []OutputUnit{}
		return d.enabledOutputs, nil
	}
	if len(d.caps.Read.Outputs) <= 1 {
		d.enabledOutputs = append([]OutputUnit{}, d.caps.Read.Outputs...)
		return d.enabledOutputs, nil
	}

	resp, err := d.transact(sess, "o,?", defaultCommandLatency)
	if err != nil {
		return nil, err
	}
	raw, err := resp.GetFields("output", 1, -1)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]OutputUnit, len(d.caps.Read.Outputs))
	for _, u := range d.caps.Read.Outputs {
		bySymbol[u.UnitCode] = u
	}

	enabled := make([]OutputUnit, 0, len(raw))
	for _, r := range raw {
		if u, ok := bySymbol[strings.ToUpper(r)]; ok {
			enabled = append(enabled, u)
		}
	}
	d.enabledOutputs = enabled
	return enabled, nil
}

// GetEnabledOutputMeasurements returns the currently-enabled output subset,
// querying the device only if the cache has been invalidated.
func (d *Device) GetEnabledOutputMeasurements(ctx context.Context) ([]OutputUnit, error) {
	if d.enabledOutputs != nil {
		return d.enabledOutputs, nil
	}
	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return d.getEnabledOutputsLocked(sess)
}

// SetEnabledOutputMeasurements enables exactly the given unit codes and
// disables every other supported output, diffing against the current state
// so only the units that actually change are toggled on the wire.
func (d *Device) SetEnabledOutputMeasurements(ctx context.Context, units []string) error {
	requested := make(map[string]bool, len(units))
	for _, u := range units {
		requested[strings.ToUpper(u)] = true
	}

	if d.caps.Read == nil {
		if len(requested) == 0 {
			return nil
		}
		return atlaserr.RequestValidation("device has no output measurements to enable")
	}

	supported := make(map[string]bool, len(d.caps.Read.Outputs))
	for _, u := range d.caps.Read.Outputs {
		supported[u.UnitCode] = true
	}

	var unsupported []string
	for u := range requested {
		if !supported[u] {
			unsupported = append(unsupported, u)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return atlaserr.RequestValidation(fmt.Sprintf("unsupported output unit(s): %s", strings.Join(unsupported, ", ")))
	}

	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return err
	}
	defer sess.Close()

	current, err := d.getEnabledOutputsLocked(sess)
	if err != nil {
		return err
	}
	currentSet := make(map[string]bool, len(current))
	for _, u := range current {
		currentSet[u.UnitCode] = true
	}

	var toEnable, toDisable []string
	for u := range requested {
		if !currentSet[u] {
			toEnable = append(toEnable, u)
		}
	}
	for u := range currentSet {
		if !requested[u] {
			toDisable = append(toDisable, u)
		}
	}
	sort.Strings(toEnable)
	sort.Strings(toDisable)

	for _, u := range toEnable {
		if _, err := d.transact(sess, fmt.Sprintf("o,%s,1", u), defaultCommandLatency); err != nil {
			return err
		}
		d.enabledOutputs = nil
	}
	for _, u := range toDisable {
		if _, err := d.transact(sess, fmt.Sprintf("o,%s,0", u), defaultCommandLatency); err != nil {
			return err
		}
		d.enabledOutputs = nil
	}
	return nil
}

func (d *Device) supportsTemperatureCompensation() bool {
	if d.caps.Compensation == nil {
		return false
	}
	_, ok := d.caps.Compensation["temperature"]
	return ok
}

func (d *Device) setCompensationFactorLocked(sess *i2c.Session, cf CompensationFactor) error {
	if d.caps.Compensation == nil {
		return atlaserr.RequestValidation(fmt.Sprintf("device does not support compensation factor %q", cf.Factor))
	}
	factor, ok := d.caps.Compensation[strings.ToLower(cf.Factor)]
	if !ok {
		return atlaserr.RequestValidation(fmt.Sprintf("unknown compensation factor %q", cf.Factor))
	}
	if !strings.EqualFold(cf.Symbol, factor.Symbol) {
		return atlaserr.RequestValidation(fmt.Sprintf("compensation factor %q expects symbol %q, got %q", cf.Factor, factor.Symbol, cf.Symbol))
	}
	value, err := factor.ValueType.Validate(cf.Value)
	if err != nil {
		return err
	}
	_, err = d.transact(sess, fmt.Sprintf("%s,%s", factor.Command, value), defaultCommandLatency)
	return err
}

// SetMeasurementCompensationFactors writes each compensation factor to the
// device in the order given.
func (d *Device) SetMeasurementCompensationFactors(ctx context.Context, factors []CompensationFactor) error {
	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, cf := range factors {
		if err := d.setCompensationFactorLocked(sess, cf); err != nil {
			return err
		}
	}
	return nil
}

// ReadSample applies any non-temperature compensation factors, then reads
// a sample, folding a temperature factor into the read command itself (rt,
// instead of r) when the device type supports temperature-compensated
// reads. The whole sequence runs under one session.
func (d *Device) ReadSample(ctx context.Context, factors []CompensationFactor) ([]Sample, error) {
	var temperature *CompensationFactor
	other := make([]CompensationFactor, 0, len(factors))
	for i := range factors {
		cf := factors[i]
		if strings.EqualFold(cf.Factor, "temperature") {
			t := cf
			temperature = &t
			continue
		}
		other = append(other, cf)
	}

	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	for _, cf := range other {
		if err := d.setCompensationFactorLocked(sess, cf); err != nil {
			return nil, err
		}
	}

	outputs, err := d.getEnabledOutputsLocked(sess)
	if err != nil {
		return nil, err
	}

	var resp *protocol.Response
	if temperature != nil && d.supportsTemperatureCompensation() {
		tempCap := d.caps.Compensation["temperature"]
		value, verr := tempCap.ValueType.Validate(temperature.Value)
		if verr != nil {
			return nil, verr
		}
		resp, err = d.transact(sess, fmt.Sprintf("rt,%s", value), d.readLatency())
	} else if temperature != nil {
		if err := d.setCompensationFactorLocked(sess, *temperature); err != nil {
			return nil, err
		}
		resp, err = d.transact(sess, "r", d.readLatency())
	} else {
		resp, err = d.transact(sess, "r", d.readLatency())
	}
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(outputs))
	for i, u := range outputs {
		v, ferr := resp.GetField("sample", i)
		if ferr != nil {
			return nil, ferr
		}
		samples = append(samples, Sample{
			Symbol:    u.Symbol,
			UnitCode:  u.UnitCode,
			Value:     v,
			ValueType: u.ValueType,
			Timestamp: resp.Timestamp,
		})
	}
	return samples, nil
}

// SetCalibrationPoint runs one step of the calibration workflow, building
// the Cal command from the point's declared sub-command and value-type.
func (d *Device) SetCalibrationPoint(ctx context.Context, point CalibrationPoint) error {
	if d.caps.Calibration == nil {
		return atlaserr.RequestValidation("device does not support calibration")
	}
	step, ok := d.caps.Calibration.FindPoint(point.Point)
	if !ok {
		return atlaserr.RequestValidation(fmt.Sprintf("unknown calibration point %q", point.Point))
	}

	cmd := "Cal"
	if step.SubCommand != "" {
		cmd += "," + step.SubCommand
	}
	if step.ValueType != protocol.ValueNone && step.ValueType != "" {
		actual := ""
		if point.HasValue {
			actual = point.ActualValue
		}
		value, err := step.ValueType.Validate(actual)
		if err != nil {
			return err
		}
		cmd += "," + value
	}

	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return err
	}
	defer sess.Close()

	_, err = d.transact(sess, cmd, d.caps.Calibration.Latency)
	return err
}

// SetConfigurationParameter writes one persistent device setting.
func (d *Device) SetConfigurationParameter(ctx context.Context, p ConfigurationParameter) error {
	if d.caps.Configuration == nil {
		return atlaserr.RequestValidation("device does not support configuration")
	}
	param, ok := d.caps.Configuration[strings.ToLower(p.Parameter)]
	if !ok {
		return atlaserr.RequestValidation(fmt.Sprintf("unknown configuration parameter %q", p.Parameter))
	}
	value, err := param.ValueType.Validate(p.Value)
	if err != nil {
		return err
	}

	sess, err := d.sessions.Acquire(ctx, d.address, d.timeout)
	if err != nil {
		return err
	}
	defer sess.Close()

	_, err = d.transact(sess, fmt.Sprintf("%s,%s", param.Command, value), defaultCommandLatency)
	return err
}
