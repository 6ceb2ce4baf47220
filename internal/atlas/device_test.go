package atlas

import (
	"context"
	"sync"
	"testing"
	"time"

	"atlas-scientific-service/internal/atlaserr"
	"atlas-scientific-service/internal/atlaslog"
	"atlas-scientific-service/internal/i2c"
)

// fakeRawBus scripts responses per address: each call to Read pops the next
// queued response for that address. Grounded on services/hal/worker_test.go's
// fakeAdaptor scripted-failure-then-success style.
type fakeRawBus struct {
	mu      sync.Mutex
	queued  map[i2c.Address][][]byte
	writes  []writeCall
	pingsOK map[i2c.Address]bool
}

type writeCall struct {
	Addr i2c.Address
	Data string
}

func newFakeRawBus() *fakeRawBus {
	return &fakeRawBus{
		queued:  map[i2c.Address][][]byte{},
		pingsOK: map[i2c.Address]bool{},
	}
}

func (f *fakeRawBus) queue(addr i2c.Address, responses ...[]byte) {
	f.queued[addr] = append(f.queued[addr], responses...)
}

func (f *fakeRawBus) Ping(addr i2c.Address) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingsOK[addr]
}

func (f *fakeRawBus) Read(addr i2c.Address) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queued[addr]
	if len(q) == 0 {
		return nil, nil
	}
	next := q[0]
	f.queued[addr] = q[1:]
	return next, nil
}

func (f *fakeRawBus) Write(addr i2c.Address, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{Addr: addr, Data: string(data)})
	return nil
}

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fakeSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

func newTestDevice(t *testing.T, addr i2c.Address, bus *fakeRawBus, sleeper *fakeSleeper) *Device {
	t.Helper()
	bus.pingsOK[addr] = true
	sessions := i2c.NewSessionProvider(bus)
	d, err := newDevice(context.Background(), addr, sessions, fakeClock{t: time.Unix(1582672093, 0).UTC()}, sleeper, atlaslog.NewNop(), time.Second)
	if err != nil {
		t.Fatalf("newDevice failed: %v", err)
	}
	return d
}

// Scenario 1: a plain pH read.
func TestReadSamplePlainPH(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(99, []byte("\x01?i,pH,1.98\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 99, bus, sleeper)

	bus.queue(99, []byte("\x019.560\x00"))
	samples, err := d.ReadSample(context.Background(), nil)
	if err != nil {
		t.Fatalf("ReadSample failed: %v", err)
	}
	if len(samples) != 1 || samples[0].Value != "9.560" {
		t.Fatalf("unexpected samples: %+v", samples)
	}
	if samples[0].UnitCode != "PH" {
		t.Errorf("expected unit code PH, got %q", samples[0].UnitCode)
	}

	wantWrites := []string{"i\x00", "r\x00"}
	if len(bus.writes) != len(wantWrites) {
		t.Fatalf("expected writes %v, got %v", wantWrites, bus.writes)
	}
	for i, w := range wantWrites {
		if bus.writes[i].Data != w {
			t.Errorf("write %d: want %q got %q", i, w, bus.writes[i].Data)
		}
	}

	wantSleeps := []time.Duration{300 * time.Millisecond, 900 * time.Millisecond}
	if len(sleeper.calls) != len(wantSleeps) {
		t.Fatalf("expected sleeps %v, got %v", wantSleeps, sleeper.calls)
	}
	for i, w := range wantSleeps {
		if sleeper.calls[i] != w {
			t.Errorf("sleep %d: want %v got %v", i, w, sleeper.calls[i])
		}
	}
}

// Scenario 2: DO output toggle (enable mg/L, disable %).
func TestSetEnabledOutputsDO(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(50, []byte("\x01?i,DO,1.0\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 50, bus, sleeper)

	bus.queue(50,
		[]byte("\x01?O,%\x00"), // current enabled: just '%'
		[]byte{0x01},           // o,MG,1 ack
		[]byte{0x01},           // o,%,0 ack
	)

	if err := d.SetEnabledOutputMeasurements(context.Background(), []string{"MG"}); err != nil {
		t.Fatalf("SetEnabledOutputMeasurements failed: %v", err)
	}

	wantWrites := []string{"i\x00", "o,?\x00", "o,MG,1\x00", "o,%,0\x00"}
	if len(bus.writes) != len(wantWrites) {
		t.Fatalf("expected writes %v, got %v", wantWrites, bus.writes)
	}
	for i, w := range wantWrites {
		if bus.writes[i].Data != w {
			t.Errorf("write %d: want %q got %q", i, w, bus.writes[i].Data)
		}
	}
}

// Scenario 3: NOT_READY retry then success.
func TestTransactRetriesOnNotReady(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(10, []byte("\x01?i,pH,1.98\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 10, bus, sleeper)

	bus.queue(10,
		[]byte{byte(0xFE)}, // NOT_READY
		[]byte{byte(0xFE)}, // NOT_READY
		[]byte("\x017.00\x00"),
	)

	samples, err := d.ReadSample(context.Background(), nil)
	if err != nil {
		t.Fatalf("ReadSample failed: %v", err)
	}
	if len(samples) != 1 || samples[0].Value != "7.00" {
		t.Fatalf("unexpected samples: %+v", samples)
	}

	// one write for 'i', one write for 'r' -- no rewrite on retry.
	if len(bus.writes) != 2 {
		t.Fatalf("expected exactly 2 writes (no rewrite on retry), got %v", bus.writes)
	}

	// 0.3 for identity, then 0.9, 0.3, 0.3 for the three read attempts.
	wantSleeps := []time.Duration{300 * time.Millisecond, 900 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	if len(sleeper.calls) != len(wantSleeps) {
		t.Fatalf("expected sleeps %v, got %v", wantSleeps, sleeper.calls)
	}
}

func TestTransactExhaustsRetriesAsDeviceNotReady(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(11, []byte("\x01?i,pH,1.98\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 11, bus, sleeper)

	bus.queue(11, []byte{0xFE}, []byte{0xFE}, []byte{0xFE}, []byte{0xFE})

	_, err := d.ReadSample(context.Background(), nil)
	if atlaserr.Of(err) != atlaserr.DeviceNotReadyCode {
		t.Fatalf("expected DeviceNotReadyCode, got %v", err)
	}
}

// Scenario 4: a syntax-error status propagates as CommandRejected.
func TestTransactSyntaxErrorPropagates(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(20, []byte("\x01?i,pH,1.98\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 20, bus, sleeper)

	bus.queue(20, []byte{0x02})
	_, err := d.ReadSample(context.Background(), nil)
	if atlaserr.Of(err) != atlaserr.CommandRejectedCode {
		t.Fatalf("expected CommandRejectedCode, got %v", err)
	}
}

// Scenario 5: EC three-step calibration workflow.
func TestCalibrationWorkflowEC(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(30, []byte("\x01?i,EC,2.0\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 30, bus, sleeper)

	bus.queue(30, []byte{0x01}, []byte{0x01}, []byte{0x01})

	steps := []CalibrationPoint{
		{Point: "dry"},
		{Point: "low", ActualValue: "12880", HasValue: true},
		{Point: "high", ActualValue: "80000", HasValue: true},
	}
	for _, step := range steps {
		if err := d.SetCalibrationPoint(context.Background(), step); err != nil {
			t.Fatalf("SetCalibrationPoint(%+v) failed: %v", step, err)
		}
	}

	wantWrites := []string{"i\x00", "Cal,dry\x00", "Cal,low,12880\x00", "Cal,high,80000\x00"}
	if len(bus.writes) != len(wantWrites) {
		t.Fatalf("expected writes %v, got %v", wantWrites, bus.writes)
	}
	for i, w := range wantWrites {
		if bus.writes[i].Data != w {
			t.Errorf("write %d: want %q got %q", i, w, bus.writes[i].Data)
		}
	}
}

// Scenario 6: CO2 output toggle (enable temperature, disable ppm).
func TestSetEnabledOutputsCO2(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(40, []byte("\x01?i,CO2,3.0\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 40, bus, sleeper)

	bus.queue(40,
		[]byte("\x01?O,PPM\x00"),
		[]byte{0x01},
		[]byte{0x01},
	)

	if err := d.SetEnabledOutputMeasurements(context.Background(), []string{"T"}); err != nil {
		t.Fatalf("SetEnabledOutputMeasurements failed: %v", err)
	}

	wantWrites := []string{"i\x00", "o,?\x00", "o,T,1\x00", "o,PPM,0\x00"}
	if len(bus.writes) != len(wantWrites) {
		t.Fatalf("expected writes %v, got %v", wantWrites, bus.writes)
	}
	for i, w := range wantWrites {
		if bus.writes[i].Data != w {
			t.Errorf("write %d: want %q got %q", i, w, bus.writes[i].Data)
		}
	}
}

func TestGetEnabledOutputsCachedAfterFirstQuery(t *testing.T) {
	bus := newFakeRawBus()
	bus.queue(60, []byte("\x01?i,DO,1.0\x00"))
	sleeper := &fakeSleeper{}
	d := newTestDevice(t, 60, bus, sleeper)

	bus.queue(60, []byte("\x01?O,%\x00"))

	if _, err := d.GetEnabledOutputMeasurements(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetEnabledOutputMeasurements(context.Background()); err != nil {
		t.Fatal(err)
	}

	// only one 'o,?' write should have happened -- the second call hits cache.
	count := 0
	for _, w := range bus.writes {
		if w.Data == "o,?\x00" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one o,? write, got %d", count)
	}
}
