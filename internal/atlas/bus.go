package atlas

import (
	"context"
	"sort"
	"sync"
	"time"

	"atlas-scientific-service/internal/atlaserr"
	"atlas-scientific-service/internal/atlaslog"
	"atlas-scientific-service/internal/i2c"
)

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithTimeout overrides the per-address session acquire timeout used for
// every operation issued through this bus.
func WithTimeout(d time.Duration) Option {
	return func(b *Bus) { b.timeout = d }
}

// WithLogger attaches a logger; defaults to a no-op logger.
func WithLogger(log *atlaslog.Logger) Option {
	return func(b *Bus) { b.log = log }
}

// WithClock and WithSleeper are test seams; production callers never need
// them (real implementations are the default).
func WithClock(c Clock) Option     { return func(b *Bus) { b.clock = c } }
func WithSleeper(s Sleeper) Option { return func(b *Bus) { b.sleeper = s } }

// Bus discovers and caches Atlas Scientific devices on a shared I2C bus.
type Bus struct {
	sessions *i2c.SessionProvider
	clock    Clock
	sleeper  Sleeper
	log      *atlaslog.Logger
	timeout  time.Duration

	mu    sync.Mutex
	known map[i2c.Address]*Device
}

// NewBus builds a Bus over raw, the process's single RawBus implementation.
func NewBus(raw i2c.RawBus, opts ...Option) *Bus {
	b := &Bus{
		sessions: i2c.NewSessionProvider(raw),
		clock:    realClock{},
		sleeper:  realSleeper{},
		log:      atlaslog.NewNop(),
		timeout:  i2c.DefaultTimeout,
		known:    make(map[i2c.Address]*Device),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scan forgets every cached device and probes every valid address (0-127),
// attaching whichever devices respond and are a supported type. Probe
// failures (no device, unsupported type, protocol errors) are swallowed;
// Scan's job is best-effort discovery, not error reporting.
func (b *Bus) Scan(ctx context.Context) {
	b.Forget()
	for a := 0; a <= i2c.MaxAddress; a++ {
		addr, err := i2c.NewAddress(a)
		if err != nil {
			continue
		}
		if _, err := b.attach(ctx, addr); err != nil {
			b.log.Debugw("scan: address did not attach", "address", a, "error", err)
		}
	}
}

// Known lists every currently-attached device, ordered by address.
func (b *Bus) Known() []DeviceInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DeviceInfo, 0, len(b.known))
	for _, d := range b.known {
		out = append(out, d.GetDeviceInfo())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Forget clears the cache of known devices without touching the bus.
func (b *Bus) Forget() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.known = make(map[i2c.Address]*Device)
}

// ByAddress returns the device at addr, attaching it first if it isn't
// already known.
func (b *Bus) ByAddress(ctx context.Context, addr i2c.Address) (*Device, error) {
	b.mu.Lock()
	d, ok := b.known[addr]
	b.mu.Unlock()
	if ok {
		return d, nil
	}
	return b.attach(ctx, addr)
}

// attach pings addr first; a failed ping surfaces as NoDeviceAtAddress
// rather than whatever raw I/O error the identity handshake would otherwise
// produce.
func (b *Bus) attach(ctx context.Context, addr i2c.Address) (*Device, error) {
	sess, err := b.sessions.Acquire(ctx, addr, b.timeout)
	if err != nil {
		return nil, err
	}
	ok := sess.Ping()
	sess.Close()
	if !ok {
		return nil, atlaserr.NoDeviceAtAddress(int(addr))
	}

	d, err := newDevice(ctx, addr, b.sessions, b.clock, b.sleeper, b.log, b.timeout)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.known[addr] = d
	b.mu.Unlock()
	return d, nil
}
