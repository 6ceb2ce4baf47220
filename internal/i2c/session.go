package i2c

import (
	"context"
	"sync"
	"time"

	"atlas-scientific-service/internal/atlaserr"
)

// DefaultTimeout is used by Acquire when the caller doesn't supply one.
const DefaultTimeout = 30 * time.Second

// addrLock is a timeout-capable binary semaphore. sync.Mutex has no timed
// acquire, so arbitration uses a 1-buffered channel instead (grounded on the
// timer-channel pattern in services/hal/worker.go).
type addrLock struct {
	ch chan struct{}
}

func newAddrLock() *addrLock {
	l := &addrLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

func (l *addrLock) tryAcquire(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (l *addrLock) release() { l.ch <- struct{}{} }

// SessionProvider arbitrates access to a shared RawBus: one lock per address
// (acquired once per multi-step driver operation, not released between
// steps) plus one process-wide lock guarding each
// individual raw read/write/ping, mirroring the Python
// I2CSessionProvider/I2CSession split. The address lock is not reentrant: a
// second Acquire for an address whose Session is still open waits until that
// Session is closed or the timeout elapses, even from the same goroutine.
type SessionProvider struct {
	bus RawBus

	mu    sync.Mutex
	locks map[Address]*addrLock

	fileMu sync.Mutex
}

// NewSessionProvider wraps bus with address-level and process-wide
// arbitration.
func NewSessionProvider(bus RawBus) *SessionProvider {
	return &SessionProvider{bus: bus, locks: make(map[Address]*addrLock)}
}

func (p *SessionProvider) addrLockFor(addr Address) *addrLock {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[addr]
	if !ok {
		l = newAddrLock()
		p.locks[addr] = l
	}
	return l
}

// Acquire blocks until the address-level lock is free or timeout elapses
// (timeout <= 0 means DefaultTimeout), returning a Session whose Close must
// be deferred by the caller to guarantee release.
func (p *SessionProvider) Acquire(ctx context.Context, addr Address, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	lock := p.addrLockFor(addr)
	if !lock.tryAcquire(ctx, timeout) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, atlaserr.BusBusy(int(addr), timeout)
	}
	return &Session{provider: p, addr: addr, lock: lock}, nil
}

// Session is one holder's exclusive access to an address for the duration
// of a multi-step driver operation. Every raw I/O call still takes the
// process-wide file lock for just that call, so unrelated addresses never
// block each other longer than a single transaction.
type Session struct {
	provider  *SessionProvider
	addr      Address
	lock      *addrLock
	closeOnce sync.Once
}

func (s *Session) Ping() bool {
	s.provider.fileMu.Lock()
	defer s.provider.fileMu.Unlock()
	return s.provider.bus.Ping(s.addr)
}

func (s *Session) Read() ([]byte, error) {
	s.provider.fileMu.Lock()
	defer s.provider.fileMu.Unlock()
	return s.provider.bus.Read(s.addr)
}

func (s *Session) Write(data []byte) error {
	s.provider.fileMu.Lock()
	defer s.provider.fileMu.Unlock()
	return s.provider.bus.Write(s.addr, data)
}

// Close releases the address lock. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(s.lock.release)
}
