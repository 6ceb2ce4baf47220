package atlas

import "time"

// Clock supplies the wall-clock time stamped onto each Sample; injectable so
// tests can pin it.
type Clock interface {
	Now() time.Time
}

// Sleeper performs the inter-attempt waits of the retry schedule;
// injectable so tests never actually sleep.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }
