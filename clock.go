// Package sequence - clock.go provides the time sources a Generator can read.
//
// The generator only needs two things from a clock: the current time in Unix
// milliseconds and a way to block for a duration. Tests inject a simulated
// clock through Config.Clock; production uses SystemClock, a MonotonicClock or
// the process-wide CachedClock.

package sequence

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the time source of a Generator.
//
// Liveness assumption: the generator waits on Now to advance (after a sequence
// overflow, or after a tolerated rollback). A clock that never advances blocks
// NextID indefinitely; no artificial timeout is applied because giving up early
// would break the ordering guarantee.
type Clock interface {
	// Now returns the current time in milliseconds since the Unix epoch.
	Now() int64

	// Sleep blocks the caller for d.
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() int64            { return time.Now().UnixMilli() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock reads the wall clock directly on every call.
//
// Wall-clock corrections (NTP steps, manual changes) are visible to the
// generator and handled by its rollback guard.
var SystemClock Clock = systemClock{}

// MonotonicClock reports wall time derived from Go's monotonic clock reading.
//
// The wall time is captured once at construction; every later reading adds the
// monotonic duration elapsed since then. Readings never go backwards, at the
// cost of ignoring wall-clock corrections made while the process runs.
type MonotonicClock struct {
	base time.Time
}

// NewMonotonicClock creates a MonotonicClock anchored at the current time.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{base: time.Now()}
}

// Now returns the anchored wall time plus the monotonic time elapsed since.
func (c *MonotonicClock) Now() int64 {
	return c.base.Add(time.Since(c.base)).UnixMilli()
}

// Sleep blocks for d.
func (c *MonotonicClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// DefaultCachedClockInterval is the refresh period of the process-wide cached clock.
const DefaultCachedClockInterval = time.Millisecond

// CachedClock serves the current time from a value refreshed by a background
// ticker, trading a little accuracy for fewer clock reads under heavy load.
//
// Readers never take a lock. Refreshes are derived from a monotonic reading
// anchored at construction, so the cached value is non-decreasing; a stale value
// can lag real time by up to one refresh interval but never jumps backwards,
// which would otherwise trigger false rollback detections.
//
// The anchor is taken when the clock is constructed, so wall-clock steps made
// while the process runs are not observed, unlike SystemClock.
//
// When the updater is not running, Now falls back to a direct monotonic read.
type CachedClock struct {
	interval time.Duration
	source   *MonotonicClock
	now      atomic.Int64
	running  atomic.Bool

	mu   sync.Mutex // serializes Start/Stop
	stop chan struct{}
	done chan struct{}
}

// NewCachedClock creates a stopped CachedClock refreshing every interval.
// A non-positive interval uses DefaultCachedClockInterval.
func NewCachedClock(interval time.Duration) *CachedClock {
	if interval <= 0 {
		interval = DefaultCachedClockInterval
	}
	return &CachedClock{
		interval: interval,
		source:   NewMonotonicClock(),
	}
}

// Start launches the background updater. Calling Start on a running clock is a no-op.
func (c *CachedClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return
	}

	// Publish a fresh value before readers switch over to the cache.
	c.now.Store(c.source.Now())
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	c.running.Store(true)
}

// Stop halts the background updater and waits for it to exit.
// Calling Stop on a stopped clock is a no-op.
func (c *CachedClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return
	}
	c.running.Store(false)
	close(c.stop)
	<-c.done
}

// Running reports whether the background updater is active.
func (c *CachedClock) Running() bool {
	return c.running.Load()
}

// Now returns the cached time in Unix milliseconds.
func (c *CachedClock) Now() int64 {
	if !c.running.Load() {
		return c.source.Now()
	}
	return c.now.Load()
}

// Sleep blocks for d.
func (c *CachedClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (c *CachedClock) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.now.Store(c.source.Now())
		case <-stop:
			return
		}
	}
}

// sharedClock is the process-wide cached clock used by generators created with
// Config.UseCachedClock.
var sharedClock = NewCachedClock(DefaultCachedClockInterval)

// StartCachedClock starts the process-wide cached clock and returns it.
//
// Generators configured with UseCachedClock start it on demand; calling this at
// process startup makes the lifecycle explicit.
func StartCachedClock() *CachedClock {
	sharedClock.Start()
	return sharedClock
}

// StopCachedClock stops the process-wide cached clock, typically at shutdown.
// Generators using it keep working by reading the time directly.
func StopCachedClock() {
	sharedClock.Stop()
}

// SharedCachedClock returns the process-wide cached clock without starting it.
func SharedCachedClock() *CachedClock {
	return sharedClock
}
