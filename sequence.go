// Package sequence generates 64-bit, time-ordered unique IDs in the style of
// Twitter's Snowflake, without coordination between nodes.
//
// # ID Structure (64 bits)
//
//	┌───┬──────────────────────────────┬───────────┬───────────┬──────────────┐
//	│ 0 │ 41 bits: timestamp (ms)      │ 5 bits:   │ 5 bits:   │ 12 bits:     │
//	│   │ since epoch (~69 years)      │ data ctr  │ worker    │ sequence     │
//	└───┴──────────────────────────────┴───────────┴───────────┴──────────────┘
//
// The data-center and worker fields form a 10-bit node ID. The top bit is never
// set, so every ID is also a positive int64.
//
// # Guarantees
//
//   - For one generator, IDs strictly increase as long as the clock does not move
//     backwards by more than the configured tolerance.
//   - Generators with distinct node IDs never produce the same ID.
//   - Ordering across nodes holds at millisecond granularity only.
//
// # Clock Rollback
//
// A backwards clock jump no larger than the tolerance (default 5ms) is waited out:
// the generator sleeps twice the drift and re-reads the clock. A larger jump, or
// a clock still behind after the wait, fails with ErrClockRollbackExceeded. The
// generator never retries on its own.
//
// # Restarts
//
// Generator state is not persisted. If a process restarts while the wall clock
// is behind the last timestamp it issued before the restart, IDs issued before
// the restart can be issued again. Deployments that step clocks backwards should
// delay startup by the size of the step.
//
// # Usage
//
//	gen, err := sequence.New(42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := gen.NextID()
//
//	// Split node identity
//	gen, err := sequence.NewWithWorker(3, 1) // worker 3 in data center 1
//
//	// Default generator (node 0)
//	s, err := sequence.NextHex()
package sequence

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Epoch is the default epoch (January 1, 2024 00:00:00 UTC) in milliseconds.
	// The epoch of a deployment must never change once IDs have been issued.
	Epoch int64 = 1704067200000

	// DefaultClockRollbackTolerance is the largest backwards clock jump that is
	// waited out instead of failing.
	DefaultClockRollbackTolerance = 5 * time.Millisecond

	// noTimestamp marks a generator that has not issued an ID yet.
	noTimestamp int64 = -1

	minSaturationBackoff = 50 * time.Microsecond
	maxSaturationBackoff = 250 * time.Microsecond
)

// Config holds configuration options for a Generator.
//
// Sensible defaults are provided via DefaultConfig().
type Config struct {
	// DataCenterID is the data-center half of the node ID.
	// Valid range depends on Layout (default: 0-31).
	DataCenterID int64

	// WorkerID is the worker half of the node ID.
	// Valid range depends on Layout (default: 0-31).
	WorkerID int64

	// Epoch is the reference time in Unix milliseconds subtracted from every
	// timestamp. Default: January 1, 2024 00:00:00 UTC
	Epoch int64

	// ClockRollbackTolerance is the largest backwards clock jump waited out
	// rather than reported. Rounded up to whole milliseconds. Default: 5ms
	ClockRollbackTolerance time.Duration

	// UseCachedClock reads time from the process-wide CachedClock, starting it
	// if necessary. Ignored when Clock is set.
	UseCachedClock bool

	// Clock overrides the time source. Default: SystemClock
	Clock Clock

	// Layout defines the bit allocation. Default: LayoutDefault
	//
	// IMPORTANT: IDs generated with different layouts are incompatible.
	Layout Layout

	// node is the combined node ID passed to DefaultConfig. Validate re-splits
	// it against the final Layout unless the halves were set explicitly.
	node    int64
	hasNode bool
}

// DefaultConfig returns a Config for the combined node ID with default settings.
//
// The node ID is split into its data-center and worker halves without masking,
// so an out-of-range node ID is still rejected by Validate. If Layout is later
// changed, Validate splits the node ID again with the new widths, so the
// generator keeps the node ID passed here.
func DefaultConfig(nodeID int64) Config {
	dc, worker := splitUnmasked(LayoutDefault, nodeID)
	return Config{
		DataCenterID:           dc,
		WorkerID:               worker,
		Epoch:                  Epoch,
		ClockRollbackTolerance: DefaultClockRollbackTolerance,
		Layout:                 LayoutDefault,
		node:                   nodeID,
		hasNode:                true,
	}
}

func splitUnmasked(l Layout, nodeID int64) (dataCenterID, workerID int64) {
	return nodeID >> l.WorkerBits, nodeID & l.Shifts().MaxWorker
}

// NodeID returns the combined node ID described by this configuration.
func (c Config) NodeID() int64 {
	if c.hasNode {
		if dc, worker := splitUnmasked(LayoutDefault, c.node); dc == c.DataCenterID && worker == c.WorkerID {
			return c.node
		}
	}
	return c.layout().NodeID(c.DataCenterID, c.WorkerID)
}

func (c Config) layout() Layout {
	if c.Layout == (Layout{}) {
		return LayoutDefault
	}
	return c.Layout
}

// Validate checks the configuration and returns a *ConfigError describing the
// first invalid field.
//
// Validation rules:
//   - Layout must total 63 bits (a zero Layout means LayoutDefault)
//   - a node ID from DefaultConfig must fit the final Layout's node field
//   - DataCenterID and WorkerID must fit their bit widths
//   - Epoch must be positive
//   - ClockRollbackTolerance must be non-negative
func (c *Config) Validate() error {
	c.Layout = c.layout()

	if err := c.Layout.Validate(); err != nil {
		return newConfigError(
			"Layout",
			fmt.Sprintf("%d/%d/%d/%d", c.Layout.TimestampBits, c.Layout.DataCenterBits,
				c.Layout.WorkerBits, c.Layout.SequenceBits),
			err.Error(),
			"bit widths must total 63",
		)
	}

	if c.hasNode && c.Layout != LayoutDefault {
		if dc, worker := splitUnmasked(LayoutDefault, c.node); dc == c.DataCenterID && worker == c.WorkerID {
			if err := c.Layout.ValidateNodeID(c.node); err != nil {
				return err
			}
			c.DataCenterID, c.WorkerID = splitUnmasked(c.Layout, c.node)
		}
		c.hasNode = false
	}

	s := c.Layout.Shifts()
	if c.DataCenterID < 0 || c.DataCenterID > s.MaxDataCenter {
		return newConfigError(
			"DataCenterID",
			fmt.Sprintf("%d", c.DataCenterID),
			"out of valid range for layout",
			fmt.Sprintf("must be between 0 and %d (%d bits)", s.MaxDataCenter, c.Layout.DataCenterBits),
		)
	}
	if c.WorkerID < 0 || c.WorkerID > s.MaxWorker {
		return newConfigError(
			"WorkerID",
			fmt.Sprintf("%d", c.WorkerID),
			"out of valid range for layout",
			fmt.Sprintf("must be between 0 and %d (%d bits)", s.MaxWorker, c.Layout.WorkerBits),
		)
	}

	if c.Epoch <= 0 {
		return newConfigError(
			"Epoch",
			fmt.Sprintf("%d", c.Epoch),
			"must be positive",
			"epoch timestamp in milliseconds must be > 0",
		)
	}
	if c.ClockRollbackTolerance < 0 {
		return newConfigError(
			"ClockRollbackTolerance",
			c.ClockRollbackTolerance.String(),
			"must be non-negative",
			"duration must be >= 0",
		)
	}
	return nil
}

// Metrics is a snapshot of a generator's counters.
type Metrics struct {
	Generated        int64 // IDs successfully issued
	ClockRollback    int64 // backwards clock readings observed, recovered or not
	ClockRollbackErr int64 // rollbacks that failed NextID
	SequenceOverflow int64 // sequence exhaustions that waited for the next millisecond
	WaitTimeUs       int64 // time slept in rollback and saturation waits, microseconds
}

// Generator issues IDs for one node.
//
// A Generator is safe for concurrent use. Every call to NextID runs as a single
// critical section: clock read, rollback check, sequence update and encoding.
// Create one Generator per node and process and share it.
type Generator struct {
	mu            sync.Mutex // guards sequence and lastTimestamp
	sequence      int64
	lastTimestamp int64 // raw Unix ms of the last issued ID, or noTimestamp

	clock       Clock
	epoch       int64
	nodeID      int64
	toleranceMs int64
	layout      Layout
	shifts      Shifts

	generated        atomic.Int64
	clockRollback    atomic.Int64
	clockRollbackErr atomic.Int64
	sequenceOverflow atomic.Int64
	waitTimeUs       atomic.Int64
}

// New creates a generator for a combined node ID (0-1023) with defaults.
//
// Returns a *ConfigError wrapping ErrInvalidConfiguration if nodeID is out of range.
func New(nodeID int64) (*Generator, error) {
	if err := LayoutDefault.ValidateNodeID(nodeID); err != nil {
		return nil, err
	}
	return NewWithConfig(DefaultConfig(nodeID))
}

// NewWithWorker creates a generator from the split node identity: a worker ID
// (0-31) inside a data center (0-31).
func NewWithWorker(workerID, dataCenterID int64) (*Generator, error) {
	cfg := DefaultConfig(0)
	cfg.WorkerID = workerID
	cfg.DataCenterID = dataCenterID
	return NewWithConfig(cfg)
}

// NewWithConfig creates a generator with full control over its configuration.
//
// Example:
//
//	cfg := sequence.DefaultConfig(42)
//	cfg.ClockRollbackTolerance = 10 * time.Millisecond
//	cfg.UseCachedClock = true
//	gen, err := sequence.NewWithConfig(cfg)
func NewWithConfig(cfg Config) (*Generator, error) {
	if err := (&cfg).Validate(); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		if cfg.UseCachedClock {
			clock = StartCachedClock()
		} else {
			clock = SystemClock
		}
	}

	return &Generator{
		lastTimestamp: noTimestamp,
		clock:         clock,
		epoch:         cfg.Epoch,
		nodeID:        cfg.NodeID(),
		toleranceMs:   ceilMillis(cfg.ClockRollbackTolerance),
		layout:        cfg.Layout,
		shifts:        cfg.Layout.Shifts(),
	}, nil
}

// ceilMillis rounds d up to whole milliseconds so a sub-millisecond tolerance
// still waits out a 1ms rollback.
func ceilMillis(d time.Duration) int64 {
	return int64((d + time.Millisecond - 1) / time.Millisecond)
}

// NextID issues the next ID.
//
// Errors:
//   - *ClockRollbackError (ErrClockRollbackExceeded) when the clock moved backwards
//     beyond the tolerance or is still behind after waiting; state is unchanged
//   - *OverflowError (ErrTimestampOverflow) when the clock is before the epoch or
//     past the layout's lifespan
//
// NextID may block for up to twice the tolerance after a small rollback, or until
// the next millisecond when the sequence is exhausted.
func (g *Generator) NextID() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := g.nextLocked()
	if err != nil {
		return 0, err
	}
	g.generated.Add(1)
	return id, nil
}

// MustNextID issues the next ID and panics on error.
func (g *Generator) MustNextID() ID {
	id, err := g.NextID()
	if err != nil {
		panic(err)
	}
	return id
}

// NextBatch issues count IDs under a single lock acquisition.
//
// On error the IDs issued so far are returned together with the error.
func (g *Generator) NextBatch(count int) ([]ID, error) {
	if count <= 0 {
		return []ID{}, nil
	}

	ids := make([]ID, 0, count)

	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() { g.generated.Add(int64(len(ids))) }()

	for i := 0; i < count; i++ {
		id, err := g.nextLocked()
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// nextLocked runs one generation step. g.mu must be held.
//
//	ID = (now-epoch) << (SequenceBits+NodeBits) | nodeID << SequenceBits | sequence
func (g *Generator) nextLocked() (ID, error) {
	now := g.clock.Now()

	if now < g.lastTimestamp {
		g.clockRollback.Add(1)
		drift := g.lastTimestamp - now

		if drift > g.toleranceMs {
			g.clockRollbackErr.Add(1)
			return 0, newClockRollbackError(now, g.lastTimestamp, drift, g.toleranceMs, g.nodeID, false)
		}

		wait := time.Duration(drift<<1) * time.Millisecond
		g.clock.Sleep(wait)
		g.waitTimeUs.Add(wait.Microseconds())

		now = g.clock.Now()
		if now < g.lastTimestamp {
			g.clockRollbackErr.Add(1)
			return 0, newClockRollbackError(now, g.lastTimestamp, drift, g.toleranceMs, g.nodeID, true)
		}
	}

	var seq int64
	if now == g.lastTimestamp {
		seq = (g.sequence + 1) & g.shifts.MaxSequence
		if seq == 0 {
			g.sequenceOverflow.Add(1)
			now = g.waitNextMillis()
		}
	}

	rel := now - g.epoch
	if rel < 0 || rel > g.shifts.MaxTimestamp {
		return 0, newOverflowError(now, g.epoch, g.shifts.MaxTimestamp, g.nodeID)
	}

	g.sequence = seq
	g.lastTimestamp = now
	return g.layout.Encode(rel, g.nodeID, seq), nil
}

// waitNextMillis blocks until the clock passes lastTimestamp and returns the new
// reading. Sleeps start at 50µs and double up to 250µs, so a saturated node backs
// off instead of spinning on the clock.
func (g *Generator) waitNextMillis() int64 {
	backoff := minSaturationBackoff
	var waited time.Duration

	for {
		now := g.clock.Now()
		if now > g.lastTimestamp {
			g.waitTimeUs.Add(waited.Microseconds())
			return now
		}

		g.clock.Sleep(backoff)
		waited += backoff

		if backoff < maxSaturationBackoff {
			backoff *= 2
			if backoff > maxSaturationBackoff {
				backoff = maxSaturationBackoff
			}
		}
	}
}

// Metrics returns a snapshot of the generator's counters.
func (g *Generator) Metrics() Metrics {
	return Metrics{
		Generated:        g.generated.Load(),
		ClockRollback:    g.clockRollback.Load(),
		ClockRollbackErr: g.clockRollbackErr.Load(),
		SequenceOverflow: g.sequenceOverflow.Load(),
		WaitTimeUs:       g.waitTimeUs.Load(),
	}
}

// ResetMetrics sets all counters to zero. Mostly useful in tests.
func (g *Generator) ResetMetrics() {
	g.generated.Store(0)
	g.clockRollback.Store(0)
	g.clockRollbackErr.Store(0)
	g.sequenceOverflow.Store(0)
	g.waitTimeUs.Store(0)
}

// NodeID returns the combined node ID.
func (g *Generator) NodeID() int64 {
	return g.nodeID
}

// DataCenterID returns the data-center half of the node ID.
func (g *Generator) DataCenterID() int64 {
	dc, _ := g.layout.SplitNodeID(g.nodeID)
	return dc
}

// WorkerID returns the worker half of the node ID.
func (g *Generator) WorkerID() int64 {
	_, worker := g.layout.SplitNodeID(g.nodeID)
	return worker
}

// Epoch returns the generator's epoch in Unix milliseconds.
func (g *Generator) Epoch() int64 {
	return g.epoch
}

// Layout returns the generator's bit layout.
func (g *Generator) Layout() Layout {
	return g.layout
}

// Decode unpacks an ID issued by this generator (or any generator sharing its layout).
func (g *Generator) Decode(id ID) Components {
	return g.layout.Decode(id)
}

// Time returns the moment an ID was issued, according to this generator's epoch.
func (g *Generator) Time(id ID) time.Time {
	return g.layout.Decode(id).Time(g.epoch)
}

// Default generator (node 0) backing the package-level functions.
//
// Initialized on first use. Applications running more than one node should
// create their own Generator with a unique node ID instead.
var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
	defaultGeneratorErr  error
)

func initDefaultGenerator() {
	defaultGenerator, defaultGeneratorErr = New(0)
}

// Default returns the package-level generator (node 0).
func Default() (*Generator, error) {
	defaultGeneratorOnce.Do(initDefaultGenerator)
	return defaultGenerator, defaultGeneratorErr
}

// NextID issues an ID from the default generator.
func NextID() (ID, error) {
	g, err := Default()
	if err != nil {
		return 0, err
	}
	return g.NextID()
}

// MustNextID issues an ID from the default generator and panics on error.
func MustNextID() ID {
	id, err := NextID()
	if err != nil {
		panic(err)
	}
	return id
}

// DefaultMetrics returns the counters of the default generator.
func DefaultMetrics() (Metrics, error) {
	g, err := Default()
	if err != nil {
		return Metrics{}, err
	}
	return g.Metrics(), nil
}
