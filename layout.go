// Package sequence - layout.go is the single source of truth for the bit layout.
//
// Shift amounts and masks are derived here and nowhere else, so formatting helpers
// only ever see the already-encoded 64-bit value.

package sequence

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Layout defines how the 63 usable bits of an ID are allocated.
//
// From most to least significant:
//
//	0 | timestamp | data center | worker | sequence
//
// The data-center and worker fields together form the node ID. The top bit is
// always 0, so an ID is a positive signed 64-bit value as well.
//
// IMPORTANT: IDs generated with different layouts are incompatible.
// Choose once and stick with it for the lifetime of your system.
type Layout struct {
	// TimestampBits is the width of the epoch-relative millisecond timestamp.
	TimestampBits int

	// DataCenterBits is the width of the data-center half of the node ID.
	DataCenterBits int

	// WorkerBits is the width of the worker half of the node ID.
	WorkerBits int

	// SequenceBits is the width of the per-millisecond counter.
	SequenceBits int
}

// LayoutDefault is the classic Twitter layout: 41 | 5 | 5 | 12.
//
//   - Lifespan: ~69 years from epoch
//   - Max nodes: 1,024 (32 data centers x 32 workers)
//   - Throughput: 4,096 IDs per millisecond per node
var LayoutDefault = Layout{
	TimestampBits:  41,
	DataCenterBits: 5,
	WorkerBits:     5,
	SequenceBits:   12,
}

// ErrInvalidLayout is returned when a Layout does not describe 63 usable bits.
var ErrInvalidLayout = errors.New("invalid bit layout")

// Validate checks that the layout sums to 63 bits with sane component widths.
func (l Layout) Validate() error {
	if l.TimestampBits <= 0 {
		return fmt.Errorf("%w: timestamp bits must be positive (%d)", ErrInvalidLayout, l.TimestampBits)
	}
	if l.SequenceBits <= 0 {
		return fmt.Errorf("%w: sequence bits must be positive (%d)", ErrInvalidLayout, l.SequenceBits)
	}
	if l.DataCenterBits < 0 || l.WorkerBits < 0 {
		return fmt.Errorf("%w: node bits cannot be negative (data center %d, worker %d)",
			ErrInvalidLayout, l.DataCenterBits, l.WorkerBits)
	}

	total := l.TimestampBits + l.DataCenterBits + l.WorkerBits + l.SequenceBits
	if total != 63 {
		return fmt.Errorf("%w: total bits must equal 63, got %d (%d+%d+%d+%d)",
			ErrInvalidLayout, total, l.TimestampBits, l.DataCenterBits, l.WorkerBits, l.SequenceBits)
	}
	return nil
}

// NodeBits returns the combined width of the node ID field.
func (l Layout) NodeBits() int {
	return l.DataCenterBits + l.WorkerBits
}

// Shifts holds the pre-calculated shift amounts and masks for a layout.
type Shifts struct {
	TimestampShift  uint
	DataCenterShift uint
	WorkerShift     uint

	MaxTimestamp  int64
	MaxDataCenter int64
	MaxWorker     int64
	MaxNode       int64
	MaxSequence   int64
}

// Shifts returns the shift amounts and maximum field values of this layout.
//
// Called once at generator initialization; the result is cached.
func (l Layout) Shifts() Shifts {
	return Shifts{
		TimestampShift:  uint(l.SequenceBits + l.NodeBits()),
		DataCenterShift: uint(l.SequenceBits + l.WorkerBits),
		WorkerShift:     uint(l.SequenceBits),
		MaxTimestamp:    -1 ^ (-1 << l.TimestampBits),
		MaxDataCenter:   -1 ^ (-1 << l.DataCenterBits),
		MaxWorker:       -1 ^ (-1 << l.WorkerBits),
		MaxNode:         -1 ^ (-1 << l.NodeBits()),
		MaxSequence:     -1 ^ (-1 << l.SequenceBits),
	}
}

// NodeID combines a data-center ID and a worker ID into the node ID field value.
//
// Inputs are not range-checked; use ValidateNodeID on the result or validate the
// halves through Config.
func (l Layout) NodeID(dataCenterID, workerID int64) int64 {
	return dataCenterID<<l.WorkerBits | workerID
}

// SplitNodeID splits a node ID into its data-center and worker halves.
func (l Layout) SplitNodeID(nodeID int64) (dataCenterID, workerID int64) {
	s := l.Shifts()
	return (nodeID >> l.WorkerBits) & s.MaxDataCenter, nodeID & s.MaxWorker
}

// ValidateNodeID reports whether nodeID fits in the layout's node field.
func (l Layout) ValidateNodeID(nodeID int64) error {
	maxNode := l.Shifts().MaxNode
	if nodeID < 0 || nodeID > maxNode {
		return newConfigError(
			"NodeID",
			fmt.Sprintf("%d", nodeID),
			"out of valid range for layout",
			fmt.Sprintf("must be between 0 and %d (%d bits)", maxNode, l.NodeBits()),
		)
	}
	return nil
}

// Encode packs an epoch-relative timestamp, a node ID and a sequence into an ID.
//
//	ID = (relTimestamp << (SequenceBits+NodeBits)) | (nodeID << SequenceBits) | sequence
//
// Components are masked to their field widths; callers are expected to pass
// in-range values (the generator guarantees this).
func (l Layout) Encode(relTimestamp, nodeID, sequence int64) ID {
	s := l.Shifts()
	return ID(uint64(relTimestamp&s.MaxTimestamp)<<s.TimestampShift |
		uint64(nodeID&s.MaxNode)<<s.WorkerShift |
		uint64(sequence&s.MaxSequence))
}

// Components is the decoded content of an ID.
type Components struct {
	// RelativeTimestamp is milliseconds since the generator's epoch.
	RelativeTimestamp int64
	NodeID            int64
	DataCenterID      int64
	WorkerID          int64
	Sequence          int64
}

// Timestamp converts the relative timestamp back to Unix milliseconds.
func (c Components) Timestamp(epoch int64) int64 {
	return c.RelativeTimestamp + epoch
}

// Time converts the relative timestamp back to a time.Time.
func (c Components) Time(epoch int64) time.Time {
	return time.UnixMilli(c.Timestamp(epoch))
}

// Decode unpacks an ID produced with this layout.
func (l Layout) Decode(id ID) Components {
	s := l.Shifts()
	v := int64(id)
	node := (v >> s.WorkerShift) & s.MaxNode
	dc, worker := l.SplitNodeID(node)
	return Components{
		RelativeTimestamp: (v >> s.TimestampShift) & s.MaxTimestamp,
		NodeID:            node,
		DataCenterID:      dc,
		WorkerID:          worker,
		Sequence:          v & s.MaxSequence,
	}
}

// Capacity holds planning figures for a layout.
type Capacity struct {
	MaxNodes             int64
	IDsPerMillisecond    int64
	ThroughputPerNode    int64 // IDs per second
	Lifespan             time.Duration
	LifespanYears        int
	MaxRelativeTimestamp int64
}

// Capacity returns the theoretical capacity of this layout.
func (l Layout) Capacity() Capacity {
	s := l.Shifts()

	// float64 avoids overflowing time.Duration for wide timestamp fields.
	lifespan := time.Duration(math.MaxInt64)
	if ns := float64(s.MaxTimestamp+1) * float64(time.Millisecond); ns < float64(math.MaxInt64) {
		lifespan = time.Duration(ns)
	}

	return Capacity{
		MaxNodes:             s.MaxNode + 1,
		IDsPerMillisecond:    s.MaxSequence + 1,
		ThroughputPerNode:    (s.MaxSequence + 1) * 1000,
		Lifespan:             lifespan,
		LifespanYears:        int(lifespan.Hours() / 24 / 365),
		MaxRelativeTimestamp: s.MaxTimestamp,
	}
}

// String returns a human-readable description of the capacity.
func (c Capacity) String() string {
	return fmt.Sprintf("MaxNodes: %d, ThroughputPerNode: %d/sec, Lifespan: %d years",
		c.MaxNodes, c.ThroughputPerNode, c.LifespanYears)
}
