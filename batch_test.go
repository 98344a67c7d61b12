package sequence

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Batch Generation Tests
// ============================================================================

func TestNextBatch_BasicFunctionality(t *testing.T) {
	gen, err := New(1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name  string
		count int
	}{
		{"Single ID", 1},
		{"Small batch", 10},
		{"Medium batch", 100},
		{"Large batch", 1000},
		{"Very large batch", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := gen.NextBatch(tt.count)
			if err != nil {
				t.Fatalf("NextBatch() error = %v", err)
			}
			if len(ids) != tt.count {
				t.Errorf("NextBatch() returned %d IDs, want %d", len(ids), tt.count)
			}
			for i, id := range ids {
				if id <= 0 {
					t.Errorf("ID at index %d is non-positive: %d", i, id)
				}
			}
		})
	}
}

func TestNextBatch_NonPositiveCount(t *testing.T) {
	gen, _ := New(1)

	for _, count := range []int{0, -1, -100} {
		ids, err := gen.NextBatch(count)
		if err != nil {
			t.Errorf("NextBatch(%d) error = %v", count, err)
		}
		if ids == nil || len(ids) != 0 {
			t.Errorf("NextBatch(%d) = %v, want empty non-nil slice", count, ids)
		}
	}
	if gen.Metrics().Generated != 0 {
		t.Errorf("Generated = %d, want 0", gen.Metrics().Generated)
	}
}

func TestNextBatch_UniqueAndMonotonic(t *testing.T) {
	gen, _ := New(7)

	ids, err := gen.NextBatch(20000)
	if err != nil {
		t.Fatalf("NextBatch() error = %v", err)
	}

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids[%d]=%d not greater than ids[%d]=%d", i, ids[i], i-1, ids[i-1])
		}
	}
}

func TestNextBatch_InterleavedWithNextID(t *testing.T) {
	gen, _ := New(3)

	var prev ID
	for round := 0; round < 50; round++ {
		id := gen.MustNextID()
		if id <= prev {
			t.Fatalf("round %d: NextID %d not greater than %d", round, id, prev)
		}
		ids, err := gen.NextBatch(100)
		if err != nil {
			t.Fatal(err)
		}
		if ids[0] <= id {
			t.Fatalf("round %d: batch starts at %d, not after %d", round, ids[0], id)
		}
		prev = ids[len(ids)-1]
	}
}

func TestNextBatch_Concurrent(t *testing.T) {
	gen, _ := New(1)

	const goroutines, batches, batchSize = 8, 10, 500

	var (
		mu   sync.Mutex
		seen = make(map[ID]struct{}, goroutines*batches*batchSize)
		wg   sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := 0; b < batches; b++ {
				ids, err := gen.NextBatch(batchSize)
				if err != nil {
					t.Errorf("NextBatch() error = %v", err)
					return
				}
				mu.Lock()
				for _, id := range ids {
					if _, dup := seen[id]; dup {
						t.Errorf("duplicate ID %d", id)
					}
					seen[id] = struct{}{}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*batches*batchSize {
		t.Errorf("got %d unique IDs, want %d", len(seen), goroutines*batches*batchSize)
	}
}

func TestNextBatch_SequenceOverflow(t *testing.T) {
	gen, clock := newTestGenerator(t, 2, 100)

	ids, err := gen.NextBatch(4096*2 + 10)
	if err != nil {
		t.Fatalf("NextBatch() error = %v", err)
	}

	// A frozen millisecond holds exactly 4096 IDs.
	for i, id := range ids {
		c := id.Components()
		wantSeq := int64(i % 4096)
		if c.Sequence != wantSeq {
			t.Fatalf("ids[%d] sequence = %d, want %d", i, c.Sequence, wantSeq)
		}
	}

	if m := gen.Metrics(); m.SequenceOverflow != 2 || m.Generated != int64(len(ids)) {
		t.Errorf("metrics = %+v", m)
	}
	if clock.Now() <= Epoch+100 {
		t.Error("clock should have advanced through saturation sleeps")
	}
}

func TestNextBatch_PartialOnRollback(t *testing.T) {
	clock := newFakeClock(Epoch + 1000)
	cfg := DefaultConfig(0)
	cfg.Clock = &rewindingClock{fakeClock: clock, rewindAfter: 5, rewindTo: Epoch + 900}
	gen, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ids, err := gen.NextBatch(10)
	if !errors.Is(err, ErrClockRollbackExceeded) {
		t.Fatalf("NextBatch() error = %v, want ErrClockRollbackExceeded", err)
	}
	if len(ids) != 5 {
		t.Errorf("partial batch has %d IDs, want 5", len(ids))
	}
	if gen.Metrics().Generated != 5 {
		t.Errorf("Generated = %d, want 5", gen.Metrics().Generated)
	}
}

// rewindingClock jumps back to rewindTo after rewindAfter readings.
type rewindingClock struct {
	*fakeClock
	reads       int
	rewindAfter int
	rewindTo    int64
}

func (c *rewindingClock) Now() int64 {
	c.reads++
	if c.reads == c.rewindAfter+1 {
		c.fakeClock.Set(c.rewindTo)
	}
	return c.fakeClock.Now()
}

func TestNextBatch_VerifyComponents(t *testing.T) {
	gen, _ := NewWithWorker(9, 4)

	before := time.Now()
	ids, err := gen.NextBatch(100)
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now()

	for _, id := range ids {
		c := id.Components()
		if c.WorkerID != 9 || c.DataCenterID != 4 {
			t.Fatalf("ID %d decodes to worker %d dc %d", id, c.WorkerID, c.DataCenterID)
		}
		ts := id.Time()
		if ts.Before(before.Add(-time.Millisecond)) || ts.After(after.Add(time.Millisecond)) {
			t.Fatalf("ID time %v outside [%v, %v]", ts, before, after)
		}
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkNextBatch_100(b *testing.B) {
	gen, _ := New(1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gen.NextBatch(100)
	}
}

func BenchmarkNextBatch_1000(b *testing.B) {
	gen, _ := New(1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gen.NextBatch(1000)
	}
}

func BenchmarkNextIDLoop_1000(b *testing.B) {
	gen, _ := New(1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 1000; j++ {
			_, _ = gen.NextID()
		}
	}
}
