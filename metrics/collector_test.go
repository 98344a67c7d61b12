package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sxyafiq/sequence"
)

type staticSource struct {
	node int64
	m    sequence.Metrics
}

func (s staticSource) Metrics() sequence.Metrics { return s.m }
func (s staticSource) NodeID() int64             { return s.node }

func TestCollector_Values(t *testing.T) {
	src := staticSource{node: 7, m: sequence.Metrics{
		Generated:        1500,
		ClockRollback:    3,
		ClockRollbackErr: 1,
		SequenceOverflow: 2,
		WaitTimeUs:       2500000,
	}}
	c := NewCollector("sequence", src)

	want := `
# HELP sequence_clock_rollback_errors_total Clock rollbacks that failed ID generation.
# TYPE sequence_clock_rollback_errors_total counter
sequence_clock_rollback_errors_total{node="7"} 1
# HELP sequence_clock_rollback_total Backwards clock readings observed, recovered or not.
# TYPE sequence_clock_rollback_total counter
sequence_clock_rollback_total{node="7"} 3
# HELP sequence_ids_generated_total Total number of IDs issued.
# TYPE sequence_ids_generated_total counter
sequence_ids_generated_total{node="7"} 1500
# HELP sequence_sequence_overflow_total Sequence exhaustions that waited for the next millisecond.
# TYPE sequence_sequence_overflow_total counter
sequence_sequence_overflow_total{node="7"} 2
# HELP sequence_wait_seconds_total Time spent waiting on the clock.
# TYPE sequence_wait_seconds_total counter
sequence_wait_seconds_total{node="7"} 2.5
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want)); err != nil {
		t.Error(err)
	}
}

func TestCollector_MultipleGenerators(t *testing.T) {
	a, err := sequence.New(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sequence.New(2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.NextBatch(10); err != nil {
		t.Fatal(err)
	}
	b.MustNextID()

	c := NewCollector("sequence", a, b)

	if n := testutil.CollectAndCount(c); n != 10 {
		t.Errorf("CollectAndCount() = %d, want 10 (5 series x 2 nodes)", n)
	}
	if n := testutil.CollectAndCount(c, "sequence_ids_generated_total"); n != 2 {
		t.Errorf("ids_generated series = %d, want 2", n)
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP sequence_ids_generated_total Total number of IDs issued.
# TYPE sequence_ids_generated_total counter
sequence_ids_generated_total{node="1"} 10
sequence_ids_generated_total{node="2"} 1
`), "sequence_ids_generated_total"); err != nil {
		t.Error(err)
	}
}

func TestCollector_Healthy(t *testing.T) {
	ok := staticSource{node: 1, m: sequence.Metrics{ClockRollbackErr: 2}}
	bad := staticSource{node: 2, m: sequence.Metrics{ClockRollbackErr: 20}}

	if !NewCollector("sequence", ok).Healthy(10) {
		t.Error("Healthy() = false with 2 errors and limit 10")
	}
	if NewCollector("sequence", ok, bad).Healthy(10) {
		t.Error("Healthy() = true with 20 errors and limit 10")
	}
}
