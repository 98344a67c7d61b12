package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sxyafiq/sequence"
	"github.com/sxyafiq/sequence/metrics"
)

type benchOptions struct {
	duration    time.Duration
	workers     int
	batch       int
	nodeID      int64
	metricsAddr string
	hold        time.Duration
}

func (a *app) newBenchCommand() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure generation throughput",
		Example: `  sequence bench --duration 5s
  sequence bench --workers 8 --metrics-addr :9090 --hold 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.bench(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.duration, "duration", 3*time.Second, "Duration of each phase")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "Concurrent goroutines sharing one generator")
	cmd.Flags().IntVar(&opts.batch, "batch", 100, "Batch size for the batch phase")
	cmd.Flags().Int64Var(&opts.nodeID, "node", -1, "Node ID 0-1023 (default: from SEQUENCE_* settings)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().DurationVar(&opts.hold, "hold", 0, "Keep serving metrics this long after the run")
	return cmd
}

func (a *app) bench(ctx context.Context, out io.Writer, opts benchOptions) error {
	if opts.workers < 1 || opts.batch < 1 {
		return fmt.Errorf("--workers and --batch must be at least 1")
	}

	gen, err := a.generator(opts.nodeID)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		stop, err := a.serveMetrics(opts.metricsAddr, gen)
		if err != nil {
			return err
		}
		defer stop()
	}

	fmt.Fprintf(out, "Running benchmarks (duration: %v, workers: %d, node: %d)\n\n",
		opts.duration, opts.workers, gen.NodeID())

	fmt.Fprintf(out, "1. Single ID generation:\n")
	n, elapsed, err := runPhase(ctx, opts.workers, opts.duration, func() (int, error) {
		_, err := gen.NextID()
		return 1, err
	})
	if err != nil {
		return err
	}
	printPhase(out, n, elapsed)

	fmt.Fprintf(out, "2. Batch generation (batch size: %d):\n", opts.batch)
	n, elapsed, err = runPhase(ctx, opts.workers, opts.duration, func() (int, error) {
		ids, err := gen.NextBatch(opts.batch)
		return len(ids), err
	})
	if err != nil {
		return err
	}
	printPhase(out, n, elapsed)

	m := gen.Metrics()
	fmt.Fprintf(out, "Generator metrics:\n")
	fmt.Fprintf(out, "   Generated:          %d\n", m.Generated)
	fmt.Fprintf(out, "   Sequence overflows: %d\n", m.SequenceOverflow)
	fmt.Fprintf(out, "   Clock rollbacks:    %d (%d failed)\n", m.ClockRollback, m.ClockRollbackErr)
	fmt.Fprintf(out, "   Time waiting:       %v\n", time.Duration(m.WaitTimeUs)*time.Microsecond)

	if opts.metricsAddr != "" && opts.hold > 0 {
		a.log.Info("holding metrics endpoint", "addr", opts.metricsAddr, "hold", opts.hold)
		select {
		case <-time.After(opts.hold):
		case <-ctx.Done():
		}
	}
	return nil
}

// runPhase calls op from workers goroutines until d elapses or ctx is done and
// returns the number of IDs op reported.
func runPhase(ctx context.Context, workers int, d time.Duration, op func() (int, error)) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	var (
		total    atomic.Int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	start := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				n, err := op()
				total.Add(int64(n))
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()

	return total.Load(), time.Since(start), firstErr
}

func printPhase(out io.Writer, n int64, elapsed time.Duration) {
	var nsPerOp float64
	if n > 0 {
		nsPerOp = float64(elapsed.Nanoseconds()) / float64(n)
	}
	fmt.Fprintf(out, "   Generated:      %d IDs\n", n)
	fmt.Fprintf(out, "   Duration:       %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "   Rate:           %.0f IDs/sec (%.0f ns/op)\n\n", rate(int(n), elapsed), nsPerOp)
}

// serveMetrics exposes gen on addr at /metrics and returns a shutdown func.
func (a *app) serveMetrics(addr string, gen *sequence.Generator) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector("sequence", gen),
		collectors.NewGoCollector(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "error", err)
		}
	}()
	a.log.Info("serving metrics", "addr", ln.Addr().String(), "path", "/metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
