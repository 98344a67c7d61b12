package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/sequence"
	"github.com/sxyafiq/sequence/nodeid"
)

func (a *app) newLeaseCommand() *cobra.Command {
	var (
		redisAddr string
		pool      int64
		ttl       time.Duration
		count     int
		format    string
		hold      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Lease a node ID from Redis, generate IDs with it, then release it",
		Long: `lease claims the lowest free node ID from a Redis-backed pool, keeps the
claim alive while running, and releases it on exit. Generation stops if the
lease is lost.`,
		Example: `  sequence lease --redis-addr localhost:6379 -n 5
  sequence lease --hold 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if redisAddr == "" {
				redisAddr = a.cfg.RedisAddr
			}
			if redisAddr == "" {
				return errors.New("no Redis address: set --redis-addr or SEQUENCE_REDIS_ADDR")
			}
			if ttl <= 0 {
				ttl = a.cfg.LeaseTTL
			}

			ctx := cmd.Context()
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			store, err := nodeid.DialRedis(dialCtx, redisAddr)
			cancel()
			if err != nil {
				return err
			}
			defer store.Close()

			leaser := nodeid.NewLeaser(store, nodeid.LeaserConfig{
				PoolSize: pool,
				TTL:      ttl,
				Logger:   a.log,
			})

			nodeID, err := leaser.Acquire(ctx)
			if err != nil {
				return err
			}
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := leaser.Release(releaseCtx); err != nil {
					a.log.Error("release failed", "node_id", nodeID, "error", err)
				}
			}()

			gen, err := a.generator(nodeID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Leased node ID %d (owner %s)\n", nodeID, leaser.Owner())

			if active, err := store.Active(ctx, nodeid.DefaultKeyPrefix); err != nil {
				a.log.Warn("listing active leases failed", "error", err)
			} else {
				fmt.Fprintf(out, "Active node IDs: %v\n", active)
			}

			lost := leaser.Lost()
			for i := 0; i < count; i++ {
				select {
				case <-lost:
					return errors.New("node ID lease lost; stopped generating")
				default:
				}
				id, err := gen.NextID()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, id.Format(format))
			}

			if hold > 0 {
				return waitHold(ctx, hold, lost)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (default: SEQUENCE_REDIS_ADDR)")
	cmd.Flags().Int64Var(&pool, "pool", sequence.LayoutDefault.Shifts().MaxNode+1, "Number of node IDs in the pool")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lease TTL (default: SEQUENCE_LEASE_TTL)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of IDs to generate")
	cmd.Flags().StringVarP(&format, "format", "f", "decimal", "Output format")
	cmd.Flags().DurationVar(&hold, "hold", 0, "Keep the lease this long before releasing it")
	return cmd
}

func waitHold(ctx context.Context, hold time.Duration, lost <-chan struct{}) error {
	select {
	case <-time.After(hold):
		return nil
	case <-ctx.Done():
		return nil
	case <-lost:
		return errors.New("node ID lease lost")
	}
}
