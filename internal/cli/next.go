package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/sequence"
)

type idInfo struct {
	ID           sequence.ID `json:"id"`
	Formatted    string      `json:"formatted"`
	Time         time.Time   `json:"time"`
	NodeID       int64       `json:"node_id"`
	DataCenterID int64       `json:"datacenter_id"`
	WorkerID     int64       `json:"worker_id"`
	Sequence     int64       `json:"sequence"`
}

type nextOutput struct {
	Count      int      `json:"count"`
	NodeID     int64    `json:"node_id"`
	Format     string   `json:"format"`
	Duration   string   `json:"duration"`
	RatePerSec float64  `json:"rate_per_sec"`
	IDs        []idInfo `json:"ids"`
}

func (a *app) newNextCommand() *cobra.Command {
	var (
		count   int
		nodeID  int64
		format  string
		asJSON  bool
		inBatch bool
	)

	cmd := &cobra.Command{
		Use:     "next",
		Aliases: []string{"generate", "gen"},
		Short:   "Generate IDs",
		Example: `  sequence next
  sequence next -n 10 --format base62 --node 42
  sequence next --json --format DTM`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			gen, err := a.generator(nodeID)
			if err != nil {
				return err
			}

			start := time.Now()
			ids, err := issue(gen, count, inBatch)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			if asJSON {
				infos := make([]idInfo, len(ids))
				for i, id := range ids {
					c := gen.Decode(id)
					infos[i] = idInfo{
						ID:           id,
						Formatted:    id.Format(format),
						Time:         c.Time(gen.Epoch()).UTC(),
						NodeID:       c.NodeID,
						DataCenterID: c.DataCenterID,
						WorkerID:     c.WorkerID,
						Sequence:     c.Sequence,
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(nextOutput{
					Count:      len(ids),
					NodeID:     gen.NodeID(),
					Format:     format,
					Duration:   elapsed.String(),
					RatePerSec: rate(len(ids), elapsed),
					IDs:        infos,
				})
			}

			for _, id := range ids {
				fmt.Fprintln(out, id.Format(format))
			}
			if count > 100 {
				a.log.Info("generated",
					"count", count,
					"duration", elapsed,
					"rate_per_sec", int64(rate(count, elapsed)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of IDs to generate")
	cmd.Flags().Int64Var(&nodeID, "node", -1, "Node ID 0-1023 (default: from SEQUENCE_* settings)")
	cmd.Flags().StringVarP(&format, "format", "f", "decimal", "Output format: decimal|binary|octal|hex|HEX|dtm|DTM|base58|base62")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON with decoded components")
	cmd.Flags().BoolVar(&inBatch, "batch", false, "Generate under a single lock acquisition")
	return cmd
}

func issue(gen *sequence.Generator, count int, inBatch bool) ([]sequence.ID, error) {
	if inBatch {
		return gen.NextBatch(count)
	}
	ids := make([]sequence.ID, count)
	for i := range ids {
		id, err := gen.NextID()
		if err != nil {
			return ids[:i], err
		}
		ids[i] = id
	}
	return ids, nil
}

func rate(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
