package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/sequence"
)

// formatAuto tries decimal, base62, base58, hex and DTM in that order.
const formatAuto = "auto"

// maxFutureSkew is how far ahead of the local clock a valid ID may be.
const maxFutureSkew = time.Minute

var errUnparseable = errors.New("unable to parse ID in any known format")

func parseID(s, format string) (sequence.ID, error) {
	if format != formatAuto {
		return sequence.Parse(s, format)
	}

	parsers := []func(string) (sequence.ID, error){
		sequence.ParseString,
		sequence.ParseBase62,
		sequence.ParseBase58,
		func(s string) (sequence.ID, error) { return sequence.ParseRadix(s, 16) },
		func(s string) (sequence.ID, error) { return sequence.ParseRadix(s, sequence.DTMRadix) },
	}
	for _, parse := range parsers {
		if id, err := parse(s); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errUnparseable, s)
}

type inspection struct {
	ID                sequence.ID `json:"id"`
	Time              time.Time   `json:"time"`
	Timestamp         int64       `json:"timestamp_ms"`
	RelativeTimestamp int64       `json:"relative_ms"`
	NodeID            int64       `json:"node_id"`
	DataCenterID      int64       `json:"datacenter_id"`
	WorkerID          int64       `json:"worker_id"`
	Sequence          int64       `json:"sequence"`
	Encodings         struct {
		Decimal string `json:"decimal"`
		Hex     string `json:"hex"`
		DTM     string `json:"dtm"`
		Base58  string `json:"base58"`
		Base62  string `json:"base62"`
	} `json:"encodings"`
}

func inspect(id sequence.ID, epoch int64) inspection {
	c := sequence.LayoutDefault.Decode(id)
	in := inspection{
		ID:                id,
		Time:              c.Time(epoch).UTC(),
		Timestamp:         c.Timestamp(epoch),
		RelativeTimestamp: c.RelativeTimestamp,
		NodeID:            c.NodeID,
		DataCenterID:      c.DataCenterID,
		WorkerID:          c.WorkerID,
		Sequence:          c.Sequence,
	}
	in.Encodings.Decimal = id.String()
	in.Encodings.Hex = id.Hex()
	in.Encodings.DTM = id.DTM()
	in.Encodings.Base58 = id.Base58()
	in.Encodings.Base62 = id.Base62()
	return in
}

func (in inspection) print(w io.Writer) {
	fmt.Fprintf(w, "ID: %s\n\n", in.ID)
	fmt.Fprintf(w, "Components:\n")
	fmt.Fprintf(w, "  Time:         %s (%d ms since epoch)\n", in.Time.Format(time.RFC3339Nano), in.RelativeTimestamp)
	fmt.Fprintf(w, "  Node ID:      %d (datacenter %d, worker %d)\n", in.NodeID, in.DataCenterID, in.WorkerID)
	fmt.Fprintf(w, "  Sequence:     %d\n\n", in.Sequence)
	fmt.Fprintf(w, "Encodings:\n")
	fmt.Fprintf(w, "  Decimal:      %s\n", in.Encodings.Decimal)
	fmt.Fprintf(w, "  Hex:          %s\n", in.Encodings.Hex)
	fmt.Fprintf(w, "  DTM:          %s\n", in.Encodings.DTM)
	fmt.Fprintf(w, "  Base58:       %s\n", in.Encodings.Base58)
	fmt.Fprintf(w, "  Base62:       %s\n", in.Encodings.Base62)
}

func (a *app) newParseCommand() *cobra.Command {
	var (
		format string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "parse <id>",
		Aliases: []string{"p"},
		Short:   "Decode an ID into its components",
		Example: `  sequence parse 517812015121
  sequence parse f2800k0h --format DTM
  sequence parse 97dkrBv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], format)
			if err != nil {
				return err
			}

			in := inspect(id, a.cfg.EpochMS)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(in)
			}
			in.print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Input format, or auto to detect")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (a *app) newEncodeCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:     "encode <id> <format>",
		Aliases: []string{"enc"},
		Short:   "Convert an ID to another format",
		Example: `  sequence encode 517812015121 DTM
  sequence encode 7890005011 decimal --from hex`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], from)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Format(args[1]))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", formatAuto, "Input format, or auto to detect")
	return cmd
}

func (a *app) newValidateCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Check that an ID decodes to a plausible timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], format)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := inspect(id, a.cfg.EpochMS)
			if err := validate(in, time.Now()); err != nil {
				fmt.Fprintf(out, "INVALID: %v\n\n", err)
				in.print(out)
				return err
			}

			fmt.Fprintf(out, "VALID\n\n")
			in.print(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatAuto, "Input format, or auto to detect")
	return cmd
}

func validate(in inspection, now time.Time) error {
	if in.ID <= 0 {
		return fmt.Errorf("ID must be positive")
	}
	if in.Time.After(now.Add(maxFutureSkew)) {
		return fmt.Errorf("timestamp %s is in the future", in.Time.Format(time.RFC3339))
	}
	return nil
}
