// Package cli implements the sequence command-line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sxyafiq/sequence"
	"github.com/sxyafiq/sequence/internal/config"
	"github.com/sxyafiq/sequence/internal/logging"
)

// Version is reported by "sequence version".
var Version = "dev"

// app is the state shared by all commands, filled in before any command runs.
type app struct {
	envFile   string
	logLevel  string
	logFormat string

	cfg config.Config
	log *slog.Logger
}

// NewRoot constructs the root command with every subcommand registered.
func NewRoot() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sequence",
		Short: "Generate and inspect 64-bit time-ordered IDs",
		Long: `sequence issues Snowflake-style 64-bit IDs and decodes existing ones.

Node identity and clock settings come from SEQUENCE_* environment variables,
optionally loaded from a .env file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Load settings from this .env file (default: ./.env if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides SEQUENCE_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text|json (overrides SEQUENCE_LOG_FORMAT)")

	root.AddCommand(
		a.newNextCommand(),
		a.newParseCommand(),
		a.newEncodeCommand(),
		a.newValidateCommand(),
		a.newBenchCommand(),
		a.newLeaseCommand(),
		newVersionCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// generator builds a generator from the loaded settings. A non-negative
// nodeID overrides the configured node identity.
func (a *app) generator(nodeID int64) (*sequence.Generator, error) {
	cfg := a.cfg
	if nodeID >= 0 {
		cfg.NodeID = fmt.Sprintf("%d", nodeID)
	}

	gc, err := cfg.GeneratorConfig()
	if err != nil {
		return nil, err
	}
	gen, err := sequence.NewWithConfig(gc)
	if err != nil {
		return nil, err
	}

	a.log.Debug("generator ready",
		"node_id", gen.NodeID(),
		"datacenter_id", gen.DataCenterID(),
		"worker_id", gen.WorkerID(),
		"epoch", gen.Epoch(),
		"cached_clock", gc.UseCachedClock)
	return gen, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sequence %s\n", Version)
		},
	}
}
