// Package config loads generator and tooling settings from the environment.
//
// Values come from SEQUENCE_* environment variables, optionally seeded from a
// .env file. Variables already set in the process environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sxyafiq/sequence"
	"github.com/sxyafiq/sequence/nodeid"
)

// NodeIDFromHostname is the SEQUENCE_NODE_ID value that derives the node ID
// from the pod name or hostname.
const NodeIDFromHostname = "hostname"

// Config holds settings for the generator and the command-line tools.
type Config struct {
	// NodeID is the raw SEQUENCE_NODE_ID: empty, a number, or "hostname".
	// When empty, DataCenterID and WorkerID are used.
	NodeID string

	DataCenterID int64
	WorkerID     int64

	EpochMS        int64
	ClockTolerance time.Duration
	CachedClock    bool

	LogLevel  string
	LogFormat string

	// RedisAddr enables node-ID leasing when set.
	RedisAddr string
	LeaseTTL  time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		EpochMS:        sequence.Epoch,
		ClockTolerance: sequence.DefaultClockRollbackTolerance,
		LogLevel:       "info",
		LogFormat:      "text",
		LeaseTTL:       nodeid.DefaultLeaseTTL,
	}
}

// Load reads envFile (if non-empty) and then the process environment.
//
// A missing envFile named explicitly is an error; an empty envFile tries ".env"
// and ignores it when absent.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int64) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SEQUENCE_NODE_ID", &cfg.NodeID)
	num("SEQUENCE_DATACENTER_ID", &cfg.DataCenterID)
	num("SEQUENCE_WORKER_ID", &cfg.WorkerID)
	num("SEQUENCE_EPOCH_MS", &cfg.EpochMS)
	dur("SEQUENCE_CLOCK_TOLERANCE", &cfg.ClockTolerance)
	flag("SEQUENCE_CACHED_CLOCK", &cfg.CachedClock)
	str("SEQUENCE_LOG_LEVEL", &cfg.LogLevel)
	str("SEQUENCE_LOG_FORMAT", &cfg.LogFormat)
	str("SEQUENCE_REDIS_ADDR", &cfg.RedisAddr)
	dur("SEQUENCE_LEASE_TTL", &cfg.LeaseTTL)

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// GeneratorConfig maps the settings onto a validated sequence.Config.
//
// SEQUENCE_NODE_ID takes precedence over the split data-center and worker IDs.
func (c Config) GeneratorConfig() (sequence.Config, error) {
	var gc sequence.Config

	switch {
	case c.NodeID == "":
		gc = sequence.DefaultConfig(0)
		gc.DataCenterID = c.DataCenterID
		gc.WorkerID = c.WorkerID

	case strings.EqualFold(c.NodeID, NodeIDFromHostname):
		id, _, err := nodeid.Derive(sequence.LayoutDefault.Shifts().MaxNode)
		if err != nil {
			return sequence.Config{}, fmt.Errorf("config: SEQUENCE_NODE_ID: %w", err)
		}
		gc = sequence.DefaultConfig(id)

	default:
		id, err := strconv.ParseInt(c.NodeID, 10, 64)
		if err != nil {
			return sequence.Config{}, fmt.Errorf("config: SEQUENCE_NODE_ID: %w", err)
		}
		gc = sequence.DefaultConfig(id)
	}

	gc.Epoch = c.EpochMS
	gc.ClockRollbackTolerance = c.ClockTolerance
	gc.UseCachedClock = c.CachedClock

	if err := gc.Validate(); err != nil {
		return sequence.Config{}, err
	}
	return gc, nil
}
