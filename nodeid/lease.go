package nodeid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for LeaserConfig.
const (
	DefaultKeyPrefix = "sequence:node:"
	DefaultPoolSize  = 1024
	DefaultLeaseTTL  = 30 * time.Second
)

var (
	// ErrPoolExhausted is returned when every node ID in the pool is leased.
	ErrPoolExhausted = errors.New("nodeid: no available node IDs in pool")

	// ErrAlreadyLeased is returned when Acquire is called on a Leaser that holds a lease.
	ErrAlreadyLeased = errors.New("nodeid: lease already held")

	// ErrNotLeased is returned when Release is called without a held lease.
	ErrNotLeased = errors.New("nodeid: no lease held")
)

// Store is a shared key-value store with expiring, owner-tagged keys.
type Store interface {
	// Acquire sets key to owner with ttl if key does not exist.
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Renew extends key's ttl if it is still held by owner.
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Release deletes key if it is still held by owner.
	Release(ctx context.Context, key, owner string) error
}

// LeaserConfig configures a Leaser. Zero values select the defaults.
type LeaserConfig struct {
	// KeyPrefix is prepended to the node ID to form the store key.
	KeyPrefix string

	// PoolSize is the number of node IDs to scan, [0, PoolSize).
	PoolSize int64

	// TTL is how long a lease survives without renewal.
	TTL time.Duration

	// RenewInterval is the renewal period. Default: TTL/3
	RenewInterval time.Duration

	// Owner identifies this process in the store. Default: a random UUID
	Owner string

	// Logger receives lease lifecycle events. Default: discarded
	Logger *slog.Logger
}

// Leaser claims a node ID from a Store and renews the claim in the background.
//
// A Leaser holds at most one lease at a time and is safe for concurrent use.
type Leaser struct {
	store Store
	cfg   LeaserConfig
	log   *slog.Logger

	mu     sync.Mutex
	nodeID int64
	key    string
	cancel context.CancelFunc
	done   chan struct{}
	lost   chan struct{}
}

// NewLeaser creates a Leaser backed by store.
func NewLeaser(store Store, cfg LeaserConfig) *Leaser {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLeaseTTL
	}
	if cfg.RenewInterval <= 0 {
		cfg.RenewInterval = cfg.TTL / 3
	}
	if cfg.Owner == "" {
		cfg.Owner = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Leaser{
		store:  store,
		cfg:    cfg,
		log:    logger.With("component", "nodeid.leaser", "owner", cfg.Owner),
		nodeID: -1,
	}
}

// Key returns the store key for a node ID.
func (l *Leaser) Key(nodeID int64) string {
	return fmt.Sprintf("%s%d", l.cfg.KeyPrefix, nodeID)
}

// Owner returns the owner token written to the store.
func (l *Leaser) Owner() string {
	return l.cfg.Owner
}

// Acquire claims the lowest free node ID in the pool and starts renewing it.
//
// Store errors on individual keys are skipped; if no key could be claimed the
// last store error is wrapped into ErrPoolExhausted.
func (l *Leaser) Acquire(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nodeID >= 0 {
		return -1, ErrAlreadyLeased
	}

	var lastErr error
	for id := int64(0); id < l.cfg.PoolSize; id++ {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		key := l.Key(id)
		ok, err := l.store.Acquire(ctx, key, l.cfg.Owner, l.cfg.TTL)
		if err != nil {
			lastErr = err
			l.log.Warn("lease attempt failed", "node_id", id, "error", err)
			continue
		}
		if !ok {
			continue
		}

		l.nodeID = id
		l.key = key
		l.start()
		l.log.Info("node ID leased", "node_id", id, "ttl", l.cfg.TTL)
		return id, nil
	}

	if lastErr != nil {
		return -1, fmt.Errorf("%w: %w", ErrPoolExhausted, lastErr)
	}
	return -1, ErrPoolExhausted
}

// NodeID returns the leased node ID, or -1 when no lease is held.
func (l *Leaser) NodeID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nodeID
}

// Lost is closed when a renewal finds the lease taken over or expired. A
// generator using the node ID must stop issuing IDs once this fires.
// Returns nil when no lease is held.
func (l *Leaser) Lost() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

// Release stops renewal and deletes the lease.
func (l *Leaser) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nodeID < 0 {
		return ErrNotLeased
	}

	l.cancel()
	<-l.done

	err := l.store.Release(ctx, l.key, l.cfg.Owner)
	if err != nil {
		l.log.Error("lease release failed", "node_id", l.nodeID, "error", err)
	} else {
		l.log.Info("node ID released", "node_id", l.nodeID)
	}

	l.nodeID = -1
	l.key = ""
	return err
}

// start launches the renewal loop. l.mu must be held.
func (l *Leaser) start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.lost = make(chan struct{})
	go l.renew(ctx, l.nodeID, l.key, l.done, l.lost)
}

func (l *Leaser) renew(ctx context.Context, nodeID int64, key string, done, lost chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.cfg.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ok, err := l.store.Renew(ctx, key, l.cfg.Owner, l.cfg.TTL)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Warn("lease renewal failed", "node_id", nodeID, "error", err)
				continue
			}
			if !ok {
				l.log.Error("node ID lease lost", "node_id", nodeID)
				close(lost)
				return
			}
			l.log.Debug("lease renewed", "node_id", nodeID)

		case <-ctx.Done():
			return
		}
	}
}
