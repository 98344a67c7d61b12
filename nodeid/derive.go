// Package nodeid assigns node IDs to generators.
//
// The generator never negotiates its identity; callers pick a node ID and pass
// it in. This package offers two ways to pick one:
//
//   - Derive: hash a stable name (pod name, hostname) into the node range.
//     Cheap and coordination-free, but collisions are possible.
//   - Leaser: claim an unused ID from a shared pool (Redis) with a TTL and keep
//     the claim alive while the process runs. Collision-free while the store is.
package nodeid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
)

// ErrNoName is returned when no name is available to derive a node ID from.
var ErrNoName = errors.New("nodeid: no pod name or hostname available")

// FromName hashes name with 64-bit FNV-1a into [0, maxNode].
//
// The same name always yields the same node ID. Distinct names can collide:
// with 1024 node IDs, 10 nodes collide with about 4% probability, 40 nodes with
// about 54%. Prefer a Leaser beyond a handful of nodes.
func FromName(name string, maxNode int64) int64 {
	if maxNode <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64() % uint64(maxNode+1))
}

// Derive picks a node ID from the environment, in order:
//
//  1. POD_NAME (Kubernetes downward API)
//  2. HOSTNAME
//  3. os.Hostname()
//
// It returns the node ID and the name it was derived from.
func Derive(maxNode int64) (int64, string, error) {
	return derive(os.Getenv, os.Hostname, maxNode)
}

func derive(getenv func(string) string, hostname func() (string, error), maxNode int64) (int64, string, error) {
	for _, key := range []string{"POD_NAME", "HOSTNAME"} {
		if name := getenv(key); name != "" {
			return FromName(name, maxNode), name, nil
		}
	}

	name, err := hostname()
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrNoName, err)
	}
	if name == "" {
		return 0, "", ErrNoName
	}
	return FromName(name, maxNode), name, nil
}
