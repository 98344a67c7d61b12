// Command sequence generates and inspects 64-bit time-ordered IDs.
//
// Usage:
//
//	sequence next [flags]             Generate IDs
//	sequence parse <id>               Decode an ID into its components
//	sequence encode <id> <format>     Convert an ID to another format
//	sequence validate <id>            Check an ID's timestamp
//	sequence bench                    Measure throughput
//	sequence lease                    Lease a node ID from Redis
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sxyafiq/sequence/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRoot().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
