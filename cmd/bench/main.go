// Command bench drives a mixed concurrent insert/find/delete workload
// against a hashtable.Table and reports throughput, the way
// cmd/clds_hash_table_perf exercises the original C library.
//
// Configuration (environment variables, all optional):
//
//	BENCH_WORKERS            goroutines hammering the table (default 8)
//	BENCH_DURATION           how long to run, e.g. "5s" (default 5s)
//	BENCH_KEYSPACE           number of distinct keys in play (default 100000)
//	BENCH_INITIAL_BUCKETS    starting bucket count (default 64)
//	BENCH_RECLAIM_THRESHOLD  hazard registry retire-list scan threshold (default 64)
//
// Example:
//
//	BENCH_WORKERS=16 BENCH_DURATION=10s ./bench
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/lockfree/hashtable"
	"github.com/dreamware/lockfree/hazard"
	"github.com/dreamware/lockfree/seqno"
	"github.com/dreamware/lockfree/sortedlist"
)

// counters tallies completed operations by kind across all workers.
type counters struct {
	inserts atomic.Int64
	finds   atomic.Int64
	deletes atomic.Int64
	misses  atomic.Int64
}

func main() {
	workers := getenvInt("BENCH_WORKERS", 8)
	duration := getenvDuration("BENCH_DURATION", 5*time.Second)
	keyspace := getenvInt("BENCH_KEYSPACE", 100_000)
	initialBuckets := getenvInt("BENCH_INITIAL_BUCKETS", 64)
	reclaimThreshold := getenvInt("BENCH_RECLAIM_THRESHOLD", 64)

	registry := hazard.NewRegistry()
	registry.SetThreshold(reclaimThreshold)

	counter := seqno.NewCounter(0)
	var skipped atomic.Int64
	table, err := hashtable.Create[uint64, uint64](
		registry,
		hashtable.Uint64Hash,
		sortedlist.Ordered[uint64](),
		initialBuckets,
		counter,
		func(uint64) { skipped.Add(1) },
	)
	if err != nil {
		log.Fatalf("hashtable.Create: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		seed := int64(i) + 1
		g.Go(func() error {
			return runWorker(gctx, table, registry, uint64(keyspace), seed, &c)
		})
	}

	start := time.Now()
	if err := g.Wait(); err != nil {
		log.Fatalf("worker error: %v", err)
	}
	elapsed := time.Since(start)

	total := c.inserts.Load() + c.finds.Load() + c.deletes.Load()
	fmt.Printf("workers=%d keyspace=%d elapsed=%s\n", workers, keyspace, elapsed.Round(time.Millisecond))
	fmt.Printf("inserts=%d finds=%d (misses=%d) deletes=%d skipped_seq=%d\n",
		c.inserts.Load(), c.finds.Load(), c.misses.Load(), c.deletes.Load(), skipped.Load())
	fmt.Printf("throughput=%.0f ops/sec final_count=%d\n",
		float64(total)/elapsed.Seconds(), table.Count())
}

// runWorker registers a hazard.Thread and repeatedly applies a random mix of
// Insert, Find, and Delete against random keys in [0, keyspace) until ctx is
// done.
func runWorker(ctx context.Context, table *hashtable.Table[uint64, uint64], registry *hazard.Registry, keyspace uint64, seed int64, c *counters) error {
	t := registry.Register()
	defer t.Unregister()

	rnd := rand.New(rand.NewSource(seed))
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		key := rnd.Uint64() % keyspace
		switch rnd.Intn(10) {
		case 0, 1, 2:
			if _, err := table.Insert(t, key, key, nil); err == nil {
				c.inserts.Add(1)
			}
		case 3, 4:
			if _, err := table.Delete(t, key); err == nil {
				c.deletes.Add(1)
			}
		default:
			node, err := table.Find(t, key)
			if err != nil {
				c.misses.Add(1)
				continue
			}
			node.Release()
			c.finds.Add(1)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", k, v, def)
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", k, v, def)
		return def
	}
	return d
}
