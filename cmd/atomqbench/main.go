// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command atomqbench stresses an unbounded queue with concurrent producers
// and consumers, then verifies every value was delivered exactly once.
//
// Usage:
//
//	go run ./cmd/atomqbench -producers 4 -consumers 4 -n 1000000 -mode refcount
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/atomq"
	"code.hybscloud.com/iox"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one stress round and returns the process exit code:
// 0 on success, 1 on lost or duplicated values, 2 on bad flags.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("atomqbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	producers := fs.Int("producers", 4, "number of producer goroutines")
	consumers := fs.Int("consumers", 4, "number of consumer goroutines")
	perProducer := fs.Int("n", 1_000_000, "values enqueued by each producer")
	hint := fs.Int("hint", 64, "initial segment capacity")
	mode := fs.String("mode", "retain", "reclamation mode: retain or refcount")
	maxSeg := fs.Int("max", 0, "segment capacity cap (0 = uncapped)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	reclaim, err := parseMode(*mode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *producers < 1 || *consumers < 1 || *perProducer < 1 {
		fmt.Fprintln(stderr, "producers, consumers and n must be positive")
		return 2
	}
	if *hint < 0 || (*maxSeg != 0 && *maxSeg < max(*hint, 16)) {
		fmt.Fprintln(stderr, "hint must be non-negative and max must be 0 or at least hint")
		return 2
	}

	opts := atomq.New(*hint).Reclaim(reclaim)
	if *maxSeg > 0 {
		opts = opts.MaxSegment(*maxSeg)
	}
	q := atomq.Build[int](opts)
	defer q.Close()

	total := *producers * *perProducer

	fmt.Fprintf(stdout, "Benchmarking unbounded queue (%d producers, %d consumers, %d values, mode=%s)\n",
		*producers, *consumers, total, reclaim)
	fmt.Fprintln(stdout, "─────────────────────────────────────────────────────────")

	seen := make([]atomix.Int32, total)
	var consumed atomix.Int64
	var empty atomix.Int64
	var wg sync.WaitGroup

	start := time.Now()

	for p := range *producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			base := id * *perProducer
			for i := range *perProducer {
				v := base + i
				q.Enqueue(&v)
			}
		}(p)
	}

	for range *consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.LoadAcquire() < int64(total) {
				v, err := q.Dequeue()
				if err != nil {
					empty.AddAcqRel(1)
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].AddAcqRel(1)
				consumed.AddAcqRel(1)
			}
		}()
	}

	wg.Wait()
	dur := time.Since(start)

	lost, dup := tally(seen)

	st := q.Stats()
	perOp := float64(dur.Nanoseconds()) / float64(total)

	fmt.Fprintln(stdout, "Results:")
	fmt.Fprintln(stdout, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(stdout, "  Total: %v, Per-op: %.2f ns, Throughput: %.2f Mops/s\n",
		dur, perOp, float64(total)/dur.Seconds()/1e6)
	fmt.Fprintf(stdout, "  Empty polls: %d\n", empty.LoadAcquire())
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Segments:")
	fmt.Fprintln(stdout, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(stdout, "  Installed: %d, Retired: %d, Released: %d, Reused: %d\n",
		st.Installed, st.Retired, st.Released, st.Reused)
	fmt.Fprintf(stdout, "  Head capacity: %d, Tail capacity: %d\n", st.HeadCapacity, st.TailCapacity)
	fmt.Fprintln(stdout)

	if lost != 0 || dup != 0 {
		fmt.Fprintf(stdout, "FAIL: %d lost, %d duplicated\n", lost, dup)
		return 1
	}
	fmt.Fprintln(stdout, "OK: every value delivered exactly once")
	return 0
}

func parseMode(s string) (atomq.Reclaim, error) {
	switch s {
	case "retain":
		return atomq.RetainUntilDrop, nil
	case "refcount":
		return atomq.RefCounted, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want retain or refcount)", s)
}

// tally counts values never delivered and values delivered more than once.
func tally(seen []atomix.Int32) (lost, dup int) {
	for i := range seen {
		switch n := seen[i].LoadAcquire(); {
		case n == 0:
			lost++
		case n > 1:
			dup++
		}
	}
	return lost, dup
}
