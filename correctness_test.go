// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/atomq"
	"code.hybscloud.com/iox"
)

// =============================================================================
// Test Helpers
// =============================================================================

var reclaimModes = []atomq.Reclaim{atomq.RetainUntilDrop, atomq.RefCounted}

// stressConfig describes a producer/consumer run.
// Values are encoded as producerID*itemsPerProd + sequence.
type stressConfig struct {
	numP, numC   int
	itemsPerProd int
	hint         int
	maxSegment   int
	mode         atomq.Reclaim
	timeout      time.Duration
}

// stressResult is what consumers observed.
type stressResult struct {
	seen     []atomix.Int32
	consumed int64
	timedOut bool
}

func runStress(t *testing.T, cfg stressConfig) stressResult {
	t.Helper()

	b := atomq.New(cfg.hint).Reclaim(cfg.mode)
	if cfg.maxSegment > 0 {
		b.MaxSegment(cfg.maxSegment)
	}
	q := atomq.Build[int](b)
	defer q.Close()

	total := cfg.numP * cfg.itemsPerProd
	seen := make([]atomix.Int32, total)
	var consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(cfg.timeout)

	var wg sync.WaitGroup
	for p := range cfg.numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range cfg.itemsPerProd {
				v := id*cfg.itemsPerProd + i
				q.Enqueue(&v)
			}
		}(p)
	}

	for range cfg.numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(total) {
				v, err := q.Dequeue()
				if err != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if v < 0 || v >= total {
					t.Errorf("value out of range: %d", v)
				} else {
					seen[v].Add(1)
				}
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()

	if !timedOut.Load() {
		if n := q.Len(); n != 0 {
			t.Errorf("Len after drain: got %d, want 0", n)
		}
		if _, err := q.Dequeue(); !atomq.IsWouldBlock(err) {
			t.Errorf("Dequeue after drain: got %v, want ErrWouldBlock", err)
		}
	}
	return stressResult{seen: seen, consumed: consumed.Load(), timedOut: timedOut.Load()}
}

// verifyExactlyOnce fails the test on any missing or duplicated value.
func verifyExactlyOnce(t *testing.T, r stressResult) {
	t.Helper()
	if r.timedOut {
		t.Fatalf("timeout: consumed %d of %d", r.consumed, len(r.seen))
	}
	var missing, duplicates int
	for i := range r.seen {
		switch n := r.seen[i].Load(); {
		case n == 0:
			missing++
		case n > 1:
			duplicates++
		}
	}
	if missing > 0 || duplicates > 0 {
		t.Fatalf("missing=%d duplicates=%d", missing, duplicates)
	}
}

// =============================================================================
// Single-Threaded Properties
// =============================================================================

// TestFIFOSingleThread verifies push order is pop order for one goroutine
// across many segment boundaries.
func TestFIFOSingleThread(t *testing.T) {
	for _, mode := range reclaimModes {
		t.Run(mode.String(), func(t *testing.T) {
			q := atomq.Build[int](atomq.New(16).Reclaim(mode))
			defer q.Close()

			const n = 100_000
			for i := range n {
				v := i
				q.Enqueue(&v)
			}
			if q.Len() != n {
				t.Fatalf("Len: got %d, want %d", q.Len(), n)
			}
			for i := range n {
				v, err := q.Dequeue()
				if err != nil || v != i {
					t.Fatalf("Dequeue(%d): got (%d, %v)", i, v, err)
				}
			}
		})
	}
}

// TestInterleavedSingleThread alternates bursts of pushes and pops so the
// ring wraps inside segments as well as growing.
func TestInterleavedSingleThread(t *testing.T) {
	for _, mode := range reclaimModes {
		t.Run(mode.String(), func(t *testing.T) {
			q := atomq.Build[int](atomq.New(16).Reclaim(mode).MaxSegment(64))
			defer q.Close()

			next, want := 0, 0
			for round := range 200 {
				for range round%37 + 1 {
					v := next
					q.Enqueue(&v)
					next++
				}
				for range round%29 + 1 {
					v, err := q.Dequeue()
					if err != nil {
						if want != next {
							t.Fatalf("round %d: spurious empty (want %d, next %d)", round, want, next)
						}
						break
					}
					if v != want {
						t.Fatalf("round %d: got %d, want %d", round, v, want)
					}
					want++
				}
				if q.Len() != next-want {
					t.Fatalf("round %d: Len %d, want %d", round, q.Len(), next-want)
				}
			}
		})
	}
}

// =============================================================================
// Concurrent Properties
// =============================================================================

// TestTwoProducersOneConsumer runs two producers pushing 0..999 and
// 1000..1999 against one consumer that collects 2000 values.
func TestTwoProducersOneConsumer(t *testing.T) {
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	for _, mode := range reclaimModes {
		t.Run(mode.String(), func(t *testing.T) {
			q := atomq.Build[int](atomq.New(16).Reclaim(mode))
			defer q.Close()

			var wg sync.WaitGroup
			for p := range 2 {
				wg.Add(1)
				go func(base int) {
					defer wg.Done()
					for i := range 1000 {
						v := base + i
						q.Enqueue(&v)
					}
				}(p * 1000)
			}

			got := make([]int, 0, 2000)
			deadline := time.Now().Add(10 * time.Second)
			backoff := iox.Backoff{}
			for len(got) < 2000 {
				v, err := q.Dequeue()
				if err != nil {
					if time.Now().After(deadline) {
						t.Fatalf("timeout: collected %d of 2000", len(got))
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				got = append(got, v)
			}
			wg.Wait()

			seen := make([]bool, 2000)
			last := [2]int{-1, 999}
			for _, v := range got {
				if v < 0 || v >= 2000 {
					t.Fatalf("value out of range: %d", v)
				}
				if seen[v] {
					t.Fatalf("duplicate value: %d", v)
				}
				seen[v] = true

				// Each producer's values arrive in its program order
				p := v / 1000
				if v <= last[p] {
					t.Fatalf("producer %d out of order: %d after %d", p, v, last[p])
				}
				last[p] = v
			}
			if q.Len() != 0 {
				t.Fatalf("Len after drain: got %d, want 0", q.Len())
			}
			if _, err := q.Dequeue(); !atomq.IsWouldBlock(err) {
				t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
			}
		})
	}
}

// TestConcurrentProducersThenDrain pushes from many goroutines, then drains
// from many goroutines once all pushes completed.
func TestConcurrentProducersThenDrain(t *testing.T) {
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	for _, mode := range reclaimModes {
		t.Run(mode.String(), func(t *testing.T) {
			const (
				numP         = 8
				numC         = 8
				itemsPerProd = 2000
				total        = numP * itemsPerProd
			)
			q := atomq.Build[int](atomq.New(16).Reclaim(mode))
			defer q.Close()

			var wg sync.WaitGroup
			for p := range numP {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for i := range itemsPerProd {
						v := id*itemsPerProd + i
						q.Enqueue(&v)
					}
				}(p)
			}
			wg.Wait()

			if q.Len() != total {
				t.Fatalf("Len: got %d, want %d", q.Len(), total)
			}

			// All pushes are published: no consumer may see a spurious empty
			seen := make([]atomix.Int32, total)
			var consumed atomix.Int64
			for range numC {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						v, err := q.Dequeue()
						if err != nil {
							return
						}
						seen[v].Add(1)
						consumed.Add(1)
					}
				}()
			}
			wg.Wait()

			if consumed.Load() != total {
				t.Fatalf("consumed %d, want %d", consumed.Load(), total)
			}
			verifyExactlyOnce(t, stressResult{seen: seen, consumed: consumed.Load()})
		})
	}
}

// TestHighContentionStress runs producers and consumers concurrently and
// requires every value exactly once.
func TestHighContentionStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skip: stress test")
	}
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	tests := []struct {
		name       string
		numP, numC int
		items      int
		maxSegment int
	}{
		{"1P1C", 1, 1, 50_000, 0},
		{"4P1C", 4, 1, 10_000, 0},
		{"1P4C", 1, 4, 40_000, 0},
		{"8P8C", 8, 8, 5_000, 0},
		{"16P16C", 16, 16, 2_000, 0},
		{"8P8C-capped", 8, 8, 5_000, 64},
	}
	for _, tt := range tests {
		for _, mode := range reclaimModes {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				r := runStress(t, stressConfig{
					numP:         tt.numP,
					numC:         tt.numC,
					itemsPerProd: tt.items,
					hint:         16,
					maxSegment:   tt.maxSegment,
					mode:         mode,
					timeout:      30 * time.Second,
				})
				verifyExactlyOnce(t, r)
			})
		}
	}
}

// TestConcurrentPeek runs Peek alongside producers and consumers. Peek must
// only ever return values that were pushed.
func TestConcurrentPeek(t *testing.T) {
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	for _, mode := range reclaimModes {
		t.Run(mode.String(), func(t *testing.T) {
			const total = 20_000
			q := atomq.Build[int](atomq.New(16).Reclaim(mode))
			defer q.Close()

			var done atomix.Bool
			var wg sync.WaitGroup
			defer func() {
				done.Store(true)
				wg.Wait()
			}()
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range total {
					v := i + 1 // zero never pushed
					q.Enqueue(&v)
				}
			}()

			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for !done.Load() {
						v, err := q.Peek()
						if err == nil && (v < 1 || v > total) {
							t.Errorf("Peek returned unpushed value %d", v)
							return
						}
					}
				}()
			}

			got := 0
			last := 0
			deadline := time.Now().Add(10 * time.Second)
			for got < total {
				v, err := q.Dequeue()
				if err != nil {
					if time.Now().After(deadline) {
						t.Fatalf("timeout: got %d of %d", got, total)
					}
					continue
				}
				if v <= last {
					t.Fatalf("out of order: %d after %d", v, last)
				}
				last = v
				got++
			}
		})
	}
}

// TestConcurrentLenBounds checks Len stays within [0, pushed] while
// producers and consumers race.
func TestConcurrentLenBounds(t *testing.T) {
	if atomq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	const total = 40_000
	q := atomq.NewUnbounded[int](16)
	defer q.Close()

	var wg sync.WaitGroup
	var stop atomix.Bool
	for p := range 4 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range total / 4 {
				v := id*total + i
				q.Enqueue(&v)
			}
		}(p)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			if n := q.Len(); n < 0 || n > total {
				t.Errorf("Len out of bounds: %d", n)
				return
			}
		}
	}()

	got := 0
	deadline := time.Now().Add(10 * time.Second)
	for got < total {
		if _, err := q.Dequeue(); err == nil {
			got++
		} else if time.Now().After(deadline) {
			break
		}
	}
	stop.Store(true)
	wg.Wait()
	if got != total {
		t.Fatalf("got %d of %d", got, total)
	}
}
