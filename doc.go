// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package atomq provides an unbounded lock-free multi-producer
// multi-consumer FIFO queue.
//
// The queue is meant for high-frequency handoff of buffers and events
// between pipeline goroutines. It never takes a lock and never blocks:
// Enqueue always succeeds, growing the queue when needed, and Dequeue
// returns [ErrWouldBlock] when nothing is available.
//
// # Quick Start
//
//	q := atomq.NewUnbounded[Event](1024)
//	defer q.Close()
//
//	// Producer (any goroutine)
//	ev := Event{ID: 1}
//	q.Enqueue(&ev)
//
//	// Consumer (any goroutine)
//	ev, err := q.Dequeue()
//	if atomq.IsWouldBlock(err) {
//	    // Empty - try again later
//	}
//
// Builder API for reclamation and growth settings:
//
//	q := atomq.Build[Event](atomq.New(1024))                            // retain until Close
//	q := atomq.Build[Event](atomq.New(1024).Reclaim(atomq.RefCounted))  // release eagerly
//	q := atomq.Build[Event](atomq.New(256).MaxSegment(4096))            // capped growth
//
// # Queue Variants
//
//	Unbounded[T]      - Generic type-safe queue for any type
//	UnboundedPtr      - Queue for unsafe.Pointer (zero-copy pointer passing)
//	UnboundedIndirect - Queue for uintptr values (pool indices, handles)
//
// Every value is legal, including zero values and nil pointers: emptiness
// is reported through the error return, not through a sentinel value.
//
// # Algorithm
//
// The queue is a forward-linked chain of segments. Each segment is a
// fixed-capacity ring with per-slot sequence numbers and CAS-claimed
// head and tail cursors:
//
//	headSeg                                    tailSeg
//	   │                                          │
//	   ▼                                          ▼
//	[seg 16] ──next──▶ [seg 32] ──next──▶ [seg 64]
//	 drained            draining            filling
//
// When the tail segment fills, a producer seals it (no further claims
// are possible) and races to publish a successor with at least twice the
// capacity. The CAS winner on tailSeg links the old segment's next
// pointer; losers discard their allocation and retry on the new tail.
//
// When a consumer finds the head segment drained and sealed, it advances
// headSeg to the successor. The winner of that CAS retires the old
// segment.
//
// Cursors are global: a new segment starts at its predecessor's final
// tail, so cursors never reset and
//
//	Len() == tailSeg.tail - headSeg.head
//
// holds across the whole chain. Len is a snapshot; treat it as an
// approximation under concurrent use.
//
// # Ordering
//
// FIFO holds for published elements: if Enqueue of A returns before
// Enqueue of B starts, A is dequeued before B. Concurrent producers are
// ordered by whichever wins the tail cursor CAS first. A single
// goroutine's enqueues preserve program order.
//
// # Reclamation
//
// Segments that leave the head of the chain are retired. Two modes decide
// when retired segments are released:
//
//	RetainUntilDrop - Retired segments stay on a lock-free stack until
//	                  Close. No per-operation bookkeeping.
//	RefCounted      - Every operation enters a reader section. When the
//	                  reader count reaches zero, the retired stack is
//	                  released and its segments may be recycled.
//
// RetainUntilDrop is the default. It suits long-lived queues whose growth
// is bounded by the pipeline: memory for drained segments is kept, and the
// per-operation cost of reader accounting is avoided.
//
// RefCounted releases only when the reader count drops to zero, that is
// when no operation is in flight on any goroutine. Busy queues with several
// producers and consumers can keep the count above zero indefinitely; their
// retired segments are then held until a quiet moment or Close. Combined
// with [Builder.MaxSegment], a queue whose traffic pauses between bursts
// reaches a steady state where growth reuses a released segment instead
// of allocating.
//
// # Error Handling
//
// Dequeue and Peek return [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox], when nothing is available:
//
//	backoff := iox.Backoff{}
//	for {
//	    elem, err := q.Dequeue()
//	    if err != nil {
//	        backoff.Wait()
//	        continue
//	    }
//	    backoff.Reset()
//	    process(elem)
//	}
//
// Allocation failure during growth is fatal, as it is for any Go
// allocation. Negative capacities and use after Close panic.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix acquire-release orderings on separate
// variables. Slot payloads are protected by per-slot sequence numbers, so
// the detector may report false positives for generic payloads. Stress
// tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package atomq
