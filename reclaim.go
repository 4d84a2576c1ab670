// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "code.hybscloud.com/atomix"

// Reclaim selects how retired segments are released.
type Reclaim uint8

const (
	// RetainUntilDrop keeps every retired segment on the retirement stack
	// until Close. Operations pay no reader accounting; memory of drained
	// segments stays reachable for the lifetime of the queue.
	RetainUntilDrop Reclaim = iota

	// RefCounted counts operations that may dereference a segment and
	// releases retired segments when the count returns to zero. Released
	// segments are cleared and may be reused by a later growth.
	//
	// Nothing is released while any Enqueue, Dequeue or Peek is in flight:
	// under sustained traffic from several goroutines the count may never
	// reach zero, and retired segments accumulate until traffic pauses or
	// Close runs.
	RefCounted
)

// String returns the mode name.
func (m Reclaim) String() string {
	switch m {
	case RetainUntilDrop:
		return "retain"
	case RefCounted:
		return "refcount"
	default:
		return "unknown"
	}
}

type queueStats struct {
	installed atomix.Int64
	retired   atomix.Int64
	released  atomix.Int64
	reused    atomix.Int64
}

// Stats is a snapshot of segment lifecycle counters.
//
// Installed, Retired, Released and Reused only increase.
type Stats struct {
	Installed    int64 // Segments published into the chain, including the first
	Retired      int64 // Segments unlinked from the head of the chain
	Released     int64 // Retired segments cleared and dropped or recycled
	Reused       int64 // Growths served by the spare segment
	HeadCapacity int   // Capacity of the segment consumers drain
	TailCapacity int   // Capacity of the segment producers write into
}

// Stats returns a snapshot of the queue's segment counters.
func (q *Unbounded[T]) Stats() Stats {
	return Stats{
		Installed:    q.stats.installed.LoadAcquire(),
		Retired:      q.stats.retired.LoadAcquire(),
		Released:     q.stats.released.LoadAcquire(),
		Reused:       q.stats.reused.LoadAcquire(),
		HeadCapacity: int(q.loadHead().capacity),
		TailCapacity: int(q.loadTail().capacity),
	}
}

// enter opens a reader section.
func (q *Unbounded[T]) enter() {
	q.readers.AddAcqRel(1)
}

// exit closes a reader section. The goroutine that brings the count to
// zero takes the retirement stack and releases it if no section opened in
// the meantime; otherwise the batch goes back on the stack.
func (q *Unbounded[T]) exit() {
	if q.readers.AddAcqRel(-1) != 0 {
		return
	}
	if q.retired.LoadAcquire() == nil {
		return
	}
	batch := q.retired.SwapAcqRel(nil)
	if batch == nil {
		return
	}
	// A section opened after the swap cannot reach a retired segment, but
	// one opened before it may still hold a pointer into the batch.
	if q.readers.LoadAcquire() != 0 {
		q.restore(batch)
		return
	}
	q.release(batch)
}

// retire pushes a segment that left the head of the chain onto the
// retirement stack.
func (q *Unbounded[T]) retire(seg *segment[T]) {
	for {
		top := q.retired.LoadAcquire()
		seg.retireLink = top
		if q.retired.CompareAndSwapAcqRel(top, seg) {
			q.stats.retired.AddAcqRel(1)
			return
		}
	}
}

// restore pushes a whole batch back onto the retirement stack.
func (q *Unbounded[T]) restore(batch *segment[T]) {
	last := batch
	for last.retireLink != nil {
		last = last.retireLink
	}
	for {
		top := q.retired.LoadAcquire()
		last.retireLink = top
		if q.retired.CompareAndSwapAcqRel(top, batch) {
			return
		}
	}
}

// release clears a batch no operation can reach and offers each segment
// for reuse.
func (q *Unbounded[T]) release(batch *segment[T]) {
	for seg := batch; seg != nil; {
		next := seg.retireLink
		seg.clear()
		q.stats.released.AddAcqRel(1)
		q.offerSpare(seg)
		seg = next
	}
}

// releaseAll clears a batch without recycling it.
func (q *Unbounded[T]) releaseAll(batch *segment[T]) {
	for seg := batch; seg != nil; {
		next := seg.retireLink
		seg.clear()
		q.stats.released.AddAcqRel(1)
		seg = next
	}
}

// allocSegment returns a segment of at least capacity slots seeded at
// seed, preferring the spare segment when it is large enough.
// reused reports whether the spare was taken.
func (q *Unbounded[T]) allocSegment(capacity int, seed uint64) (seg *segment[T], reused bool) {
	if sp := q.spare.LoadAcquire(); sp != nil && sp.capacity >= uint64(capacity) {
		if q.spare.CompareAndSwapAcqRel(sp, nil) {
			sp.reset(seed)
			return sp, true
		}
	}
	return newSegment[T](capacity, seed), false
}

// offerSpare keeps seg as the spare if the slot is free or holds a smaller
// segment. seg must be unreachable from any operation.
func (q *Unbounded[T]) offerSpare(seg *segment[T]) {
	for {
		sp := q.spare.LoadAcquire()
		if sp != nil && sp.capacity >= seg.capacity {
			return
		}
		if q.spare.CompareAndSwapAcqRel(sp, seg) {
			return
		}
	}
}
