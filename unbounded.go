// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "code.hybscloud.com/atomix"

// Unbounded is a lock-free unbounded multi-producer multi-consumer queue.
//
// The queue is a forward-linked chain of fixed-capacity segments. Producers
// write into the tail segment; when it fills, the producer seals it and
// races to publish a successor of at least double capacity. Consumers drain
// the head segment and, once it is drained and sealed, advance to its
// successor and retire the old segment.
//
// Cursors are global across the chain, so Len is the difference between
// the tail segment's tail and the head segment's head.
//
// Enqueue never fails and never blocks. Dequeue and Peek never block and
// return ErrWouldBlock when no published value is available.
//
// Memory: one segment of roundToPow2(max(hint, 16)) slots, grown on demand.
// Retired segments are held until Close (RetainUntilDrop) or released once
// no operation can still reach them (RefCounted).
type Unbounded[T any] struct {
	_       pad
	tailSeg atomix.Pointer[segment[T]] // Segment producers write into
	_       pad
	headSeg atomix.Pointer[segment[T]] // Segment consumers drain
	_       pad
	readers atomix.Int64 // Operations inside a reader section (RefCounted)
	_       pad
	retired atomix.Pointer[segment[T]] // Retirement stack
	spare   atomix.Pointer[segment[T]] // Unpublished segment ready for reuse
	stats   queueStats
	mode    Reclaim
	maxSeg  uint64 // Growth cap, 0 for unlimited doubling
}

// NewUnbounded creates a new unbounded MPMC queue with RetainUntilDrop
// reclamation and unlimited doubling growth.
// The initial segment capacity rounds up to the next power of 2, minimum 16.
func NewUnbounded[T any](capacity int) *Unbounded[T] {
	return Build[T](New(capacity))
}

func newUnbounded[T any](opts Options) *Unbounded[T] {
	q := &Unbounded[T]{
		mode:   opts.reclaim,
		maxSeg: uint64(opts.maxSegment),
	}
	s := newSegment[T](opts.capacity, 0)
	q.headSeg.StoreRelease(s)
	q.tailSeg.StoreRelease(s)
	q.stats.installed.StoreRelaxed(1)
	return q
}

// Enqueue adds an element to the queue.
// The element is copied into the queue's internal buffer.
// Enqueue always succeeds; it allocates a new segment when the tail
// segment is full.
func (q *Unbounded[T]) Enqueue(elem *T) {
	if q.mode == RefCounted {
		q.enter()
	}
	for {
		seg := q.loadTail()
		if seg.tryEnqueue(elem) {
			break
		}
		q.grow(seg)
	}
	if q.mode == RefCounted {
		q.exit()
	}
}

// grow seals old and tries to publish its successor.
// Only the goroutine that wins the tailSeg CAS links old.next.
func (q *Unbounded[T]) grow(old *segment[T]) {
	seed := old.seal()
	if q.tailSeg.LoadAcquire() != old {
		return
	}
	next, reused := q.allocSegment(q.nextCapacity(old.capacity), seed)
	if q.tailSeg.CompareAndSwapAcqRel(old, next) {
		old.next.StoreRelease(next)
		q.stats.installed.AddAcqRel(1)
		if reused {
			q.stats.reused.AddAcqRel(1)
		}
		return
	}
	q.offerSpare(next)
}

// nextCapacity doubles the segment capacity, clamped to maxSeg.
func (q *Unbounded[T]) nextCapacity(cur uint64) int {
	n := cur * 2
	if q.maxSeg != 0 && n > q.maxSeg {
		n = max(q.maxSeg, cur)
	}
	return int(n)
}

// Dequeue removes and returns an element from the queue.
// Returns (zero-value, ErrWouldBlock) if no published element is available.
func (q *Unbounded[T]) Dequeue() (T, error) {
	if q.mode == RefCounted {
		q.enter()
		elem, err := q.take((*segment[T]).tryDequeue)
		q.exit()
		return elem, err
	}
	return q.take((*segment[T]).tryDequeue)
}

// Peek returns a copy of the element at the head of the queue without
// removing it.
// Returns (zero-value, ErrWouldBlock) if no published element is available.
//
// Peek never moves a slot cursor, but it advances past drained segments
// like Dequeue does.
func (q *Unbounded[T]) Peek() (T, error) {
	if q.mode == RefCounted {
		q.enter()
		elem, err := q.take((*segment[T]).peek)
		q.exit()
		return elem, err
	}
	return q.take((*segment[T]).peek)
}

func (q *Unbounded[T]) take(read func(*segment[T]) (T, claimResult)) (T, error) {
	for {
		seg := q.loadHead()
		elem, res := read(seg)
		switch res {
		case claimOK:
			return elem, nil
		case claimDrained:
			if q.advance(seg) {
				continue
			}
		}
		var zero T
		return zero, ErrWouldBlock
	}
}

// advance moves headSeg past the drained segment seg.
// Returns false if seg has no successor yet.
func (q *Unbounded[T]) advance(seg *segment[T]) bool {
	next := seg.next.LoadAcquire()
	if next == nil {
		return false
	}
	if q.headSeg.CompareAndSwapAcqRel(seg, next) {
		q.retire(seg)
	}
	return true
}

// Len returns the approximate number of queued elements.
//
// The result is a snapshot computed from two independent cursor loads and
// is not consistent with concurrent Enqueue and Dequeue calls.
func (q *Unbounded[T]) Len() int {
	head, _ := q.loadHead().cursors()
	_, tail := q.loadTail().cursors()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

// Close releases every live and retired segment.
//
// Close must not run concurrently with other methods. Using the queue
// after Close panics. Calling Close more than once is a no-op.
func (q *Unbounded[T]) Close() {
	head := q.headSeg.SwapAcqRel(nil)
	q.tailSeg.StoreRelease(nil)
	for seg := head; seg != nil; {
		next := seg.next.LoadAcquire()
		seg.clear()
		seg = next
	}
	q.releaseAll(q.retired.SwapAcqRel(nil))
	q.spare.StoreRelease(nil)
}

func (q *Unbounded[T]) loadHead() *segment[T] {
	seg := q.headSeg.LoadAcquire()
	if seg == nil {
		panic("atomq: use of closed queue")
	}
	return seg
}

func (q *Unbounded[T]) loadTail() *segment[T] {
	seg := q.tailSeg.LoadAcquire()
	if seg == nil {
		panic("atomq: use of closed queue")
	}
	return seg
}
