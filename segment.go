// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// minSegment is the smallest segment capacity.
const minSegment = 16

// sealedBit marks a segment's tail as closed to producers.
// Cursors stay well below 2^63 for the lifetime of any process.
const sealedBit = 1 << 63

// claimResult classifies the outcome of a segment read attempt.
type claimResult uint8

const (
	claimOK      claimResult = iota // value read
	claimEmpty                      // head == tail, segment still open
	claimPending                    // a producer claimed head but has not published yet
	claimDrained                    // head == final tail of a sealed segment
)

// segment is a fixed-capacity ring with global cursors.
//
// head and tail never wrap: a segment created with seed s starts with
// head == tail == s, so a chain of segments shares one cursor space.
// Slot publication uses per-slot sequence numbers (as in MPMCSeq):
//
//	seq == pos        slot free for the producer of pos
//	seq == pos+1      value for pos published
//	seq == pos+cap    slot consumed, free for the producer of pos+cap
//
// Once sealedBit is set in tail no producer can claim a slot again.
type segment[T any] struct {
	_          pad
	tail       atomix.Uint64 // Producer cursor | sealedBit
	_          pad
	head       atomix.Uint64 // Consumer cursor
	_          pad
	next       atomix.Pointer[segment[T]]
	retireLink *segment[T] // Retirement stack link, owned by the retiring goroutine
	buffer     []segmentSlot[T]
	mask       uint64
	capacity   uint64
}

type segmentSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// newSegment allocates a segment of at least capacity slots whose cursors
// start at seed. Capacity rounds up to the next power of 2, minimum 16.
func newSegment[T any](capacity int, seed uint64) *segment[T] {
	n := uint64(roundToPow2(max(capacity, minSegment)))
	s := &segment[T]{
		buffer:   make([]segmentSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}
	s.reset(seed)
	return s
}

// reset reseeds an unpublished segment. The caller must own s exclusively.
func (s *segment[T]) reset(seed uint64) {
	s.head.StoreRelaxed(seed)
	s.tail.StoreRelaxed(seed)
	s.next.StoreRelaxed(nil)
	s.retireLink = nil
	for i := uint64(0); i < s.capacity; i++ {
		pos := seed + i
		s.buffer[pos&s.mask].seq.StoreRelaxed(pos)
	}
}

// tryEnqueue claims the slot at tail and publishes *elem into it.
// Returns false if the segment is full or sealed.
func (s *segment[T]) tryEnqueue(elem *T) bool {
	sw := spin.Wait{}
	for {
		tail := s.tail.LoadAcquire()
		if tail&sealedBit != 0 {
			return false
		}
		slot := &s.buffer[tail&s.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if s.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return true
			}
		} else if diff < 0 {
			// Slot from the previous round not yet consumed
			return false
		}
		// diff > 0 or lost CAS: another producer advanced tail
		sw.Once()
	}
}

// tryDequeue claims the slot at head and takes its value.
func (s *segment[T]) tryDequeue() (T, claimResult) {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		slot := &s.buffer[head&s.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if s.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(head + s.capacity)
				return elem, claimOK
			}
		} else if diff < 0 {
			var zero T
			return zero, s.classify(head)
		}
		sw.Once()
	}
}

// peek returns a copy of the value at head without claiming it.
//
// The value is read optimistically and kept only if neither the slot
// sequence nor head moved while it was copied.
func (s *segment[T]) peek() (T, claimResult) {
	sw := spin.Wait{}
	for {
		head := s.head.LoadAcquire()
		slot := &s.buffer[head&s.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			elem := slot.data
			if slot.seq.LoadAcquire() == seq && s.head.LoadAcquire() == head {
				return elem, claimOK
			}
		} else if diff < 0 {
			var zero T
			return zero, s.classify(head)
		}
		sw.Once()
	}
}

// classify explains why the slot at head holds no published value.
func (s *segment[T]) classify(head uint64) claimResult {
	tail := s.tail.LoadAcquire()
	if head < tail&^sealedBit {
		return claimPending
	}
	if tail&sealedBit != 0 {
		return claimDrained
	}
	return claimEmpty
}

// seal closes the segment to producers and returns its final tail.
// Idempotent: later calls return the same value.
func (s *segment[T]) seal() uint64 {
	for {
		tail := s.tail.LoadAcquire()
		if tail&sealedBit != 0 {
			return tail &^ sealedBit
		}
		if s.tail.CompareAndSwapAcqRel(tail, tail|sealedBit) {
			return tail
		}
	}
}

// sealed reports whether the segment refuses producers.
func (s *segment[T]) sealed() bool {
	return s.tail.LoadAcquire()&sealedBit != 0
}

// cursors returns head and tail with the seal flag stripped.
func (s *segment[T]) cursors() (head, tail uint64) {
	head = s.head.LoadAcquire()
	tail = s.tail.LoadAcquire() &^ sealedBit
	return head, tail
}

// clear drops every value and link held by the segment.
func (s *segment[T]) clear() {
	var zero T
	for i := range s.buffer {
		s.buffer[i].data = zero
	}
	s.next.StoreRelaxed(nil)
	s.retireLink = nil
}
