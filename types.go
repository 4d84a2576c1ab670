// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "unsafe"

// Queue is the combined producer-consumer interface for an unbounded
// FIFO queue.
//
// Enqueue always succeeds. Dequeue and Peek return ErrWouldBlock when no
// element is available; "no data yet" and "no data ever" are not
// distinguished, so callers layer their own wait policy on top.
//
// Example:
//
//	q := atomq.NewUnbounded[int](64)
//	defer q.Close()
//
//	val := 42
//	q.Enqueue(&val)
//
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Peeker[T]

	// Len returns an approximate element count (snapshot, not
	// linearizable with concurrent operations).
	Len() int

	// Close releases every segment. Must not run concurrently with other
	// methods; later use panics.
	Close()
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue.
	// Never fails and never blocks; may allocate a new segment.
	// Safe for any number of concurrent producers.
	Enqueue(elem *T)
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value. The original slot is cleared to allow
// garbage collection of referenced objects.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest published element.
	// Returns (zero-value, ErrWouldBlock) if none is available.
	// Safe for any number of concurrent consumers.
	Dequeue() (T, error)
}

// Peeker is the interface for inspecting the head of a queue.
type Peeker[T any] interface {
	// Peek returns a copy of the oldest published element without
	// removing it.
	// Returns (zero-value, ErrWouldBlock) if none is available.
	Peek() (T, error)
}

// QueuePtr is the combined interface for unsafe.Pointer queues.
//
// Ownership semantics: the producer transfers ownership to the consumer.
// After enqueueing, the producer should not access the object.
type QueuePtr interface {
	Enqueue(elem unsafe.Pointer)
	Dequeue() (unsafe.Pointer, error)
	Peek() (unsafe.Pointer, error)
	Len() int
	Close()
}

// QueueIndirect is the combined interface for uintptr queues (pool
// indices, handles).
type QueueIndirect interface {
	Enqueue(elem uintptr)
	Dequeue() (uintptr, error)
	Peek() (uintptr, error)
	Len() int
	Close()
}

var (
	_ Queue[int]    = (*Unbounded[int])(nil)
	_ QueuePtr      = (*UnboundedPtr)(nil)
	_ QueueIndirect = (*UnboundedIndirect)(nil)
)
