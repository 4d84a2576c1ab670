// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "unsafe"

// UnboundedPtr is an unbounded MPMC queue for unsafe.Pointer values.
// Useful for zero-copy handoff of buffers and events between goroutines.
// A nil pointer is a legal value.
type UnboundedPtr struct {
	q *Unbounded[unsafe.Pointer]
}

// NewUnboundedPtr creates a new unbounded queue for unsafe.Pointer values.
func NewUnboundedPtr(capacity int) *UnboundedPtr {
	return New(capacity).BuildPtr()
}

// Enqueue adds a pointer to the queue.
func (q *UnboundedPtr) Enqueue(elem unsafe.Pointer) {
	q.q.Enqueue(&elem)
}

// Dequeue removes and returns a pointer from the queue.
// Returns (nil, ErrWouldBlock) if none is available.
func (q *UnboundedPtr) Dequeue() (unsafe.Pointer, error) {
	return q.q.Dequeue()
}

// Peek returns the pointer at the head of the queue without removing it.
func (q *UnboundedPtr) Peek() (unsafe.Pointer, error) {
	return q.q.Peek()
}

// Len returns the approximate number of queued pointers.
func (q *UnboundedPtr) Len() int {
	return q.q.Len()
}

// Stats returns a snapshot of the queue's segment counters.
func (q *UnboundedPtr) Stats() Stats {
	return q.q.Stats()
}

// Close releases every segment.
func (q *UnboundedPtr) Close() {
	q.q.Close()
}

// UnboundedIndirect is an unbounded MPMC queue for uintptr values.
// Every uintptr value, including zero, may be enqueued.
type UnboundedIndirect struct {
	q *Unbounded[uintptr]
}

// NewUnboundedIndirect creates a new unbounded queue for uintptr values.
func NewUnboundedIndirect(capacity int) *UnboundedIndirect {
	return New(capacity).BuildIndirect()
}

// Enqueue adds a value to the queue.
func (q *UnboundedIndirect) Enqueue(elem uintptr) {
	q.q.Enqueue(&elem)
}

// Dequeue removes and returns a value from the queue.
// Returns (0, ErrWouldBlock) if none is available.
func (q *UnboundedIndirect) Dequeue() (uintptr, error) {
	return q.q.Dequeue()
}

// Peek returns the value at the head of the queue without removing it.
func (q *UnboundedIndirect) Peek() (uintptr, error) {
	return q.q.Peek()
}

// Len returns the approximate number of queued values.
func (q *UnboundedIndirect) Len() int {
	return q.q.Len()
}

// Stats returns a snapshot of the queue's segment counters.
func (q *UnboundedIndirect) Stats() Stats {
	return q.q.Stats()
}

// Close releases every segment.
func (q *UnboundedIndirect) Close() {
	q.q.Close()
}
