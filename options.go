// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "unsafe"

// Options configures queue creation.
type Options struct {
	// Initial segment capacity (rounds up to next power of 2, minimum 16)
	capacity int

	// Growth cap for the doubling schedule, 0 for unlimited
	maxSegment int

	// Retired segment reclamation
	reclaim Reclaim
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Default: retain retired segments until Close, unlimited doubling
//	q := atomq.Build[Event](atomq.New(1024))
//
//	// Release drained segments eagerly and cap segment growth
//	q := atomq.Build[*Request](atomq.New(256).Reclaim(atomq.RefCounted).MaxSegment(8192))
//
//	// Pointer-sized payloads
//	q := atomq.New(1024).BuildPtr()
type Builder struct {
	opts Options
}

// New creates a queue builder with the given initial capacity hint.
//
// The initial segment capacity rounds up to the next power of 2 with a
// minimum of 16: New(0) and New(10) give 16, New(1000) gives 1024.
//
// Panics if capacity < 0.
func New(capacity int) *Builder {
	if capacity < 0 {
		panic("atomq: capacity must be >= 0")
	}
	return &Builder{opts: Options{capacity: roundToPow2(max(capacity, minSegment))}}
}

// Reclaim selects the reclamation mode for retired segments.
// The default is RetainUntilDrop.
//
// Panics on an unknown mode.
func (b *Builder) Reclaim(mode Reclaim) *Builder {
	if mode != RetainUntilDrop && mode != RefCounted {
		panic("atomq: unknown reclaim mode")
	}
	b.opts.reclaim = mode
	return b
}

// MaxSegment caps segment growth at n slots (rounds up to next power of 2).
//
// Without a cap every new segment doubles its predecessor. With a cap the
// schedule doubles until it reaches n and then stays there, which lets
// RefCounted queues recycle drained segments instead of allocating.
//
// Panics if n rounds below the initial capacity.
func (b *Builder) MaxSegment(n int) *Builder {
	n = roundToPow2(n)
	if n < b.opts.capacity {
		panic("atomq: max segment must be >= initial capacity")
	}
	b.opts.maxSegment = n
	return b
}

// Build creates an Unbounded[T] queue.
func Build[T any](b *Builder) *Unbounded[T] {
	return newUnbounded[T](b.opts)
}

// BuildPtr creates an unbounded queue for unsafe.Pointer values.
func (b *Builder) BuildPtr() *UnboundedPtr {
	return &UnboundedPtr{q: newUnbounded[unsafe.Pointer](b.opts)}
}

// BuildIndirect creates an unbounded queue for uintptr values.
func (b *Builder) BuildIndirect() *UnboundedIndirect {
	return &UnboundedIndirect{q: newUnbounded[uintptr](b.opts)}
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
