// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package atomq

import "code.hybscloud.com/iox"

// ErrWouldBlock indicates no element is available right now.
//
// Returned by Dequeue and Peek when the queue is empty or the element at
// the head has been claimed by a producer that has not published it yet.
// Enqueue never returns it: the queue grows instead of applying
// backpressure.
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry later (with backoff, polling or external signaling) rather than
// propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    elem, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        process(elem)
//	        continue
//	    }
//	    if atomq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
