// Package ringbuffer implements the bounded single-producer/single-consumer
// byte FIFO described in spec.md §4.1: blocking Read/Write with optional
// timeouts, a DoneWrite clean-EOF signal, and a Close that wakes any
// pending blocking call with Shutdown.
//
// Unlike a lock-free SPSC ring, this variant must support blocking waits,
// a clean shutdown that wakes both sides, and a Reset between uses, so it
// is built on a mutex and two condition variables rather than atomics.
package ringbuffer

import (
	"sync"
	"time"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Re-exported for backwards-compatible error comparisons.
var (
	ErrInsufficientSpace = types.ErrInsufficientSpace
	ErrInsufficientData  = types.ErrInsufficientData
	ErrShutdown          = types.ErrShutdownSignal
)

// RingBuffer is a bounded byte FIFO for exactly one producer and one
// consumer goroutine. Write must only be called by the producer; Read,
// by the consumer. Close and Reset may be called by either side, subject
// to the Reset precondition documented below.
type RingBuffer struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf    []byte
	size   uint64
	mask   uint64
	rpos   uint64
	wpos   uint64
	closed bool
	done   bool // DoneWrite was called: no more bytes will ever be written
}

// New creates a ring buffer whose capacity is rounded up to the next
// power of 2 (for the mask-based wraparound arithmetic below).
func New(size uint64) *RingBuffer {
	size = nextPowerOf2(size)
	rb := &RingBuffer{
		buf:  make([]byte, size),
		size: size,
		mask: size - 1,
	}
	rb.notEmpty = sync.NewCond(&rb.mu)
	rb.notFull = sync.NewCond(&rb.mu)
	return rb
}

func (rb *RingBuffer) filled() uint64 { return rb.wpos - rb.rpos }
func (rb *RingBuffer) free() uint64   { return rb.size - rb.filled() }

// Size returns the buffer's rounded-up capacity in bytes.
func (rb *RingBuffer) Size() uint64 {
	return rb.size
}

// AvailableRead returns the number of bytes currently available to Read.
func (rb *RingBuffer) AvailableRead() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.filled()
}

// AvailableWrite returns the number of bytes currently available to Write.
func (rb *RingBuffer) AvailableWrite() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.free()
}

// Done reports whether DoneWrite has been called and the buffer has fully
// drained, i.e. whether a Read returning (0, nil) right now means clean EOF
// rather than a transient timeout.
func (rb *RingBuffer) Done() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.done && rb.filled() == 0
}

// Write blocks until all of data has been copied in, the buffer is
// closed, or timeout elapses. A timeout <= 0 means wait forever. Partial
// writes are only returned at a timeout boundary; after Close, Write
// returns ErrShutdown with whatever partial count (possibly zero) was
// written before the close was observed.
func (rb *RingBuffer) Write(data []byte, timeout time.Duration) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	deadline, hasDeadline := deadlineFor(timeout)

	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(data) {
		if rb.closed {
			return written, ErrShutdown
		}
		avail := rb.free()
		if avail == 0 {
			if !rb.waitFor(rb.notFull, deadline, hasDeadline) {
				return written, nil // timeout: partial write allowed here
			}
			continue
		}

		chunk := data[written:]
		if uint64(len(chunk)) > avail {
			chunk = chunk[:avail]
		}
		rb.copyIn(chunk)
		written += len(chunk)
		rb.notEmpty.Broadcast()
	}
	return written, nil
}

// Read blocks until at least one byte is available, DoneWrite has been
// called and the buffer has drained (returns 0, nil for clean EOF),
// the buffer is closed (returns ErrShutdown), or timeout elapses.
func (rb *RingBuffer) Read(data []byte, timeout time.Duration) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	deadline, hasDeadline := deadlineFor(timeout)

	rb.mu.Lock()
	defer rb.mu.Unlock()

	for {
		if rb.closed {
			return 0, ErrShutdown
		}
		avail := rb.filled()
		if avail > 0 {
			n := uint64(len(data))
			if n > avail {
				n = avail
			}
			rb.copyOut(data[:n])
			rb.notFull.Broadcast()
			return int(n), nil
		}
		if rb.done {
			return 0, nil // clean EOF
		}
		if !rb.waitFor(rb.notEmpty, deadline, hasDeadline) {
			return 0, nil // timeout with no data: treated like a transient empty read
		}
	}
}

// DoneWrite signals that the writer is finished: once the buffer drains,
// subsequent Reads return (0, nil) instead of blocking forever.
func (rb *RingBuffer) DoneWrite() {
	rb.mu.Lock()
	rb.done = true
	rb.mu.Unlock()
	rb.notEmpty.Broadcast()
}

// Close releases any goroutine blocked in Read or Write with ErrShutdown
// and causes all subsequent Read/Write calls to return ErrShutdown
// immediately.
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	rb.closed = true
	rb.mu.Unlock()
	rb.notEmpty.Broadcast()
	rb.notFull.Broadcast()
}

// Reset restores the buffer to an empty, open state. The caller must
// guarantee no goroutine is currently blocked inside Read or Write on
// this buffer; Reset does not itself wake or synchronize with blockers.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.rpos = 0
	rb.wpos = 0
	rb.closed = false
	rb.done = false
}

func (rb *RingBuffer) copyIn(data []byte) {
	n := uint64(len(data))
	start := rb.wpos & rb.mask
	end := (rb.wpos + n) & rb.mask
	if end > start || n == 0 {
		copy(rb.buf[start:start+n], data)
	} else {
		first := rb.size - start
		copy(rb.buf[start:], data[:first])
		copy(rb.buf[:end], data[first:])
	}
	rb.wpos += n
}

func (rb *RingBuffer) copyOut(data []byte) {
	n := uint64(len(data))
	start := rb.rpos & rb.mask
	end := (rb.rpos + n) & rb.mask
	if end > start || n == 0 {
		copy(data, rb.buf[start:start+n])
	} else {
		first := rb.size - start
		copy(data[:first], rb.buf[start:])
		copy(data[first:], rb.buf[:end])
	}
	rb.rpos += n
}

// waitFor waits on cond until woken, returning false if deadline passes
// first. Must be called with rb.mu held; Cond.Wait releases and
// reacquires it around the sleep.
func (rb *RingBuffer) waitFor(cond *sync.Cond, deadline time.Time, hasDeadline bool) bool {
	if !hasDeadline {
		cond.Wait()
		return true
	}
	if !time.Now().Before(deadline) {
		return false
	}
	// sync.Cond has no deadline-aware wait; approximate one with a timer
	// goroutine that broadcasts once the deadline passes.
	timer := time.AfterFunc(time.Until(deadline), cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
	return time.Now().Before(deadline)
}

func deadlineFor(timeout time.Duration) (time.Time, bool) {
	if timeout <= 0 {
		return time.Time{}, false
	}
	return time.Now().Add(timeout), true
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
