// Package sourcecache implements the Source Cache described in spec.md
// §4.2: it sits between a types.SourceWrapper and the rest of the player,
// optionally interposing a reader task and pkg/ringbuffer.RingBuffer when
// the wrapper reports AsyncMode() true (the common case for network
// sources, where the caller's decode loop must never block on socket I/O).
// In sync mode, reads pass straight through to the wrapper on the caller's
// own goroutine.
//
// The reader task goroutine is grounded on the teacher's
// pkg/audioplayer.Player producer goroutine (pkg/audioplayer/player.go):
// same stopChan-style cancellation via context, same wg.Wait() shutdown,
// generalized from "read a file, write a ringbuffer" to "read a
// SourceWrapper, write a ringbuffer, and service seek requests in between."
package sourcecache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/liteplayer/pkg/ringbuffer"
	"github.com/drgolem/liteplayer/pkg/types"
)

// DefaultReadChunk is the reader task's pull size from the wrapper.
const DefaultReadChunk = 16 * 1024

// SourceCache streams compressed bytes from a types.SourceWrapper, either
// directly (sync mode) or through a ring buffer fed by a background reader
// task (async mode).
type SourceCache struct {
	wrapper types.SourceWrapper
	handle  any
	url     string

	async bool
	rb    *ringbuffer.RingBuffer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seekRequests chan seekRequest
	readerErr    atomic.Value // error

	closeOnce sync.Once
}

// seekRequest carries a Seek call's target offset to the reader task and
// a channel the task acks completion on, so Seek can block until the
// ring buffer has genuinely been repositioned before returning. Callers
// (PrepareAsync's fetch closure, pkg/extractor) interleave Seek and Read
// as if they were synchronous, so a fire-and-forget seek would let a
// following Read race the reader task and return stale buffered bytes.
type seekRequest struct {
	offset int64
	done   chan error
}

// Open opens url through wrapper starting at startPos and, in async mode,
// launches the reader task.
func Open(ctx context.Context, wrapper types.SourceWrapper, url string, startPos int64) (*SourceCache, error) {
	handle, err := wrapper.Open(ctx, url, startPos)
	if err != nil {
		return nil, types.NewError(types.ErrSourceOpen, fmt.Errorf("open source %q: %w", url, err))
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &SourceCache{
		wrapper: wrapper,
		handle:  handle,
		url:     url,
		async:   wrapper.AsyncMode(),
		ctx:     cctx,
		cancel:  cancel,
	}

	if c.async {
		size := wrapper.BufferSize()
		if size <= 0 {
			size = 256 * 1024
		}
		c.rb = ringbuffer.New(uint64(size))
		c.seekRequests = make(chan seekRequest)
		c.wg.Add(1)
		go c.readerTask()
	}

	return c, nil
}

// writePollInterval bounds how long writeChunk's ring-buffer write can
// block before it re-checks for a pending seek request. It must be short
// relative to seek latency, not relative to Read's own timeout.
const writePollInterval = 20 * time.Millisecond

// writeOutcome reports why writeChunk stopped feeding the ring buffer.
type writeOutcome int

const (
	writeDone writeOutcome = iota
	writeClosed
	writeSeeked
)

// writeChunk feeds data into the ring buffer, polling in short bursts
// instead of blocking forever so that a pending Seek can interrupt a
// reader that is back-pressured by a full ring. A plain timeout-0
// rb.Write here would never return while the ring stays full, and since
// Seek's only caller is also the ring's sole consumer (PrepareAsync's
// fetch closure and decodeTask both issue Seek then Read on the same
// goroutine), a reader stuck in that write can never be unblocked:
// nothing drains the ring, and Seek's unbuffered send never finds a
// receiver. Polling gives the reader a chance, every writePollInterval,
// to service a seek instead. Any bytes left unwritten when a seek lands
// predate the seek and are discarded; the next Read must see freshly
// positioned data, not stale buffered bytes.
func (c *SourceCache) writeChunk(data []byte) writeOutcome {
	for len(data) > 0 {
		select {
		case req := <-c.seekRequests:
			if err := c.doSeek(req); err != nil {
				return writeClosed
			}
			return writeSeeked
		case <-c.ctx.Done():
			return writeClosed
		default:
		}

		n, err := c.rb.Write(data, writePollInterval)
		if err == ringbuffer.ErrShutdown {
			return writeClosed
		}
		data = data[n:]
	}
	return writeDone
}

// doSeek repositions the wrapper and ring buffer for req and acks the
// result to the caller blocked in Seek. On failure it stores the error
// for Read to surface and closes the ring buffer, the same shutdown path
// readerTask takes on a wrapper read error.
func (c *SourceCache) doSeek(req seekRequest) error {
	if err := c.wrapper.Seek(c.handle, req.offset); err != nil {
		werr := types.NewError(types.ErrSourceSeek, fmt.Errorf("seek source %q: %w", c.url, err))
		c.readerErr.Store(werr)
		req.done <- werr
		c.rb.Close()
		return werr
	}
	c.rb.Reset()
	req.done <- nil
	return nil
}

// readerTask pulls bytes from the wrapper and feeds the ring buffer until
// the source is exhausted, an error occurs, or the cache is closed.
func (c *SourceCache) readerTask() {
	defer c.wg.Done()
	defer c.rb.DoneWrite()

	chunk := make([]byte, DefaultReadChunk)
	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.seekRequests:
			if err := c.doSeek(req); err != nil {
				return
			}
			continue
		default:
		}

		n, err := c.wrapper.Read(c.handle, chunk)
		if n > 0 {
			switch c.writeChunk(chunk[:n]) {
			case writeClosed:
				return
			case writeSeeked:
				continue
			}
		}
		if err != nil {
			if err != types.ErrShutdownSignal {
				c.readerErr.Store(types.NewError(types.ErrSourceRead, fmt.Errorf("read source %q: %w", c.url, err)))
				c.rb.Close()
			}
			return
		}
		if n == 0 {
			return // clean EOF
		}
	}
}

// Read fills buf with the next compressed bytes, blocking up to timeout in
// async mode (0 means block indefinitely). In sync mode it calls straight
// through to the wrapper.
func (c *SourceCache) Read(buf []byte, timeout time.Duration) (int, error) {
	if !c.async {
		n, err := c.wrapper.Read(c.handle, buf)
		if err != nil {
			return n, types.NewError(types.ErrSourceRead, fmt.Errorf("read source %q: %w", c.url, err))
		}
		return n, nil
	}

	n, err := c.rb.Read(buf, timeout)
	if err == ringbuffer.ErrShutdown {
		if stored := c.readerErr.Load(); stored != nil {
			return n, stored.(error)
		}
	}
	return n, err
}

// Seek repositions the stream at the given absolute byte offset.
func (c *SourceCache) Seek(offset int64) error {
	if !c.async {
		if err := c.wrapper.Seek(c.handle, offset); err != nil {
			return types.NewError(types.ErrSourceSeek, fmt.Errorf("seek source %q: %w", c.url, err))
		}
		return nil
	}
	req := seekRequest{offset: offset, done: make(chan error, 1)}
	select {
	case c.seekRequests <- req:
	case <-c.ctx.Done():
		return types.NewError(types.ErrShutdown, fmt.Errorf("source cache %q closed", c.url))
	}
	select {
	case err := <-req.done:
		return err
	case <-c.ctx.Done():
		return types.NewError(types.ErrShutdown, fmt.Errorf("source cache %q closed", c.url))
	}
}

func (c *SourceCache) ContentPos() int64 { return c.wrapper.ContentPos(c.handle) }
func (c *SourceCache) ContentLen() int64 { return c.wrapper.ContentLen(c.handle) }

// Close stops the reader task (if any) and releases the wrapper handle.
// Safe to call more than once.
func (c *SourceCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.rb != nil {
			c.rb.Close()
		}
		c.wg.Wait()
		err = c.wrapper.Close(c.handle)
	})
	return err
}
