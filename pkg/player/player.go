// Package player implements the Player state machine and control surface
// described in spec.md §4.7 and §6: Create/SetDataSource/PrepareAsync/
// Start/Pause/Resume/Seek/Stop/Reset/Destroy plus position and duration
// queries, dispatched over two background goroutines (decode task,
// playback task) wired together through the engine's other packages
// (pkg/sourcecache, pkg/extractor, pkg/decoder, pkg/resample, pkg/sink).
//
// Concurrency follows the teacher's pkg/audioplayer.Player: a control
// mutex guarding state transitions, a context cancel func (in place of the
// teacher's stopChan) + sync.WaitGroup pair for clean shutdown of the
// background goroutines, and a producer/consumer
// pair generalized here into decodeTask/playbackTask (compressed bytes in,
// PCM bytes out, device/file bytes out).
package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/liteplayer/pkg/decoder"
	"github.com/drgolem/liteplayer/pkg/extractor"
	"github.com/drgolem/liteplayer/pkg/registry"
	"github.com/drgolem/liteplayer/pkg/resample"
	"github.com/drgolem/liteplayer/pkg/ringbuffer"
	"github.com/drgolem/liteplayer/pkg/seek"
	"github.com/drgolem/liteplayer/pkg/sink"
	"github.com/drgolem/liteplayer/pkg/sourcecache"
	"github.com/drgolem/liteplayer/pkg/types"
)

// Config holds player configuration, mirroring the teacher's
// audioplayer.Config/DefaultConfig shape.
type Config struct {
	PCMBufferSize   uint64        // decoded-PCM ring buffer size in bytes
	FramesPerBuffer int           // playback task's read granularity, in output frames
	ReadTimeout     time.Duration // blocking Read timeout on the PCM ring buffer
	OutputRate      int           // sink's fixed output sample rate; 0 means "match source"
	OutputChannels  int           // sink's fixed output channel count; 0 means "match source"
	SinkPriv        any           // opaque value passed through to SinkWrapper.Open
}

// DefaultConfig returns sensible defaults for desktop playback.
func DefaultConfig() Config {
	return Config{
		PCMBufferSize:   512 * 1024,
		FramesPerBuffer: 1024,
		ReadTimeout:     2 * time.Second,
	}
}

// Player is the engine's control surface. The zero value is not usable;
// construct with New.
type Player struct {
	reg *registry.Registry
	cfg Config

	mu    sync.Mutex
	state types.State
	url   string

	mediaInfo   *types.MediaInfo
	srcWrapper  types.SourceWrapper
	srcCache    *sourcecache.SourceCache
	dec         decoder.Decoder
	resampler   *resample.Resampler
	pcmRing     *ringbuffer.RingBuffer
	sinkWrapper types.SinkWrapper
	sinkHandle  any

	outRate, outChannels, outBits int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	decodedFrames int64 // frames of decoded-and-resampled PCM produced so far
	playedFrames  int64 // frames of PCM actually written to the sink so far

	pauseCh  chan struct{} // closed while not paused; replaced on Pause/Resume
	pausedMu sync.Mutex

	seekRequests chan int64 // consumed by decodeTask: only it may touch pcmRing/srcCache position
}

// New creates a Player in StateIdle, wired to reg for source/sink
// resolution and listener dispatch.
func New(reg *registry.Registry, cfg Config) *Player {
	p := &Player{reg: reg, cfg: cfg, state: types.StateIdle}
	p.pauseCh = make(chan struct{})
	close(p.pauseCh) // not paused initially
	p.seekRequests = make(chan int64, 1)
	return p
}

// RegisterSourceWrapper, RegisterSinkWrapper and RegisterStateListener are
// thin passthroughs to the shared registry, present on Player itself so
// callers get the full spec.md §6 control surface from one type.
func (p *Player) RegisterSourceWrapper(w types.SourceWrapper) { p.reg.RegisterSourceWrapper(w) }
func (p *Player) RegisterSinkWrapper(w types.SinkWrapper)     { p.reg.RegisterSinkWrapper(w) }
func (p *Player) RegisterStateListener(l types.Listener)      { p.reg.RegisterStateListener(l) }

// State returns the current lifecycle state.
func (p *Player) State() types.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetDataSource binds url as the stream to play. Valid from StateIdle or
// StateStopped; transitions to StateInited.
func (p *Player) SetDataSource(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != types.StateIdle && p.state != types.StateStopped {
		return p.invalidState("SetDataSource")
	}
	p.url = url
	return p.setState(types.StateInited, types.ErrNone)
}

// PrepareAsync resolves the source adapter, sniffs and extracts the
// container format, opens a decoder, and opens the sink. Valid from
// StateInited; transitions to StatePrepared on success or StateError on
// failure. Named PrepareAsync (rather than Prepare) per spec.md §6: the
// preparation work itself runs synchronously on the caller's goroutine,
// but the resulting state transition is what callers historically await
// asynchronously via a state listener.
func (p *Player) PrepareAsync() error {
	p.mu.Lock()
	if p.state != types.StateInited {
		err := p.invalidState("PrepareAsync")
		p.mu.Unlock()
		return err
	}
	url := p.url
	p.mu.Unlock()

	wrapper, err := p.reg.SourceFor(url)
	if err != nil {
		return p.fail(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cache, err := sourcecache.Open(ctx, wrapper, url, 0)
	if err != nil {
		cancel()
		return p.fail(err)
	}

	codec := extractor.SniffExtension(url)
	if codec == types.CodecUnknown {
		peek := make([]byte, extractor.SniffPeekSize)
		n, _ := cache.Read(peek, p.cfg.ReadTimeout)
		codec = extractor.SniffMagic(peek[:n])
		if err := cache.Seek(0); err != nil {
			cache.Close()
			cancel()
			return p.fail(err)
		}
	}
	if codec == types.CodecUnknown {
		cache.Close()
		cancel()
		return p.fail(types.NewError(types.ErrParse, fmt.Errorf("could not identify container format for %q", url)))
	}

	fetch := func(buf []byte, off int64) (int, error) {
		if err := cache.Seek(off); err != nil {
			return 0, err
		}
		return cache.Read(buf, p.cfg.ReadTimeout)
	}
	info, err := extractor.Extract(codec, fetch)
	if err != nil {
		cache.Close()
		cancel()
		return p.fail(err)
	}

	startOffset, err := seek.ToByteOffset(info, 0)
	if err != nil {
		cache.Close()
		cancel()
		return p.fail(err)
	}
	if err := cache.Seek(startOffset); err != nil {
		cache.Close()
		cancel()
		return p.fail(err)
	}

	dec, err := decoder.New(codec)
	if err != nil {
		cache.Close()
		cancel()
		return p.fail(err)
	}
	cacheReader := &sourceCacheReader{cache: cache, timeout: p.cfg.ReadTimeout}
	if err := dec.Open(cacheReader, info); err != nil {
		cache.Close()
		cancel()
		return p.fail(err)
	}

	rate, channels, bits := dec.GetFormat()
	outRate, outChannels := rate, channels
	if p.cfg.OutputRate != 0 {
		outRate = p.cfg.OutputRate
	}
	if p.cfg.OutputChannels != 0 {
		outChannels = p.cfg.OutputChannels
	}
	resampler, err := resample.New(rate, channels, outRate, outChannels)
	if err != nil {
		dec.Close()
		cache.Close()
		cancel()
		return p.fail(err)
	}

	sinkWrapper, err := p.reg.Sink()
	if err != nil {
		dec.Close()
		cache.Close()
		cancel()
		return p.fail(err)
	}
	sinkHandle, err := sink.Open(sinkWrapper, sink.Format{SampleRate: outRate, Channels: outChannels, Bits: 16}, p.cfg.SinkPriv)
	if err != nil {
		dec.Close()
		cache.Close()
		cancel()
		return p.fail(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mediaInfo = info
	p.srcWrapper = wrapper
	p.srcCache = cache
	p.dec = dec
	p.resampler = resampler
	p.sinkWrapper = sinkWrapper
	p.sinkHandle = sinkHandle
	p.outRate, p.outChannels, p.outBits = outRate, outChannels, 16
	p.pcmRing = ringbuffer.New(p.cfg.PCMBufferSize)
	p.ctx, p.cancel = ctx, cancel

	return p.setState(types.StatePrepared, types.ErrNone)
}

// Start begins playback. Valid from StatePrepared; launches the decode and
// playback tasks and transitions to StateStarted.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != types.StatePrepared {
		return p.invalidState("Start")
	}

	p.wg.Add(2)
	go p.decodeTask()
	go p.playbackTask()

	return p.setState(types.StateStarted, types.ErrNone)
}

// Pause suspends the decode and playback tasks without tearing down any state. Valid
// from StateStarted.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != types.StateStarted {
		return p.invalidState("Pause")
	}
	p.pausedMu.Lock()
	p.pauseCh = make(chan struct{})
	p.pausedMu.Unlock()
	return p.setState(types.StatePaused, types.ErrNone)
}

// Resume continues playback after Pause. Valid from StatePaused.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != types.StatePaused {
		return p.invalidState("Resume")
	}
	p.pausedMu.Lock()
	close(p.pauseCh)
	p.pausedMu.Unlock()
	return p.setState(types.StateStarted, types.ErrNone)
}

// Seek repositions playback to posMs milliseconds into the stream. Valid
// from StateStarted or StatePaused. The actual source-cache seek and PCM
// ring reset happen inside decodeTask, since it is the only goroutine
// allowed to touch the ring buffer's write side and the source cache's
// position; Seek only computes the target byte offset and hands it off.
func (p *Player) Seek(posMs int64) error {
	p.mu.Lock()
	if p.state != types.StateStarted && p.state != types.StatePaused {
		err := p.invalidState("Seek")
		p.mu.Unlock()
		return err
	}
	info := p.mediaInfo
	ctx := p.ctx
	p.mu.Unlock()

	offset, err := seek.ToByteOffset(info, posMs)
	if err != nil {
		return p.fail(err)
	}

	select {
	case p.seekRequests <- offset:
	case <-ctx.Done():
		return p.invalidState("Seek")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.decodedFrames = posMs * int64(p.outRate) / 1000
	p.playedFrames = p.decodedFrames
	return nil
}

// Stop halts playback and releases the decode/sink pipeline, returning to
// StateStopped. Valid from any state except StateIdle.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state == types.StateIdle {
		err := p.invalidState("Stop")
		p.mu.Unlock()
		return err
	}
	cancel := p.cancel
	ring := p.pcmRing
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ring != nil {
		ring.Close()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
	return p.setState(types.StateStopped, types.ErrNone)
}

// Reset returns the player to StateIdle, ready for a new SetDataSource.
// Equivalent to Stop followed by clearing the bound URL.
func (p *Player) Reset() error {
	if p.State() != types.StateIdle {
		if err := p.Stop(); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = ""
	return p.setState(types.StateIdle, types.ErrNone)
}

// Destroy releases all resources. The Player is not usable afterward.
func (p *Player) Destroy() error {
	return p.Reset()
}

// teardownLocked releases the decode/source/sink pipeline. Caller must
// hold p.mu.
func (p *Player) teardownLocked() {
	if p.dec != nil {
		if err := p.dec.Close(); err != nil {
			slog.Warn("close decoder", "error", err)
		}
		p.dec = nil
	}
	if p.resampler != nil {
		if _, err := p.resampler.Close(); err != nil {
			slog.Warn("close resampler", "error", err)
		}
		p.resampler = nil
	}
	if p.srcCache != nil {
		if err := p.srcCache.Close(); err != nil {
			slog.Warn("close source", "error", err)
		}
		p.srcCache = nil
	}
	if p.sinkWrapper != nil && p.sinkHandle != nil {
		if err := p.sinkWrapper.Close(p.sinkHandle); err != nil {
			slog.Warn("close sink", "error", err)
		}
		p.sinkHandle = nil
	}
	p.pcmRing = nil
	p.mediaInfo = nil
	p.decodedFrames = 0
	p.playedFrames = 0
}

// setState updates p.state and dispatches registered listeners. Caller
// must hold p.mu.
func (p *Player) setState(s types.State, errKind types.ErrorKind) error {
	p.state = s
	for _, l := range p.reg.Listeners() {
		l(s, errKind, nil)
	}
	return nil
}

// fail transitions to StateError (from any state) and returns the error
// that caused it, classified via types.KindOf. It cancels the pipeline
// context and closes the PCM ring first so that a sibling decode/playback
// goroutine blocked in a Read/Write wakes up instead of leaking; it never
// calls wg.Wait() itself since it may be called from one of those very
// goroutines (a caller-side Stop() will still observe and join them).
func (p *Player) fail(err error) error {
	p.mu.Lock()
	cancel := p.cancel
	ring := p.pcmRing
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ring != nil {
		ring.Close()
	}

	p.mu.Lock()
	p.teardownLocked()
	p.setState(types.StateError, types.KindOf(err))
	p.mu.Unlock()
	return err
}

func (p *Player) invalidState(op string) error {
	return types.NewError(types.ErrInvalidState, fmt.Errorf("%s: invalid in state %s", op, p.state))
}

// sourceCacheReader adapts a *sourcecache.SourceCache to io.Reader so a
// decoder.Decoder can pull compressed bytes from it.
type sourceCacheReader struct {
	cache   *sourcecache.SourceCache
	timeout time.Duration
}

func (r *sourceCacheReader) Read(p []byte) (int, error) {
	n, err := r.cache.Read(p, r.timeout)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
