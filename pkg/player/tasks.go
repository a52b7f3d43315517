package player

import (
	"log/slog"

	"github.com/drgolem/liteplayer/pkg/ringbuffer"
	"github.com/drgolem/liteplayer/pkg/seek"
	"github.com/drgolem/liteplayer/pkg/sink"
	"github.com/drgolem/liteplayer/pkg/types"
)

const decodeChunkSamples = 4096

// decodeTask pulls compressed bytes through the decoder, resamples the
// result, and feeds the PCM ring buffer. Grounded on the teacher's
// producer goroutine (pkg/audioplayer/player.go), generalized from
// "read a file, decode, write a ringbuffer" to also run a resample stage
// between decode and the ring buffer write.
func (p *Player) decodeTask() {
	defer p.wg.Done()

	p.mu.Lock()
	dec := p.dec
	resampler := p.resampler
	ring := p.pcmRing
	cache := p.srcCache
	info := p.mediaInfo
	_, inChannels, inBits := dec.GetFormat()
	p.mu.Unlock()

	defer ring.DoneWrite()

	inFrameBytes := inChannels * inBits / 8
	decodeBuf := make([]byte, decodeChunkSamples*inFrameBytes)

	for {
		select {
		case <-p.ctx.Done():
			return
		case offset := <-p.seekRequests:
			if err := cache.Seek(offset); err != nil {
				p.fail(err)
				return
			}
			ring.Reset()
			if posMs, merr := seek.ToMillis(info, offset); merr == nil {
				slog.Debug("seek complete", "offset", offset, "position_ms", posMs)
			}
			continue
		default:
		}

		p.waitWhilePaused()

		n, err := dec.DecodeSamples(decodeChunkSamples, decodeBuf)
		if err != nil {
			p.fail(err)
			return
		}
		if n == 0 {
			if tail, ferr := resampler.Close(); ferr == nil && len(tail) > 0 {
				ring.Write(tail, 0)
			}
			p.transitionIfActive(types.StateNearlyCompleted)
			return
		}

		pcm, err := resampler.Process(decodeBuf[:n*inFrameBytes])
		if err != nil {
			p.fail(err)
			return
		}
		if len(pcm) == 0 {
			continue
		}
		if _, werr := ring.Write(pcm, 0); werr != nil {
			return // ring closed: Stop() is tearing the pipeline down
		}

		outFrameBytes := p.outChannels * p.outBits / 8
		if outFrameBytes > 0 {
			p.mu.Lock()
			p.decodedFrames += int64(len(pcm) / outFrameBytes)
			p.mu.Unlock()
		}
	}
}

// playbackTask drains the PCM ring buffer into the sink. Grounded on the
// teacher's consumer goroutine: same frame-alignment and underrun-retry
// shape, generalized to any types.SinkWrapper instead of a hardcoded
// PortAudio stream.
func (p *Player) playbackTask() {
	defer p.wg.Done()

	p.mu.Lock()
	ring := p.pcmRing
	sinkWrapper := p.sinkWrapper
	sinkHandle := p.sinkHandle
	outFrameBytes := p.outChannels * p.outBits / 8
	timeout := p.cfg.ReadTimeout
	framesPerBuffer := p.cfg.FramesPerBuffer
	p.mu.Unlock()

	if outFrameBytes <= 0 {
		outFrameBytes = 4
	}
	buf := make([]byte, framesPerBuffer*outFrameBytes)

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.waitWhilePaused()

		n, err := ring.Read(buf, timeout)
		if err == ringbuffer.ErrShutdown {
			return
		}
		if n == 0 {
			if err == nil && p.ringDrained(ring) {
				p.transitionIfActive(types.StateCompleted)
				return
			}
			continue
		}

		frames := n / outFrameBytes
		if frames == 0 {
			continue
		}
		aligned := frames * outFrameBytes
		if _, werr := sink.Write(sinkWrapper, sinkHandle, buf[:aligned]); werr != nil {
			p.fail(werr)
			return
		}

		p.mu.Lock()
		p.playedFrames += int64(frames)
		p.mu.Unlock()
	}
}

// ringDrained reports whether a ring buffer that just returned a zero-byte
// read has genuinely reached clean EOF (DoneWrite was called and nothing
// is left to read) as opposed to a transient read timeout.
func (p *Player) ringDrained(ring *ringbuffer.RingBuffer) bool {
	return ring.Done()
}

// waitWhilePaused blocks the calling goroutine while the player is paused,
// waking immediately on Resume or on pipeline shutdown.
func (p *Player) waitWhilePaused() {
	p.pausedMu.Lock()
	ch := p.pauseCh
	p.pausedMu.Unlock()

	select {
	case <-ch:
	case <-p.ctx.Done():
	}
}

// transitionIfActive moves to target only if playback is currently running
// (Started, Paused or NearlyCompleted); a concurrent Stop() may have already
// moved the player to Stopped/Idle, in which case this is a no-op.
func (p *Player) transitionIfActive(target types.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == types.StateStarted || p.state == types.StatePaused || p.state == types.StateNearlyCompleted {
		p.setState(target, types.ErrNone)
	}
}
