// Package resample implements the Resampler described in spec.md §4.5: a
// passthrough fast path when the decoded stream already matches the sink's
// required rate/channel count, and otherwise a channel conversion (mono<->
// stereo) plus sample-rate conversion pipeline.
//
// The channel helpers (MonoToStereo16, StereoToMono16) and conversion
// ordering are a direct port of liteplayer_resampler.c's
// mono_to_stereo/stereo_to_mono and resampler_process: downmix stereo to
// mono happens before rate conversion, upmix mono to stereo happens after.
// Sample-rate conversion itself is delegated to github.com/zaf/resample
// (a Go SoXR binding), used the same way the teacher's cmd/transform.go
// drives it: soxr.New(writer, inRate, outRate, channels, soxr.I16, soxr.HighQ)
// followed by Write then Close.
package resample

import (
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Resampler converts 16-bit interleaved PCM from (inRate, inChannels) to
// (outRate, outChannels). A single soxr instance is kept alive across
// Process calls for the lifetime of the Resampler: soxr carries filter
// state between writes, and tearing it down per chunk would reset that
// state and click at every chunk boundary.
type Resampler struct {
	inRate, outRate         int
	inChannels, outChannels int
	rateConvert             bool
	channelConvert          bool

	rsChannels int
	rsOut      bytes.Buffer
	rs         *soxr.Resampler
}

// New builds a Resampler. Channel conversion is supported only between mono
// and stereo, matching resampler_open's accepted channel set; equal input
// and output channel counts are accepted for any count.
func New(inRate, inChannels, outRate, outChannels int) (*Resampler, error) {
	if inChannels != outChannels {
		if inChannels != 1 && inChannels != 2 {
			return nil, fmt.Errorf("unsupported input channel count %d for channel conversion", inChannels)
		}
		if outChannels != 1 && outChannels != 2 {
			return nil, fmt.Errorf("unsupported output channel count %d for channel conversion", outChannels)
		}
	}
	r := &Resampler{
		inRate:         inRate,
		outRate:        outRate,
		inChannels:     inChannels,
		outChannels:    outChannels,
		rateConvert:    inRate != outRate,
		channelConvert: inChannels != outChannels,
	}
	if r.rateConvert {
		r.rsChannels = inChannels
		if inChannels == 2 && outChannels == 1 {
			r.rsChannels = 1
		}
		rs, err := soxr.New(&r.rsOut, float64(inRate), float64(outRate), r.rsChannels, soxr.I16, soxr.HighQ)
		if err != nil {
			return nil, fmt.Errorf("create resampler: %w", err)
		}
		r.rs = rs
	}
	return r, nil
}

// Passthrough reports whether Process is a zero-copy no-op for this
// in/out configuration (Testable Property 6 in spec.md §8).
func (r *Resampler) Passthrough() bool {
	return !r.rateConvert && !r.channelConvert
}

// Process converts pcm (16-bit interleaved samples at inRate/inChannels)
// to outRate/outChannels. When Passthrough() is true, pcm is returned
// unmodified with no allocation.
func (r *Resampler) Process(pcm []byte) ([]byte, error) {
	if r.Passthrough() {
		return pcm, nil
	}

	working := pcm
	workingChannels := r.inChannels

	if r.inChannels == 2 && r.outChannels == 1 {
		working = stereoToMono16(working)
		workingChannels = 1
	}

	if r.rateConvert {
		converted, err := r.convertRate(working, workingChannels)
		if err != nil {
			return nil, types.NewError(types.ErrDecoder, fmt.Errorf("resample rate conversion: %w", err))
		}
		working = converted
	}

	if r.inChannels == 1 && r.outChannels == 2 {
		working = monoToStereo16(working)
	}

	return working, nil
}

// convertRate feeds pcm through the long-lived soxr instance and returns
// whatever resampled output it produced for this chunk. soxr buffers
// internally, so a given Write may yield less output than its input (or
// none at all) until enough samples have accumulated.
func (r *Resampler) convertRate(pcm []byte, channels int) ([]byte, error) {
	r.rsOut.Reset()
	if _, err := r.rs.Write(pcm); err != nil {
		return nil, fmt.Errorf("write pcm to resampler: %w", err)
	}
	out := make([]byte, r.rsOut.Len())
	copy(out, r.rsOut.Bytes())
	return out, nil
}

// Close flushes any samples still buffered inside soxr and releases it.
// Callers that drive a stream to completion should call Close once and
// append its return value to the final Process output. Safe to call more
// than once; only the first call does any work.
func (r *Resampler) Close() ([]byte, error) {
	if r.rs == nil {
		return nil, nil
	}
	rs := r.rs
	r.rs = nil
	r.rsOut.Reset()
	if err := rs.Close(); err != nil {
		return nil, fmt.Errorf("close resampler: %w", err)
	}
	out := make([]byte, r.rsOut.Len())
	copy(out, r.rsOut.Bytes())
	return out, nil
}

// monoToStereo16 duplicates each 16-bit mono sample into both channels,
// ported from liteplayer_resampler.c's mono_to_stereo (which works
// backwards in place; Go allocates a fresh buffer instead).
func monoToStereo16(mono []byte) []byte {
	nsamples := len(mono) / 2
	out := make([]byte, nsamples*4)
	for i := 0; i < nsamples; i++ {
		lo, hi := mono[2*i], mono[2*i+1]
		out[4*i] = lo
		out[4*i+1] = hi
		out[4*i+2] = lo
		out[4*i+3] = hi
	}
	return out
}

// stereoToMono16 keeps the left channel only, ported from
// liteplayer_resampler.c's stereo_to_mono.
func stereoToMono16(stereo []byte) []byte {
	nsamples := len(stereo) / 4
	out := make([]byte, nsamples*2)
	for i := 0; i < nsamples; i++ {
		out[2*i] = stereo[4*i]
		out[2*i+1] = stereo[4*i+1]
	}
	return out
}
