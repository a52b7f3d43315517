// Package sink holds concrete types.SinkWrapper adapters: a live audio
// device sink backed by github.com/drgolem/go-portaudio (the teacher's own
// playback transport, grounded on pkg/audioplayer/player.go's initStream/
// consumer loop) and a WAV file sink backed by github.com/youpy/go-wav (the
// teacher's cmd/transform.go WAV encode path). Per spec.md §1, concrete
// source/sink adapters live outside the player core; this package is that
// "outside," wired to the same concerns the rest of the engine talks to
// only through types.SinkWrapper.
package sink

import (
	"fmt"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/drgolem/liteplayer/pkg/types"
)

// PortAudioSink streams PCM to the default (or a chosen) output device.
type PortAudioSink struct {
	DeviceIndex     int
	FramesPerBuffer int
}

type portAudioHandle struct {
	stream        *portaudio.PaStream
	channels      int
	bytesPerFrame int
}

func NewPortAudioSink(deviceIndex, framesPerBuffer int) *PortAudioSink {
	return &PortAudioSink{DeviceIndex: deviceIndex, FramesPerBuffer: framesPerBuffer}
}

func (s *PortAudioSink) Name() string { return "portaudio" }

func (s *PortAudioSink) Open(rate, channels, bits int, priv any) (any, error) {
	var sampleFormat portaudio.PaSampleFormat
	switch bits {
	case 16:
		sampleFormat = portaudio.SampleFmtInt16
	case 24:
		sampleFormat = portaudio.SampleFmtInt24
	case 32:
		sampleFormat = portaudio.SampleFmtInt32
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bits)
	}

	outParams := portaudio.PaStreamParameters{
		DeviceIndex:  s.DeviceIndex,
		ChannelCount: channels,
		SampleFormat: sampleFormat,
	}

	stream, err := portaudio.NewStream(outParams, float64(rate))
	if err != nil {
		return nil, fmt.Errorf("create portaudio stream: %w", err)
	}
	framesPerBuffer := s.FramesPerBuffer
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	if err := stream.Open(framesPerBuffer); err != nil {
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	if err := stream.StartStream(); err != nil {
		return nil, fmt.Errorf("start portaudio stream: %w", err)
	}

	return &portAudioHandle{stream: stream, channels: channels, bytesPerFrame: channels * bits / 8}, nil
}

func (s *PortAudioSink) Write(handle any, buf []byte) (int, error) {
	h, ok := handle.(*portAudioHandle)
	if !ok {
		return 0, fmt.Errorf("invalid portaudio sink handle")
	}
	frames := len(buf) / h.bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	aligned := frames * h.bytesPerFrame
	if err := h.stream.Write(frames, buf[:aligned]); err != nil {
		return 0, fmt.Errorf("write portaudio stream: %w", err)
	}
	return aligned, nil
}

func (s *PortAudioSink) Close(handle any) error {
	h, ok := handle.(*portAudioHandle)
	if !ok {
		return fmt.Errorf("invalid portaudio sink handle")
	}
	if err := h.stream.StopStream(); err != nil {
		return fmt.Errorf("stop portaudio stream: %w", err)
	}
	return h.stream.Close()
}

var _ types.SinkWrapper = (*PortAudioSink)(nil)
