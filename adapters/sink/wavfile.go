package sink

import (
	"bytes"
	"fmt"
	"os"

	wav "github.com/youpy/go-wav"

	"github.com/drgolem/liteplayer/pkg/types"
)

// WavFileSink renders the played stream to a WAV file instead of a device,
// useful for offline rendering and test fixtures. go-wav's Writer needs the
// total sample count up front to build the RIFF header, so writes are
// buffered in memory and the file is only produced on Close.
type WavFileSink struct {
	Path string
}

type wavFileHandle struct {
	file          *os.File
	buf           bytes.Buffer
	channels      int
	rate          int
	bits          int
	bytesPerFrame int
}

func NewWavFileSink(path string) *WavFileSink {
	return &WavFileSink{Path: path}
}

func (s *WavFileSink) Name() string { return "wavfile" }

func (s *WavFileSink) Open(rate, channels, bits int, priv any) (any, error) {
	f, err := os.Create(s.Path)
	if err != nil {
		return nil, fmt.Errorf("create wav file %q: %w", s.Path, err)
	}
	return &wavFileHandle{
		file:          f,
		channels:      channels,
		rate:          rate,
		bits:          bits,
		bytesPerFrame: channels * bits / 8,
	}, nil
}

func (s *WavFileSink) Write(handle any, buf []byte) (int, error) {
	h, ok := handle.(*wavFileHandle)
	if !ok {
		return 0, fmt.Errorf("invalid wavfile sink handle")
	}
	return h.buf.Write(buf)
}

func (s *WavFileSink) Close(handle any) error {
	h, ok := handle.(*wavFileHandle)
	if !ok {
		return fmt.Errorf("invalid wavfile sink handle")
	}
	defer h.file.Close()

	numSamples := uint32(0)
	if h.bytesPerFrame > 0 {
		numSamples = uint32(h.buf.Len() / h.bytesPerFrame)
	}
	writer := wav.NewWriter(h.file, numSamples, uint16(h.channels), uint32(h.rate), uint16(h.bits))
	if _, err := writer.Write(h.buf.Bytes()); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

var _ types.SinkWrapper = (*WavFileSink)(nil)
