// Package sink wraps the Sink Driver capability described in spec.md §4.6
// for the player package; it does not re-export the interface. The
// interface itself lives in pkg/types (types.SinkWrapper) so that both the
// core player and external adapter implementations can depend on it without
// an import cycle; this package only adds the small amount of shared sink
// plumbing (format negotiation) that is not adapter-specific.
package sink

import (
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Format is the PCM format a sink was opened with.
type Format struct {
	SampleRate int
	Channels   int
	Bits       int
}

func (f Format) BytesPerFrame() int {
	return f.Channels * f.Bits / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.Bits)
}

// Open opens w with format and returns the sink's opaque handle,
// classifying any failure as ErrSinkOpen.
func Open(w types.SinkWrapper, format Format, priv any) (any, error) {
	handle, err := w.Open(format.SampleRate, format.Channels, format.Bits, priv)
	if err != nil {
		return nil, types.NewError(types.ErrSinkOpen, fmt.Errorf("open sink %q: %w", w.Name(), err))
	}
	return handle, nil
}

// Write writes buf (already frame-aligned) to the sink, classifying any
// failure as ErrSinkWrite.
func Write(w types.SinkWrapper, handle any, buf []byte) (int, error) {
	n, err := w.Write(handle, buf)
	if err != nil {
		return n, types.NewError(types.ErrSinkWrite, fmt.Errorf("write to sink %q: %w", w.Name(), err))
	}
	return n, nil
}
