package player

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/drgolem/liteplayer/pkg/registry"
	"github.com/drgolem/liteplayer/pkg/types"
)

// memSource is a synchronous in-memory types.SourceWrapper backing a single
// byte slice, used in place of a real file/HTTP adapter in tests.
type memSource struct {
	data []byte
}

type memSourceHandle struct {
	data []byte
	pos  int64
}

func (s *memSource) URLProtocol() string { return "mem" }
func (s *memSource) AsyncMode() bool     { return false }
func (s *memSource) BufferSize() int     { return 0 }

func (s *memSource) Open(ctx context.Context, url string, contentPos int64) (any, error) {
	return &memSourceHandle{data: s.data, pos: contentPos}, nil
}

func (s *memSource) Read(handle any, buf []byte) (int, error) {
	h := handle.(*memSourceHandle)
	if h.pos >= int64(len(h.data)) {
		return 0, nil
	}
	n := copy(buf, h.data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (s *memSource) ContentPos(handle any) int64 { return handle.(*memSourceHandle).pos }
func (s *memSource) ContentLen(handle any) int64 { return int64(len(handle.(*memSourceHandle).data)) }

func (s *memSource) Seek(handle any, offset int64) error {
	handle.(*memSourceHandle).pos = offset
	return nil
}

func (s *memSource) Close(handle any) error { return nil }

// memSink is a types.SinkWrapper that appends every Write to an in-memory
// buffer, used in place of a real PortAudio/file adapter in tests.
type memSink struct {
	mu   sync.Mutex
	data []byte
}

func (s *memSink) Name() string { return "mem" }

func (s *memSink) Open(rate, channels, bits int, priv any) (any, error) {
	return struct{}{}, nil
}

func (s *memSink) Write(handle any, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, buf...)
	return len(buf), nil
}

func (s *memSink) Close(handle any) error { return nil }

func (s *memSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// buildWav builds a minimal 16-bit PCM RIFF/WAVE stream carrying the given
// int16 samples (interleaved).
func buildWav(sampleRate, channels int, samples []int16) []byte {
	bits := 16
	blockAlign := channels * bits / 8
	byteRate := blockAlign * sampleRate
	dataSize := len(samples) * 2

	buf := make([]byte, 0, 44+dataSize)
	put32 := func(v uint32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		buf = append(buf, b...)
	}
	put16 := func(v uint16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		buf = append(buf, b...)
	}

	buf = append(buf, []byte("RIFF")...)
	put32(uint32(36 + dataSize))
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	put32(16)
	put16(1) // PCM
	put16(uint16(channels))
	put32(uint32(sampleRate))
	put32(uint32(byteRate))
	put16(uint16(blockAlign))
	put16(uint16(bits))
	buf = append(buf, []byte("data")...)
	put32(uint32(dataSize))
	for _, s := range samples {
		put16(uint16(s))
	}
	return buf
}

func newTestPlayer(t *testing.T, src *memSource, snk *memSink) *Player {
	t.Helper()
	reg := registry.New()
	reg.RegisterSourceWrapper(src)
	reg.RegisterSinkWrapper(snk)
	cfg := DefaultConfig()
	cfg.ReadTimeout = 200 * time.Millisecond
	cfg.PCMBufferSize = 4096
	return New(reg, cfg)
}

func TestStartRejectsInvalidState(t *testing.T) {
	p := newTestPlayer(t, &memSource{}, &memSink{})
	if err := p.Start(); err == nil {
		t.Fatal("expected Start from StateIdle to fail")
	}
	if p.State() != types.StateIdle {
		t.Fatalf("state changed after rejected op: %v", p.State())
	}
}

func TestPrepareAsyncThroughCompletedPlaysAllSamples(t *testing.T) {
	samples := make([]int16, 2000)
	for i := range samples {
		samples[i] = int16(i)
	}
	wav := buildWav(8000, 1, samples)

	src := &memSource{data: wav}
	snk := &memSink{}
	p := newTestPlayer(t, src, snk)

	done := make(chan struct{})
	p.RegisterStateListener(func(s types.State, kind types.ErrorKind, priv any) {
		if s == types.StateCompleted || s == types.StateError {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	if err := p.SetDataSource("mem://test.wav"); err != nil {
		t.Fatalf("SetDataSource: %v", err)
	}
	if err := p.PrepareAsync(); err != nil {
		t.Fatalf("PrepareAsync: %v", err)
	}
	if p.State() != types.StatePrepared {
		t.Fatalf("expected StatePrepared, got %v", p.State())
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for completion, state=%v", p.State())
	}

	if got := p.State(); got != types.StateCompleted {
		t.Fatalf("expected StateCompleted, got %v", got)
	}

	want := len(samples) * 2
	if got := len(snk.bytes()); got != want {
		t.Fatalf("sink received %d bytes, want %d", got, want)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.State() != types.StateStopped {
		t.Fatalf("expected StateStopped, got %v", p.State())
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	samples := make([]int16, 4000)
	wav := buildWav(8000, 1, samples)
	p := newTestPlayer(t, &memSource{data: wav}, &memSink{})

	if err := p.SetDataSource("mem://test.wav"); err != nil {
		t.Fatalf("SetDataSource: %v", err)
	}
	if err := p.PrepareAsync(); err != nil {
		t.Fatalf("PrepareAsync: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if p.State() != types.StatePaused {
		t.Fatalf("expected StatePaused, got %v", p.State())
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if p.State() != types.StateStarted {
		t.Fatalf("expected StateStarted, got %v", p.State())
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSeekRejectedBeforeStart(t *testing.T) {
	p := newTestPlayer(t, &memSource{}, &memSink{})
	if err := p.Seek(1000); err == nil {
		t.Fatal("expected Seek before Start to fail")
	}
}

func TestGetPlaybackStatusReflectsDuration(t *testing.T) {
	samples := make([]int16, 8000)
	wav := buildWav(8000, 1, samples)
	p := newTestPlayer(t, &memSource{data: wav}, &memSink{})

	if err := p.SetDataSource("mem://test.wav"); err != nil {
		t.Fatalf("SetDataSource: %v", err)
	}
	if err := p.PrepareAsync(); err != nil {
		t.Fatalf("PrepareAsync: %v", err)
	}

	status := p.GetPlaybackStatus()
	if status.State != types.StatePrepared {
		t.Fatalf("expected StatePrepared in status, got %v", status.State)
	}
	if status.SampleRate != 8000 {
		t.Fatalf("expected sample rate 8000, got %d", status.SampleRate)
	}
}
