// Package types holds the shared data model for the liteplayer engine:
// the capability interfaces external adapters implement (SourceWrapper,
// SinkWrapper), the MediaInfo union produced by the format extractors, and
// the error taxonomy used across the engine.
package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common ringbuffer errors, compared with errors.Is.
var (
	ErrInsufficientSpace = errors.New("insufficient space in ringbuffer")
	ErrInsufficientData  = errors.New("insufficient data in ringbuffer")
)

// Codec identifies the compressed (or PCM) format a MediaInfo describes.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecMP3
	CodecAAC
	CodecM4A
	CodecPCM
)

func (c Codec) String() string {
	switch c {
	case CodecMP3:
		return "mp3"
	case CodecAAC:
		return "aac"
	case CodecM4A:
		return "m4a"
	case CodecPCM:
		return "pcm"
	default:
		return "unknown"
	}
}

// ErrorKind classifies a failure per spec.md §7, allowing a listener
// callback's errcode to be interpreted without parsing the error string.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrInvalidState
	ErrInvalidArgument
	ErrSourceOpen
	ErrSourceRead
	ErrSourceSeek
	ErrParse
	ErrDecoder
	ErrSinkOpen
	ErrSinkWrite
	ErrOutOfMemory
	ErrShutdown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrInvalidState:
		return "invalid_state"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrSourceOpen:
		return "source_open"
	case ErrSourceRead:
		return "source_read"
	case ErrSourceSeek:
		return "source_seek"
	case ErrParse:
		return "parse_error"
	case ErrDecoder:
		return "decoder_error"
	case ErrSinkOpen:
		return "sink_open"
	case ErrSinkWrite:
		return "sink_write"
	case ErrOutOfMemory:
		return "out_of_memory"
	case ErrShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// EngineError wraps an underlying cause with a classification kind so
// callers can both errors.Is/As the cause and inspect Kind directly.
type EngineError struct {
	Kind ErrorKind
	Err  error
}

func NewError(kind ErrorKind, err error) *EngineError {
	return &EngineError{Kind: kind, Err: err}
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind.String(), e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, or ErrNone if err does not carry one.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ErrNone
}

// ErrShutdownSignal is the internal-only signal returned by a blocking
// RingBuffer operation after Close(); it is not itself reported through a
// listener callback: the source cache's reader task and the player's
// decode/playback tasks treat it as the signal to stop and return.
var ErrShutdownSignal = errors.New("ringbuffer: shutdown")

// SourceWrapper is the capability a concrete input adapter (file, HTTP,
// flash, ...) implements. The player core never talks to a transport
// directly; it only consumes this interface. See spec.md §3.
type SourceWrapper interface {
	// URLProtocol returns the URL scheme this wrapper handles, e.g. "file" or "http".
	URLProtocol() string
	// AsyncMode reports whether the core should interpose a reader task
	// and ring buffer (true) or call Read directly on the caller's goroutine (false).
	AsyncMode() bool
	// BufferSize is the ring buffer capacity to use in async mode.
	BufferSize() int
	// Open opens url for reading starting at contentPos and returns an
	// opaque handle passed back into Read/Seek/Close/ContentPos/ContentLen.
	Open(ctx context.Context, url string, contentPos int64) (any, error)
	Read(handle any, buf []byte) (int, error)
	ContentPos(handle any) int64
	ContentLen(handle any) int64
	Seek(handle any, offset int64) error
	Close(handle any) error
}

// SinkWrapper is the capability a concrete output adapter (ALSA, I2S,
// OpenSL ES, AudioTrack, a file writer, ...) implements.
type SinkWrapper interface {
	Name() string
	Open(rate, channels, bits int, priv any) (any, error)
	Write(handle any, buf []byte) (int, error)
	Close(handle any) error
}

// Mp3Info is the MediaInfo variant for MPEG-1/2 Layer III streams.
type Mp3Info struct {
	SampleRate       int
	Channels         int
	BitRate          int // bits per second; average for VBR
	FrameStartOffset int64
	ID3v2Length      int64
	IsCBR            bool
	FrameSize        int
}

// AacInfo is the MediaInfo variant for raw ADTS AAC streams.
type AacInfo struct {
	SampleRate     int
	Channels       int
	Profile        int
	AdtsSyncOffset int64
}

// M4aInfo is the MediaInfo variant for ISO-BMFF (MP4/M4A) audio tracks.
type M4aInfo struct {
	SampleRate    int
	Channels      int
	Bits          int
	ASC           []byte // AudioSpecificConfig bytes from esds
	MdatOffset    int64
	MdatSize      int64
	Stsz          []uint32 // per-frame sample sizes
	Timescale     uint32
	DurationTicks uint64
	FrameSamples  int // samples per AAC frame; ExtractM4A always sets 1024 (SBR is not detected)
}

// WavInfo is the MediaInfo variant for RIFF/WAVE PCM streams.
type WavInfo struct {
	SampleRate  int
	Channels    int
	Bits        int
	DataOffset  int64
	DataSize    int64
	AudioFormat uint16 // WAV_FMT_* tag
	BlockAlign  int
	ByteRate    int
}

// MediaInfo is the union of format-specific parameters produced by the
// extractors (spec.md §3, §4.3). Exactly one of the typed fields is
// populated, selected by Codec.
type MediaInfo struct {
	Codec Codec
	Mp3   *Mp3Info
	Aac   *AacInfo
	M4a   *M4aInfo
	Wav   *WavInfo
}

// Duration returns the best-known stream duration in milliseconds, or -1 if unknown.
func (m *MediaInfo) Duration() int64 {
	if m.Codec == CodecM4A && m.M4a != nil && m.M4a.Timescale > 0 {
		return int64(m.M4a.DurationTicks) * 1000 / int64(m.M4a.Timescale)
	}
	return -1
}

// State is a Player lifecycle state, per spec.md §4.7.
type State int

const (
	StateIdle State = iota
	StateInited
	StatePrepared
	StateStarted
	StatePaused
	StateNearlyCompleted
	StateCompleted
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInited:
		return "INITED"
	case StatePrepared:
		return "PREPARED"
	case StateStarted:
		return "STARTED"
	case StatePaused:
		return "PAUSED"
	case StateNearlyCompleted:
		return "NEARLYCOMPLETED"
	case StateCompleted:
		return "COMPLETED"
	case StateStopped:
		return "STOPPED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Listener is invoked on every state change with the new state and an
// error kind (ErrNone unless newState == StateError). The player always
// passes nil for priv: RegisterStateListener takes no context value.
type Listener func(newState State, errKind ErrorKind, priv any)

// PlaybackStatus holds unified playback information, reported on demand by
// the player via GetPlaybackStatus. Mirrors the shape callers of the
// teacher's audioplayer.Player already rely on for monitoring.
type PlaybackStatus struct {
	URL             string
	SampleRate      int
	Channels        int
	BitsPerSample   int
	PositionMs      int64
	DurationMs      int64
	State           State
	BufferAvailable uint64
	BufferCapacity  uint64
	ElapsedTime     time.Duration
}
