// Package decoder defines the uniform Decoder Wrapper interface described in
// spec.md §4.4 and the concrete wrappers the engine ships with out of the
// box. The interface is modeled on the teacher's types.AudioDecoder
// (Open/Close/GetFormat/DecodeSamples), substituting a streaming io.Reader
// for a file path so the same shape works against the player's ring buffer
// instead of an os.File.
//
// MP3 and PCM/WAV get real decode paths. AAC and M4A intentionally do not:
// per spec.md §1 the actual AAC codec (Helix/PV AAC in the original project)
// is out of scope for this engine. The engine only defines the wrapper
// contract plus a registration point (Register) so a caller can plug in
// whatever AAC codec library it has available; without one, New(CodecAAC)
// and New(CodecM4A) return a DecoderError rather than panicking.
package decoder

import (
	"fmt"
	"io"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Decoder decodes a single compressed stream, identified by the MediaInfo
// passed to Open, into interleaved PCM samples.
type Decoder interface {
	// Open primes the decoder with the container parameters extracted by
	// pkg/extractor and binds it to r, the compressed byte stream to pull
	// from (typically a blocking reader over a pkg/ringbuffer.RingBuffer).
	Open(r io.Reader, info *types.MediaInfo) error
	Close() error
	// GetFormat returns the decoded PCM format. Valid only after Open.
	GetFormat() (rate, channels, bitsPerSample int)
	// DecodeSamples decodes up to samples frames (not bytes) into audio,
	// pulling compressed data from the reader passed to Open as needed.
	// Returns fewer samples than requested at end of stream, with a nil
	// error, and (0, nil) once no samples at all could be produced; io.EOF
	// is not returned.
	DecodeSamples(samples int, audio []byte) (int, error)
}

// Factory constructs a fresh, unopened Decoder for a codec.
type Factory func() Decoder

var builtins = map[types.Codec]Factory{
	types.CodecMP3: func() Decoder { return NewMP3Decoder() },
	types.CodecPCM: func() Decoder { return NewPCMDecoder() },
}

var registered = map[types.Codec]Factory{}

// Register installs a Factory for a codec the engine does not ship a
// built-in decoder for (AAC, M4A), or overrides a built-in one. Intended to
// be called once at program start-up from an adapter package that links in
// a concrete codec library.
func Register(codec types.Codec, f Factory) {
	registered[codec] = f
}

// New constructs the Decoder registered (or built in) for codec. Returns a
// DecoderError if codec has neither a built-in nor a registered factory,
// which is the expected outcome for AAC/M4A until a codec is registered.
func New(codec types.Codec) (Decoder, error) {
	if f, ok := registered[codec]; ok {
		return f(), nil
	}
	if f, ok := builtins[codec]; ok {
		return f(), nil
	}
	return nil, types.NewError(types.ErrDecoder, fmt.Errorf("no decoder registered for codec %v", codec))
}
