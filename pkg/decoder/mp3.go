package decoder

import (
	"fmt"
	"io"

	gomp3 "github.com/imcarsen/go-mp3"

	"github.com/drgolem/liteplayer/pkg/types"
)

// MP3Decoder wraps github.com/imcarsen/go-mp3, a pure-Go MPEG-1/2 Layer III
// decoder. go-mp3 always produces 16-bit little-endian stereo PCM at the
// stream's native sample rate; mono sources are duplicated to stereo by the
// library itself, so GetFormat always reports 2 channels here regardless of
// what the extractor reported.
type MP3Decoder struct {
	dec  *gomp3.Decoder
	rate int
}

func NewMP3Decoder() *MP3Decoder {
	return &MP3Decoder{}
}

func (d *MP3Decoder) Open(r io.Reader, info *types.MediaInfo) error {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return types.NewError(types.ErrDecoder, fmt.Errorf("open mp3 decoder: %w", err))
	}
	d.dec = dec
	d.rate = dec.SampleRate()
	return nil
}

func (d *MP3Decoder) Close() error {
	d.dec = nil
	return nil
}

func (d *MP3Decoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, 2, 16
}

func (d *MP3Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.dec == nil {
		return 0, types.NewError(types.ErrDecoder, fmt.Errorf("mp3 decoder not opened"))
	}
	want := samples * 2 * 2 // stereo, 16-bit
	if want > len(audio) {
		want = len(audio) - len(audio)%4
	}
	n, err := io.ReadFull(d.dec, audio[:want])
	decodedSamples := n / 4
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return decodedSamples, nil
	}
	if err != nil {
		return decodedSamples, types.NewError(types.ErrDecoder, fmt.Errorf("decode mp3 frame: %w", err))
	}
	return decodedSamples, nil
}
