package decoder

import (
	"fmt"
	"io"

	"github.com/drgolem/liteplayer/pkg/types"
)

// PCMDecoder is the identity decoder for already-PCM WAV data: it reads raw
// sample bytes straight through from the source reader. WAV containers
// never need a real codec, only the RIFF chunk walk pkg/extractor already
// did to locate and describe the data chunk.
type PCMDecoder struct {
	r             io.Reader
	rate, ch, bps int
}

func NewPCMDecoder() *PCMDecoder {
	return &PCMDecoder{}
}

func (d *PCMDecoder) Open(r io.Reader, info *types.MediaInfo) error {
	if info.Wav == nil {
		return types.NewError(types.ErrDecoder, fmt.Errorf("pcm decoder requires WavInfo"))
	}
	d.r = r
	d.rate = info.Wav.SampleRate
	d.ch = info.Wav.Channels
	d.bps = info.Wav.Bits
	return nil
}

func (d *PCMDecoder) Close() error {
	d.r = nil
	return nil
}

func (d *PCMDecoder) GetFormat() (rate, channels, bitsPerSample int) {
	return d.rate, d.ch, d.bps
}

func (d *PCMDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.r == nil {
		return 0, types.NewError(types.ErrDecoder, fmt.Errorf("pcm decoder not opened"))
	}
	frameBytes := d.ch * d.bps / 8
	want := samples * frameBytes
	if want > len(audio) {
		want = len(audio) - len(audio)%frameBytes
	}
	n, err := io.ReadFull(d.r, audio[:want])
	decoded := 0
	if frameBytes > 0 {
		decoded = n / frameBytes
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return decoded, nil
	}
	if err != nil {
		return decoded, types.NewError(types.ErrDecoder, fmt.Errorf("read pcm data: %w", err))
	}
	return decoded, nil
}
