package extractor

import (
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

var adtsSampleRates = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
	0, 0, 0,
}

// findAdtsSync scans peek for a 12-bit ADTS sync word (0xFFF) starting at from.
func findAdtsSync(peek []byte, from int) int {
	for i := from; i+7 <= len(peek); i++ {
		if peek[i] == 0xFF && peek[i+1]&0xF0 == 0xF0 {
			return i
		}
	}
	return -1
}

// ExtractAAC locates the ADTS sync word and decodes profile,
// sampling_frequency_index, and channel_config from the 7-byte fixed
// header, per spec.md §4.3.
func ExtractAAC(fetch Fetch) (*types.MediaInfo, error) {
	peek, err := fetchAll(fetch, 0, 4096)
	if err != nil {
		peek, err = fetchShortest(fetch, 0, 4096)
		if err != nil {
			return nil, err
		}
	}

	off := findAdtsSync(peek, 0)
	if off < 0 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no ADTS sync found"))
	}
	hdr := peek[off : off+7]

	profile := int((hdr[2]>>6)&0x3) + 1 // ADTS profile field is MPEG-4 object type minus 1
	sampleIdx := (hdr[2] >> 2) & 0xF
	channelConfig := int((hdr[2]&0x1)<<2 | (hdr[3]>>6)&0x3)

	sampleRate := adtsSampleRates[sampleIdx]
	if sampleRate == 0 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid ADTS sampling_frequency_index %d", sampleIdx))
	}
	if channelConfig < 1 || channelConfig > 7 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid ADTS channel_config %d", channelConfig))
	}
	channels := channelConfig
	if channels > 2 {
		channels = 2 // engine only resamples 1<->2; configs above stereo are reported as 2 channels
	}

	info := &types.AacInfo{
		SampleRate:     sampleRate,
		Channels:       channels,
		Profile:        profile,
		AdtsSyncOffset: int64(off),
	}
	return &types.MediaInfo{Codec: types.CodecAAC, Aac: info}, nil
}
