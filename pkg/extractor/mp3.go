package extractor

import (
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

// MPEG Layer III bitrate tables in kbps, indexed by bitrateIndex:
// mp3BitrateTableV1 for MPEG1, mp3BitrateTableV2 for MPEG2/2.5.
var mp3BitrateTableV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mp3BitrateTableV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

var mp3SampleRateV1 = [4]int{44100, 48000, 32000, 0}
var mp3SampleRateV2 = [4]int{22050, 24000, 16000, 0}
var mp3SampleRateV25 = [4]int{11025, 12000, 8000, 0}

const mp3FramesToSampleForCBR = 8 // frames compared before declaring CBR

type mp3FrameHeader struct {
	sampleRate int
	channels   int
	bitRate    int // bits per second
	frameSize  int
	mpeg1      bool
}

// parseMp3FrameHeader decodes a 4-byte MPEG Layer III frame header.
func parseMp3FrameHeader(b []byte) (mp3FrameHeader, bool) {
	if len(b) < 4 {
		return mp3FrameHeader{}, false
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return mp3FrameHeader{}, false
	}
	versionBits := (b[1] >> 3) & 0x3
	layerBits := (b[1] >> 1) & 0x3
	if layerBits != 0x1 { // 01 = Layer III
		return mp3FrameHeader{}, false
	}
	bitrateIdx := (b[2] >> 4) & 0xF
	sampleIdx := (b[2] >> 2) & 0x3
	padding := (b[2] >> 1) & 0x1
	channelMode := (b[3] >> 6) & 0x3

	var sampleRate, bitRateKbps int
	mpeg1 := versionBits == 0x3
	switch versionBits {
	case 0x3: // MPEG1
		sampleRate = mp3SampleRateV1[sampleIdx]
		bitRateKbps = mp3BitrateTableV1[bitrateIdx]
	case 0x2: // MPEG2
		sampleRate = mp3SampleRateV2[sampleIdx]
		bitRateKbps = mp3BitrateTableV2[bitrateIdx]
	case 0x0: // MPEG2.5
		sampleRate = mp3SampleRateV25[sampleIdx]
		bitRateKbps = mp3BitrateTableV2[bitrateIdx]
	default:
		return mp3FrameHeader{}, false
	}
	if sampleRate == 0 || bitRateKbps == 0 {
		return mp3FrameHeader{}, false
	}

	channels := 2
	if channelMode == 0x3 {
		channels = 1
	}

	samplesPerFrame := 1152
	if !mpeg1 {
		samplesPerFrame = 576
	}
	frameSize := (samplesPerFrame/8)*bitRateKbps*1000/sampleRate + int(padding)

	return mp3FrameHeader{
		sampleRate: sampleRate,
		channels:   channels,
		bitRate:    bitRateKbps * 1000,
		frameSize:  frameSize,
		mpeg1:      mpeg1,
	}, true
}

// id3v2Size decodes a 10-byte ID3v2 header's syncsafe size field and
// returns the total tag length (header + body), or 0 if no ID3v2 tag
// is present.
func id3v2Size(hdr []byte) int64 {
	if len(hdr) < 10 || string(hdr[0:3]) != "ID3" {
		return 0
	}
	size := int64(hdr[6]&0x7F)<<21 | int64(hdr[7]&0x7F)<<14 | int64(hdr[8]&0x7F)<<7 | int64(hdr[9]&0x7F)
	return 10 + size
}

// findMp3Sync scans peek for a valid frame sync (0xFFE) starting at from.
func findMp3Sync(peek []byte, from int) int {
	for i := from; i+4 <= len(peek); i++ {
		if peek[i] == 0xFF && peek[i+1]&0xE0 == 0xE0 {
			if _, ok := parseMp3FrameHeader(peek[i : i+4]); ok {
				return i
			}
		}
	}
	return -1
}

// ExtractMP3 skips any ID3v2 tag, locates the first valid frame header,
// and declares CBR when the first mp3FramesToSampleForCBR frames share a
// bitrate; otherwise VBR, per spec.md §4.3.
func ExtractMP3(fetch Fetch) (*types.MediaInfo, error) {
	hdr, err := fetchAll(fetch, 0, 10)
	if err != nil {
		return nil, err
	}
	id3Len := id3v2Size(hdr)

	peek, err := fetchAll(fetch, id3Len, 4096)
	if err != nil {
		// tolerate short files by fetching whatever is left
		peek, err = fetchShortest(fetch, id3Len, 4096)
		if err != nil {
			return nil, err
		}
	}

	syncOff := findMp3Sync(peek, 0)
	if syncOff < 0 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no valid MP3 frame sync found"))
	}
	first, ok := parseMp3FrameHeader(peek[syncOff : syncOff+4])
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid MP3 frame header"))
	}

	isCBR := true
	bitrateSum := first.bitRate
	frames := 1
	cursor := syncOff
	for frames < mp3FramesToSampleForCBR {
		next := cursor + first.frameSize
		if next+4 > len(peek) {
			break
		}
		fh, ok := parseMp3FrameHeader(peek[next : next+4])
		if !ok {
			break
		}
		if fh.bitRate != first.bitRate {
			isCBR = false
		}
		bitrateSum += fh.bitRate
		frames++
		cursor = next
	}

	avgBitRate := bitrateSum / frames

	info := &types.Mp3Info{
		SampleRate:       first.sampleRate,
		Channels:         first.channels,
		BitRate:          avgBitRate,
		FrameStartOffset: id3Len + int64(syncOff),
		ID3v2Length:      id3Len,
		IsCBR:            isCBR,
		FrameSize:        first.frameSize,
	}
	return &types.MediaInfo{Codec: types.CodecMP3, Mp3: info}, nil
}

// fetchShortest reads as much as is available (up to want bytes) without
// treating a short read as fatal; used for extraction peeks near EOF.
func fetchShortest(fetch Fetch, off int64, want int) ([]byte, error) {
	buf := make([]byte, want)
	n, err := fetch(buf, off)
	if n <= 0 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no data available at offset %d: %v", off, err))
	}
	return buf[:n], nil
}
