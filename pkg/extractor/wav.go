package extractor

import (
	"encoding/binary"
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

// WAV_FMT_* audio format tags, matching wav_extractor.c's accepted set.
const (
	wavFmtPCM       = 0x0001
	wavFmtIEEEFloat = 0x0003
	wavFmtExtensible = 0xFFFE
	wavFmtADPCM     = 0x0002
	wavFmtDVIADPCM  = 0x0011
)

const wavHeaderMinSize = 12 // RIFF(4) + size(4) + WAVE(4)

// ExtractWAV walks the RIFF/WAVE chunk list (fmt , LIST, fact, PEAK, data)
// in file order, stopping at the data chunk, exactly as
// original_source/library/source/audio_extractor/wav_extractor.c does.
// Unknown chunks are skipped by their declared size.
func ExtractWAV(fetch Fetch) (*types.MediaInfo, error) {
	hdr, err := fetchAll(fetch, 0, wavHeaderMinSize)
	if err != nil {
		return nil, err
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("not a RIFF/WAVE stream"))
	}

	info := &types.WavInfo{}
	pos := int64(wavHeaderMinSize)

	for {
		chunkHdr, err := fetchAll(fetch, pos, 8)
		if err != nil {
			return nil, err
		}
		chunkID := string(chunkHdr[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHdr[4:8]))
		pos += 8

		switch chunkID {
		case "fmt ":
			fmtBuf, err := fetchAll(fetch, pos, int(chunkSize))
			if err != nil {
				return nil, err
			}
			if len(fmtBuf) < 16 {
				return nil, types.NewError(types.ErrParse, fmt.Errorf("fmt chunk too small: %d bytes", len(fmtBuf)))
			}
			info.AudioFormat = binary.LittleEndian.Uint16(fmtBuf[0:2])
			info.Channels = int(binary.LittleEndian.Uint16(fmtBuf[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtBuf[4:8]))
			info.ByteRate = int(binary.LittleEndian.Uint32(fmtBuf[8:12]))
			info.BlockAlign = int(binary.LittleEndian.Uint16(fmtBuf[12:14]))
			info.Bits = int(binary.LittleEndian.Uint16(fmtBuf[14:16]))
			pos += chunkSize

		case "LIST", "fact", "PEAK":
			pos += chunkSize

		case "data":
			info.DataSize = chunkSize
			info.DataOffset = pos
			return finishWav(info)

		default:
			if chunkSize <= 0 {
				return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid chunk %q size %d", chunkID, chunkSize))
			}
			pos += chunkSize
		}
	}
}

func finishWav(info *types.WavInfo) (*types.MediaInfo, error) {
	switch info.AudioFormat {
	case wavFmtPCM, wavFmtIEEEFloat, wavFmtADPCM, wavFmtDVIADPCM, wavFmtExtensible:
	default:
		return nil, types.NewError(types.ErrParse, fmt.Errorf("unsupported WAV audio format 0x%x", info.AudioFormat))
	}
	if info.Channels < 1 || info.Channels > 8 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("unsupported channel count %d", info.Channels))
	}
	if info.BlockAlign != info.Bits*info.Channels/8 {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid blockAlign %d for bits=%d channels=%d", info.BlockAlign, info.Bits, info.Channels))
	}
	if info.ByteRate != info.BlockAlign*info.SampleRate {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid byteRate %d", info.ByteRate))
	}
	if info.DataOffset < wavHeaderMinSize {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("invalid data offset %d", info.DataOffset))
	}
	return &types.MediaInfo{Codec: types.CodecPCM, Wav: info}, nil
}
