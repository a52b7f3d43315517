// Package seek implements the Position & Seek Engine described in
// spec.md §4.9: translating a playback position in milliseconds to a byte
// offset into the compressed stream (and back), per container.
//
//   - WAV and CBR MP3: linear, via the constant byte rate.
//   - VBR MP3: approximated from the stream's average bitrate (computed by
//     pkg/extractor from the first few frames), same approach
//     liteplayer's mp3 extractor falls back to without a full VBR seek
//     table (Xing/VBRI headers are not parsed, a documented Non-goal).
//   - M4A: walked sample-by-sample through the stsz table, since AAC
//     frames are not constant size; this mirrors m4a_extractor.h's
//     per-frame stszdata table.
package seek

import (
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

// ToByteOffset returns the absolute byte offset into the raw stream
// corresponding to posMs, given the container's MediaInfo.
func ToByteOffset(info *types.MediaInfo, posMs int64) (int64, error) {
	if posMs < 0 {
		posMs = 0
	}
	switch info.Codec {
	case types.CodecPCM:
		return wavOffset(info.Wav, posMs), nil
	case types.CodecMP3:
		return mp3Offset(info.Mp3, posMs), nil
	case types.CodecM4A:
		return m4aOffset(info.M4a, posMs), nil
	case types.CodecAAC:
		// Raw ADTS has no duration metadata to seek against; spec.md lists
		// AAC seek as a Non-goal, byte offset tracking only.
		return 0, types.NewError(types.ErrInvalidState, fmt.Errorf("seek not supported for raw ADTS AAC"))
	default:
		return 0, types.NewError(types.ErrInvalidArgument, fmt.Errorf("unknown codec %v", info.Codec))
	}
}

// ToMillis is the inverse of ToByteOffset: given a current raw-stream byte
// offset, returns the playback position in milliseconds.
func ToMillis(info *types.MediaInfo, byteOffset int64) (int64, error) {
	switch info.Codec {
	case types.CodecPCM:
		return wavMillis(info.Wav, byteOffset), nil
	case types.CodecMP3:
		return mp3Millis(info.Mp3, byteOffset), nil
	case types.CodecM4A:
		return m4aMillis(info.M4a, byteOffset), nil
	default:
		return 0, types.NewError(types.ErrInvalidArgument, fmt.Errorf("unknown codec %v", info.Codec))
	}
}

func wavOffset(w *types.WavInfo, posMs int64) int64 {
	if w.ByteRate <= 0 {
		return w.DataOffset
	}
	bytes := posMs * int64(w.ByteRate) / 1000
	bytes -= bytes % int64(w.BlockAlign)
	return w.DataOffset + bytes
}

func wavMillis(w *types.WavInfo, byteOffset int64) int64 {
	if w.ByteRate <= 0 {
		return 0
	}
	consumed := byteOffset - w.DataOffset
	if consumed < 0 {
		consumed = 0
	}
	return consumed * 1000 / int64(w.ByteRate)
}

func mp3Offset(m *types.Mp3Info, posMs int64) int64 {
	if m.BitRate <= 0 {
		return m.FrameStartOffset
	}
	bytesPerMs := int64(m.BitRate) / 8 / 1000
	return m.FrameStartOffset + posMs*bytesPerMs
}

func mp3Millis(m *types.Mp3Info, byteOffset int64) int64 {
	if m.BitRate <= 0 {
		return 0
	}
	consumed := byteOffset - m.FrameStartOffset
	if consumed < 0 {
		consumed = 0
	}
	return consumed * 8 * 1000 / int64(m.BitRate)
}

// m4aOffset walks the stsz table, summing per-frame sizes until the
// requested position's sample index is reached.
func m4aOffset(m *types.M4aInfo, posMs int64) int64 {
	if m.Timescale == 0 || m.FrameSamples == 0 {
		return m.MdatOffset
	}
	targetSample := posMs * int64(m.Timescale) / 1000
	targetFrame := targetSample / int64(m.FrameSamples)

	offset := m.MdatOffset
	for i := int64(0); i < targetFrame && int(i) < len(m.Stsz); i++ {
		offset += int64(m.Stsz[i])
	}
	return offset
}

// m4aMillis is the inverse of m4aOffset: sums stsz entries until the byte
// offset is reached, then converts the resulting frame index to milliseconds.
func m4aMillis(m *types.M4aInfo, byteOffset int64) int64 {
	if m.Timescale == 0 {
		return 0
	}
	offset := m.MdatOffset
	frame := int64(0)
	for i := 0; i < len(m.Stsz) && offset < byteOffset; i++ {
		offset += int64(m.Stsz[i])
		frame++
	}
	sample := frame * int64(m.FrameSamples)
	return sample * 1000 / int64(m.Timescale)
}
