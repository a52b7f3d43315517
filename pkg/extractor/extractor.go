// Package extractor implements the format sniffer and per-container
// parameter extractors described in spec.md §4.3: MP3 (MPEG-1/2 Layer III
// + ID3v2), raw ADTS AAC, ISO-BMFF (MP4/M4A audio track), and RIFF/WAVE.
//
// Every extractor is built around the same shape: given a Fetch callback
// that can pull bytes from an arbitrary absolute offset, and a
// *types.MediaInfo to populate, return an error on malformed input. This
// mirrors the original liteplayer extractors' `fetch_cb(buf, wanted, offset,
// priv)` pull model (see original_source/library/components/include/audio_extractor),
// adapted to a Go function value instead of a C function pointer + void*.
package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/liteplayer/pkg/types"
)

// Fetch pulls up to len(buf) bytes starting at the absolute byte offset
// off, returning the number of bytes actually copied into buf. It is the
// Go analogue of liteplayer's m4a_fetch_cb / wav fetch callback.
type Fetch func(buf []byte, off int64) (int, error)

// SniffPeekSize is how much of the stream start the magic-byte sniffer
// looks at when the URL extension does not resolve the container (spec.md §4.3).
const SniffPeekSize = 64 * 1024

// SniffExtension resolves a codec from a case-insensitive URL suffix.
// Returns types.CodecUnknown if the extension is absent or unrecognized.
func SniffExtension(url string) types.Codec {
	ext := strings.ToLower(filepath.Ext(stripQuery(url)))
	switch ext {
	case ".mp3":
		return types.CodecMP3
	case ".aac":
		return types.CodecAAC
	case ".m4a", ".mp4":
		return types.CodecM4A
	case ".wav":
		return types.CodecPCM
	default:
		return types.CodecUnknown
	}
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

// SniffMagic identifies a container from its leading bytes (up to
// SniffPeekSize) when the URL extension was absent or ambiguous.
func SniffMagic(peek []byte) types.Codec {
	if len(peek) >= 12 && bytes.Equal(peek[0:4], []byte("RIFF")) && bytes.Equal(peek[8:12], []byte("WAVE")) {
		return types.CodecPCM
	}
	if len(peek) >= 3 && string(peek[0:3]) == "ID3" {
		return types.CodecMP3
	}
	if off := findMp3Sync(peek, 0); off >= 0 {
		return types.CodecMP3
	}
	if len(peek) >= 8 {
		boxType := string(peek[4:8])
		if boxType == "ftyp" || boxType == "moov" {
			return types.CodecM4A
		}
	}
	if off := findAdtsSync(peek, 0); off >= 0 {
		return types.CodecAAC
	}
	return types.CodecUnknown
}

// Extract dispatches to the per-codec extractor selected by codec,
// reading through fetch.
func Extract(codec types.Codec, fetch Fetch) (*types.MediaInfo, error) {
	switch codec {
	case types.CodecMP3:
		return ExtractMP3(fetch)
	case types.CodecAAC:
		return ExtractAAC(fetch)
	case types.CodecM4A:
		return ExtractM4A(fetch)
	case types.CodecPCM:
		return ExtractWAV(fetch)
	default:
		return nil, types.NewError(types.ErrParse, fmt.Errorf("unknown container codec %v", codec))
	}
}

// fetchAll reads exactly want bytes starting at off, returning a
// types.ErrParse-wrapped error (the fetch error, or a short-read error if
// fetch reported none) if fewer are available.
func fetchAll(fetch Fetch, off int64, want int) ([]byte, error) {
	buf := make([]byte, want)
	got := 0
	for got < want {
		n, err := fetch(buf[got:], off+int64(got))
		if n <= 0 {
			if err == nil {
				err = fmt.Errorf("short read: got %d of %d bytes at offset %d", got, want, off)
			}
			return nil, types.NewError(types.ErrParse, err)
		}
		got += n
	}
	return buf, nil
}
