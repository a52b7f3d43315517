package extractor

import (
	"encoding/binary"
	"fmt"

	"github.com/drgolem/liteplayer/pkg/types"
)

// box is one parsed ISO-BMFF box header: its 4-byte type and the absolute
// offset/size of its payload (header already consumed).
type box struct {
	typ         string
	payloadOff  int64
	payloadSize int64
}

// readBoxHeader reads one box header (8 or 16 bytes, handling the 64-bit
// extended-size form) starting at off.
func readBoxHeader(fetch Fetch, off int64) (box, int64, error) {
	hdr, err := fetchAll(fetch, off, 8)
	if err != nil {
		return box{}, 0, err
	}
	size := int64(binary.BigEndian.Uint32(hdr[0:4]))
	typ := string(hdr[4:8])
	headerLen := int64(8)

	if size == 1 {
		ext, err := fetchAll(fetch, off+8, 8)
		if err != nil {
			return box{}, 0, err
		}
		size = int64(binary.BigEndian.Uint64(ext))
		headerLen = 16
	} else if size == 0 {
		return box{}, 0, types.NewError(types.ErrParse, fmt.Errorf("box %q with unbounded size not supported", typ))
	}
	if size < headerLen {
		return box{}, 0, types.NewError(types.ErrParse, fmt.Errorf("box %q has invalid size %d", typ, size))
	}

	return box{typ: typ, payloadOff: off + headerLen, payloadSize: size - headerLen}, off + size, nil
}

// findChildBox walks the boxes inside [parentOff, parentOff+parentSize)
// looking for the first box of type want.
func findChildBox(fetch Fetch, parentOff, parentSize int64, want string) (box, bool, error) {
	end := parentOff + parentSize
	pos := parentOff
	for pos < end {
		b, next, err := readBoxHeader(fetch, pos)
		if err != nil {
			return box{}, false, err
		}
		if b.typ == want {
			return b, true, nil
		}
		pos = next
	}
	return box{}, false, nil
}

// ExtractM4A walks moov/trak/mdia/mdhd for timescale+duration,
// moov/trak/mdia/minf/stbl/stsd/mp4a/esds for the AudioSpecificConfig,
// stsz for the per-sample frame size table, and locates mdat, per
// spec.md §4.3. The box walk naturally tolerates moov appearing either
// before or after mdat since every lookup is by absolute offset.
func ExtractM4A(fetch Fetch) (*types.MediaInfo, error) {
	fileEnd, err := findStreamEnd(fetch)
	if err != nil {
		return nil, err
	}

	moov, ok, err := findChildBox(fetch, 0, fileEnd, "moov")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no moov box found"))
	}
	mdat, ok, err := findChildBox(fetch, 0, fileEnd, "mdat")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no mdat box found"))
	}

	trak, ok, err := findChildBox(fetch, moov.payloadOff, moov.payloadSize, "trak")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no trak box found"))
	}
	mdia, ok, err := findChildBox(fetch, trak.payloadOff, trak.payloadSize, "mdia")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no mdia box found"))
	}
	mdhd, ok, err := findChildBox(fetch, mdia.payloadOff, mdia.payloadSize, "mdhd")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrParse, fmt.Errorf("no mdhd box found"))
	}
	timescale, duration, err := parseMdhd(fetch, mdhd)
	if err != nil {
		return nil, err
	}

	minf, ok, err := findChildBox(fetch, mdia.payloadOff, mdia.payloadSize, "minf")
	if err != nil || !ok {
		return nil, orParseErr(err, "no minf box found")
	}
	stbl, ok, err := findChildBox(fetch, minf.payloadOff, minf.payloadSize, "stbl")
	if err != nil || !ok {
		return nil, orParseErr(err, "no stbl box found")
	}
	stsd, ok, err := findChildBox(fetch, stbl.payloadOff, stbl.payloadSize, "stsd")
	if err != nil || !ok {
		return nil, orParseErr(err, "no stsd box found")
	}
	sampleRate, channels, bits, asc, err := parseStsdMp4a(fetch, stsd)
	if err != nil {
		return nil, err
	}

	stsz, ok, err := findChildBox(fetch, stbl.payloadOff, stbl.payloadSize, "stsz")
	if err != nil || !ok {
		return nil, orParseErr(err, "no stsz box found")
	}
	sizes, err := parseStsz(fetch, stsz)
	if err != nil {
		return nil, err
	}

	info := &types.M4aInfo{
		SampleRate:    sampleRate,
		Channels:      channels,
		Bits:          bits,
		ASC:           asc,
		MdatOffset:    mdat.payloadOff,
		MdatSize:      mdat.payloadSize,
		Stsz:          sizes,
		Timescale:     timescale,
		DurationTicks: duration,
		FrameSamples:  1024,
	}
	return &types.MediaInfo{Codec: types.CodecM4A, M4a: info}, nil
}

func orParseErr(err error, msg string) error {
	if err != nil {
		return err
	}
	return types.NewError(types.ErrParse, fmt.Errorf("%s", msg))
}

// findStreamEnd walks top-level boxes from offset 0 until a short read
// tells us we've reached the end of the stream, returning that end offset.
func findStreamEnd(fetch Fetch) (int64, error) {
	pos := int64(0)
	for {
		hdr, err := fetchShortest(fetch, pos, 8)
		if err != nil || len(hdr) < 8 {
			return pos, nil
		}
		_, next, err := readBoxHeader(fetch, pos)
		if err != nil {
			return pos, nil
		}
		pos = next
	}
}

func parseMdhd(fetch Fetch, b box) (timescale uint32, duration uint64, err error) {
	verFlags, err := fetchAll(fetch, b.payloadOff, 4)
	if err != nil {
		return 0, 0, err
	}
	version := verFlags[0]
	if version == 1 {
		buf, err := fetchAll(fetch, b.payloadOff+4, 28)
		if err != nil {
			return 0, 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[16:20])
		duration = binary.BigEndian.Uint64(buf[20:28])
	} else {
		buf, err := fetchAll(fetch, b.payloadOff+4, 16)
		if err != nil {
			return 0, 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[8:12])
		duration = uint64(binary.BigEndian.Uint32(buf[12:16]))
	}
	return timescale, duration, nil
}

// parseStsdMp4a locates the mp4a sample entry inside stsd and, within it,
// the esds box's AudioSpecificConfig bytes (the DecoderSpecificInfo
// descriptor, tag 0x05).
func parseStsdMp4a(fetch Fetch, stsd box) (sampleRate, channels, bits int, asc []byte, err error) {
	hdr, err := fetchAll(fetch, stsd.payloadOff, 8)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	entryCount := binary.BigEndian.Uint32(hdr[4:8])
	if entryCount == 0 {
		return 0, 0, 0, nil, types.NewError(types.ErrParse, fmt.Errorf("stsd has no sample entries"))
	}

	mp4a, ok, err := findChildBox(fetch, stsd.payloadOff+8, stsd.payloadSize-8, "mp4a")
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if !ok {
		return 0, 0, 0, nil, types.NewError(types.ErrParse, fmt.Errorf("no mp4a sample entry found"))
	}

	// Audio sample entry: 6 reserved + 2 data_reference_index, then
	// version(2) revision(2) vendor(4) channels(2) sample_size(2)
	// compression_id(2) packet_size(2) sample_rate(4, 16.16 fixed).
	entry, err := fetchAll(fetch, mp4a.payloadOff, 8+20)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	channels = int(binary.BigEndian.Uint16(entry[16:18]))
	bits = int(binary.BigEndian.Uint16(entry[18:20]))
	sampleRate = int(binary.BigEndian.Uint32(entry[24:28]) >> 16)

	esdsOff := mp4a.payloadOff + 8 + 20
	esdsSize := mp4a.payloadSize - 8 - 20
	if esdsSize > 0 {
		esds, ok, err := findChildBox(fetch, esdsOff, esdsSize, "esds")
		if err == nil && ok {
			asc, _ = extractAscFromEsds(fetch, esds)
		}
	}
	return sampleRate, channels, bits, asc, nil
}

// extractAscFromEsds scans an esds box's MPEG-4 descriptor chain for the
// DecoderSpecificInfo (tag 0x05) payload, the AudioSpecificConfig bytes.
func extractAscFromEsds(fetch Fetch, esds box) ([]byte, error) {
	buf, err := fetchAll(fetch, esds.payloadOff+4, int(esds.payloadSize-4)) // skip version/flags
	if err != nil {
		return nil, err
	}
	return walkDescriptors(buf)
}

// walkDescriptors recurses through an in-memory MPEG-4 descriptor chain
// (ES_Descriptor -> DecoderConfigDescriptor -> DecoderSpecificInfo)
// looking for the DecoderSpecificInfoTag (0x05) payload.
func walkDescriptors(buf []byte) ([]byte, error) {
	pos := 0
	for pos < len(buf) {
		tag := buf[pos]
		pos++
		size, consumed, ok := readDescriptorSize(buf[pos:])
		if !ok {
			break
		}
		pos += consumed
		if pos+size > len(buf) {
			break
		}
		payload := buf[pos : pos+size]
		switch tag {
		case 0x03: // ES_DescriptorTag: skip ES_ID(2)+flags(1) then recurse
			if len(payload) >= 3 {
				return walkDescriptors(payload[3:])
			}
		case 0x04: // DecoderConfigDescriptorTag: objType(1)+streamType(1)+bufSize(3)+max(4)+avg(4), then nested
			if len(payload) > 13 {
				return walkDescriptors(payload[13:])
			}
		case 0x05: // DecoderSpecificInfoTag: raw AudioSpecificConfig
			out := make([]byte, len(payload))
			copy(out, payload)
			return out, nil
		}
		pos += size
	}
	return nil, fmt.Errorf("no DecoderSpecificInfo (ASC) found in esds")
}

// readDescriptorSize decodes an MPEG-4 descriptor's variable-length size
// field (up to 4 bytes, continuation bit 0x80), returning the decoded
// size and bytes consumed.
func readDescriptorSize(b []byte) (size, consumed int, ok bool) {
	for i := 0; i < 4 && i < len(b); i++ {
		size = (size << 7) | int(b[i]&0x7F)
		consumed++
		if b[i]&0x80 == 0 {
			return size, consumed, true
		}
	}
	return 0, 0, false
}

func parseStsz(fetch Fetch, stsz box) ([]uint32, error) {
	hdr, err := fetchAll(fetch, stsz.payloadOff+4, 8)
	if err != nil {
		return nil, err
	}
	sampleSize := binary.BigEndian.Uint32(hdr[0:4])
	sampleCount := binary.BigEndian.Uint32(hdr[4:8])

	sizes := make([]uint32, sampleCount)
	if sampleSize != 0 {
		for i := range sizes {
			sizes[i] = sampleSize
		}
		return sizes, nil
	}

	tableOff := stsz.payloadOff + 4 + 8
	tableBuf, err := fetchAll(fetch, tableOff, int(sampleCount)*4)
	if err != nil {
		return nil, err
	}
	for i := range sizes {
		sizes[i] = binary.BigEndian.Uint32(tableBuf[i*4 : i*4+4])
	}
	return sizes, nil
}
