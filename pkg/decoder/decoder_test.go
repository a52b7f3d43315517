package decoder

import (
	"bytes"
	"testing"

	"github.com/drgolem/liteplayer/pkg/types"
)

func TestPCMDecoderReadsThroughRawBytes(t *testing.T) {
	info := &types.MediaInfo{
		Codec: types.CodecPCM,
		Wav:   &types.WavInfo{SampleRate: 44100, Channels: 2, Bits: 16},
	}
	samples := []int16{1, -1, 2, -2, 3, -3}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}

	d := NewPCMDecoder()
	if err := d.Open(bytes.NewReader(buf), info); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rate, ch, bits := d.GetFormat()
	if rate != 44100 || ch != 2 || bits != 16 {
		t.Fatalf("GetFormat = %d/%d/%d", rate, ch, bits)
	}

	out := make([]byte, len(buf))
	n, err := d.DecodeSamples(3, out)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if n != 3 {
		t.Fatalf("decoded %d samples, want 3", n)
	}
	if !bytes.Equal(out[:12], buf[:12]) {
		t.Errorf("pcm passthrough mismatch: got %v, want %v", out[:12], buf[:12])
	}
}

func TestPCMDecoderShortStreamReturnsPartialWithoutError(t *testing.T) {
	info := &types.MediaInfo{
		Codec: types.CodecPCM,
		Wav:   &types.WavInfo{SampleRate: 8000, Channels: 1, Bits: 16},
	}
	buf := []byte{0x01, 0x00, 0x02, 0x00} // 2 samples available
	d := NewPCMDecoder()
	if err := d.Open(bytes.NewReader(buf), info); err != nil {
		t.Fatalf("Open: %v", err)
	}
	out := make([]byte, 100)
	n, err := d.DecodeSamples(50, out)
	if err != nil {
		t.Fatalf("DecodeSamples: %v", err)
	}
	if n != 2 {
		t.Fatalf("decoded %d samples, want 2", n)
	}
}

func TestNewRejectsUnregisteredCodec(t *testing.T) {
	_, err := New(types.CodecAAC)
	if err == nil {
		t.Fatal("expected error for unregistered AAC codec")
	}
	if types.KindOf(err) != types.ErrDecoder {
		t.Errorf("KindOf = %v, want ErrDecoder", types.KindOf(err))
	}
}

func TestRegisterInstallsFactory(t *testing.T) {
	Register(types.CodecAAC, func() Decoder { return NewPCMDecoder() })
	defer delete(registered, types.CodecAAC)

	d, err := New(types.CodecAAC)
	if err != nil {
		t.Fatalf("New after Register: %v", err)
	}
	if d == nil {
		t.Fatal("expected non-nil decoder")
	}
}

func TestNewMP3ResolvesBuiltin(t *testing.T) {
	d, err := New(types.CodecMP3)
	if err != nil {
		t.Fatalf("New(CodecMP3): %v", err)
	}
	if _, ok := d.(*MP3Decoder); !ok {
		t.Errorf("got %T, want *MP3Decoder", d)
	}
}
