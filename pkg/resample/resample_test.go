package resample

import (
	"bytes"
	"testing"
)

func int16Bytes(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func TestPassthroughIsZeroCopy(t *testing.T) {
	r, err := New(44100, 2, 44100, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Passthrough() {
		t.Fatal("expected Passthrough() == true for matching rate/channels")
	}
	in := int16Bytes(1, 2, 3, 4)
	out, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if &in[0] != &out[0] {
		t.Error("passthrough should return the same underlying slice")
	}
}

func TestMonoToStereoDuplicatesSamples(t *testing.T) {
	mono := int16Bytes(100, -200, 300)
	out := monoToStereo16(mono)
	want := int16Bytes(100, 100, -200, -200, 300, 300)
	if !bytes.Equal(out, want) {
		t.Errorf("monoToStereo16 = %v, want %v", out, want)
	}
}

func TestStereoToMonoKeepsLeftChannel(t *testing.T) {
	stereo := int16Bytes(10, 999, 20, 999, 30, 999)
	out := stereoToMono16(stereo)
	want := int16Bytes(10, 20, 30)
	if !bytes.Equal(out, want) {
		t.Errorf("stereoToMono16 = %v, want %v", out, want)
	}
}

func TestNewRejectsUnsupportedChannelCounts(t *testing.T) {
	if _, err := New(44100, 6, 44100, 2); err == nil {
		t.Fatal("expected error for 6-channel input")
	}
}

func TestChannelOnlyConversionSkipsRateConvert(t *testing.T) {
	r, err := New(44100, 1, 44100, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Passthrough() {
		t.Fatal("expected Passthrough() == false when channel counts differ")
	}
	in := int16Bytes(5, 6, 7)
	out, err := r.Process(in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := int16Bytes(5, 5, 6, 6, 7, 7)
	if !bytes.Equal(out, want) {
		t.Errorf("mono->stereo only conversion = %v, want %v", out, want)
	}
}
