package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSourceReadsWrittenBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.bin")
	want := []byte("hello liteplayer")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileSource()
	handle, err := s.Open(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(handle)

	if got := s.ContentLen(handle); got != int64(len(want)) {
		t.Fatalf("ContentLen() = %d, want %d", got, len(want))
	}

	buf := make([]byte, len(want))
	n, err := s.Read(handle, buf)
	if err != nil || n != len(want) {
		t.Fatalf("Read() = %d, %v; want %d, nil", n, err, len(want))
	}
	if string(buf) != string(want) {
		t.Fatalf("Read() = %q, want %q", buf, want)
	}

	n, err = s.Read(handle, buf)
	if err != nil || n != 0 {
		t.Fatalf("Read() at EOF = %d, %v; want 0, nil", n, err)
	}
}

func TestFileSourceSeek(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileSource()
	handle, err := s.Open(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(handle)

	if err := s.Seek(handle, 5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	n, err := s.Read(handle, buf)
	if err != nil || n != 5 {
		t.Fatalf("Read() after seek = %d, %v", n, err)
	}
	if string(buf) != "56789" {
		t.Fatalf("Read() after seek = %q, want %q", buf, "56789")
	}
}

func TestFileSourceURLProtocolAndMode(t *testing.T) {
	s := NewFileSource()
	if s.URLProtocol() != "file" {
		t.Fatalf("URLProtocol() = %q, want %q", s.URLProtocol(), "file")
	}
	if s.AsyncMode() {
		t.Fatal("AsyncMode() = true, want false (local files are read synchronously)")
	}
}
