package registry

import (
	"context"
	"testing"
)

// stubSource is a no-op types.SourceWrapper identified only by its
// protocol string, used to exercise Registry's resolution logic without a
// real adapter.
type stubSource struct{ protocol string }

func (s *stubSource) URLProtocol() string { return s.protocol }
func (s *stubSource) AsyncMode() bool     { return false }
func (s *stubSource) BufferSize() int     { return 0 }
func (s *stubSource) Open(ctx context.Context, url string, contentPos int64) (any, error) {
	return nil, nil
}
func (s *stubSource) Read(handle any, buf []byte) (int, error) { return 0, nil }
func (s *stubSource) ContentPos(handle any) int64              { return 0 }
func (s *stubSource) ContentLen(handle any) int64              { return 0 }
func (s *stubSource) Seek(handle any, offset int64) error      { return nil }
func (s *stubSource) Close(handle any) error                   { return nil }

func TestSourceForSelectsByScheme(t *testing.T) {
	r := New()
	file := &stubSource{protocol: "file"}
	http := &stubSource{protocol: "http"}
	r.RegisterSourceWrapper(file)
	r.RegisterSourceWrapper(http)

	w, err := r.SourceFor("http://x/song.mp3")
	if err != nil {
		t.Fatalf("SourceFor: %v", err)
	}
	if w != http {
		t.Fatalf("got %v, want http wrapper", w)
	}

	w, err = r.SourceFor("file:///x/song.mp3")
	if err != nil {
		t.Fatalf("SourceFor: %v", err)
	}
	if w != file {
		t.Fatalf("got %v, want file wrapper", w)
	}
}

func TestSourceForNoSchemePrefersFile(t *testing.T) {
	r := New()
	http := &stubSource{protocol: "http"}
	file := &stubSource{protocol: "file"}
	r.RegisterSourceWrapper(http) // registered first, but "file" still wins
	r.RegisterSourceWrapper(file)

	w, err := r.SourceFor("/local/song.mp3")
	if err != nil {
		t.Fatalf("SourceFor: %v", err)
	}
	if w != file {
		t.Fatalf("got %v, want file wrapper for scheme-less URL", w)
	}
}

func TestSourceForNoSchemeFallsBackToFirstRegistered(t *testing.T) {
	r := New()
	http := &stubSource{protocol: "http"}
	mem := &stubSource{protocol: "mem"}
	r.RegisterSourceWrapper(http)
	r.RegisterSourceWrapper(mem)

	w, err := r.SourceFor("song.mp3")
	if err != nil {
		t.Fatalf("SourceFor: %v", err)
	}
	if w != http {
		t.Fatalf("got %v, want first-registered wrapper (http)", w)
	}
}

func TestSourceForUnknownSchemeErrors(t *testing.T) {
	r := New()
	r.RegisterSourceWrapper(&stubSource{protocol: "file"})

	if _, err := r.SourceFor("ftp://x/song.mp3"); err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
}
