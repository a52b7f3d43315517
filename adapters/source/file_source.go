// Package source provides concrete types.SourceWrapper adapters: a local
// filesystem source and an HTTP source, grounded on the teacher's
// internal/fileplayer.FilePlayer file handling and on
// Alexander-D-Karpov-amp's retryablehttp client usage respectively.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/drgolem/liteplayer/pkg/types"
)

// FileSource is a synchronous types.SourceWrapper reading from the local
// filesystem, grounded on internal/fileplayer/fileplayer.go's direct
// os.File usage (open once, Read/Seek/Close on the caller's own goroutine).
type FileSource struct{}

func NewFileSource() *FileSource { return &FileSource{} }

func (s *FileSource) URLProtocol() string { return "file" }
func (s *FileSource) AsyncMode() bool     { return false }
func (s *FileSource) BufferSize() int     { return 0 }

type fileHandle struct {
	f *os.File
}

// Open opens the local path named by url (a bare path, or a "file://" URL)
// for reading, seeking to contentPos.
func (s *FileSource) Open(ctx context.Context, url string, contentPos int64) (any, error) {
	path := strings.TrimPrefix(url, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	if contentPos != 0 {
		if _, err := f.Seek(contentPos, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seek %q to %d: %w", path, contentPos, err)
		}
	}
	return &fileHandle{f: f}, nil
}

func (s *FileSource) Read(handle any, buf []byte) (int, error) {
	h := handle.(*fileHandle)
	n, err := h.f.Read(buf)
	if err == io.EOF {
		return n, nil // spec.md §4.2: clean EOF is (n, nil) with n possibly 0
	}
	return n, err
}

func (s *FileSource) ContentPos(handle any) int64 {
	h := handle.(*fileHandle)
	pos, _ := h.f.Seek(0, io.SeekCurrent)
	return pos
}

func (s *FileSource) ContentLen(handle any) int64 {
	h := handle.(*fileHandle)
	info, err := h.f.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}

func (s *FileSource) Seek(handle any, offset int64) error {
	h := handle.(*fileHandle)
	_, err := h.f.Seek(offset, io.SeekStart)
	return err
}

func (s *FileSource) Close(handle any) error {
	h := handle.(*fileHandle)
	return h.f.Close()
}

var _ types.SourceWrapper = (*FileSource)(nil)
