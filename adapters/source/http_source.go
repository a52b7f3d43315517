package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/drgolem/liteplayer/pkg/types"
)

// HTTPSource is an async-mode types.SourceWrapper streaming over HTTP(S),
// grounded on Alexander-D-Karpov-amp's retryablehttp.Client usage
// (internal/api/client.go): a shared client retries transient GET failures
// with backoff before the source cache's reader task ever sees an error.
// Register one instance per scheme ("http", "https") since a SourceWrapper
// reports a single URLProtocol.
type HTTPSource struct {
	protocol   string
	client     *retryablehttp.Client
	bufferSize int
}

// NewHTTPSource builds an HTTPSource handling the given scheme ("http" or
// "https"). bufferSize is the ring buffer capacity the source cache should
// use in async mode; 0 selects the source cache's own default.
func NewHTTPSource(protocol string, bufferSize int) *HTTPSource {
	client := retryablehttp.NewClient()
	client.Logger = nil
	return &HTTPSource{protocol: protocol, client: client, bufferSize: bufferSize}
}

func (s *HTTPSource) URLProtocol() string { return s.protocol }
func (s *HTTPSource) AsyncMode() bool     { return true }
func (s *HTTPSource) BufferSize() int     { return s.bufferSize }

type httpHandle struct {
	url    string
	client *retryablehttp.Client
	body   io.ReadCloser
	pos    int64
	length int64
}

// Open issues a ranged GET starting at contentPos and keeps the response
// body open for subsequent Reads.
func (s *HTTPSource) Open(ctx context.Context, url string, contentPos int64) (any, error) {
	h := &httpHandle{url: url, client: s.client, pos: contentPos, length: -1}
	if err := h.request(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *httpHandle) request(ctx context.Context) error {
	if h.body != nil {
		h.body.Close()
		h.body = nil
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("build request for %q: %w", h.url, err)
	}
	if h.pos > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", h.pos))
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %q: %w", h.url, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return fmt.Errorf("GET %q: unexpected status %s", h.url, resp.Status)
	}
	if h.length < 0 {
		if resp.StatusCode == http.StatusOK {
			h.length = resp.ContentLength
		} else if resp.ContentLength >= 0 {
			h.length = h.pos + resp.ContentLength
		}
	}
	h.body = resp.Body
	return nil
}

func (s *HTTPSource) Read(handle any, buf []byte) (int, error) {
	h := handle.(*httpHandle)
	n, err := h.body.Read(buf)
	h.pos += int64(n)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func (s *HTTPSource) ContentPos(handle any) int64 { return handle.(*httpHandle).pos }
func (s *HTTPSource) ContentLen(handle any) int64 { return handle.(*httpHandle).length }

// Seek re-issues the GET request with a new Range header, since an HTTP
// response body cannot be seeked in place.
func (s *HTTPSource) Seek(handle any, offset int64) error {
	h := handle.(*httpHandle)
	h.pos = offset
	return h.request(context.Background())
}

func (s *HTTPSource) Close(handle any) error {
	h := handle.(*httpHandle)
	if h.body == nil {
		return nil
	}
	return h.body.Close()
}

var _ types.SourceWrapper = (*HTTPSource)(nil)
