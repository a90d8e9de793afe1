package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// CompressionMiddleware gzip-encodes the response body when the client
// advertises gzip support via Accept-Encoding and the upstream hasn't
// already encoded the body itself.
type CompressionMiddleware struct {
	passthrough
}

func NewCompressionMiddleware() *CompressionMiddleware {
	return &CompressionMiddleware{}
}

func (m *CompressionMiddleware) ModifyResponse(resp *http.Response, r *http.Request) *http.Response {
	if resp.Body == nil {
		return resp
	}
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return resp
	}
	if resp.Header.Get("Content-Encoding") != "" {
		return resp
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(raw))
		return resp
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		gw.Close()
		resp.Body = io.NopCloser(bytes.NewReader(raw))
		return resp
	}
	if err := gw.Close(); err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(raw))
		return resp
	}

	resp.Header.Set("Content-Encoding", "gzip")
	resp.Header.Del("Content-Length")
	resp.ContentLength = int64(buf.Len())
	resp.Body = io.NopCloser(&buf)
	return resp
}
