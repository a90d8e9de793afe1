package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
)

// CustomErrorPages replaces the response body for any status code present
// in Mapping, leaving the status line untouched.
type CustomErrorPages struct {
	passthrough

	Mapping map[int]string
}

func NewCustomErrorPages(mapping map[int]string) *CustomErrorPages {
	return &CustomErrorPages{Mapping: mapping}
}

func (m *CustomErrorPages) ModifyResponse(resp *http.Response, _ *http.Request) *http.Response {
	body, ok := m.Mapping[resp.StatusCode]
	if !ok {
		return resp
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
	resp.Body = io.NopCloser(bytes.NewReader([]byte(body)))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return resp
}
