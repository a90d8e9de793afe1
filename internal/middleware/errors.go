package middleware

import (
	"io"
	"net/http"
	"strings"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// TooManyRequests builds the response a RateLimiter rejection returns.
func TooManyRequests() *http.Response {
	return newResponse(http.StatusTooManyRequests, "rate limit exceeded\n")
}

// PayloadTooLarge builds the response a MaxBodySize rejection returns.
func PayloadTooLarge() *http.Response {
	return newResponse(http.StatusRequestEntityTooLarge, "request body too large\n")
}

// Unauthorized builds the 401 response an Authentication rejection returns,
// with the WWW-Authenticate challenge the client needs to retry with Basic
// credentials.
func Unauthorized(realm string) *http.Response {
	resp := newResponse(http.StatusUnauthorized, "authentication required\n")
	resp.Header.Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	return resp
}
