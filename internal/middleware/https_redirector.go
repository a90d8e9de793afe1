package middleware

import (
	"context"
	"net/http"
)

type schemeCtxKey struct{}

// WithClientScheme records the scheme of the listener a request actually
// arrived on ("http" or "https"). The standard library's *http.Request
// carries no such field for a server-side request, and a backend pool can
// serve both schemes concurrently, so this is attached per-request via
// context rather than stored on the shared middleware instance.
func WithClientScheme(r *http.Request, scheme string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), schemeCtxKey{}, scheme))
}

func ClientScheme(r *http.Request) string {
	if v, ok := r.Context().Value(schemeCtxKey{}).(string); ok {
		return v
	}
	return "http"
}

// HttpsRedirector redirects any request arriving over plain HTTP to the
// equivalent https:// URL.
type HttpsRedirector struct {
	passthrough
}

func NewHttpsRedirector() *HttpsRedirector {
	return &HttpsRedirector{}
}

func (m *HttpsRedirector) ModifyRequest(r *http.Request) (*http.Request, *http.Response) {
	if ClientScheme(r) == "https" {
		return r, nil
	}
	location := "https://" + r.Host + r.URL.RequestURI()
	resp := newResponse(http.StatusPermanentRedirect, "")
	resp.Header.Set("Location", location)
	return r, resp
}
