package middleware

import "net/http"

// MaxBodySize rejects a request whose Content-Length header, when present
// and parseable, exceeds Limit. A missing or unparseable header passes
// through unchecked.
type MaxBodySize struct {
	passthrough

	Limit int64
}

func NewMaxBodySize(limit int64) *MaxBodySize {
	return &MaxBodySize{Limit: limit}
}

func (m *MaxBodySize) ModifyRequest(r *http.Request) (*http.Request, *http.Response) {
	if r.ContentLength > m.Limit {
		return r, PayloadTooLarge()
	}
	return r, nil
}
