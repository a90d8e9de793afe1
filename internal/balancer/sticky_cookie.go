package balancer

import (
	"fmt"
	"net/http"
	"strings"
)

// StickyCookie wraps an inner strategy and pins a client to whichever
// address it was last assigned, via a cookie. A request bearing the cookie
// is routed to that address as long as it's still in the selectable set;
// otherwise the inner strategy picks and a Set-Cookie is appended to the
// response naming the freshly chosen address.
type StickyCookie struct {
	CookieName string
	Inner      Strategy
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
}

func NewStickyCookie(name string, inner Strategy, httpOnly, secure bool, sameSite http.SameSite) *StickyCookie {
	return &StickyCookie{CookieName: name, Inner: inner, HTTPOnly: httpOnly, Secure: secure, SameSite: sameSite}
}

func (s *StickyCookie) SelectBackend(r *http.Request, ctx Context) Forwarder {
	if addr, ok := s.parseStickyCookie(r); ok {
		for _, candidate := range ctx.BackendAddresses {
			if candidate == addr {
				return Forwarder{BackendAddress: candidate}
			}
		}
	}

	chosen := s.Inner.SelectBackend(r, ctx)
	if chosen.BackendAddress == "" {
		return chosen
	}
	address := chosen.BackendAddress
	return chosen.MapResponse(func(h http.Header) {
		h.Add("Set-Cookie", s.setCookieValue(address))
	})
}

// parseStickyCookie scans the raw Cookie header for the first occurrence of
// "<name>=" rather than doing a full cookie-jar parse, so a client sending
// the cookie name twice is resolved by its first appearance.
func (s *StickyCookie) parseStickyCookie(r *http.Request) (string, bool) {
	header := r.Header.Get("Cookie")
	if header == "" {
		return "", false
	}
	needle := s.CookieName + "="
	start := strings.Index(header, needle)
	if start < 0 {
		return "", false
	}
	rest := header[start+len(needle):]
	if end := strings.IndexByte(rest, ';'); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

func (s *StickyCookie) setCookieValue(address string) string {
	c := &http.Cookie{
		Name:     s.CookieName,
		Value:    address,
		HttpOnly: s.HTTPOnly,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
	v := c.String()
	if v == "" {
		return fmt.Sprintf("%s=%s", s.CookieName, address)
	}
	return v
}

func (s *StickyCookie) OnOpen(address string)  { s.Inner.OnOpen(address) }
func (s *StickyCookie) OnClose(address string) { s.Inner.OnClose(address) }
