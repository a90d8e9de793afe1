package middleware

import (
	"container/list"
	"net"
	"net/http"
	"sync"
	"time"
)

// rateEntry is kept in insertion order (never moved) in the sliding-window
// list, mirroring the original's LinkedHashMap.entry() which does not
// reposition an existing key on update.
type rateEntry struct {
	client   string
	count    uint64
	lastSeen time.Time
}

// RateLimiter enforces a sliding window of at most Limit requests per
// Window per client IP. Keyed by IP alone, with the ephemeral port
// stripped; see DESIGN.md Open Question 4.
type RateLimiter struct {
	passthrough

	Limit  uint64
	Window time.Duration

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

func NewRateLimiter(limit uint64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		Limit:   limit,
		Window:  window,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (m *RateLimiter) ModifyRequest(r *http.Request) (*http.Request, *http.Response) {
	if m.registerRequest(clientIP(r)) {
		return r, nil
	}
	return r, TooManyRequests()
}

func (m *RateLimiter) registerRequest(client string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	for front := m.order.Front(); front != nil; {
		entry := front.Value.(*rateEntry)
		if now.Sub(entry.lastSeen) <= m.Window {
			break
		}
		next := front.Next()
		m.order.Remove(front)
		delete(m.entries, entry.client)
		front = next
	}

	element, found := m.entries[client]
	var entry *rateEntry
	if found {
		entry = element.Value.(*rateEntry)
	} else {
		entry = &rateEntry{client: client}
		m.entries[client] = m.order.PushBack(entry)
	}
	entry.count++
	entry.lastSeen = now

	return entry.count <= m.Limit
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
