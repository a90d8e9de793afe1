package pool

import (
	"container/list"
	"net/http"
	"sync"
	"time"
)

// clientEntry pairs an authority with the *http.Client dedicated to it,
// stored in the idle list so the least recently used authority is evicted
// first once the pool grows past its cap.
type clientEntry struct {
	authority string
	client    *http.Client
}

// ClientPool hands out one *http.Client per upstream authority ("host:port")
// and evicts the least recently used client once more than maxIdle
// authorities are outstanding, bounding the number of idle keep-alive
// connection pools a backend pool accumulates.
type ClientPool struct {
	mu         sync.Mutex
	lruList    *list.List
	items      map[string]*list.Element
	maxIdle    int
	idleTTL    time.Duration
	maxPerHost int
}

// NewClientPool creates a client pool. maxIdle bounds the number of distinct
// authorities kept warm; idleTTL bounds per-connection idle time;
// maxPerHost bounds idle connections per host within a single client's
// transport.
func NewClientPool(maxIdle int, idleTTL time.Duration, maxPerHost int) *ClientPool {
	if maxIdle <= 0 {
		maxIdle = 128
	}
	if idleTTL <= 0 {
		idleTTL = 90 * time.Second
	}
	if maxPerHost <= 0 {
		maxPerHost = 8
	}
	return &ClientPool{
		lruList:    list.New(),
		items:      make(map[string]*list.Element),
		maxIdle:    maxIdle,
		idleTTL:    idleTTL,
		maxPerHost: maxPerHost,
	}
}

// Get returns the client dedicated to authority, creating one on first use.
func (p *ClientPool) Get(authority string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, found := p.items[authority]; found {
		p.lruList.MoveToFront(element)
		return element.Value.(*clientEntry).client
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			IdleConnTimeout:     p.idleTTL,
			MaxIdleConnsPerHost: p.maxPerHost,
			MaxIdleConns:        p.maxPerHost * 4,
		},
	}
	element := p.lruList.PushFront(&clientEntry{authority: authority, client: client})
	p.items[authority] = element

	if p.lruList.Len() > p.maxIdle {
		p.removeOldest()
	}
	return client
}

func (p *ClientPool) removeOldest() {
	element := p.lruList.Back()
	if element == nil {
		return
	}
	p.lruList.Remove(element)
	entry := element.Value.(*clientEntry)
	delete(p.items, entry.authority)
	entry.client.CloseIdleConnections()
}

// Close releases every pooled client's idle connections.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, element := range p.items {
		element.Value.(*clientEntry).client.CloseIdleConnections()
	}
	p.lruList = list.New()
	p.items = make(map[string]*list.Element)
}
