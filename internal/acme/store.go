// Package acme implements the HTTP-01 challenge responder and certificate
// renewal driver. The challenge store is written to from the renewal
// goroutine's solver callbacks and read from the dispatcher's request path,
// so every challenge token a live certificate renewal publishes is visible to the
// very next incoming request regardless of goroutine scheduling.
package acme

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

const challengePathPrefix = "/.well-known/acme-challenge/"

// Store holds pending HTTP-01 challenge tokens and their expected proof
// (key authorization) strings.
type Store struct {
	mu         sync.RWMutex
	challenges map[string]string
}

func NewStore() *Store {
	return &Store{challenges: make(map[string]string)}
}

func (s *Store) AddChallenge(token, proof string) {
	s.mu.Lock()
	s.challenges[token] = proof
	s.mu.Unlock()
}

func (s *Store) RemoveChallenge(token string) {
	s.mu.Lock()
	delete(s.challenges, token)
	s.mu.Unlock()
}

func (s *Store) proofFor(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proof, ok := s.challenges[token]
	return proof, ok
}

// Handler serves the ACME HTTP-01 challenge path ahead of any pool
// matching.
type Handler struct {
	Store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

// RespondToChallenge returns a response if r targets the well-known ACME
// challenge path, or nil if the dispatcher should continue with normal
// pool matching.
func (h *Handler) RespondToChallenge(r *http.Request) *http.Response {
	if !strings.HasPrefix(r.URL.Path, challengePathPrefix) {
		return nil
	}
	token := strings.TrimPrefix(r.URL.Path, challengePathPrefix)
	proof, ok := h.Store.proofFor(token)
	if !ok {
		return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: http.NoBody}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader(proof)),
		Request:    r,
	}
}
