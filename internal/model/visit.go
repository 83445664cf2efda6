package model

import (
	"net/url"
	"strings"
	"sync"
)

// VisitKey identifies one unit of crawl work within a run.
// It is composed of a family tag and the canonical URL, because the same
// URL may legitimately be handled once per family (for example a course
// page visited as a page and a file embedded in it under the same address).
type VisitKey string

// KeyFor builds the VisitKey for a URL handled as the given kind.
// Kinds sharing a family share keys.
func KeyFor(kind ResourceKind, rawURL string) VisitKey {
	return VisitKey(kind.Family() + ":" + CanonicalURL(rawURL))
}

// PageKey is shorthand for KeyFor(KindPage, rawURL).
func PageKey(rawURL string) VisitKey {
	return KeyFor(KindPage, rawURL)
}

// CanonicalURL normalizes a URL for deduplication.
//
// The fragment is dropped, scheme and host are lowercased and an empty path
// becomes "/". The query string is kept as-is: Moodle addresses pages by
// query (view.php?id=1&section=2), so it is part of the identity.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	return u.String()
}

// VisitSet records every VisitKey handled in a run.
// The set only grows, which is what bounds a traversal over a finite
// link graph.
type VisitSet struct {
	mu   sync.Mutex
	keys map[VisitKey]struct{}
}

// NewVisitSet creates an empty VisitSet.
func NewVisitSet() *VisitSet {
	return &VisitSet{keys: make(map[VisitKey]struct{})}
}

// Add inserts key and reports whether it was absent.
// Check and insert happen under one lock, so a caller that gets true owns
// the key for the rest of the run.
func (s *VisitSet) Add(key VisitKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Has reports whether key was already added.
func (s *VisitSet) Has(key VisitKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.keys[key]
	return ok
}

// Len returns the number of keys recorded.
func (s *VisitSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
