package garminconnect

import (
	"net/http"
	"sync"
	"time"
)

// DefaultSessionLifetime is how long an idle session stays cached.
const DefaultSessionLifetime = 30 * time.Minute

// Session is an authenticated cookie set for one remote account.
// It is never modified after creation.
type Session struct {
	cookies []*http.Cookie
}

// NewSession copies cookies into a new immutable session.
func NewSession(cookies []*http.Cookie) *Session {
	cp := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cc := *c
		cp = append(cp, &cc)
	}
	return &Session{cookies: cp}
}

// Cookies returns copies of the session cookies.
func (s *Session) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.cookies))
	for _, c := range s.cookies {
		cc := *c
		out = append(out, &cc)
	}
	return out
}

func (s *Session) apply(req *http.Request) {
	for _, c := range s.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
}

// Cache stores sessions by account key.
type Cache interface {
	Get(key string) (*Session, bool)
	Set(key string, s *Session)
	Delete(key string)
}

type cacheEntry struct {
	session *Session
	expires time.Time
}

// SessionCache is a Cache with a sliding expiry: every hit pushes the
// expiry out by the lifetime again. It is safe for concurrent use.
type SessionCache struct {
	mu       sync.Mutex
	lifetime time.Duration
	now      func() time.Time
	entries  map[string]cacheEntry
}

// NewSessionCache creates a cache. A zero lifetime uses DefaultSessionLifetime.
func NewSessionCache(lifetime time.Duration) *SessionCache {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionCache{
		lifetime: lifetime,
		now:      time.Now,
		entries:  map[string]cacheEntry{},
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *SessionCache) WithClock(now func() time.Time) *SessionCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the cached session and refreshes its expiry. Expired
// entries are dropped and reported as a miss.
func (c *SessionCache) Get(key string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	entry.expires = now.Add(c.lifetime)
	c.entries[key] = entry
	return entry.session, true
}

// Set stores s under key, replacing any previous entry.
func (c *SessionCache) Set(key string, s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{session: s, expires: c.now().Add(c.lifetime)}
}

// Delete drops the entry for key.
func (c *SessionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
