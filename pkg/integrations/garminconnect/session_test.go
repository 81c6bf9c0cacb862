package garminconnect

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessionCache_SlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	session := NewSession([]*http.Cookie{{Name: "SESSION", Value: "a"}})

	t.Run("read at T+29 hits and extends", func(t *testing.T) {
		cache := NewSessionCache(30 * time.Minute).WithClock(clock.Now)
		start := clock.Now()
		cache.Set("alice", session)

		clock.now = start.Add(29 * time.Minute)
		got, ok := cache.Get("alice")
		require.True(t, ok)
		assert.Same(t, session, got)

		// Expiry is now (T+29)+30, so T+58 still hits.
		clock.now = start.Add(58 * time.Minute)
		_, ok = cache.Get("alice")
		assert.True(t, ok)
	})

	t.Run("read at T+31 without refresh misses", func(t *testing.T) {
		cache := NewSessionCache(30 * time.Minute).WithClock(clock.Now)
		start := clock.Now()
		cache.Set("bob", session)

		clock.now = start.Add(31 * time.Minute)
		_, ok := cache.Get("bob")
		assert.False(t, ok)
	})

	t.Run("exactly at TTL still hits", func(t *testing.T) {
		cache := NewSessionCache(30 * time.Minute).WithClock(clock.Now)
		start := clock.Now()
		cache.Set("carol", session)

		clock.now = start.Add(30 * time.Minute)
		_, ok := cache.Get("carol")
		assert.True(t, ok)
	})
}

func TestSessionCache_DefaultLifetimeAndDelete(t *testing.T) {
	cache := NewSessionCache(0)
	assert.Equal(t, DefaultSessionLifetime, cache.lifetime)

	cache.Set("dave", NewSession(nil))
	cache.Delete("dave")
	_, ok := cache.Get("dave")
	assert.False(t, ok)
}

func TestSessionCache_ConcurrentAccess(t *testing.T) {
	cache := NewSessionCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := NewSession([]*http.Cookie{{Name: "SESSION", Value: "v"}})
			for j := 0; j < 100; j++ {
				cache.Set("shared", s)
				if got, ok := cache.Get("shared"); ok {
					assert.Len(t, got.Cookies(), 1)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestSession_IsImmutable(t *testing.T) {
	cookies := []*http.Cookie{{Name: "SESSION", Value: "a"}}
	s := NewSession(cookies)
	cookies[0].Value = "mutated"

	out := s.Cookies()
	assert.Equal(t, "a", out[0].Value)
	out[0].Value = "mutated"
	assert.Equal(t, "a", s.Cookies()[0].Value)
}

func TestAuthenticate(t *testing.T) {
	t.Run("success returns username and merged cookies", func(t *testing.T) {
		f := newFakeGarmin(t)
		f.acceptLogin("runner42")
		c := newTestClient(f)

		username, session, err := c.Authenticate(context.Background(), "a@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "runner42", username)

		names := map[string]string{}
		for _, ck := range session.Cookies() {
			names[ck.Name] = ck.Value
		}
		assert.Equal(t, "pre", names["JSESSIONID"])
		assert.Equal(t, "auth", names["SESSION"])
	})

	t.Run("form fields are posted", func(t *testing.T) {
		f := newFakeGarmin(t)
		f.acceptLogin("runner42")
		f.handle("POST /signin", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "a@example.com", r.PostForm.Get("login:loginUsernameField"))
			assert.Equal(t, "secret", r.PostForm.Get("login:password"))
			assert.Equal(t, "Sign In", r.PostForm.Get("login:signInButton"))
			assert.Equal(t, "j_id1", r.PostForm.Get("javax.faces.ViewState"))
			w.WriteHeader(http.StatusFound)
		})
		c := newTestClient(f)

		_, _, err := c.Authenticate(context.Background(), "a@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, 1, f.count("POST /signin"))
	})

	tests := []struct {
		name             string
		status           int
		wantTransient    bool
		wantIntervention bool
	}{
		{"rejected credentials", http.StatusOK, false, true},
		{"forbidden", http.StatusForbidden, false, true},
		{"remote outage", http.StatusServiceUnavailable, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGarmin(t)
			f.handle("GET /signin", func(w http.ResponseWriter, r *http.Request) {})
			f.handle("POST /signin", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			c := newTestClient(f)

			_, _, err := c.Authenticate(context.Background(), "a@example.com", "wrong")
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, IsTransient(err))
			assert.Equal(t, tt.wantIntervention, RequiresIntervention(err))
			if tt.wantIntervention {
				var authErr *AuthenticationError
				require.True(t, errors.As(err, &authErr))
				assert.True(t, authErr.Block)
			}
		})
	}

	t.Run("empty username", func(t *testing.T) {
		f := newFakeGarmin(t)
		f.acceptLogin("")
		c := newTestClient(f)

		_, _, err := c.Authenticate(context.Background(), "a@example.com", "secret")
		assert.True(t, RequiresIntervention(err))
	})
}

func TestGetSession(t *testing.T) {
	account := Account{
		ExternalID:            "runner42",
		ExtendedAuthorization: map[string]string{AuthEmail: "enc:a@example.com", AuthPassword: "enc:secret"},
	}

	t.Run("logs in once and reuses the cached session", func(t *testing.T) {
		f := newFakeGarmin(t)
		f.acceptLogin("runner42")
		f.handle("POST /signin", func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "a@example.com", r.PostForm.Get("login:loginUsernameField"))
			assert.Equal(t, "secret", r.PostForm.Get("login:password"))
			w.WriteHeader(http.StatusFound)
		})
		c := newTestClient(f)

		first, err := c.GetSession(context.Background(), account)
		require.NoError(t, err)
		second, err := c.GetSession(context.Background(), account)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, f.count("POST /signin"))
	})

	t.Run("expired session triggers a new login", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
		f := newFakeGarmin(t)
		f.acceptLogin("runner42")
		c := newTestClient(f, WithCache(NewSessionCache(30*time.Minute).WithClock(clock.Now)))

		_, err := c.GetSession(context.Background(), account)
		require.NoError(t, err)
		clock.Advance(31 * time.Minute)
		_, err = c.GetSession(context.Background(), account)
		require.NoError(t, err)

		assert.Equal(t, 2, f.count("POST /signin"))
	})

	t.Run("missing stored credentials need intervention", func(t *testing.T) {
		f := newFakeGarmin(t)
		c := newTestClient(f)

		_, err := c.GetSession(context.Background(), Account{ExternalID: "nobody"})
		assert.True(t, RequiresIntervention(err))
		assert.Zero(t, f.count("POST /signin"))
	})
}
