package freebox

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// DefaultSessionTTL is well below the router's own session lifetime.
const DefaultSessionTTL = 5 * time.Minute

type cachedSession struct {
	token     string
	expiresAt time.Time
}

// SessionCache keeps one session token per app id until it expires or the
// router rejects it. A zero TTL disables caching.
type SessionCache struct {
	ttl      time.Duration
	sessions cmap.ConcurrentMap[string, cachedSession]
	now      func() time.Time
}

// NewSessionCache returns a cache whose entries live for ttl.
func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionCache{
		ttl:      ttl,
		sessions: cmap.New[cachedSession](),
		now:      time.Now,
	}
}

// Enabled reports whether tokens are kept at all.
func (c *SessionCache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns the unexpired token for appID.
func (c *SessionCache) Get(appID string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	entry, ok := c.sessions.Get(appID)
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.expiresAt) {
		c.sessions.RemoveCb(appID, func(_ string, v cachedSession, exists bool) bool {
			return exists && v.expiresAt.Equal(entry.expiresAt)
		})
		return "", false
	}
	return entry.token, true
}

// Put stores token for appID.
func (c *SessionCache) Put(appID, token string) {
	if !c.Enabled() {
		return
	}
	c.sessions.Set(appID, cachedSession{token: token, expiresAt: c.now().Add(c.ttl)})
}

// Invalidate drops the entry for appID if it still holds token.
func (c *SessionCache) Invalidate(appID, token string) {
	if !c.Enabled() {
		return
	}
	c.sessions.RemoveCb(appID, func(_ string, v cachedSession, exists bool) bool {
		return exists && v.token == token
	})
}
