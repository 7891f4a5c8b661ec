package credstore

import (
	"encoding/json"
	"sync"
	"time"
)

// Token is one cached downstream API credential.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Resource     string    `json:"resource"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the token is unusable at the given instant,
// applying the clock-skew margin.
func (t Token) ExpiredAt(now time.Time, skew time.Duration) bool {
	if t.AccessToken == "" {
		return true
	}
	return !now.Add(skew).Before(t.ExpiresAt)
}

// TokenCache is the in-process working copy of one identity's credential
// blob, keyed by downstream resource. Mutations set a dirty flag that stays
// set until a successful persist.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]Token
	dirty  bool
}

// NewTokenCache creates an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]Token)}
}

// Lookup returns the token cached for the resource.
func (c *TokenCache) Lookup(resource string) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[resource]
	return t, ok
}

// Put records a token for the resource and marks the cache dirty.
func (c *TokenCache) Put(resource string, t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[resource] = t
	c.dirty = true
}

// Remove drops the token for the resource. Removing an absent entry does not
// dirty the cache.
func (c *TokenCache) Remove(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokens[resource]; !ok {
		return
	}
	delete(c.tokens, resource)
	c.dirty = true
}

// Dirty reports whether the cache holds mutations not yet persisted.
func (c *TokenCache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Len returns the number of cached tokens.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

// Serialize renders the full cache contents as the blob persisted to the
// external store. Output is deterministic for identical contents.
func (c *TokenCache) Serialize() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.tokens)
}

// load replaces the cache contents from a serialized blob and clears the
// dirty flag.
func (c *TokenCache) load(blob []byte) error {
	tokens := make(map[string]Token)
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &tokens); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	c.dirty = false
	return nil
}

// markClean clears the dirty flag after a successful persist.
func (c *TokenCache) markClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = false
}

// reset empties the cache and clears the dirty flag.
func (c *TokenCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]Token)
	c.dirty = false
}
