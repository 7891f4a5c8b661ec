package credstore

import (
	"bytes"
	"testing"
	"time"
)

func TestTokenExpiry(t *testing.T) {
	now := time.Now().UTC()
	tok := Token{AccessToken: "a", ExpiresAt: now.Add(time.Minute)}

	if tok.ExpiredAt(now, 0) {
		t.Fatalf("token expiring in a minute reported expired")
	}
	if !tok.ExpiredAt(now, 2*time.Minute) {
		t.Fatalf("skew margin not applied")
	}
	if !(Token{}).ExpiredAt(now, 0) {
		t.Fatalf("zero token must be expired")
	}
}

func TestCacheDirtyTracking(t *testing.T) {
	c := NewTokenCache()
	if c.Dirty() {
		t.Fatalf("fresh cache must be clean")
	}

	c.Put("graph", Token{AccessToken: "a", Resource: "graph"})
	if !c.Dirty() {
		t.Fatalf("Put must dirty the cache")
	}

	c.markClean()
	c.Remove("absent")
	if c.Dirty() {
		t.Fatalf("removing an absent entry must not dirty the cache")
	}

	c.Remove("graph")
	if !c.Dirty() {
		t.Fatalf("removing a present entry must dirty the cache")
	}
	if c.Len() != 0 {
		t.Fatalf("entry not removed")
	}
}

func TestCacheSerializeDeterministic(t *testing.T) {
	exp := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	build := func() *TokenCache {
		c := NewTokenCache()
		c.Put("graph", Token{AccessToken: "a", Resource: "graph", ExpiresAt: exp})
		c.Put("reports", Token{AccessToken: "b", Resource: "reports", ExpiresAt: exp})
		return c
	}

	first, err := build().Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	second, err := build().Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("identical contents serialized differently:\n%s\n%s", first, second)
	}
}

func TestCacheLoadClearsDirty(t *testing.T) {
	c := NewTokenCache()
	c.Put("graph", Token{AccessToken: "a", Resource: "graph"})
	blob, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	fresh := NewTokenCache()
	if err := fresh.load(blob); err != nil {
		t.Fatalf("load: %v", err)
	}
	if fresh.Dirty() {
		t.Fatalf("hydrated cache must start clean")
	}
	if _, ok := fresh.Lookup("graph"); !ok {
		t.Fatalf("loaded cache lost the token")
	}
}
