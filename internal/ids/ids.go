// Package ids mints prefixed, lexicographically sortable identifiers. Each
// identifier family carries a short prefix so a bare id found in a log line
// or a storage row is self-describing.
package ids

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Identifier family prefixes.
const (
	AuditPrefix   = "evt"
	RequestPrefix = "req"
)

// minter serializes ULID generation so ids minted in the same millisecond
// stay strictly increasing.
type minter struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var std = &minter{entropy: ulid.Monotonic(crand.Reader, 0)}

func (m *minter) mint(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

// NewAuditID returns an identifier for one audit record.
func NewAuditID() string {
	return std.mint(AuditPrefix)
}

// NewRequestID returns an identifier assigned to an inbound request that
// arrived without one.
func NewRequestID() string {
	return std.mint(RequestPrefix)
}
