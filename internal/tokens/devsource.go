package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opiniq.org/internal/credstore"
	"opiniq.org/internal/identity"
)

// DevSource mints opaque placeholder tokens locally. Dev-mode stand-in for
// the identity-provider exchange; never used in production wiring.
type DevSource struct {
	TTL time.Duration
}

var _ Source = DevSource{}

func (s DevSource) Exchange(ctx context.Context, _ identity.Identity, _, resource string) (credstore.Token, error) {
	if err := ctx.Err(); err != nil {
		return credstore.Token{}, err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return credstore.Token{
		AccessToken: uuid.NewString(),
		Resource:    resource,
		ExpiresAt:   time.Now().UTC().Add(ttl),
	}, nil
}
