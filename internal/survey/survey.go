package survey

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("survey: not found")
	ErrInvalidInput = errors.New("survey: invalid input")
)

// Survey is the read-only resource descriptor authorization works against.
// Tenant and owner are immutable after creation; the contributor set may
// change independently.
type Survey struct {
	ID           string
	TenantID     string
	OwnerID      int64
	Contributors []int64
}

// HasContributor reports whether the given user appears in the contributor
// set. Contribution is not tenant-scoped.
func (s Survey) HasContributor(userID int64) bool {
	for _, c := range s.Contributors {
		if c == userID {
			return true
		}
	}
	return false
}

// Reader supplies survey descriptors to the authorization layer. It is
// read-only and must not itself require an authorization verdict.
type Reader interface {
	GetSurvey(ctx context.Context, id string) (Survey, error)
}
