package identity

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Claim type names as they appear in the claim set attached to a request.
const (
	ClaimSubject = "sub"
	ClaimTenant  = "tid"
	ClaimName    = "name"
	ClaimEmail   = "email"
	ClaimRole    = "role"
)

// Role names carried in role claims.
const (
	RoleAdmin   = "admin"
	RoleCreator = "creator"
)

var (
	// ErrClaimMissing indicates a required claim is absent from the claim set.
	ErrClaimMissing = errors.New("identity: claim missing")
	// ErrClaimEmpty indicates a claim is present but carries an empty value.
	ErrClaimEmpty = errors.New("identity: claim empty")
	// ErrClaimInvalid indicates a claim value could not be parsed.
	ErrClaimInvalid = errors.New("identity: claim invalid")
	// ErrUnresolved indicates the identity lacks a subject or tenant and
	// cannot be used where a fully resolved identity is required.
	ErrUnresolved = errors.New("identity: unresolved identity")
)

// Source is an ordered multimap of claim type to claim value. Lookup is by
// exact claim type; absence is reported distinctly from an empty value.
type Source interface {
	// Claim returns the first value for the given claim type and whether the
	// claim is present at all.
	Claim(name string) (string, bool)
	// Claims returns every value for the given claim type, in order.
	Claims(name string) []string
}

// Identity holds the typed attributes of the authenticated caller, derived
// per request and never persisted.
type Identity struct {
	SubjectID   int64
	TenantID    string
	DisplayName string
	Email       string
	Roles       []string
}

// Resolved reports whether both the subject id and tenant id were resolvable.
// Unresolved identities fail closed in authorization.
func (i Identity) Resolved() bool {
	return i.SubjectID > 0 && i.TenantID != ""
}

// HasRole reports whether the identity carries the named role,
// case-insensitively.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ActorName returns the best display label for audit records: the display
// name when set, otherwise the numeric subject id.
func (i Identity) ActorName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return strconv.FormatInt(i.SubjectID, 10)
}

// FromClaims extracts a typed Identity from an opaque claim set. Subject and
// tenant claims are required; display name and email are optional.
func FromClaims(src Source) (Identity, error) {
	sub, err := requiredClaim(src, ClaimSubject)
	if err != nil {
		return Identity{}, err
	}
	subjectID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || subjectID <= 0 {
		return Identity{}, fmt.Errorf("%w: %s=%q", ErrClaimInvalid, ClaimSubject, sub)
	}
	tenant, err := requiredClaim(src, ClaimTenant)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{
		SubjectID: subjectID,
		TenantID:  tenant,
		Roles:     dedupeRoles(src.Claims(ClaimRole)),
	}
	if v, ok := src.Claim(ClaimName); ok {
		id.DisplayName = strings.TrimSpace(v)
	}
	if v, ok := src.Claim(ClaimEmail); ok {
		id.Email = strings.TrimSpace(v)
	}
	return id, nil
}

func requiredClaim(src Source, name string) (string, error) {
	v, ok := src.Claim(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", ErrClaimEmpty, name)
	}
	return strings.TrimSpace(v), nil
}

func dedupeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
