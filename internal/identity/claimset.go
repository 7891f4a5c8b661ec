package identity

// Claim is a single type/value pair.
type Claim struct {
	Type  string
	Value string
}

// ClaimSet is an ordered multimap of claims. The same claim type may appear
// multiple times; insertion order is preserved.
type ClaimSet struct {
	claims []Claim
}

var _ Source = (*ClaimSet)(nil)

// NewClaimSet builds a ClaimSet from the given claims.
func NewClaimSet(claims ...Claim) *ClaimSet {
	cs := &ClaimSet{claims: make([]Claim, 0, len(claims))}
	cs.claims = append(cs.claims, claims...)
	return cs
}

// Add appends one claim to the set.
func (cs *ClaimSet) Add(claimType, value string) {
	cs.claims = append(cs.claims, Claim{Type: claimType, Value: value})
}

// Claim returns the first value of the given type. The second return value
// distinguishes "absent" from "present but empty".
func (cs *ClaimSet) Claim(name string) (string, bool) {
	for _, c := range cs.claims {
		if c.Type == name {
			return c.Value, true
		}
	}
	return "", false
}

// Claims returns every value of the given type, in insertion order.
func (cs *ClaimSet) Claims(name string) []string {
	var out []string
	for _, c := range cs.claims {
		if c.Type == name {
			out = append(out, c.Value)
		}
	}
	return out
}

// Len returns the number of claims in the set.
func (cs *ClaimSet) Len() int { return len(cs.claims) }
