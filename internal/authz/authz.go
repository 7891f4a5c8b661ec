// Package authz computes allow/deny verdicts for operations on survey
// resources. Evaluation is a pure function over the caller's identity and the
// resource descriptor; the operation policy is compiled in.
package authz

import (
	"sort"

	"opiniq.org/internal/identity"
	"opiniq.org/internal/survey"
)

// Capability is one grounds for access, accumulated per check and discarded.
type Capability string

const (
	CapabilityAdmin       Capability = "admin"
	CapabilityCreator     Capability = "creator"
	CapabilityReader      Capability = "reader"
	CapabilityContributor Capability = "contributor"
	CapabilityOwner       Capability = "owner"
)

// PermissionSet is the transient projection of capabilities for one check.
type PermissionSet map[Capability]struct{}

func (ps PermissionSet) add(c Capability) { ps[c] = struct{}{} }

// Has reports whether the set contains the capability.
func (ps PermissionSet) Has(c Capability) bool {
	_, ok := ps[c]
	return ok
}

// HasAny reports whether the set contains at least one of the capabilities.
func (ps PermissionSet) HasAny(caps ...Capability) bool {
	for _, c := range caps {
		if ps.Has(c) {
			return true
		}
	}
	return false
}

// Names returns the capability names in stable order, for audit records.
func (ps PermissionSet) Names() []string {
	out := make([]string, 0, len(ps))
	for c := range ps {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// Operation is one of the survey actions subject to authorization.
type Operation string

const (
	OperationCreate    Operation = "create"
	OperationRead      Operation = "read"
	OperationUpdate    Operation = "update"
	OperationDelete    Operation = "delete"
	OperationPublish   Operation = "publish"
	OperationUnpublish Operation = "unpublish"
)

// ParseOperation maps a wire name to an Operation.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(s) {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete,
		OperationPublish, OperationUnpublish:
		return Operation(s), true
	}
	return "", false
}

// requiredCapabilities is the compiled-in security policy: an operation is
// allowed when the permission set contains any listed capability.
var requiredCapabilities = map[Operation][]Capability{
	OperationCreate:    {CapabilityCreator},
	OperationRead:      {CapabilityCreator, CapabilityReader, CapabilityContributor, CapabilityOwner},
	OperationUpdate:    {CapabilityContributor, CapabilityOwner},
	OperationDelete:    {CapabilityOwner},
	OperationPublish:   {CapabilityOwner},
	OperationUnpublish: {CapabilityOwner},
}

// Verdict is the binary outcome of an authorization check.
type Verdict int

const (
	Deny Verdict = iota
	Allow
)

func (v Verdict) String() string {
	if v == Allow {
		return "allow"
	}
	return "deny"
}

// PermissionsFor accumulates the capabilities the identity holds on the
// survey. An unresolved identity accumulates nothing. The admin role inside
// the resource tenant is represented as the single admin capability.
func PermissionsFor(id identity.Identity, sv survey.Survey) PermissionSet {
	ps := make(PermissionSet)
	if !id.Resolved() {
		return ps
	}
	if sv.TenantID == id.TenantID {
		if id.HasRole(identity.RoleAdmin) {
			ps.add(CapabilityAdmin)
			return ps
		}
		if id.HasRole(identity.RoleCreator) {
			ps.add(CapabilityCreator)
		} else {
			ps.add(CapabilityReader)
		}
		if sv.OwnerID == id.SubjectID {
			ps.add(CapabilityOwner)
		}
	}
	// Contribution rights are granted across tenant boundaries.
	if sv.HasContributor(id.SubjectID) {
		ps.add(CapabilityContributor)
	}
	return ps
}

// Evaluate decides whether the identity may perform the operation on the
// survey. Deterministic and side-effect free; malformed identities deny.
func Evaluate(id identity.Identity, sv survey.Survey, op Operation) Verdict {
	ps := PermissionsFor(id, sv)
	return verdictFor(ps, op)
}

func verdictFor(ps PermissionSet, op Operation) Verdict {
	if ps.Has(CapabilityAdmin) {
		return Allow
	}
	required, ok := requiredCapabilities[op]
	if !ok {
		return Deny
	}
	if ps.HasAny(required...) {
		return Allow
	}
	return Deny
}
