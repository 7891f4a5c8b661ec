package authz

import (
	"context"
	"errors"
	"fmt"

	"opiniq.org/internal/audit"
	"opiniq.org/internal/identity"
	"opiniq.org/internal/obs"
	"opiniq.org/internal/survey"
)

// ErrBackendUnavailable indicates the survey reader failed for a reason other
// than the survey being absent. The accompanying verdict is always Deny.
var ErrBackendUnavailable = errors.New("authz: resource backend unavailable")

// Gate authorizes operations against fetched survey descriptors and records
// one audit event per decision.
type Gate struct {
	surveys  survey.Reader
	recorder audit.Recorder
}

// NewGate wires the gate to its collaborators.
func NewGate(surveys survey.Reader, recorder audit.Recorder) *Gate {
	return &Gate{surveys: surveys, recorder: recorder}
}

// Authorize fetches the survey and evaluates the operation against it. A
// missing survey denies without a distinguishable error, so callers cannot
// probe for resource existence. Reader failures and cancellation deny and
// surface the error. The audit record is emitted best-effort on every
// decided outcome.
func (g *Gate) Authorize(ctx context.Context, id identity.Identity, surveyID string, op Operation) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Deny, fmt.Errorf("authz: canceled: %w", err)
	}

	sv, err := g.surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		if errors.Is(err, survey.ErrNotFound) {
			g.record(ctx, id, op, nil, Deny)
			return Deny, nil
		}
		if ctx.Err() != nil {
			return Deny, fmt.Errorf("authz: canceled: %w", ctx.Err())
		}
		return Deny, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ps := PermissionsFor(id, sv)
	verdict := verdictFor(ps, op)
	g.record(ctx, id, op, ps, verdict)
	return verdict, nil
}

func (g *Gate) record(ctx context.Context, id identity.Identity, op Operation, ps PermissionSet, v Verdict) {
	obs.ObserveAuthzDecision(string(op), v.String())
	if g.recorder == nil {
		return
	}
	g.recorder.Record(ctx, audit.Event{
		Actor:       id.ActorName(),
		Tenant:      id.TenantID,
		Operation:   string(op),
		Permissions: ps.Names(),
		Outcome:     v.String(),
	})
}
