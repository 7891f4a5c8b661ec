package identity

import (
	"context"
	"testing"
)

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Fatalf("empty context must not carry an identity")
	}

	want := Identity{SubjectID: 7, TenantID: "T1", DisplayName: "Ada"}
	ctx = ContextWithIdentity(ctx, want)
	got, ok := FromContext(ctx)
	if !ok || got.SubjectID != 7 || got.TenantID != "T1" {
		t.Fatalf("unexpected identity from context: %+v ok=%v", got, ok)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := TokenFromContext(ctx); ok {
		t.Fatalf("empty context must not carry a token")
	}

	ctx = ContextWithToken(ctx, "raw-token")
	tok, ok := TokenFromContext(ctx)
	if !ok || tok != "raw-token" {
		t.Fatalf("unexpected token: %q ok=%v", tok, ok)
	}

	if c := ContextWithToken(context.Background(), ""); c != context.Background() {
		t.Fatalf("empty token must not allocate a new context")
	}
}
