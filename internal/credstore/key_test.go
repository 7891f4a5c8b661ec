package credstore

import (
	"errors"
	"testing"
)

func TestKeyCanonicalForm(t *testing.T) {
	key, err := NewKey("42", "client-A")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if got := key.String(); got != "UserId:42::ClientId:client-A" {
		t.Fatalf("unexpected canonical form: %q", got)
	}
}

func TestKeyEquality(t *testing.T) {
	a, err := NewKey("42", "client-A")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	b, err := NewKey("42", "client-A")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if a != b || a.String() != b.String() {
		t.Fatalf("equal inputs must produce equal keys")
	}
}

func TestKeyValidation(t *testing.T) {
	cases := []struct{ subject, client string }{
		{"", "client-A"},
		{"42", ""},
		{"", ""},
		{"   ", "client-A"},
		{"42", "   "},
	}
	for _, c := range cases {
		if _, err := NewKey(c.subject, c.client); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("NewKey(%q, %q): expected ErrInvalidKey, got %v", c.subject, c.client, err)
		}
	}
}

func TestKeyTrimsWhitespace(t *testing.T) {
	key, err := NewKey(" 42 ", " client-A ")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if key.String() != "UserId:42::ClientId:client-A" {
		t.Fatalf("whitespace not normalized: %q", key.String())
	}
}
