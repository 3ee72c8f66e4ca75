package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("s3cret")
	token, err := v.Issue(Identity{UserID: "u1", Roles: []string{RoleDeveloper}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.UserID != "u1" {
		t.Errorf("expected user u1, got %q", id.UserID)
	}
	if !id.HasRole(RoleDeveloper) {
		t.Error("expected developer role")
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	token, _ := NewVerifier("one").Issue(Identity{UserID: "u1"}, time.Hour)

	_, err := NewVerifier("two").Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifier_Expired(t *testing.T) {
	v := NewVerifier("s3cret")
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _ := v.Issue(Identity{UserID: "u1"}, time.Hour)

	v.now = time.Now
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifier_NoSecret(t *testing.T) {
	if _, err := NewVerifier("").Verify("a.b.c"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestVerifier_MissingToken(t *testing.T) {
	if _, err := NewVerifier("x").Verify(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestInspect_Anonymous(t *testing.T) {
	id, err := Inspect("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Authenticated() {
		t.Error("empty token must be anonymous")
	}
}

func TestInspect_ReadsClaimsWithoutSecret(t *testing.T) {
	token, _ := NewVerifier("server-only").Issue(Identity{UserID: "u9", Email: "a@b.c"}, time.Hour)

	id, err := Inspect(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != "u9" || id.Email != "a@b.c" {
		t.Errorf("unexpected identity: %+v", id)
	}
	if id.HasRole(RoleDeveloper) {
		t.Error("no roles were issued")
	}
}

func TestInspect_Garbage(t *testing.T) {
	if _, err := Inspect("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifier_MalformedIsDistinguished(t *testing.T) {
	v := NewVerifier("secret")

	_, err := v.Verify("anon-key-123")
	if !IsMalformed(err) {
		t.Errorf("expected malformed token error, got %v", err)
	}

	other := NewVerifier("other")
	token, _ := other.Issue(Identity{UserID: "u"}, time.Hour)
	_, err = v.Verify(token)
	if IsMalformed(err) {
		t.Error("a well-formed token with a bad signature is not malformed")
	}
}
