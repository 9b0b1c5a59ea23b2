package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: testSecret, TokenTTL: ttl})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(t, time.Hour)
	token, err := svc.Issue("user-1", "a@b.co", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "a@b.co" || id.Role != "user" {
		t.Errorf("identity = %+v", id)
	}
	if id.IsAdmin() {
		t.Error("user role must not be admin")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := newTestService(t, -time.Minute)
	token, err := svc.Issue("user-1", "a@b.co", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = svc.Verify(token)
	if apperrors.CodeOf(err) != apperrors.ErrCodeTokenExpired {
		t.Errorf("expected token expired code, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	svc := newTestService(t, time.Hour)
	token, err := svc.Issue("user-1", "a@b.co", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := svc.Verify(tampered); err == nil {
		t.Error("tampered token must not verify")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)
	other := newTestServiceWithSecret(t, strings.Repeat("x", 32))
	token, _ := svc.Issue("user-1", "a@b.co", "user")
	if _, err := other.Verify(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func newTestServiceWithSecret(t *testing.T, secret string) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: secret})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Error("expected error for missing secret")
	}
	if _, err := NewService(Config{Secret: "short"}); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Verify("correct horse battery", hash); err != nil {
		t.Errorf("verify: %v", err)
	}
	if err := h.Verify("wrong password!", hash); err == nil {
		t.Error("wrong password must not verify")
	}
	if _, err := h.Hash("short"); err == nil {
		t.Error("short password must be rejected")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := FromContext(ctx); ok {
		t.Error("empty context must not carry an identity")
	}
	want := Identity{UserID: "u1", Email: "a@b.co", Role: "admin"}
	ctx = WithIdentity(ctx, want)
	got, ok := FromContext(ctx)
	if !ok || got != want {
		t.Errorf("got %+v ok=%v, want %+v", got, ok, want)
	}
	if !got.IsAdmin() {
		t.Error("admin role must report IsAdmin")
	}
}
