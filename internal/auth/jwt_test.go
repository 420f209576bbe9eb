package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenServiceShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("Generate() returned malformed JWT: %q", token)
	}

	userID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("Validate() = %q, want %q", userID, "user-123")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() accepted an expired token")
	}
}

func TestValidateTamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatal(err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := ts.Validate(tampered); err == nil {
		t.Error("Validate() accepted a tampered token")
	}
}

func TestValidateTokenFromOtherSecret(t *testing.T) {
	ts := newTestTokenService(t)

	other, err := NewTokenService("a-completely-different-secret")
	if err != nil {
		t.Fatal(err)
	}
	token, err := other.Generate("user-123")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ts.Validate(token); err == nil {
		t.Error("Validate() accepted a token signed with a different secret")
	}
}

func TestValidateGarbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tokenStr := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Validate(tokenStr); err == nil {
			t.Errorf("Validate(%q) accepted garbage", tokenStr)
		}
	}
}
