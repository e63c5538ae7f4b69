package auth

import (
	"testing"
	"time"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("session-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ValidateSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.SessionID != "session-1" {
		t.Errorf("expected session-1, got %q", claims.SessionID)
	}
	if claims.Issuer != "harmonygenie-api" {
		t.Errorf("unexpected issuer %q", claims.Issuer)
	}
}

func TestSessionToken_WrongSecret(t *testing.T) {
	token, err := GenerateSessionToken("session-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := ValidateSessionToken(token, "other"); err == nil {
		t.Fatal("expected validation to fail with the wrong secret")
	}
}

func TestSessionToken_Expired(t *testing.T) {
	token, err := GenerateSessionToken("session-1", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := ValidateSessionToken(token, "secret"); err == nil {
		t.Fatal("expected validation to fail for an expired token")
	}
}

func TestSessionToken_Garbage(t *testing.T) {
	if _, err := ValidateSessionToken("not-a-token", "secret"); err == nil {
		t.Fatal("expected validation to fail for garbage input")
	}
}
