package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret")

	token, err := manager.GenerateToken("dashboard", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Client != "dashboard" {
		t.Errorf("client = %s, want dashboard", claims.Client)
	}
	if claims.Issuer != "zapboard" {
		t.Errorf("issuer = %s, want zapboard", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a").GenerateToken("dashboard", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewJWTManager("secret-b").ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret")

	token, err := manager.GenerateToken("dashboard", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expected validation to fail for an expired token")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := NewJWTManager("test-secret").ValidateToken("not-a-token"); err == nil {
		t.Error("expected validation to fail for malformed input")
	}
}
