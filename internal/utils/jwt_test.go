package utils

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateJWT("secret", 42, "driver", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "driver" {
		t.Fatalf("claims %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		t.Fatalf("expires at %v", claims.ExpiresAt)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	token, _ := GenerateJWT("secret", 42, "user", time.Hour)
	if _, err := ValidateToken("other", token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	expired, _ := GenerateJWT("secret", 42, "user", -time.Minute)
	if _, err := ValidateToken("secret", expired); err == nil {
		t.Fatal("expired token must be rejected")
	}

	if _, err := GenerateJWT("", 1, "user", time.Hour); err == nil {
		t.Fatal("empty secret must be rejected")
	}
}

func TestGenerateAdminJWT(t *testing.T) {
	token, err := GenerateAdminJWT("secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Role != "admin" || claims.UserID != 0 {
		t.Fatalf("claims %+v", claims)
	}
}
