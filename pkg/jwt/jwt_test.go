package jwt

import (
	"testing"
	"time"
)

const testSecret = "sync-server-test-secret-32-chars"

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		expiration time.Duration
	}{
		{"access token", "usr-7f3a", 15 * time.Minute},
		{"short lived token", "usr-11b0", 1 * time.Second},
		{"day long token", "usr-migration", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.expiration, testSecret)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			if len(token) < 100 {
				t.Errorf("GenerateToken() token suspiciously short, len = %d", len(token))
			}

			claims, err := ValidateToken(token, testSecret)
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if claims.UserID != tt.userID {
				t.Errorf("userID = %q, want %q", claims.UserID, tt.userID)
			}
			if claims.Type != "" {
				t.Errorf("access token type = %q, want empty", claims.Type)
			}
		})
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	token, err := GenerateRefreshToken("usr-7f3a", 7*24*time.Hour, testSecret)
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	claims, err := ValidateToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Type != "refresh" {
		t.Errorf("refresh token type = %q, want refresh", claims.Type)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	valid, _ := GenerateToken("usr-7f3a", time.Hour, testSecret)
	expired, _ := GenerateToken("usr-7f3a", -time.Hour, testSecret)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"expired token", expired, testSecret},
		{"wrong secret", valid, "some-other-secret"},
		{"malformed token", "not.a.jwt", testSecret},
		{"empty token", "", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token, tt.secret); err == nil {
				t.Error("ValidateToken() expected error but got none")
			}
		})
	}
}

func TestTokenExpiresOverTime(t *testing.T) {
	token, err := GenerateToken("usr-7f3a", 1*time.Second, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := ValidateToken(token, testSecret); err != nil {
		t.Fatalf("ValidateToken() immediately after issue: %v", err)
	}

	time.Sleep(2 * time.Second)

	if _, err := ValidateToken(token, testSecret); err == nil {
		t.Error("ValidateToken() accepted a token past its expiry")
	}
}

func TestClaimsCarryTimestamps(t *testing.T) {
	expiration := 1 * time.Hour

	before := time.Now().Add(-1 * time.Second)
	token, err := GenerateToken("usr-7f3a", expiration, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	after := time.Now().Add(1 * time.Second)

	claims, err := ValidateToken(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	issuedAt := claims.IssuedAt.Time
	if issuedAt.Before(before) || issuedAt.After(after) {
		t.Errorf("IssuedAt = %v, want within [%v, %v]", issuedAt, before, after)
	}

	expiresAt := claims.ExpiresAt.Time
	if expiresAt.Before(before.Add(expiration)) || expiresAt.After(after.Add(expiration)) {
		t.Errorf("ExpiresAt = %v, want issue time + %v", expiresAt, expiration)
	}
}

func BenchmarkValidateToken(b *testing.B) {
	token, _ := GenerateToken("usr-7f3a", 15*time.Minute, testSecret)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ValidateToken(token, testSecret); err != nil {
			b.Fatalf("ValidateToken() error = %v", err)
		}
	}
}
