package service

import (
	"errors"
	"testing"
	"time"

	"dealfeed/internal/config"

	"golang.org/x/crypto/bcrypt"
)

func testAuthConfig(t *testing.T) config.AdminConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return config.AdminConfig{
		Username:     "admin",
		PasswordHash: string(hash),
		JWTSecret:    "test-secret",
		TokenExpiry:  time.Minute,
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	auth := NewAuthService(testAuthConfig(t))

	token, err := auth.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("unexpected username in claims: %q", claims.Username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := NewAuthService(testAuthConfig(t))

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "guess"},
		{"wrong username", "root", "s3cret"},
		{"both wrong", "root", "guess"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.Login(tt.username, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateTokenRejectsForgeries(t *testing.T) {
	auth := NewAuthService(testAuthConfig(t))

	otherCfg := testAuthConfig(t)
	otherCfg.JWTSecret = "different-secret"
	other := NewAuthService(otherCfg)

	foreign, err := other.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.ValidateToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig(t)
	cfg.TokenExpiry = -time.Minute
	auth := NewAuthService(cfg)

	token, err := auth.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := auth.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}
