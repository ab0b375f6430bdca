package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"dealfeed/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for any login failure so the
	// response never reveals which part was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned for expired, malformed or forged
	// tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// AdminClaims is the payload of an admin access token.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService issues and validates admin access tokens.
type AuthService interface {
	Login(username, password string) (string, error)
	ValidateToken(tokenString string) (*AdminClaims, error)
}

type authService struct {
	cfg config.AdminConfig
}

func NewAuthService(cfg config.AdminConfig) AuthService {
	return &authService{cfg: cfg}
}

func (s *authService) Login(username, password string) (string, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password))
	if !usernameOK || passwordErr != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := AdminClaims{
		Username: s.cfg.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
