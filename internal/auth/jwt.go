package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the signed admin token.
const CookieName = "admin_token"

// TokenTTL is how long an issued admin token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Token-related errors
var (
	ErrInvalidToken = errors.New("invalid admin token")
	ErrNotAdmin     = errors.New("token does not carry the admin role")
)

// AdminClaims extends the standard JWT claims with the role the token grants.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Signer issues and verifies admin tokens with a shared HMAC secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the configured auth secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// IssueAdminToken signs a token granting the admin role for TokenTTL.
func (s *Signer) IssueAdminToken() (string, error) {
	now := time.Now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Role: "admin",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// VerifyAdminToken parses a token and checks that it is validly signed and
// carries the admin role.
func (s *Signer) VerifyAdminToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}
	if claims.Role != "admin" {
		return ErrNotAdmin
	}
	return nil
}
