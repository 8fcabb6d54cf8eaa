// Package jwtauth issues and validates the access tokens that protect the
// operator diagnostics endpoints.
package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hookbridge/internal/faults"
)

const (
	issuer   = "hookbridge"
	audience = "hookbridge-diagnostics"
)

// Claims are the JWT claims carried by diagnostics access tokens.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation with a shared HMAC key.
type Service struct {
	signingKey []byte
}

func NewService(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey)}
}

// GenerateToken issues a token for the named operator.
func (s *Service) GenerateToken(operator string, expiresIn time.Duration) (string, error) {
	if len(s.signingKey) == 0 {
		return "", faults.New(faults.CategoryConfig, "no JWT signing key configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			Audience:  []string{audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token string.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, faults.New(faults.CategoryAuth, "token has expired")
		}
		return nil, faults.New(faults.CategoryAuth, "invalid token")
	}
	if !parsed.Valid {
		return nil, faults.New(faults.CategoryAuth, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, faults.New(faults.CategoryAuth, "invalid token claims")
	}
	return claims, nil
}
