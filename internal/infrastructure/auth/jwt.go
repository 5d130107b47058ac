package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/larder/backend/internal/infrastructure/config"
)

// Scopes granted to API callers
const (
	ScopeRead  = "inventory:read"
	ScopeWrite = "inventory:write"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrInvalidIssuer    = errors.New("unexpected token issuer")
)

// Claims are the bearer token claims accepted by the API
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope checks if the claims grant scope. ScopeWrite implies ScopeRead.
func (c *Claims) HasScope(scope string) bool {
	if slices.Contains(c.Scopes, scope) {
		return true
	}
	return scope == ScopeRead && slices.Contains(c.Scopes, ScopeWrite)
}

// JWTService signs and validates HS256 bearer tokens
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWTService
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Enabled reports whether a secret is configured
func (s *JWTService) Enabled() bool {
	return len(s.secret) > 0
}

// Issue signs a token for subject. Used by operators and tests; the API
// itself never hands out tokens.
func (s *JWTService) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates a token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidIssuer
	}
	return claims, nil
}
