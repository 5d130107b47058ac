package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/larder/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "larder-test",
	})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.Issue("kitchen-tablet", []string{ScopeWrite}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kitchen-tablet", claims.Subject)
	assert.Equal(t, "larder-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasScope(ScopeWrite))
	assert.True(t, claims.HasScope(ScopeRead))
}

func TestJWTService_ValidateAccessToken_Rejects(t *testing.T) {
	svc := newTestJWTService()

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				tok, err := svc.Issue("someone", nil, -time.Minute)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				other := NewJWTService(config.JWTConfig{Secret: "another-secret-of-sufficient-size", Issuer: "larder-test"})
				tok, err := other.Issue("someone", nil, time.Hour)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere"})
				tok, err := other.Issue("someone", nil, time.Hour)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrInvalidIssuer,
		},
		{
			name: "missing subject",
			token: func(t *testing.T) string {
				claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
					Issuer:    "larder-test",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				}}
				tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrMissingSubject,
		},
		{
			name:    "garbage",
			token:   func(t *testing.T) string { return "not.a.token" },
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTService_Issue_RequiresSubject(t *testing.T) {
	_, err := newTestJWTService().Issue("", nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestClaims_HasScope(t *testing.T) {
	readOnly := &Claims{Scopes: []string{ScopeRead}}
	assert.True(t, readOnly.HasScope(ScopeRead))
	assert.False(t, readOnly.HasScope(ScopeWrite))

	none := &Claims{}
	assert.False(t, none.HasScope(ScopeRead))
}

func TestJWTService_Enabled(t *testing.T) {
	assert.True(t, newTestJWTService().Enabled())
	assert.False(t, NewJWTService(config.JWTConfig{}).Enabled())
}
