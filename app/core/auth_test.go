package core

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret#123")
	require.NoError(t, err)

	assert.True(t, CheckPassword("Secret#123", hash))
	assert.False(t, CheckPassword("secret#123", hash))
	assert.False(t, CheckPassword("Secret#123", ""))
}

func TestNewSessionToken(t *testing.T) {
	a, b := NewSessionToken(), NewSessionToken()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestIdentityVerifier(t *testing.T) {
	secret := []byte("identity-secret")
	verifier := NewIdentityVerifier(string(secret), "https://id.example.org")
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantErr error
		email   string
	}{
		{
			name:  "valid",
			token: signToken(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u1", "email": "Dana@Example.org", "name": "Dana", "iss": "https://id.example.org", "exp": exp}),
			email: "Dana@Example.org",
		},
		{
			name:    "missing email",
			token:   signToken(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u1", "iss": "https://id.example.org", "exp": exp}),
			wantErr: ErrMissingEmail,
		},
		{
			name:    "wrong issuer",
			token:   signToken(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"email": "a@b.org", "iss": "https://other.example.org", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong key",
			token:   signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"email": "a@b.org", "iss": "https://id.example.org", "exp": exp}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired",
			token:   signToken(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"email": "a@b.org", "iss": "https://id.example.org", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, "u1", claims.Subject)
			assert.Equal(t, "Dana", claims.Name)
		})
	}
}

func TestIdentityVerifier_NoKey(t *testing.T) {
	_, err := NewIdentityVerifier("", "").Verify("x.y.z")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleLabAdmin.Satisfies(RoleSampler))
	assert.True(t, RoleLabAdmin.Satisfies(RoleLabAdmin))
	assert.True(t, RoleSampler.Satisfies(RoleSampler))
	assert.False(t, RoleSampler.Satisfies(RoleLabAdmin))
	assert.False(t, Role("").Satisfies(RoleSampler))

	_, ok := ParseRole("manager")
	assert.False(t, ok)
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "dana@example.org", NormalizeEmail("  Dana@Example.ORG "))
	assert.NoError(t, ValidateFormat("dana@example.org"))
	assert.ErrorIs(t, ValidateFormat("dana@"), ErrBadFormat)
	assert.Equal(t, "d***@example.org", MaskEmail("dana@example.org"))
	assert.Equal(t, "", MaskEmail("nobody"))
	assert.Error(t, ValidatePassword("short"))
	assert.NoError(t, ValidatePassword("Secret#123"))
}
