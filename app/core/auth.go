package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrMissingEmail = errors.New("identity token has no email")
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSessionToken returns a random token in the 36 character uuid form
// the session table and the Bearer header use.
func NewSessionToken() string {
	return uuid.New().String()
}

type IdentityClaims struct {
	Subject string
	Email   string
	Name    string
}

// IdentityVerifier checks identity tokens issued by the sign-in provider.
type IdentityVerifier struct {
	secretKey []byte
	issuer    string
}

func NewIdentityVerifier(secretKey, issuer string) *IdentityVerifier {
	return &IdentityVerifier{secretKey: []byte(secretKey), issuer: issuer}
}

func (v *IdentityVerifier) Verify(tokenString string) (*IdentityClaims, error) {
	if len(v.secretKey) == 0 {
		return nil, fmt.Errorf("%w: no verification key configured", ErrInvalidToken)
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	identity := &IdentityClaims{}
	identity.Subject, _ = claims["sub"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.Name, _ = claims["name"].(string)

	if strings.TrimSpace(identity.Email) == "" {
		return nil, ErrMissingEmail
	}
	return identity, nil
}
