package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer            = "opiniq"
	secretEnvVariable = "OPINIQ_AUTH_SECRET"
)

var (
	errMissingSecret = errors.New("identity: auth secret is not configured")

	secretMu sync.Mutex
	secret   cachedSecret
)

type cachedSecret struct {
	value []byte
	err   error
	ready bool
}

// ErrInvalidToken indicates the bearer token failed validation.
var ErrInvalidToken = errors.New("identity: invalid token")

// tokenClaims is the JWT claim layout used by the platform's session tokens.
type tokenClaims struct {
	TenantID string   `json:"tid"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// SignToken signs an HS256 session token for the given identity. Used by the
// dev issuer and tests; production tokens come from the platform gateway.
func SignToken(id Identity, ttl time.Duration) (string, error) {
	if !id.Resolved() {
		return "", ErrUnresolved
	}
	if ttl <= 0 {
		return "", errors.New("identity: ttl must be greater than zero")
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := tokenClaims{
		TenantID: id.TenantID,
		Name:     id.DisplayName,
		Email:    id.Email,
		Roles:    dedupeRoles(id.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", id.SubjectID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secretBytes)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the token signature and returns the contained claims as
// an ordered claim set.
func ParseToken(token string) (*ClaimSet, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	secretBytes, err := loadSecret()
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secretBytes, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	cs := NewClaimSet()
	if claims.Subject != "" {
		cs.Add(ClaimSubject, claims.Subject)
	}
	if claims.TenantID != "" {
		cs.Add(ClaimTenant, claims.TenantID)
	}
	if claims.Name != "" {
		cs.Add(ClaimName, claims.Name)
	}
	if claims.Email != "" {
		cs.Add(ClaimEmail, claims.Email)
	}
	for _, r := range claims.Roles {
		cs.Add(ClaimRole, r)
	}
	return cs, nil
}

func loadSecret() ([]byte, error) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret.ready {
		return secret.value, secret.err
	}
	raw := strings.TrimSpace(os.Getenv(secretEnvVariable))
	if raw == "" {
		secret = cachedSecret{err: errMissingSecret, ready: true}
	} else {
		secret = cachedSecret{value: []byte(raw), ready: true}
	}
	return secret.value, secret.err
}

// ResetSecretCache drops the cached signing secret. Test helper.
func ResetSecretCache() {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = cachedSecret{}
}
