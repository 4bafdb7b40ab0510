// Package token issues and validates signed, time-bound identity tokens.
// Tokens are stateless: they carry the username and role set at issuance and
// are re-checked against the current user record on every use, so a role
// change in storage invalidates outstanding tokens at the next validation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rmoldovan/taskgate/internal/user"
)

// Errors returned by ExtractUsername. All of them mean the caller should be
// treated as anonymous; none of them is ever surfaced to a client directly.
var (
	ErrMalformed = errors.New("token malformed")
	ErrExpired   = errors.New("token expired")
	ErrInvalid   = errors.New("token invalid")
)

// Claims is the payload embedded in an identity token.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service signs and verifies identity tokens with an HMAC secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service with the given signing secret and
// token lifetime.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue produces a signed token for the given username and role set. It is a
// pure function of its inputs, the secret, and the current time.
func (s *Service) Issue(username string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ExtractUsername parses the token, verifies its signature and expiry, and
// returns the embedded username. It never consults storage.
func (s *Service) ExtractUsername(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// IsValid re-verifies the token against a freshly fetched user record. The
// token is valid only if it parses, is unexpired, names the given user, and
// its embedded role set matches the user's current roles. A mismatch is a
// policy outcome, not an error.
func (s *Service) IsValid(tokenString string, u *user.User) bool {
	if u == nil {
		return false
	}
	claims, err := s.parse(tokenString)
	if err != nil {
		return false
	}
	if claims.Username != u.Username {
		return false
	}
	return sameRoleSet(claims.Roles, u.Roles)
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrInvalid
		}
	}
	if claims.Username == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}

// sameRoleSet compares two role sets ignoring order and duplicates.
func sameRoleSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, r := range a {
		set[r] = struct{}{}
	}
	for _, r := range b {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	other := make(map[string]struct{}, len(b))
	for _, r := range b {
		other[r] = struct{}{}
	}
	for _, r := range a {
		if _, ok := other[r]; !ok {
			return false
		}
	}
	return true
}
