// Package auth turns bearer JWTs into identities. The client reads claims
// without verifying them (it only needs the owner id for persistence and a
// hint about roles); the gateway verifies signatures before trusting any
// role.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleDeveloper entitles a user to developer mode.
const RoleDeveloper = "developer"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("token verification is not configured")
)

// Identity is the authenticated caller. The zero value is anonymous.
type Identity struct {
	UserID string
	Email  string
	Roles  []string
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// HasRole reports whether the identity carries role.
func (id Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// Claims is the token payload understood by jz.
type Claims struct {
	UserID string   `json:"user_id,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() Identity {
	uid := c.UserID
	if uid == "" {
		uid = c.Subject
	}
	return Identity{UserID: uid, Email: c.Email, Roles: c.Roles}
}

// Inspect extracts the identity from a token without checking its
// signature. An empty token is the anonymous identity.
func Inspect(token string) (Identity, error) {
	if token == "" {
		return Identity{}, nil
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := claims.identity()
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return id, nil
}

// Verifier checks HS256 tokens issued with a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a verifier for secret. An empty secret makes every
// verification fail with ErrNoSecret, so privileged requests are refused.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify validates the signature and expiry of token.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return Identity{}, ErrNoSecret
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err == nil && !parsed.Valid {
		err = errors.New("token is not valid")
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := claims.identity()
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return id, nil
}

// Issue signs a token for id valid for ttl.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	now := v.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Roles:  id.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// IsMalformed reports whether err came from a bearer that is not a JWT at
// all, such as a project anon key.
func IsMalformed(err error) bool {
	return errors.Is(err, jwt.ErrTokenMalformed)
}
