// Package token mints and verifies session tokens: HS256 JWTs carrying the
// subject id, issue time, and expiry. Tokens are stateless and are never
// revoked server-side; expiry is the only way a token stops being valid.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken is returned for every verification failure. Callers must
	// not be able to tell a bad signature from an expired or malformed token.
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token: signing secret must not be empty")
)

// Manager signs and verifies tokens with a single HMAC secret. It holds no
// mutable state and is safe for concurrent use.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager. There is no fallback secret: an empty secret
// is a configuration error. A non-positive ttl falls back to DefaultTTL.
func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL reports the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subjectID and returns it with its expiry.
func (m *Manager) Issue(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("token: empty subject")
	}

	now := m.now().UTC()
	issuedAt := now.Truncate(time.Second)
	// exp is whole seconds on the wire; round up so the token never expires
	// before now+ttl.
	expiresAt := now.Add(m.ttl)
	if rounded := expiresAt.Truncate(time.Second); !rounded.Equal(expiresAt) {
		expiresAt = rounded.Add(time.Second)
	}
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of raw and returns its subject id.
// A token is valid while now < exp.
func (m *Manager) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
