package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", DefaultTTL, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsEmptySecret(t *testing.T) {
	m, err := NewManager("", time.Hour)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestNewManager_DefaultTTL(t *testing.T) {
	m, err := NewManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestManager_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	signed, exp, err := m.Issue("64b000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(24*time.Hour), exp)

	sub, err := m.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", sub)
}

func TestManager_IssueCarriesRegisteredClaims(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(t, clock)

	signed, _, err := m.Issue("user-1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(signed, claims)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims["sub"])
	assert.EqualValues(t, clock.t.Unix(), claims["iat"])
	assert.EqualValues(t, clock.t.Add(24*time.Hour).Unix(), claims["exp"])
}

func TestManager_IssueRejectsEmptySubject(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: time.Now()})
	_, _, err := m.Issue("")
	assert.Error(t, err)
}

func TestManager_ExpiryWindow(t *testing.T) {
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issued}
	m := newTestManager(t, clock)

	signed, _, err := m.Issue("user-1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		at    time.Time
		valid bool
	}{
		{"at issuance", issued, true},
		{"one hour later", issued.Add(time.Hour), true},
		{"one second before expiry", issued.Add(24*time.Hour - time.Second), true},
		{"exactly at expiry", issued.Add(24 * time.Hour), false},
		{"after expiry", issued.Add(25 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = tt.at
			sub, err := m.Verify(signed)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, "user-1", sub)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, sub)
		})
	}
}

func TestManager_ExpiryWindow_FractionalIssueTime(t *testing.T) {
	issued := time.Date(2026, 5, 1, 0, 0, 0, 900_000_000, time.UTC)
	clock := &fakeClock{t: issued}
	m := newTestManager(t, clock)

	signed, expiresAt, err := m.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 1, 0, time.UTC), expiresAt)

	for _, at := range []time.Time{
		issued,
		issued.Add(24*time.Hour - 500*time.Millisecond),
		issued.Add(24*time.Hour - time.Nanosecond),
	} {
		clock.t = at
		sub, err := m.Verify(signed)
		require.NoError(t, err, "verify at %s", at)
		assert.Equal(t, "user-1", sub)
	}

	clock.t = expiresAt
	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_VerifyFailuresCollapse(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	other, err := NewManager("another-secret", time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue("user-1")
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":           "not-a-token",
		"empty":             "",
		"wrong secret":      foreign,
		"missing exp":       noExp,
		"missing subject":   noSub,
		"other hmac method": hs512,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
