package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bodyforce/admin-api/internal/platform/config"
)

var ErrUnauthorized = errors.New("unauthorized")

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Claims is the session token payload. Subject is the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts about the caller.
type Identity struct {
	Subject string
	Role    string
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	cfg   config.AuthConfig
	clock Clock
}

func New(cfg config.AuthConfig) *Manager {
	return NewWithClock(cfg, nil)
}

func NewWithClock(cfg config.AuthConfig, clock Clock) *Manager {
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{cfg: cfg, clock: clock}
}

// Issue mints a token for subject valid for the configured TTL. It returns the
// signed token and its expiry.
func (m *Manager) Issue(subject, role string) (string, time.Time, error) {
	if len(m.cfg.Secret) == 0 {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	now := m.clock.Now().UTC()
	exp := now.Add(m.cfg.TokenTTL)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and validity window, and returns the identity.
func (m *Manager) Verify(ctx context.Context, raw string) (Identity, error) {
	_ = ctx
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return m.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}
	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}
