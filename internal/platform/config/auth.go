package config

import (
	"fmt"
	"os"
	"time"
)

// AuthConfig configures session token issuance and verification.
type AuthConfig struct {
	// Mode is "jwt" (bearer tokens signed with Secret) or "dev" (X-Debug-Subject header).
	Mode       string
	Secret     []byte
	Issuer     string
	TokenTTL   time.Duration
	ClockSkew  time.Duration
	DevSubject string
	// AllowSignup enables POST /auth/signup. The first account created becomes admin.
	AllowSignup bool
}

func LoadAuthConfigFromEnv() (AuthConfig, error) {
	cfg := AuthConfig{
		Mode:       getenv("AUTH_MODE", "jwt"),
		Issuer:     getenv("AUTH_ISSUER", "bodyforce"),
		TokenTTL:   12 * time.Hour,
		ClockSkew:  30 * time.Second,
		DevSubject: getenv("DEV_SUBJECT", "dev|local"),
	}

	var err error
	if cfg.AllowSignup, err = getbool("ALLOW_SIGNUP", false); err != nil {
		return AuthConfig{}, err
	}
	if cfg.TokenTTL, err = getduration("AUTH_TOKEN_TTL", cfg.TokenTTL); err != nil {
		return AuthConfig{}, err
	}
	if cfg.ClockSkew, err = getduration("AUTH_CLOCK_SKEW", cfg.ClockSkew); err != nil {
		return AuthConfig{}, err
	}

	switch cfg.Mode {
	case "dev":
	case "jwt":
		secret := os.Getenv("AUTH_SECRET")
		if len(secret) < 32 {
			return AuthConfig{}, fmt.Errorf("AUTH_SECRET must be at least 32 bytes when AUTH_MODE=jwt")
		}
		cfg.Secret = []byte(secret)
	default:
		return AuthConfig{}, fmt.Errorf("AUTH_MODE must be jwt or dev, got %q", cfg.Mode)
	}
	return cfg, nil
}
