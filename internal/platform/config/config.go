package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// Zone data for GYM_TIMEZONE on hosts without a system database.
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// DefaultTimezone is the gym's zone when GYM_TIMEZONE is unset.
const DefaultTimezone = "Europe/Paris"

// Config is the process configuration, read from the environment.
type Config struct {
	Port string

	StorageBackend string // memory|postgres
	DatabaseURL    string
	RunMigrations  bool

	Auth AuthConfig

	BlobBackend   string // memory|filesystem
	BlobDir       string
	PublicBaseURL string

	URLCache    string // memory|redis
	URLCacheTTL time.Duration
	Redis       RedisConfig

	Mail MailConfig

	FrontendBaseURL string
	InvitationTTL   time.Duration
	IdempotencyTTL  time.Duration

	// Location is the gym's time zone (GYM_TIMEZONE). Attendance days, hours
	// and "today" are read in it.
	Location *time.Location

	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	Backend        string // log|sendgrid
	SendgridAPIKey string
	From           string
	FromName       string
}

// LoadDotEnv loads .env (or the given files) into the environment without
// overriding variables that are already set. A missing default .env is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
	}
	return godotenv.Load(files...)
}

// Load reads the configuration from the environment with defaults for local development.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		StorageBackend:  strings.ToLower(getenv("STORAGE_BACKEND", "memory")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		BlobBackend:     strings.ToLower(getenv("BLOB_BACKEND", "memory")),
		BlobDir:         getenv("BLOB_DIR", "./data/storage"),
		URLCache:        strings.ToLower(getenv("URL_CACHE", "memory")),
		FrontendBaseURL: strings.TrimRight(getenv("FRONTEND_BASE_URL", "http://localhost:5173"), "/"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Mail: MailConfig{
			Backend:        strings.ToLower(getenv("MAIL_BACKEND", "log")),
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			From:           getenv("MAIL_FROM", "noreply@bodyforce.local"),
			FromName:       getenv("MAIL_FROM_NAME", "BodyForce"),
		},
	}
	cfg.PublicBaseURL = strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	var err error
	if cfg.RunMigrations, err = getbool("RUN_MIGRATIONS", true); err != nil {
		return Config{}, err
	}
	if cfg.MetricsEnabled, err = getbool("METRICS_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.URLCacheTTL, err = getduration("URL_CACHE_TTL", 0); err != nil {
		return Config{}, err
	}
	if cfg.InvitationTTL, err = getduration("INVITATION_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getduration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	tz := getenv("GYM_TIMEZONE", DefaultTimezone)
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("GYM_TIMEZONE must be an IANA zone name, got %q: %w", tz, err)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.Redis.DB = n
	}
	if cfg.Auth, err = LoadAuthConfigFromEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", c.StorageBackend)
	}
	switch c.BlobBackend {
	case "memory", "filesystem":
	default:
		return fmt.Errorf("BLOB_BACKEND must be memory or filesystem, got %q", c.BlobBackend)
	}
	switch c.URLCache {
	case "memory", "redis":
	default:
		return fmt.Errorf("URL_CACHE must be memory or redis, got %q", c.URLCache)
	}
	switch c.Mail.Backend {
	case "log":
	case "sendgrid":
		if c.Mail.SendgridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_BACKEND=sendgrid")
		}
	default:
		return fmt.Errorf("MAIL_BACKEND must be log or sendgrid, got %q", c.Mail.Backend)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", k, err)
	}
	return b, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 168h): %w", k, err)
	}
	return d, nil
}
