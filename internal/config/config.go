// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"git.sr.ht/~jakintosh/rallyauth/internal/logging"
	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"3000"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL is a SQLite path or a postgres:// URL.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:rallyauth.db"`

	JWTPrivateKeyFile string        `env:"JWT_PRIVATE_KEY_FILE,required"`
	JWTPublicKeyFile  string        `env:"JWT_PUBLIC_KEY_FILE,required"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"justrally-auth"`
	JWTAudience       string        `env:"JWT_AUDIENCE" envDefault:"justrally-app"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID,required"`
	FirebaseCertsURL  string `env:"FIREBASE_CERTS_URL" envDefault:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`
	FirebaseCertsDir  string `env:"FIREBASE_CERTS_DIR"`

	APIPrefix         string        `env:"API_PREFIX" envDefault:"/api/v1"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment, then parses it. Missing dotenv files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses configuration from vars alone, ignoring the process
// environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token lifetimes must be positive"))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive"))
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		errs = append(errs, fmt.Errorf("API_PREFIX must start with '/': %q", c.APIPrefix))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") ||
		strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TokenConfig loads the key pair and returns the token server config.
func (c *Config) TokenConfig() (tokens.Config, error) {
	privateKey, err := tokens.LoadPrivateKeyFile(c.JWTPrivateKeyFile)
	if err != nil {
		return tokens.Config{}, err
	}
	publicKey, err := tokens.LoadPublicKeyFile(c.JWTPublicKeyFile)
	if err != nil {
		return tokens.Config{}, err
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return tokens.Config{}, fmt.Errorf("public key does not match private key")
	}
	return tokens.Config{
		SigningKey:      privateKey,
		VerificationKey: publicKey,
		Issuer:          c.JWTIssuer,
		Audience:        c.JWTAudience,
		AccessLifetime:  c.AccessTokenTTL,
		RefreshLifetime: c.RefreshTokenTTL,
	}, nil
}

// LogValue keeps key paths and secrets-adjacent values out of startup logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.String("environment", c.Environment),
		slog.String("log_level", c.LogLevel),
		slog.Bool("postgres", c.UsesPostgres()),
		slog.String("issuer", c.JWTIssuer),
		slog.String("audience", c.JWTAudience),
		slog.String("firebase_project", c.FirebaseProjectID),
		slog.Bool("firebase_certs_dir", c.FirebaseCertsDir != ""),
		slog.String("api_prefix", c.APIPrefix),
	)
}
