package config

import (
	"errors"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the process configuration, read from an optional YAML file with
// environment overrides on top.
type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"local"`
	DB         `yaml:"db"`
	HTTPServer `yaml:"http_server"`
	Auth       `yaml:"auth"`
	RateLimit  `yaml:"rate_limit"`
}

type DB struct {
	// Empty DSN selects the in-memory backend (demo mode).
	DSN string `yaml:"dsn" env:"DATABASE_URL" env-default:""`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDR" env-default:":8080"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"1048576"`
}

type Auth struct {
	// JWTSecret signs tokens; CipherKey decrypts login payloads and must be
	// 16, 24 or 32 bytes. Neither value is ever logged.
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	CipherKey string        `yaml:"cipher_key" env:"CIPHER_KEY" env-default:"kJsTun7BRMpLDdQX"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"1h"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"50"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"100"`
}

// Load reads the file at path when it exists, then applies environment
// variables. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch len(c.Auth.CipherKey) {
	case 16, 24, 32:
	default:
		return errors.New("auth.cipher_key must be 16, 24 or 32 bytes")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
