package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsFromEnvOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPServer.Address != ":8080" {
		t.Fatalf("Address = %q", cfg.HTTPServer.Address)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if len(cfg.Auth.CipherKey) != 16 {
		t.Fatalf("CipherKey length = %d", len(cfg.Auth.CipherKey))
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
env: prod
db:
  dsn: postgres://app@db:5432/cyimg
http_server:
  address: ":9090"
auth:
  jwt_secret: file-secret
  cipher_key: 0123456789abcdef
  token_ttl: 2h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "prod" {
		t.Fatalf("Env = %q", cfg.Env)
	}
	if cfg.HTTPServer.Address != ":9090" {
		t.Fatalf("Address = %q", cfg.HTTPServer.Address)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.Auth.TokenTTL)
	}
	if cfg.DB.DSN == "" {
		t.Fatal("DSN not read from file")
	}
}

func TestLoadRejectsBadCipherKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
auth:
  jwt_secret: s
  cipher_key: tooshort
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected cipher key length error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
