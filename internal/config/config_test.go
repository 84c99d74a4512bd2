// Package config tests for configuration loading.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load should fail without a JWT secret")
	}
}

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("DOCUVAULT_AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %q, want :8090", cfg.Server.ListenAddr)
	}
	if cfg.Server.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.Server.DataDir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("JWTSecret = %q, want test-secret", cfg.Auth.JWTSecret)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docuvault.yaml")
	content := `
server:
  listen_addr: ":9999"
  data_dir: "/tmp/docuvault-test"
  allowed_origins:
    - "https://app.example.com"
auth:
  jwt_secret: "file-secret"
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.Server.ListenAddr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/no/such/config.yaml"); err == nil {
		t.Error("Load should fail for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{ListenAddr: ":8090", DataDir: "./data"},
		Auth:    AuthConfig{JWTSecret: "s"},
		Logging: LoggingConfig{Level: "info"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed on valid config: %v", err)
	}

	cfg.Server.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject empty listen_addr")
	}
}
