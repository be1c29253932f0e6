package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SHUTDOWN_SECONDS", "")

	cfg := fromViper(newViper())
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.StoreDriver != "mysql" || cfg.UsesMemoryStore() {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.ShutdownTimeout)
	}
	if cfg.UploadMaxBytes != 10<<20 {
		t.Errorf("UploadMaxBytes = %d", cfg.UploadMaxBytes)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("DB_DSN", "u:p@tcp(db:3306)/chat")
	t.Setenv("S3_PUBLIC_READ", "true")
	t.Setenv("SHUTDOWN_SECONDS", "3")

	cfg := fromViper(newViper())
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if !cfg.UsesMemoryStore() {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.Database.DSN != "u:p@tcp(db:3306)/chat" {
		t.Errorf("DSN = %q", cfg.Database.DSN)
	}
	if !cfg.S3PublicRead {
		t.Error("expected S3PublicRead")
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %s", cfg.ShutdownTimeout)
	}
}

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{"development default", "development", DevJWTSecret, false},
		{"production default", "production", DevJWTSecret, true},
		{"production empty", "production", "  ", true},
		{"production custom", "production", "a-long-random-secret", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{Env: tc.env, JWTSecret: tc.secret}.Validate()
			if tc.wantErr && !errors.Is(err, ErrInsecureJWTSecret) {
				t.Fatalf("expected ErrInsecureJWTSecret, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	cfg := fromViper(newViper())
	if err := cfg.Validate(); !errors.Is(err, ErrInsecureJWTSecret) {
		t.Fatalf("expected ErrInsecureJWTSecret, got %v", err)
	}
}
