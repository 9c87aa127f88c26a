package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.DatabaseType != "sqlite" {
		t.Errorf("unexpected defaults: port=%s db=%s", cfg.ServerPort, cfg.DatabaseType)
	}
	if cfg.SessionDuration != 24*time.Hour || cfg.DailyPractice != 30*time.Minute {
		t.Errorf("durations: session=%v practice=%v", cfg.SessionDuration, cfg.DailyPractice)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_TYPE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/typing")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("RATE_LIMIT", "3")
	t.Setenv("SIGNUP_CLOSED", "true")
	t.Setenv("CSRF_PREVIOUS_SECRET", "retiring")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.DatabaseType != "postgres" || cfg.DatabaseURL != "postgres://localhost/typing" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SessionDuration != 2*time.Hour || cfg.RateLimit != 3 || !cfg.SignupClosed {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CSRFPreviousSecret != "retiring" {
		t.Errorf("CSRFPreviousSecret = %q", cfg.CSRFPreviousSecret)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("EMAIL_FROM_NAME=Typing Club\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("EMAIL_FROM_NAME") })

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmailFromName != "Typing Club" {
		t.Errorf("EmailFromName = %q", cfg.EmailFromName)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown database", env: map[string]string{"DB_TYPE": "oracle"}},
		{name: "mysql without url", env: map[string]string{"DB_TYPE": "mysql"}},
		{name: "production without secrets", env: map[string]string{"ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
