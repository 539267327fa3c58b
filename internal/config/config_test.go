package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todoboard.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pagination.DefaultSize != 10 {
		t.Errorf("expected default page size 10, got %d", cfg.Pagination.DefaultSize)
	}
	if cfg.Flash.Backend != FlashCookie {
		t.Errorf("expected cookie flash backend, got %q", cfg.Flash.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  request_timeout: 3s
database:
  path: /tmp/board.db
log:
  level: debug
  format: json
pagination:
  default_size: 20
  max_size: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Database.Path != "/tmp/board.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Pagination.DefaultSize != 20 || cfg.Pagination.MaxSize != 50 {
		t.Errorf("pagination = %+v", cfg.Pagination)
	}
	// не указанные в файле поля остаются по умолчанию
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 80\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")
	t.Setenv("TODOBOARD_ADDR", ":7070")
	t.Setenv("TODOBOARD_TRACING", "true")
	t.Setenv("DEBUG", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected env addr, got %q", cfg.Server.Addr)
	}
	if !cfg.Tracing.Enabled {
		t.Error("expected tracing enabled from env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
}

func TestApplyEnvInvalidDuration(t *testing.T) {
	cfg := Default()
	env := map[string]string{"TODOBOARD_REQUEST_TIMEOUT": "soon"}
	err := applyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Flash.Backend = FlashRedis },
			wantErr: "flash.redis_url",
		},
		{
			name:    "unknown flash backend",
			mutate:  func(c *Config) { c.Flash.Backend = "memcached" },
			wantErr: "flash.backend",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name:    "max below default",
			mutate:  func(c *Config) { c.Pagination.MaxSize = 5 },
			wantErr: "pagination.max_size",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Server.RequestTimeout = 0 },
			wantErr: "server.request_timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestFlashSecureCookieFromFileAndEnv(t *testing.T) {
	path := writeConfig(t, "flash:\n  secure_cookie: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Flash.SecureCookie {
		t.Error("expected secure_cookie from file")
	}

	t.Setenv("TODOBOARD_FLASH_SECURE", "false")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Flash.SecureCookie {
		t.Error("expected env to switch secure cookie off")
	}

	t.Setenv("TODOBOARD_FLASH_SECURE", "sometimes")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TODOBOARD_FLASH_SECURE")
	}
}
