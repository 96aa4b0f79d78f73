package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9000"
ranking:
  policy: cumulative
  writeConcurrency: 4
auth:
  jwtSecret: from-file
  adminEmails: [root@example.com]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "")
	t.Setenv("RANKING_POLICY", "")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_EMAILS", "a@example.com, b@example.com,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Ranking.Policy != "cumulative" || cfg.Ranking.WriteConcurrency != 4 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.JWTSecret)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "b@example.com" {
		t.Fatalf("unexpected admin emails %v", cfg.Auth.AdminEmails)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/trivia")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to env: %v", err)
	}
	if cfg.Postgres.URL != "postgres://localhost/trivia" {
		t.Fatalf("unexpected postgres url %q", cfg.Postgres.URL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %v", got)
	}
	if got := TTLDuration("garbage", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %v", got)
	}
	if got := TTLDuration("15s", time.Minute); got != 15*time.Second {
		t.Fatalf("expected 15s, got %v", got)
	}
}
