package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  study_password: secret\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != ":3446" {
		t.Errorf("Server.Addr = %q, want :3446", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 5*time.Minute {
		t.Errorf("WriteTimeout = %v, want 5m", cfg.Server.WriteTimeout)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want localhost:6379", cfg.Redis.Addr)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.QueryTimeout != 5*time.Minute {
		t.Errorf("QueryTimeout = %v, want 5m", cfg.QueryTimeout)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  read_timeout: 10s
database:
  type: postgres
  host: db.internal
  port: 5432
redis:
  addr: redis.internal:6380
  db: 2
auth:
  study_password: secret
  token_ttl: 1h
query_timeout: 90s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("server = %+v, want :8080/10s", cfg.Server)
	}
	if cfg.Database.Type != "postgres" || cfg.Database.Host != "db.internal" || cfg.Database.Port != 5432 {
		t.Errorf("database = %+v, want postgres@db.internal:5432", cfg.Database)
	}
	if cfg.Redis.Addr != "redis.internal:6380" || cfg.Redis.DB != 2 {
		t.Errorf("redis = %+v, want redis.internal:6380 db 2", cfg.Redis)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.QueryTimeout != 90*time.Second {
		t.Errorf("QueryTimeout = %v, want 90s", cfg.QueryTimeout)
	}
}

func TestLoadConfig_PasswordFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":3446\"\n")
	t.Setenv("GATEWAY_STUDY_PASSWORD", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Auth.StudyPassword != "from-env" {
		t.Errorf("StudyPassword = %q, want from-env", cfg.Auth.StudyPassword)
	}
}

func TestLoadConfig_FilePasswordWins(t *testing.T) {
	path := writeConfig(t, "auth:\n  study_password: from-file\n")
	t.Setenv("GATEWAY_STUDY_PASSWORD", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Auth.StudyPassword != "from-file" {
		t.Errorf("StudyPassword = %q, want from-file", cfg.Auth.StudyPassword)
	}
}

func TestLoadConfig_MissingPassword(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":3446\"\n")
	t.Setenv("GATEWAY_STUDY_PASSWORD", "")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() accepted a config without a study password")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig() succeeded on a missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping\n")

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() accepted malformed yaml")
	}
}
