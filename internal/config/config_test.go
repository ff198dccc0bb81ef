package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CANVAS_API_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":4040" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LMS.AccountID != 1 || cfg.LMS.RetryMax != 3 || cfg.LMS.RetryDelay != time.Second {
		t.Fatalf("unexpected lms defaults: %+v", cfg.LMS)
	}
	want := "postgres://postgres:@localhost:5432/mis_kepler_db?sslmode=disable"
	if got := cfg.DatabaseDSN(); got != want {
		t.Fatalf("DatabaseDSN = %q, want %q", got, want)
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("CANVAS_API_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without CANVAS_API_TOKEN")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
lms:
  base_url: https://lms.example.edu/api/v1
  token: from-file
  retry_delay: 250ms
database:
  host: db.internal
  pool_size: 4
sync_interval: 5m
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("CANVAS_API_TOKEN", "")
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LMS.Token != "from-file" {
		t.Fatalf("token = %q", cfg.LMS.Token)
	}
	if cfg.LMS.RetryDelay != 250*time.Millisecond {
		t.Fatalf("retry delay = %v", cfg.LMS.RetryDelay)
	}
	if cfg.Database.Host != "db.override" || cfg.Database.PoolSize != 4 {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Fatalf("sync interval = %v", cfg.SyncInterval)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("CANVAS_API_TOKEN", "secret")
	t.Setenv("DB_POOL_SIZE", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for DB_POOL_SIZE=many")
	}
}
