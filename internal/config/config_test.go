package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected HTTP.Addr default: %q", cfg.HTTP.Addr)
	}
	if cfg.Database.Driver != "mysql" {
		t.Fatalf("unexpected Database.Driver default: %q", cfg.Database.Driver)
	}
	if cfg.Kafka.SendTopic != "wctp.send" || cfg.Kafka.StatusTopic != "wctp.status" {
		t.Fatalf("unexpected topics: %q %q", cfg.Kafka.SendTopic, cfg.Kafka.StatusTopic)
	}
	if cfg.Dispatcher.MaxAttempts != 3 {
		t.Fatalf("unexpected MaxAttempts default: %d", cfg.Dispatcher.MaxAttempts)
	}
	if cfg.Carriers.ThinQ.TimeoutMs != 10000 {
		t.Fatalf("unexpected ThinQ timeout default: %d", cfg.Carriers.ThinQ.TimeoutMs)
	}
	if cfg.Reconcile.SweepInterval != time.Minute {
		t.Fatalf("unexpected SweepInterval default: %v", cfg.Reconcile.SweepInterval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SMSGW_DATABASE_DSN", "user:pass@tcp(db:3306)/x")
	t.Setenv("SMSGW_VAULT_APP_KEY", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.DSN != "user:pass@tcp(db:3306)/x" {
		t.Fatalf("expected env DSN, got %q", cfg.Database.DSN)
	}
	if cfg.Vault.AppKey != "secret" {
		t.Fatalf("expected env app key, got %q", cfg.Vault.AppKey)
	}
}

func TestLoad_FileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("http:\n  addr: \":9090\"\nreconcile:\n  batch_size: 7\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("expected merged addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Reconcile.BatchSize != 7 {
		t.Fatalf("expected merged batch size, got %d", cfg.Reconcile.BatchSize)
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("expected default redis addr kept, got %q", cfg.Redis.Addr)
	}
}
