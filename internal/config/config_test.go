package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":3001" || cfg.HistoryKey != "transfer:history" || cfg.MaxHistory != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CatchUpInterval != time.Second {
		t.Fatalf("catchup interval = %v", cfg.CatchUpInterval)
	}
	if cfg.Contract != DefaultContract || cfg.Topic0 != DefaultTopic0 {
		t.Fatalf("unexpected chain defaults: %+v", cfg)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/objekt")
	t.Setenv("OBJEKT_MAX_HISTORY", "20")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":3001", "")
	if err := flags.Parse([]string{"--listen", ":9000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://u:p@localhost/objekt" {
		t.Fatalf("database url = %q", cfg.DatabaseURL)
	}
	if cfg.MaxHistory != 20 {
		t.Fatalf("max history = %d", cfg.MaxHistory)
	}
	if cfg.Listen != ":9000" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "objekt.yaml")
	data := []byte("redis-url: redis://cache:6379/1\nstream-topic: objekt:transfers\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisURL != "redis://cache:6379/1" || cfg.StreamTopic != "objekt:transfers" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEmptyRedisURLFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OBJEKT_REDIS_URL", "")
	os.Unsetenv("OBJEKT_REDIS_URL")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("redis url = %q, want empty", cfg.RedisURL)
	}

	t.Setenv("REDIS_URL", "redis://cache:6379")
	cfg, err = Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisURL != "redis://cache:6379" {
		t.Fatalf("redis url = %q", cfg.RedisURL)
	}
}

func TestValidateRequiresDatabase(t *testing.T) {
	cfg := Config{RPCURL: "http://rpc", MetadataURL: "http://meta", BatchSize: 1, MaxHistory: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without database url")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
