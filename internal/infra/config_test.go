package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: exchange-go\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Engine.DefaultMarket != "BTC-USD" {
		t.Errorf("default market = %s, want BTC-USD", cfg.Engine.DefaultMarket)
	}
	if cfg.Engine.InboxSize != 1024 {
		t.Errorf("inbox size = %d, want 1024", cfg.Engine.InboxSize)
	}
	if cfg.Snapshot.Store != "file" || cfg.Snapshot.Keep != 3 {
		t.Errorf("snapshot defaults = %s/%d, want file/3", cfg.Snapshot.Store, cfg.Snapshot.Keep)
	}
	if cfg.Transport.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %s, want localhost:6379", cfg.Transport.RedisAddr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoadConfig_FileValuesWin(t *testing.T) {
	path := writeConfig(t, `
engine:
  default_market: ETH-USD
  inbox_size: 64
snapshot:
  store: sqlite
  interval_sec: 30
  keep: 10
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.DefaultMarket != "ETH-USD" || cfg.Engine.InboxSize != 64 {
		t.Errorf("engine = %s/%d, want ETH-USD/64", cfg.Engine.DefaultMarket, cfg.Engine.InboxSize)
	}
	if cfg.Snapshot.Store != "sqlite" || cfg.Snapshot.IntervalSec != 30 || cfg.Snapshot.Keep != 10 {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("EXCHANGE_DEFAULT_MARKET", "SOL-USD")
	t.Setenv("EXCHANGE_LOG_LEVEL", "warn")

	path := writeConfig(t, `
engine:
  default_market: BTC-USD
transport:
  redis_addr: localhost:6379
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transport.RedisAddr != "redis.internal:6380" {
		t.Errorf("redis addr = %s, want env override", cfg.Transport.RedisAddr)
	}
	if cfg.Engine.DefaultMarket != "SOL-USD" {
		t.Errorf("market = %s, want env override", cfg.Engine.DefaultMarket)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %s, want env override", cfg.Logging.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad store", "snapshot:\n  store: etcd\n"},
		{"bad log level", "logging:\n  level: verbose\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
