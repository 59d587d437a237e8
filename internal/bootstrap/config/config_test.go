package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.DSN != "data/eventos_freestyle.db" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Scraper.Timeout != 10*time.Second {
		t.Fatalf("Scraper.Timeout = %v", cfg.Scraper.Timeout)
	}
	if cfg.Scraper.MinDelay != time.Second || cfg.Scraper.MaxDelay != 3*time.Second {
		t.Fatalf("Scraper delay = %v..%v", cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay)
	}
	if cfg.Export.CSVPath != "data/eventos_freestyle.csv" {
		t.Fatalf("Export.CSVPath = %q", cfg.Export.CSVPath)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  dsn: /tmp/events.db
scraper:
  timeout: 4s
  min_delay: 0s
  max_delay: 0s
  only: [fms, redbull]
http:
  addr: ":8080"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FSE_HTTP_ADDR", ":9090")
	t.Setenv("FSE_NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.DSN != "/tmp/events.db" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Scraper.Timeout != 4*time.Second {
		t.Fatalf("Scraper.Timeout = %v", cfg.Scraper.Timeout)
	}
	if len(cfg.Scraper.Only) != 2 || cfg.Scraper.Only[0] != "fms" || cfg.Scraper.Only[1] != "redbull" {
		t.Fatalf("Scraper.Only = %#v", cfg.Scraper.Only)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("HTTP.Addr = %q, want env override", cfg.HTTP.Addr)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Fatalf("NATS.URL = %q", cfg.NATS.URL)
	}
}

func TestValidateRejectsInvertedDelay(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{DSN: "x.db"},
		Scraper:  ScraperConfig{Timeout: time.Second, MinDelay: 3 * time.Second, MaxDelay: time.Second},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error")
	}

	cfg.Scraper.MaxDelay = 3 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadRequiresContext(t *testing.T) {
	if _, err := Load(nil, ""); err == nil {
		t.Fatalf("Load(nil) expected error")
	}
}

func TestValidateCacheAndKafka(t *testing.T) {
	base := Config{
		Database: DatabaseConfig{DSN: "x.db"},
		Scraper:  ScraperConfig{Timeout: time.Second},
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "sqlite cache", mutate: func(c *Config) { c.Cache.Driver = "sqlite" }},
		{name: "redis without addr", mutate: func(c *Config) { c.Cache.Driver = "redis" }, wantErr: true},
		{name: "redis with addr", mutate: func(c *Config) { c.Cache.Driver = "Redis"; c.Cache.Redis.Addr = "127.0.0.1:6379" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Cache.Driver = "memcached" }, wantErr: true},
		{name: "kafka without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, wantErr: true},
		{name: "kafka with topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"}; c.Kafka.Topic = "runs" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
