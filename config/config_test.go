package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Redis.Addr != "localhost:6379" || cfg.Log.Level != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Redis.Prefix != ratelimiter.DefaultPrefix {
		t.Errorf("expected prefix %q, got %q", ratelimiter.DefaultPrefix, cfg.Redis.Prefix)
	}
	if cfg.Redis.Timeout() != 100*time.Millisecond {
		t.Errorf("expected 100ms timeout, got %v", cfg.Redis.Timeout())
	}

	rules, err := cfg.Rules("default")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 3 || rules[2].Window() != 24*time.Hour {
		t.Errorf("unexpected default policy: %v", rules)
	}
}

func TestLoad(t *testing.T) {
	const doc = `
server:
  addr: ":9090"
  fail_open: true
redis:
  addr: redis:6379
  db: 2
  prefix: "app:"
  timeout_ms: 250
log:
  level: debug
policies:
  orders: ["10/10s", "600/1h", "10000/1d"]
  uploads: ["5/1m*2"]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Server.FailOpen || cfg.Redis.DB != 2 || cfg.Redis.Prefix != "app:" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Redis.Timeout() != 250*time.Millisecond {
		t.Errorf("expected 250ms timeout, got %v", cfg.Redis.Timeout())
	}
	if names := cfg.PolicyNames(); len(names) != 2 || names[0] != "orders" {
		t.Errorf("unexpected policy names %v", names)
	}

	uploads, err := cfg.Rules("uploads")
	if err != nil {
		t.Fatal(err)
	}
	if uploads[0].Cost() != 2 {
		t.Errorf("expected cost 2, got %d", uploads[0].Cost())
	}

	if _, err := cfg.Rules("missing"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}

func TestParse_InvalidPolicy(t *testing.T) {
	tests := map[string]string{
		"bad rule":   "policies:\n  p: [\"0/10s\"]\n",
		"empty list": "policies:\n  p: []\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); !errors.Is(err, ratelimiter.ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
