// Package config loads limiter settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	ratelimiter "github.com/jassus213/go-bucket-limiter"
)

type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Prefix    string `yaml:"prefix"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type Log struct {
	Level string `yaml:"level"` // "debug","info","warn","error"
}

type Server struct {
	Addr        string `yaml:"addr"`
	MetricsPath string `yaml:"metrics_path"`
	FailOpen    bool   `yaml:"fail_open"`
}

// Root is the whole file. Policies maps a name to rules written as
// "limit/window[*cost]", e.g. ["10/10s", "600/1h", "10000/1d"].
type Root struct {
	Server   Server              `yaml:"server"`
	Redis    Redis               `yaml:"redis"`
	Log      Log                 `yaml:"log"`
	Policies map[string][]string `yaml:"policies"`
}

func (r Redis) Timeout() time.Duration {
	if r.TimeoutMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Rules parses the named policy.
func (c *Root) Rules(policy string) ([]ratelimiter.Rule, error) {
	specs, ok := c.Policies[policy]
	if !ok {
		return nil, fmt.Errorf("config: unknown policy %q", policy)
	}
	rules := make([]ratelimiter.Rule, 0, len(specs))
	for _, s := range specs {
		r, err := ratelimiter.ParseRule(s)
		if err != nil {
			return nil, fmt.Errorf("config: policy %q: %w", policy, err)
		}
		rules = append(rules, r)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("config: policy %q: %w: empty rule set", policy, ratelimiter.ErrInvalidRule)
	}
	return rules, nil
}

// PolicyNames returns the configured policy names, sorted.
func (c *Root) PolicyNames() []string {
	names := make([]string, 0, len(c.Policies))
	for name := range c.Policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and checks that every policy parses.
func Parse(b []byte) (*Root, error) {
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = ratelimiter.DefaultPrefix
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.Policies) == 0 {
		cfg.Policies = map[string][]string{
			"default": {"10/10s", "600/1h", "10000/1d"},
		}
	}
	for _, name := range cfg.PolicyNames() {
		if _, err := cfg.Rules(name); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
