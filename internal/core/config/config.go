package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/account"
)

// Config represents the top-level application config plus the resolved
// account list.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Accounts  AccountsConfig  `koanf:"accounts"`
	Graph     GraphConfig     `koanf:"graph"`
	Collector CollectorConfig `koanf:"collector"`

	// AccountList is populated by Load after parsing the accounts file.
	AccountList []account.Record `koanf:"-"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StoreConfig struct {
	Type         string `koanf:"type"` // filesystem | memory | postgres
	Path         string `koanf:"path"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type AccountsConfig struct {
	Path string `koanf:"path"`
}

type GraphConfig struct {
	BaseURL       string `koanf:"base_url"`
	MaxAttempts   int    `koanf:"max_attempts"`
	DebugPayloads bool   `koanf:"debug_payloads"`
}

type CollectorConfig struct {
	Metrics           []string `koanf:"metrics"`
	Period            string   `koanf:"period"`
	Throttle          string   `koanf:"throttle"`
	FollowersInterval string   `koanf:"followers_interval"`
	StoriesInterval   string   `koanf:"stories_interval"`
	DailyInterval     string   `koanf:"daily_interval"`
}

// ThrottleDuration returns the per-account pause. Call after Validate.
func (c CollectorConfig) ThrottleDuration() time.Duration {
	d, _ := time.ParseDuration(c.Throttle)
	return d
}

// IntervalDurations returns the three cadences. Call after Validate; an
// empty string disables the cadence.
func (c CollectorConfig) IntervalDurations() (followers, stories, daily time.Duration) {
	followers, _ = time.ParseDuration(c.FollowersInterval)
	stories, _ = time.ParseDuration(c.StoriesInterval)
	daily, _ = time.ParseDuration(c.DailyInterval)
	return followers, stories, daily
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Store.Type {
	case "filesystem":
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for filesystem store")
		}
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for postgres store")
		}
		if c.Store.MaxOpenConns <= 0 {
			return fmt.Errorf("store.max_open_conns must be > 0")
		}
		if c.Store.MaxIdleConns <= 0 {
			return fmt.Errorf("store.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported store.type %q", c.Store.Type)
	}

	if strings.TrimSpace(c.Accounts.Path) == "" {
		return fmt.Errorf("accounts.path is required")
	}
	if _, err := os.Stat(c.Accounts.Path); err != nil {
		return fmt.Errorf("accounts.path %q is not accessible: %w", c.Accounts.Path, err)
	}

	if c.Graph.MaxAttempts <= 0 {
		return fmt.Errorf("graph.max_attempts must be > 0")
	}

	if len(c.Collector.Metrics) == 0 {
		return fmt.Errorf("collector.metrics must not be empty")
	}
	for name, raw := range map[string]string{
		"collector.throttle":           c.Collector.Throttle,
		"collector.followers_interval": c.Collector.FollowersInterval,
		"collector.stories_interval":   c.Collector.StoriesInterval,
		"collector.daily_interval":     c.Collector.DailyInterval,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}

	return nil
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                  8080,
		"server.host":                  "0.0.0.0",
		"server.mode":                  "release",
		"store.type":                   "filesystem",
		"store.path":                   "./data",
		"store.dsn":                    "",
		"store.max_open_conns":         25,
		"store.max_idle_conns":         25,
		"store.auto_migrate":           true,
		"accounts.path":                "./accounts.json",
		"graph.base_url":               "",
		"graph.max_attempts":           3,
		"graph.debug_payloads":         false,
		"collector.metrics":            []string{"followers_count", "reach", "impressions", "profile_views"},
		"collector.period":             "day",
		"collector.throttle":           "2s",
		"collector.followers_interval": "6h",
		"collector.stories_interval":   "1h",
		"collector.daily_interval":     "24h",
	}
}

// Default returns the built-in configuration with no file, env or account
// list applied. Single-account CLI invocations use it when no config file is
// present.
func Default() *Config {
	k := koanf.New(".")
	for key, value := range defaults() {
		k.Set(key, value)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Sprintf("unmarshal built-in defaults: %v", err))
	}
	return &cfg
}

// Load parses config from file + env, validates it, then loads the account
// list. Malformed account entries are logged by the caller via the returned
// warnings; the remaining accounts still work.
func Load(configPath string) (*Config, []error, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("INSTATRACK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "INSTATRACK_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	records, warnings := account.Load(cfg.Accounts.Path)
	if len(records) == 0 {
		return nil, warnings, fmt.Errorf("no usable accounts in %q", cfg.Accounts.Path)
	}
	cfg.AccountList = records

	return &cfg, warnings, nil
}
