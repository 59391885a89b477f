package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the engine process.
// LoadConfig reads it from YAML, then environment variables override the
// deployment-sensitive fields.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		// DefaultMarket is created when no snapshot exists at startup.
		DefaultMarket string `yaml:"default_market"`
		InboxSize     int    `yaml:"inbox_size"`
	} `yaml:"engine"`

	Snapshot struct {
		IntervalSec int `yaml:"interval_sec"`
		// Store selects the backend: "file" or "sqlite".
		Store string `yaml:"store"`
		Keep  int    `yaml:"keep"`
	} `yaml:"snapshot"`

	Transport struct {
		RedisAddr string `yaml:"redis_addr"`
		Queue     string `yaml:"queue"`
	} `yaml:"transport"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and validates the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a config usable without any file, for the demo binary.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Engine.DefaultMarket == "" {
		c.Engine.DefaultMarket = "BTC-USD"
	}
	if c.Engine.InboxSize <= 0 {
		c.Engine.InboxSize = 1024
	}
	if c.Snapshot.IntervalSec <= 0 {
		c.Snapshot.IntervalSec = 5
	}
	if c.Snapshot.Store == "" {
		c.Snapshot.Store = "file"
	}
	if c.Snapshot.Keep <= 0 {
		c.Snapshot.Keep = 3
	}
	if c.Transport.RedisAddr == "" {
		c.Transport.RedisAddr = "localhost:6379"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Snapshot.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown snapshot store %q", c.Snapshot.Store)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// overrideWithEnv lets deploy-time settings win over the config file.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("EXCHANGE_REDIS_ADDR"); addr != "" {
		cfg.Transport.RedisAddr = addr
	}
	if queue := os.Getenv("EXCHANGE_QUEUE"); queue != "" {
		cfg.Transport.Queue = queue
	}
	if market := os.Getenv("EXCHANGE_DEFAULT_MARKET"); market != "" {
		cfg.Engine.DefaultMarket = market
	}
	if level := os.Getenv("EXCHANGE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
