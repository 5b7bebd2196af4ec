package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides DefaultPath.
const EnvPath = "UNIVERSE_CONFIG"

const DefaultPath = "config/universe.toml"

type Config struct {
	Universe  UniverseConfig  `toml:"universe"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type UniverseConfig struct {
	TickRate           time.Duration `toml:"tick_rate"`
	Layout             string        `toml:"layout"`               // yaml seed layout, empty to start empty
	QueueWarnThreshold int           `toml:"queue_warn_threshold"` // 0 disables the backlog warning
	StatsInterval      time.Duration `toml:"stats_interval"`       // 0 disables periodic stats
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config path from EnvPath, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Universe.TickRate <= 0 {
		return fmt.Errorf("universe.tick_rate must be positive, got %s", c.Universe.TickRate)
	}
	if c.Universe.QueueWarnThreshold < 0 {
		return fmt.Errorf("universe.queue_warn_threshold must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Universe: UniverseConfig{
			TickRate:           200 * time.Millisecond,
			Layout:             "data/yaml/universe.yaml",
			QueueWarnThreshold: 1024,
			StatsInterval:      30 * time.Second,
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
