package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidloop/internal/joints"
)

const (
	DefaultPeriod   = 10 * time.Millisecond
	DefaultDuration = 10 * time.Second
)

// Config is the on-disk form of a loop configuration.
type Config struct {
	Period   time.Duration `yaml:"period"`
	Duration time.Duration `yaml:"duration,omitempty"`
	Plant    string        `yaml:"plant,omitempty"`
	Channels []Channel     `yaml:"channels"`
	Targets  []Target      `yaml:"targets,omitempty"`
}

// Target is a scheduled command for one channel, used by simulations.
type Target struct {
	Channel int           `yaml:"channel"`
	At      time.Duration `yaml:"at"`
	Domain  joints.Domain `yaml:"domain"`
	Value   float64       `yaml:"value"`
}

func DefaultConfig() *Config {
	return &Config{
		Period:   DefaultPeriod,
		Duration: DefaultDuration,
		Plant:    "motor",
		Channels: []Channel{DefaultChannel()},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Channels = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("settings: period must be positive, got %v", c.Period)
	}
	if err := Validate(c.Channels); err != nil {
		return err
	}
	for i, t := range c.Targets {
		if t.Channel < 0 || t.Channel >= len(c.Channels) {
			return fmt.Errorf("settings: target %d: channel %d out of range", i, t.Channel)
		}
		if !t.Domain.Valid() {
			return fmt.Errorf("settings: target %d: domain %v is not usable", i, t.Domain)
		}
		if t.At < 0 {
			return fmt.Errorf("settings: target %d: negative time %v", i, t.At)
		}
	}
	return nil
}
