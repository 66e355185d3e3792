// Package config loads module configuration from YAML with sensible
// defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Vib-UX/dca-bitcoin/relay"
)

// Duration parses YAML strings like "30s" or "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LND configures the optional production invoice backend.
type LND struct {
	Host         string `yaml:"host"`
	TLSCertPath  string `yaml:"tls_cert_path"`
	MacaroonPath string `yaml:"macaroon_path"`
	Network      string `yaml:"network"`
}

// Config is the module configuration.
type Config struct {
	Relays              []string `yaml:"relays"`
	ConnectPollInterval Duration `yaml:"connect_poll_interval"`
	ConnectPollBudget   int      `yaml:"connect_poll_budget"`
	PublishTimeout      Duration `yaml:"publish_timeout"`
	PaymentTimeout      Duration `yaml:"payment_timeout"`
	LND                 *LND     `yaml:"lnd,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Relays:              append([]string(nil), relay.DefaultRelays...),
		ConnectPollInterval: Duration(100 * time.Millisecond),
		ConnectPollBudget:   50,
		PublishTimeout:      Duration(10 * time.Second),
		PaymentTimeout:      Duration(30 * time.Second),
	}
}

// Load reads a YAML file over the defaults. Absent fields keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Relays) == 0 {
		cfg.Relays = append([]string(nil), relay.DefaultRelays...)
	}
	return cfg, nil
}

// PoolConfig maps the config onto relay pool settings.
func (c *Config) PoolConfig() relay.PoolConfig {
	return relay.PoolConfig{
		PollInterval:   c.ConnectPollInterval.Std(),
		PollBudget:     c.ConnectPollBudget,
		PublishTimeout: c.PublishTimeout.Std(),
	}
}
