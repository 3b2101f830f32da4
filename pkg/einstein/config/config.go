// Package config provides YAML configuration loading for the gateway.
//
// A single file configures the UDP engine, the HTTP surface, webhook
// delivery, and the optional packet dump. A missing file is not an error:
// every field has a default that matches a stock IntelliVue LAN setup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when no -config flag is given.
const EnvConfigPath = "EINSTEIN_CONFIG"

const defaultPath = "/etc/einstein/einstein.yaml"

// Config is the full gateway configuration.
type Config struct {
	// ListenAddr is the UDP bind address for all monitor traffic.
	ListenAddr string `yaml:"listen_addr"`

	// DiscoveryPort is the sender port that marks a datagram as a
	// discovery beacon (default 24005).
	DiscoveryPort int `yaml:"discovery_port"`

	// ProtocolPort is the monitor-side port for association and polling
	// (default 24105).
	ProtocolPort int `yaml:"protocol_port"`

	// PollInterval is the poll period in seconds (default 2).
	PollInterval int `yaml:"poll_interval"`

	// StaleAfter marks a silent session stale after this many seconds.
	// 0 disables the check.
	StaleAfter int `yaml:"stale_after"`

	// HTTPAddr is the REST control surface listen address (default :8080).
	HTTPAddr string `yaml:"http_addr"`

	// WebhookTimeout is the per-POST timeout in milliseconds (default 5000).
	WebhookTimeout int `yaml:"webhook_timeout"`

	// DumpFile enables pcap capture of all protocol traffic when set.
	DumpFile string `yaml:"dump_file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ListenAddr:     ":24005",
		DiscoveryPort:  24005,
		ProtocolPort:   24105,
		PollInterval:   2,
		HTTPAddr:       ":8080",
		WebhookTimeout: 5000,
	}
}

// PathFromEnv resolves the config path: explicit argument first, then the
// EINSTEIN_CONFIG environment variable, then the packaged default.
func PathFromEnv(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return defaultPath
}

// Load reads the file at path over the defaults. A nonexistent file yields
// the defaults; a present but malformed file is an error.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if logger != nil {
				logger.Info("config file absent, using defaults", "path", path)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DiscoveryPort < 1 || c.DiscoveryPort > 65535 {
		return fmt.Errorf("discovery_port %d out of range", c.DiscoveryPort)
	}
	if c.ProtocolPort < 1 || c.ProtocolPort > 65535 {
		return fmt.Errorf("protocol_port %d out of range", c.ProtocolPort)
	}
	if c.PollInterval < 1 {
		return fmt.Errorf("poll_interval %d must be at least 1 second", c.PollInterval)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("stale_after %d must not be negative", c.StaleAfter)
	}
	if c.WebhookTimeout < 1 {
		return fmt.Errorf("webhook_timeout %d must be at least 1ms", c.WebhookTimeout)
	}
	return nil
}

// PollEvery returns the poll period.
func (c Config) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// StaleWindow returns the staleness window, zero when disabled.
func (c Config) StaleWindow() time.Duration {
	return time.Duration(c.StaleAfter) * time.Second
}

// WebhookDeadline returns the per-POST timeout.
func (c Config) WebhookDeadline() time.Duration {
	return time.Duration(c.WebhookTimeout) * time.Millisecond
}
