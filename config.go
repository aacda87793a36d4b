package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration, trimmed to the
// subsystems this decoder actually has: an HTTP/websocket listener, an
// optional MQTT publisher for completed decodes, Prometheus metrics, and
// logging verbosity.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls the live-decode websocket listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"` // e.g. ":8080"
	Mode       string `yaml:"mode"`        // registered sstv.Mode name, default "martinm1"
}

// MQTTConfig controls the optional decode-completion publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"` // e.g. "tcp://localhost:1883"
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // default "sstv/decodes"
}

// PrometheusConfig controls the metrics endpoint.
type PrometheusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // e.g. ":9090"
	Path       string `yaml:"path"`        // default "/metrics"
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			Mode:       "martinm1",
		},
		MQTT: MQTTConfig{
			Topic: "sstv/decodes",
		},
		Prometheus: PrometheusConfig{
			ListenAddr: ":9090",
			Path:       "/metrics",
		},
	}
}

// LoadConfig reads a YAML configuration file, falling back to defaults for
// any field the file omits.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must be set when mqtt.enabled is true")
	}
	return nil
}
