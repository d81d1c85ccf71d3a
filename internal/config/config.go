package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Stream struct {
		DataPath        string `yaml:"data_path"`
		IntervalSeconds int64  `yaml:"interval_seconds"`
		MaxSamples      int64  `yaml:"max_samples"` // negative = unbounded, 0 = process nothing
	} `yaml:"stream"`
	Inference struct {
		Mode           string `yaml:"mode"` // "remote" or "local"
		RemoteURL      string `yaml:"remote_url"`
		ArtifactPath   string `yaml:"artifact_path"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"inference"`
	Telemetry struct {
		Host           string `yaml:"host"`
		DeviceToken    string `yaml:"device_token"`
		MaxRetries     uint64 `yaml:"max_retries"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"telemetry"`
	Server struct {
		Enabled bool   `yaml:"enabled"`
		Port    string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.ApplyDefaults()

	return config, nil
}

// ApplyDefaults fills in zero values with the defaults the original
// deployment used (5s stream interval, unbounded replay).
func (c *Config) ApplyDefaults() {
	if c.Stream.IntervalSeconds == 0 {
		c.Stream.IntervalSeconds = 5
	}
	if c.Stream.MaxSamples == 0 {
		c.Stream.MaxSamples = -1
	}
	if c.Inference.Mode == "" {
		c.Inference.Mode = "remote"
	}
	if c.Inference.TimeoutSeconds == 0 {
		c.Inference.TimeoutSeconds = 10
	}
	if c.Telemetry.MaxRetries == 0 {
		c.Telemetry.MaxRetries = 3
	}
	if c.Telemetry.TimeoutSeconds == 0 {
		c.Telemetry.TimeoutSeconds = 5
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
}

// Validate checks that the selected inference mode has the settings it needs.
func (c *Config) Validate() error {
	switch c.Inference.Mode {
	case "remote":
		if c.Inference.RemoteURL == "" {
			return fmt.Errorf("inference.remote_url is required in remote mode")
		}
	case "local":
		if c.Inference.ArtifactPath == "" {
			return fmt.Errorf("inference.artifact_path is required in local mode")
		}
	default:
		return fmt.Errorf("unknown inference mode %q (want remote or local)", c.Inference.Mode)
	}
	if c.Stream.DataPath == "" {
		return fmt.Errorf("stream.data_path is required")
	}
	return nil
}
