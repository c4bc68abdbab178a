// Package config provides configuration loading and management for pointcloudviz.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Dataset parameters
	Dataset struct {
		// Path is the location of the columnar point-cloud table
		Path string `yaml:"path"`

		// CloudSize is the number of points every grid cell must hold
		CloudSize int `yaml:"cloudSize"`

		// SliderOffset is added to slider values to obtain grid coordinates
		SliderOffset float64 `yaml:"sliderOffset"`

		// RoundDecimals is the precision used when matching grid coordinates
		RoundDecimals int `yaml:"roundDecimals"`
	} `yaml:"dataset"`

	// Render parameters
	Render struct {
		// ColorScale is the named color scale passed to the renderer
		ColorScale string `yaml:"colorScale"`

		// ColorbarTitle labels the color bar
		ColorbarTitle string `yaml:"colorbarTitle"`

		// Opacity of the scatter markers
		Opacity float64 `yaml:"opacity"`

		// DefaultMarkerSize is used when a request does not specify one
		DefaultMarkerSize int `yaml:"defaultMarkerSize"`

		// MarkerSizes lists the marker sizes a caller may choose from
		MarkerSizes []int `yaml:"markerSizes"`

		// SnapshotSize is the edge length in pixels of PNG snapshots
		SnapshotSize int `yaml:"snapshotSize"`
	} `yaml:"render"`

	// HTTP server parameters
	Server struct {
		// Addr is the listen address
		Addr string `yaml:"addr"`

		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`

		// ShutdownTimeout bounds graceful shutdown
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is json or console
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Dataset.Path = "pointclouds_col.csv"
	cfg.Dataset.CloudSize = 1024
	cfg.Dataset.SliderOffset = 2
	cfg.Dataset.RoundDecimals = 2

	cfg.Render.ColorScale = "Cividis"
	cfg.Render.ColorbarTitle = "Distance<br>from mean"
	cfg.Render.Opacity = 0.7
	cfg.Render.DefaultMarkerSize = 15
	cfg.Render.MarkerSizes = []int{5, 10, 15, 20, 25}
	cfg.Render.SnapshotSize = 512

	cfg.Server.Addr = ":8060"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

// Validate reports the first inconsistent setting
func (c *Config) Validate() error {
	if c.Dataset.CloudSize <= 0 {
		return fmt.Errorf("dataset.cloudSize must be positive, got %d", c.Dataset.CloudSize)
	}
	if c.Dataset.RoundDecimals < 0 || c.Dataset.RoundDecimals > 9 {
		return fmt.Errorf("dataset.roundDecimals must be between 0 and 9, got %d", c.Dataset.RoundDecimals)
	}
	if c.Render.Opacity < 0 || c.Render.Opacity > 1 {
		return fmt.Errorf("render.opacity must be within [0, 1], got %g", c.Render.Opacity)
	}
	if len(c.Render.MarkerSizes) == 0 {
		return fmt.Errorf("render.markerSizes must not be empty")
	}
	if !c.MarkerSizeAllowed(c.Render.DefaultMarkerSize) {
		return fmt.Errorf("render.defaultMarkerSize %d is not one of %v",
			c.Render.DefaultMarkerSize, c.Render.MarkerSizes)
	}
	if c.Render.SnapshotSize <= 0 {
		return fmt.Errorf("render.snapshotSize must be positive, got %d", c.Render.SnapshotSize)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// MarkerSizeAllowed reports whether size is one of the configured marker sizes
func (c *Config) MarkerSizeAllowed(size int) bool {
	for _, s := range c.Render.MarkerSizes {
		if s == size {
			return true
		}
	}
	return false
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
