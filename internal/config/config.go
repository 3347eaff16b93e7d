package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pixeleasel/easeld/internal/progress"
)

// Config defines configuration for the easeld daemon.
type Config struct {
	ListenAddr  string         `yaml:"listen_addr"`
	DataDir     string         `yaml:"data_dir"`
	DownloadDir string         `yaml:"download_dir"`
	ChunkSize   int            `yaml:"chunk_size"`
	Download    DownloadConfig `yaml:"download"`
	Log         LogConfig      `yaml:"log"`
}

// DownloadConfig defines download retry behavior.
type DownloadConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:8765",
		ChunkSize:  64 * 1024,
		Download: DownloadConfig{
			Attempts: 3,
			Backoff:  300 * time.Millisecond,
			Timeout:  60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	ListenAddr  string             `yaml:"listen_addr"`
	DataDir     string             `yaml:"data_dir"`
	DownloadDir string             `yaml:"download_dir"`
	ChunkSize   string             `yaml:"chunk_size"`
	Download    yamlDownloadConfig `yaml:"download"`
	Log         LogConfig          `yaml:"log"`
}

type yamlDownloadConfig struct {
	Attempts int    `yaml:"attempts"`
	Backoff  string `yaml:"backoff"`
	Timeout  string `yaml:"timeout"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.ListenAddr != "" {
		cfg.ListenAddr = yc.ListenAddr
	}
	if yc.DataDir != "" {
		cfg.DataDir = yc.DataDir
	}
	if yc.DownloadDir != "" {
		cfg.DownloadDir = yc.DownloadDir
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = int(size)
	}
	if yc.Download.Attempts != 0 {
		cfg.Download.Attempts = yc.Download.Attempts
	}
	if yc.Download.Backoff != "" {
		d, err := time.ParseDuration(yc.Download.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.backoff: %w", err)
		}
		cfg.Download.Backoff = d
	}
	if yc.Download.Timeout != "" {
		d, err := time.ParseDuration(yc.Download.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse download.timeout: %w", err)
		}
		cfg.Download.Timeout = d
	}
	if yc.Log.Path != "" {
		cfg.Log.Path = yc.Log.Path
	}
	if yc.Log.Level != "" {
		cfg.Log.Level = yc.Log.Level
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the EASELD_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EASELD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("EASELD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("EASELD_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("EASELD_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse EASELD_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = int(size)
	}
	if v := os.Getenv("EASELD_DOWNLOAD_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse EASELD_DOWNLOAD_ATTEMPTS: %w", err)
		}
		c.Download.Attempts = n
	}
	if v := os.Getenv("EASELD_DOWNLOAD_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse EASELD_DOWNLOAD_BACKOFF: %w", err)
		}
		c.Download.Backoff = d
	}
	if v := os.Getenv("EASELD_DOWNLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse EASELD_DOWNLOAD_TIMEOUT: %w", err)
		}
		c.Download.Timeout = d
	}
	if v := os.Getenv("EASELD_LOG_PATH"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("EASELD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr is required")
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Download.Attempts <= 0 {
		return errors.New("config: download.attempts must be positive")
	}
	if c.Download.Backoff < 0 {
		return errors.New("config: download.backoff must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.ListenAddr != "" {
		c.ListenAddr = override.ListenAddr
	}
	if override.DataDir != "" {
		c.DataDir = override.DataDir
	}
	if override.DownloadDir != "" {
		c.DownloadDir = override.DownloadDir
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Download.Attempts != 0 {
		c.Download.Attempts = override.Download.Attempts
	}
	if override.Download.Backoff != 0 {
		c.Download.Backoff = override.Download.Backoff
	}
	if override.Download.Timeout != 0 {
		c.Download.Timeout = override.Download.Timeout
	}
	if override.Log.Path != "" {
		c.Log.Path = override.Log.Path
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	return c
}
