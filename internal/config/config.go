package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the whole service.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls the listener and the accept loop.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// number of accept operations kept outstanding
	AcceptPool int `yaml:"accept_pool"`

	MaxRequestSize int `yaml:"max_request_size"`

	// zero disables the per-connection read deadline
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// how long Stop waits for in-flight requests; zero waits until Stop's context ends
	GracePeriod time.Duration `yaml:"grace_period"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			AcceptPool:     16,
			MaxRequestSize: 1 << 20,
			ReadTimeout:    0,
			GracePeriod:    3 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration at location (a local path or any URL afs
// understands) over the defaults, applies environment overrides and
// validates the result. An empty location skips the file.
func Load(ctx context.Context, location string) (*Config, error) {
	cfg := Default()
	if location != "" {
		fs := afs.New()
		data, err := fs.DownloadWithURL(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", location, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", location, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Server.AcceptPool = getEnvAsIntOrDefault("ACCEPT_POOL", c.Server.AcceptPool)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	// 0 picks a free port
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.AcceptPool < 1 {
		return fmt.Errorf("accept_pool must be at least 1, got %d", c.Server.AcceptPool)
	}
	if c.Server.MaxRequestSize < 1 {
		return fmt.Errorf("max_request_size must be positive, got %d", c.Server.MaxRequestSize)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative: %v", c.Server.ReadTimeout)
	}
	if c.Server.GracePeriod < 0 {
		return fmt.Errorf("grace_period must not be negative: %v", c.Server.GracePeriod)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ServerAddress returns host:port for the listener.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
