package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/juju/errors"
)

// Config holds all configuration for the application
type Config struct {
	Sink     SinkConfig
	Registry RegistryConfig
	Redis    RedisConfig
	HTTP     ServerConfig
	GRPC     ServerConfig
	LogLevel string
}

// SinkConfig selects and parameterizes the download sink
type SinkConfig struct {
	Strategy     string // "auto", "registry" or "direct"
	HostLevel    int    // host capability version marker
	DownloadsDir string // direct root; empty resolves the host Downloads dir
	Subdir       string // application namespace under the root
	MimeType     string // MIME type of registry entries
}

// RegistryConfig selects the downloads registry backend
type RegistryConfig struct {
	Backend string // "redis" or "memory"
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	level, err := strconv.Atoi(getEnv("HOST_API_LEVEL", "29"))
	if err != nil {
		return nil, errors.Annotate(err, "invalid HOST_API_LEVEL")
	}

	cfg := &Config{
		Sink: SinkConfig{
			Strategy:     getEnv("SINK_STRATEGY", "auto"),
			HostLevel:    level,
			DownloadsDir: getEnv("DOWNLOADS_DIR", ""),
			Subdir:       getEnv("DOWNLOADS_SUBDIR", "PayHive"),
			MimeType:     getEnv("DOWNLOADS_MIME_TYPE", "application/pdf"),
		},
		Registry: RegistryConfig{
			Backend: getEnv("REGISTRY_BACKEND", "redis"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "redis"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		HTTP: ServerConfig{
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Port: getEnv("GRPC_PORT", "50051"),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Sink.Strategy {
	case "auto", "registry", "direct":
	default:
		return errors.NotValidf("SINK_STRATEGY %q", c.Sink.Strategy)
	}
	switch c.Registry.Backend {
	case "redis", "memory":
	default:
		return errors.NotValidf("REGISTRY_BACKEND %q", c.Registry.Backend)
	}
	return nil
}

// GetRedisAddr returns the Redis address in host:port format
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
