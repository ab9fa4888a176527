// Package config loads the mem0 MCP server configuration from defaults, an
// optional dotenv file and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/johnswift/mem0-mcp/internal/logger"
)

const (
	DefaultBaseURL = "https://api.mem0.ai"
	DefaultEnvFile = ".env"
)

// envPrefixes lists the environment variable families the loader picks up.
var envPrefixes = []string{"MEM0_", "LOG_", "HEALTH_"}

// Config holds all configuration for the server.
type Config struct {
	Mem0   Mem0Config   `koanf:"mem0"`
	Log    LogConfig    `koanf:"log"`
	Health HealthConfig `koanf:"health"`
}

// Mem0Config configures the remote memory service client.
type Mem0Config struct {
	// APIKey is passed through as-is; an empty key is rejected by the service at call time.
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// HealthConfig configures the optional HTTP health probe. An empty port disables it.
type HealthConfig struct {
	Port string `koanf:"port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mem0: Mem0Config{
			BaseURL: DefaultBaseURL,
		},
		Log: LogConfig{
			Level: string(logger.InfoLevel),
		},
	}
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// A missing file is not an error. Variables already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from defaults and the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        "",
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Mem0.BaseURL = strings.TrimRight(cfg.Mem0.BaseURL, "/")
	return &cfg, nil
}

// transformEnv maps recognised environment variables to koanf paths and drops the rest.
func transformEnv(key, value string) (string, any) {
	for _, prefix := range envPrefixes {
		if strings.HasPrefix(key, prefix) {
			return transformEnvKey(key), value
		}
	}
	return "", nil
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: MEM0_API_KEY -> mem0.api_key
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '_'
	})
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Mem0.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid mem0 base URL: %w", err))
	case !u.IsAbs() || u.Host == "":
		errs = append(errs, fmt.Errorf("mem0 base URL must be absolute, got: %q", c.Mem0.BaseURL))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("mem0 base URL scheme must be http or https, got: %s", u.Scheme))
	}

	if !logger.LogLevel(strings.ToLower(c.Log.Level)).Valid() {
		errs = append(errs, fmt.Errorf("invalid log level: %q (must be debug, info, warn or error)", c.Log.Level))
	}

	if c.Health.Port != "" {
		if port, err := strconv.Atoi(c.Health.Port); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid health port: %q", c.Health.Port))
		}
	}

	return errors.Join(errs...)
}
