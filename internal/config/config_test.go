package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables the loader reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MEM0_API_KEY", "MEM0_BASE_URL", "LOG_LEVEL", "LOG_JSON", "HEALTH_PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad(t *testing.T) {
	t.Run("Should return defaults when nothing is set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "", cfg.Mem0.APIKey)
		assert.Equal(t, DefaultBaseURL, cfg.Mem0.BaseURL)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.JSON)
		assert.Equal(t, "", cfg.Health.Port)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should read values from the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MEM0_API_KEY", "m0-secret")
		t.Setenv("MEM0_BASE_URL", "http://localhost:8888/")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_JSON", "true")
		t.Setenv("HEALTH_PORT", "9090")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "m0-secret", cfg.Mem0.APIKey)
		assert.Equal(t, "http://localhost:8888", cfg.Mem0.BaseURL)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.JSON)
		assert.Equal(t, "9090", cfg.Health.Port)
	})

	t.Run("Should ignore unrelated environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("UNRELATED_SETTING", "x")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, Default().Mem0, cfg.Mem0)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("Should load variables from a dotenv file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("MEM0_API_KEY=from-file\n"), 0o600))

		require.NoError(t, LoadEnvFile(path))
		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.Mem0.APIKey)
	})

	t.Run("Should not override variables already set", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MEM0_API_KEY", "from-env")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("MEM0_API_KEY=from-file\n"), 0o600))

		require.NoError(t, LoadEnvFile(path))

		assert.Equal(t, "from-env", os.Getenv("MEM0_API_KEY"))
	})

	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	})

	t.Run("Should ignore an empty path", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(""))
	})
}

func TestTransformEnvKey(t *testing.T) {
	t.Run("Should map env names to nested koanf paths", func(t *testing.T) {
		assert.Equal(t, "mem0.api_key", transformEnvKey("MEM0_API_KEY"))
		assert.Equal(t, "log.level", transformEnvKey("LOG_LEVEL"))
		assert.Equal(t, "health.port", transformEnvKey("HEALTH__PORT"))
		assert.Equal(t, "single", transformEnvKey("SINGLE"))
		assert.Equal(t, "", transformEnvKey("___"))
	})

	t.Run("Should drop variables outside the known families", func(t *testing.T) {
		key, _ := transformEnv("PATH", "/usr/bin")
		assert.Equal(t, "", key)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept an empty API key", func(t *testing.T) {
		cfg := Default()
		cfg.Mem0.APIKey = ""

		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should reject a relative base URL", func(t *testing.T) {
		cfg := Default()
		cfg.Mem0.BaseURL = "api.mem0.ai"

		assert.ErrorContains(t, cfg.Validate(), "must be absolute")
	})

	t.Run("Should reject a non-http scheme", func(t *testing.T) {
		cfg := Default()
		cfg.Mem0.BaseURL = "ftp://api.mem0.ai"

		assert.ErrorContains(t, cfg.Validate(), "scheme")
	})

	t.Run("Should reject an unknown log level", func(t *testing.T) {
		cfg := Default()
		cfg.Log.Level = "trace"

		assert.ErrorContains(t, cfg.Validate(), "invalid log level")
	})

	t.Run("Should reject a non-numeric health port", func(t *testing.T) {
		cfg := Default()
		cfg.Health.Port = "http"

		assert.ErrorContains(t, cfg.Validate(), "invalid health port")
	})
}
