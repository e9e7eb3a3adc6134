package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "RAPIDAPI_KEY", "JUDGE0_URL", "GROQ_KEY", "GOOGLE_CLIENT_ID", "APP_ENV", "CONFIG_PATH", "ENV_FILE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, "config.yaml", `
http:
  addr: ":9000"
sandbox:
  timeout: 5s
rooms:
  idleTTL: "0"
ws:
  burst: 10
cors:
  allowedOrigins: ["https://app.example.com"]
`)

	cfg, err := Load(p, true)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.TimeoutOr())
	assert.Equal(t, "https://judge0-ce.p.rapidapi.com/submissions", cfg.Sandbox.URL)
	assert.Equal(t, time.Duration(0), cfg.Rooms.IdleTTLOr(), "explicit zero disables eviction")
	assert.Equal(t, time.Minute, cfg.Rooms.SweepIntervalOr())
	assert.Equal(t, 10, cfg.WS.Burst)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "codecollab", cfg.Logging.Service)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, 30*time.Second, cfg.Evaluator.TimeoutOr())
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeoutOr())
	assert.Equal(t, time.Duration(0), cfg.HTTP.WriteTimeoutOr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("RAPIDAPI_KEY", "rk")
	t.Setenv("GROQ_KEY", "gk")
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("JUDGE0_URL", "http://judge0.local/submissions")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load(writeFile(t, "c.yaml", "http:\n  addr: \":1\"\n"), true)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "rk", cfg.Sandbox.APIKey)
	assert.Equal(t, "gk", cfg.Evaluator.APIKey)
	assert.Equal(t, "cid", cfg.Auth.GoogleClientID)
	assert.Equal(t, "http://judge0.local/submissions", cfg.Sandbox.URL)
	assert.Equal(t, "prod", cfg.Logging.Env)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing, true)
	assert.Error(t, err)

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.IdleTTLOr())
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "c.yaml", "sandbox:\n  timeout: soon\n"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sandbox.timeout")
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GROQ_KEY=from-dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("CONFIG_PATH", writeFile(t, "c.yaml", "grpc:\n  addr: \"\"\n"))
	// godotenv does not override variables that are already set
	require.NoError(t, os.Unsetenv("GROQ_KEY"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Evaluator.APIKey)
	assert.Empty(t, cfg.GRPC.Addr)
}

func TestRepoConfigParses(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("config.yaml", true)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, "openai/gpt-oss-20b", cfg.Evaluator.Model)
}
