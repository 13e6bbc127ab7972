package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
quiz:
  default_seconds: 20
  shuffle: true
  source: yaml
  path: questions.yaml
bests:
  backend: redis
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Quiz.DefaultSeconds)
	assert.True(t, cfg.Quiz.Shuffle)
	assert.Equal(t, "yaml", cfg.Quiz.Source)
	assert.Equal(t, "redis", cfg.Bests.Backend)
	assert.Equal(t, "1s", cfg.Quiz.TickInterval, "unset keys keep their default")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, TTLDuration("", 5*time.Minute))
	assert.Equal(t, 5*time.Minute, TTLDuration("soon", 5*time.Minute))
	assert.Equal(t, 250*time.Millisecond, TTLDuration("250ms", 5*time.Minute))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, LoadEnv(), "no .env is fine")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUIZ_RUNNER_TEST_VAR=from-dotenv\n"), 0o644))
	t.Setenv("QUIZ_RUNNER_TEST_VAR", "")
	os.Unsetenv("QUIZ_RUNNER_TEST_VAR")
	require.NoError(t, LoadEnv())
	assert.Equal(t, "from-dotenv", os.Getenv("QUIZ_RUNNER_TEST_VAR"))
}
