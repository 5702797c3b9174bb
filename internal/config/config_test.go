package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv(lookupMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestFromEnv_Overrides(t *testing.T) {
	c, err := FromEnv(lookupMap(map[string]string{
		EnvEngine:    "playwright",
		EnvAppDir:    " ./app ",
		EnvOut:       "artifacts",
		EnvBaseURL:   "http://127.0.0.1:9000/",
		EnvHeadless:  "false",
		EnvParallel:  "4",
		EnvTimeout:   "45s",
		EnvLogLevel:  "debug",
		EnvLogFormat: "json",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Engine:    "playwright",
		AppDir:    "./app",
		OutDir:    "artifacts",
		BaseURL:   "http://127.0.0.1:9000/",
		Headless:  false,
		Parallel:  4,
		Timeout:   45 * time.Second,
		LogLevel:  "debug",
		LogFormat: "json",
	}, c)
}

func TestFromEnv_Invalid(t *testing.T) {
	c, err := FromEnv(lookupMap(map[string]string{
		EnvHeadless: "maybe",
		EnvParallel: "0",
		EnvTimeout:  "soon",
	}))
	require.Error(t, err)
	for _, key := range []string{EnvHeadless, EnvParallel, EnvTimeout} {
		assert.Contains(t, err.Error(), key)
	}
	assert.True(t, c.Headless, "invalid value should keep the default")
	assert.Equal(t, 1, c.Parallel)
	assert.Equal(t, 30*time.Second, c.Timeout)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ci.env")
	require.NoError(t, os.WriteFile(path, []byte("UIVERIFY_ENGINE=static\nUIVERIFY_PARALLEL=3\n"), 0o644))

	t.Setenv(EnvEngine, "")
	os.Unsetenv(EnvEngine)
	t.Setenv(EnvParallel, "2")

	require.NoError(t, LoadEnvFile(path))
	c, err := FromEnv(os.LookupEnv)
	require.NoError(t, err)
	assert.Equal(t, "static", c.Engine)
	assert.Equal(t, 2, c.Parallel, "existing environment wins over the file")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadEnvFile(""), "missing default .env is fine")
	assert.Error(t, LoadEnvFile("nope.env"), "missing explicit file is an error")
}
