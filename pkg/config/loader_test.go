package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

type digestConfig struct {
	MinAge  time.Duration `env:"TEST_CFG_MIN_AGE" envDefault:"30m"`
	Domains []string      `env:"TEST_CFG_DOMAINS" envSeparator:","`
}

type requiredConfig struct {
	Token string `env:"TEST_CFG_REQUIRED_TOKEN,required"`
}

type fileConfig struct {
	Platform string `env:"TEST_CFG_PLATFORM"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_CFG_DOMAINS", "ugr.es,correo.ugr.es")
	config.ResetCache()

	var cfg digestConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 30*time.Minute, cfg.MinAge)
	assert.Equal(t, []string{"ugr.es", "correo.ugr.es"}, cfg.Domains)

	// Cached: later environment changes are not observed.
	t.Setenv("TEST_CFG_MIN_AGE", "1m")
	var again digestConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, 30*time.Minute, again.MinAge)

	config.ResetCache()
	require.NoError(t, config.Load(&again))
	assert.Equal(t, time.Minute, again.MinAge)
}

func TestLoad_MissingRequired(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *digestConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("TEST_CFG_PLATFORM=Aula\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TEST_CFG_PLATFORM") })
	config.ResetCache()

	require.NoError(t, config.LoadEnv(path))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "Aula", cfg.Platform)

	assert.ErrorIs(t, config.LoadEnv(filepath.Join(t.TempDir(), "missing.env")), config.ErrLoadingEnvFile)
}
