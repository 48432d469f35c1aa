package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bomrisk.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.digikey.com", cfg.DigiKey.BaseURL)
	assert.Equal(t, "https://api.mouser.com/api/v1", cfg.Mouser.BaseURL)
	assert.Equal(t, 24, cfg.Enrich.CacheTTLHours)
	assert.Equal(t, 10, cfg.Enrich.MaxCandidates)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOMRISK_STORE_DRIVER", "postgres")
	t.Setenv("BOMRISK_MOUSER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "test-key", cfg.Mouser.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}

	assert.Error(t, cfg.Validate("digikey"))
	assert.Error(t, cfg.Validate("mouser"))
	assert.Error(t, cfg.Validate("anthropic"))
	assert.NoError(t, cfg.Validate("unknown"))

	cfg.DigiKey.ClientID = "id"
	cfg.DigiKey.ClientSecret = "secret"
	assert.NoError(t, cfg.Validate("digikey"))

	cfg.Mouser.APIKey = "key"
	assert.NoError(t, cfg.Validate("mouser"))
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
