package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.insee.fr/api-sirene/3.11", cfg.Sirene.BaseURL)
	assert.Equal(t, "https://api.pagesjaunes.fr/v1", cfg.PagesJaunes.BaseURL)
	assert.Equal(t, "https://api.francecompetences.fr", cfg.Opco.BaseURL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "annotations.db", cfg.Store.Path)
	assert.Equal(t, 300, cfg.Search.Limit)
	assert.True(t, cfg.Search.Phones)
	assert.True(t, cfg.Search.Opco)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PROSPECT_SERVER_PORT", "9090")
	t.Setenv("PROSPECT_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECT_SEARCH_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.Search.Limit)
}

func TestLoad_BareAPIKeyNames(t *testing.T) {
	t.Setenv("SIRENE_API_KEY", "sk-sirene")
	t.Setenv("PAGESJAUNES_API_KEY", "sk-pj")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-sirene", cfg.Sirene.APIKey)
	assert.Equal(t, "sk-pj", cfg.PagesJaunes.APIKey)
}

func TestLoad_PrefixedKeyWinsOverBare(t *testing.T) {
	t.Setenv("SIRENE_API_KEY", "bare")
	t.Setenv("PROSPECT_SIRENE_API_KEY", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Sirene.APIKey)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
