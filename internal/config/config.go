// Package config loads application configuration from file, environment
// and defaults, and wires the global logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teleconseil/prospect-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Sirene      SireneConfig      `yaml:"sirene" mapstructure:"sirene"`
	PagesJaunes PagesJaunesConfig `yaml:"pagesjaunes" mapstructure:"pagesjaunes"`
	Opco        OpcoConfig        `yaml:"opco" mapstructure:"opco"`
	Store       store.Config      `yaml:"store" mapstructure:"store"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SireneConfig holds the INSEE Sirene API settings. Without a key the
// registry client serves demo data.
type SireneConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PagesJaunesConfig holds the directory API settings.
type PagesJaunesConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpcoConfig holds the France Compétences lookup settings.
type OpcoConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures the enrichment pipeline.
type SearchConfig struct {
	Limit  int  `yaml:"limit" mapstructure:"limit"`
	Phones bool `yaml:"phones" mapstructure:"phones"`
	Opco   bool `yaml:"opco" mapstructure:"opco"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// A .env next to the binary is a convenience for local use; absence is
	// not an error.
	godotenv.Load() //nolint:errcheck

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API keys were historically set without the prefix; keep reading
	// the bare names.
	v.BindEnv("sirene.api_key", "PROSPECT_SIRENE_API_KEY", "SIRENE_API_KEY")           //nolint:errcheck
	v.BindEnv("pagesjaunes.api_key", "PROSPECT_PAGESJAUNES_API_KEY", "PAGESJAUNES_API_KEY") //nolint:errcheck

	// Defaults
	v.SetDefault("sirene.base_url", "https://api.insee.fr/api-sirene/3.11")
	v.SetDefault("pagesjaunes.base_url", "https://api.pagesjaunes.fr/v1")
	v.SetDefault("opco.base_url", "https://api.francecompetences.fr")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "annotations.db")
	v.SetDefault("search.limit", 300)
	v.SetDefault("search.phones", true)
	v.SetDefault("search.opco", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
