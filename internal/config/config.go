package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	App     AppConfig     `mapstructure:"app"`
	OCR     OCRConfig     `mapstructure:"ocr"`
}

// StorageConfig locates the data root (snapshot metadata + datasets).
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// AppConfig holds general preferences.
type AppConfig struct {
	BaseCurrency string `mapstructure:"base_currency"`
	Version      string `mapstructure:"version"`
}

// OCRConfig controls the receipt extraction queue.
type OCRConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	QueueSize int  `mapstructure:"queue_size"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// LEDGERDESK_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("storage.data_dir", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerdesk"))
	v.SetDefault("app.base_currency", "USD")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.queue_size", 16)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGERDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledgerdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGERDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed.
func Save(cfg Config) error {
	path := os.Getenv("LEDGERDESK_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "ledgerdesk", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("storage.data_dir", cfg.Storage.DataDir)
	v.Set("app.base_currency", cfg.App.BaseCurrency)
	v.Set("app.version", cfg.App.Version)
	v.Set("ocr.enabled", cfg.OCR.Enabled)
	v.Set("ocr.queue_size", cfg.OCR.QueueSize)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
