package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadBindsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
data_dir = "/data/ledgerdesk"

[app]
base_currency = "EUR"
version = "2.1.0"

[ocr]
enabled = false
queue_size = 4
`), 0o644))
	t.Setenv("LEDGERDESK_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/ledgerdesk", cfg.Storage.DataDir)
	require.Equal(t, "EUR", cfg.App.BaseCurrency)
	require.Equal(t, "2.1.0", cfg.App.Version)
	require.False(t, cfg.OCR.Enabled)
	require.Equal(t, 4, cfg.OCR.QueueSize)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGERDESK_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(os.Getenv("HOME"), ".local", "share", "ledgerdesk"), cfg.Storage.DataDir)
	require.Equal(t, "USD", cfg.App.BaseCurrency)
	require.True(t, cfg.OCR.Enabled)
	require.Equal(t, 16, cfg.OCR.QueueSize)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
data_dir = "/data/elsewhere"
`), 0o644))
	t.Setenv("LEDGERDESK_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/elsewhere", cfg.Storage.DataDir)
	require.Equal(t, "USD", cfg.App.BaseCurrency)
	require.Equal(t, 16, cfg.OCR.QueueSize)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("LEDGERDESK_CONFIG", path)

	want := Config{
		Storage: StorageConfig{DataDir: "/data/saved"},
		App:     AppConfig{BaseCurrency: "GBP", Version: "1.2.3"},
		OCR:     OCRConfig{Enabled: true, QueueSize: 8},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
