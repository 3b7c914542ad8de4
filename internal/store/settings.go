package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ledgerdesk/ledgerdesk/internal/schema"
)

// GetSettings returns the settings record. The row always exists after
// schema application; a missing row still yields usable defaults.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	db, err := s.db()
	if err != nil {
		return Settings{}, err
	}
	var raw string
	err = db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, schema.SettingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return Settings{BaseCurrency: "USD", PageSize: 50, CompressImages: true}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

// UpdateSettings merges the patch onto the stored settings object; fields
// absent from the patch keep their prior value.
func (s *Store) UpdateSettings(ctx context.Context, patch map[string]any) (Settings, error) {
	if cur, ok := patch["baseCurrency"]; ok {
		code, isStr := cur.(string)
		if !isStr {
			return Settings{}, &ValidationError{Field: "baseCurrency", Reason: "must be a string"}
		}
		if err := validateCurrency(code); err != nil {
			return Settings{}, err
		}
	}

	db, err := s.db()
	if err != nil {
		return Settings{}, err
	}
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = ?`, schema.SettingsKey).Scan(&raw); err != nil && err != sql.ErrNoRows {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	merged := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &merged); err != nil {
			return Settings{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	for k, v := range patch {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}

	// The merged object must decode cleanly before anything is written;
	// otherwise a bad patch would be durable and poison every later read.
	var out Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Settings{}, &ValidationError{Field: "settings", Reason: err.Error()}
	}

	err = s.engine.MutateAndFlush(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO app_settings(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, schema.SettingsKey, string(data))
		return err
	})
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return out, nil
}
