package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chamberctl/internal/models"
)

// SettingsSQLite stores the settings as a single JSON document row. The
// document only overrides the fields it names; everything else comes from
// the in-code defaults, so new settings get sane values on upgrade.
type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

var _ SettingsRepo = (*SettingsSQLite)(nil)

const (
	settingsRowID = 1

	upsertSettingsSQL = `
		INSERT INTO settings (id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc=excluded.doc,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `SELECT doc FROM settings WHERE id=?`
)

// Load returns the defaults with the persisted document merged over them.
// A missing row or an unreadable document falls back to pure defaults.
func (r *SettingsSQLite) Load(ctx context.Context) (models.Settings, error) {
	merged := models.DefaultSettings()

	var doc string
	err := r.db.QueryRowContext(ctx, selectSettingsSQL, settingsRowID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return merged, nil
		}
		return merged, err
	}

	if err := json.Unmarshal([]byte(doc), &merged); err != nil {
		return models.DefaultSettings(), fmt.Errorf("decode settings document: %w", err)
	}
	return merged, nil
}

// Save replaces the stored document with the full settings struct.
func (r *SettingsSQLite) Save(ctx context.Context, s models.Settings) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertSettingsSQL, settingsRowID, string(doc), time.Now().UTC())
	return err
}
